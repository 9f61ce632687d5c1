package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVariantKey_CanonicalOrder(t *testing.T) {
	// same selection in any map order yields the same key
	a := VariantKey(map[string]string{"size": "M", "color": "red"})
	b := VariantKey(map[string]string{"color": "red", "size": "M"})
	assert.Equal(t, "color:red;size:M", a)
	assert.Equal(t, a, b)
}

func TestVariantKey_EmptySelection(t *testing.T) {
	assert.Equal(t, "", VariantKey(nil))
	assert.Equal(t, "", VariantKey(map[string]string{}))
}

func TestOrderStatusGuards(t *testing.T) {
	assert.True(t, OrderStatusPending.CanCancel())
	assert.True(t, OrderStatusProcessing.CanCancel())
	assert.False(t, OrderStatusShipped.CanCancel())
	assert.False(t, OrderStatusCancelled.CanCancel())

	assert.True(t, OrderStatusCompleted.IsTerminal())
	assert.True(t, OrderStatusCancelled.IsTerminal())
	assert.True(t, OrderStatusDenied.IsTerminal())
	assert.False(t, OrderStatusDisputed.IsTerminal())
	assert.False(t, OrderStatusShipped.IsTerminal())
}
