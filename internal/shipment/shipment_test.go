package shipment

import (
	"context"
	"testing"

	"app/internal/domain/model"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_UnknownCarrierRejected(t *testing.T) {
	r := NewRegistry(NewMockCarrier())

	c, err := r.Get("mock")
	assert.NoError(t, err)
	assert.Equal(t, "mock", c.Name())

	_, err = r.Get("pigeon")
	assert.ErrorIs(t, err, ErrUnknownCarrier)
}

func TestMockCarrier_LabelAndTrack(t *testing.T) {
	ctx := context.Background()
	c := NewMockCarrier()

	label, err := c.GenerateLabel(ctx, model.Order{ID: 55}, model.Address{})
	assert.NoError(t, err)
	assert.NotEmpty(t, label.TrackingNumber)
	assert.Contains(t, label.URL, label.TrackingNumber)

	status, err := c.Track(ctx, label.TrackingNumber)
	assert.NoError(t, err)
	assert.Equal(t, "in_transit", status)

	_, err = c.Track(ctx, "")
	assert.Error(t, err)
}
