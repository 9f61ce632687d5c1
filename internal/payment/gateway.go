// Package payment provides a uniform interface over heterogeneous payment
// providers plus the registry the coordinator selects them from.
package payment

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"app/internal/domain/model"
)

type InitResult struct {
	TransactionID string `json:"transaction_id"`
	PaymentURL    string `json:"payment_url"`
}

type VerifyResult struct {
	Success bool  `json:"success"`
	OrderID int64 `json:"order_id"`
}

// ErrUnknownGateway is returned by the registry for names nobody registered.
// It maps to a BadRequest upstream; there is no default gateway.
var ErrUnknownGateway = errors.New("unknown payment gateway")

// ErrManualRefund marks gateways whose refunds cannot be issued through an
// API call and need back-office handling.
var ErrManualRefund = errors.New("refund requires manual processing")

type Gateway interface {
	Name() string
	Initialize(ctx context.Context, order model.Order, buyerEmail string) (InitResult, error)
	// Verify parses a gateway-specific callback payload. Signature checking
	// happens before this, on the raw request body.
	Verify(ctx context.Context, payload []byte) (VerifyResult, error)
	Refund(ctx context.Context, order model.Order) error
}

type Registry struct {
	gateways map[string]Gateway
}

func NewRegistry(gateways ...Gateway) *Registry {
	r := &Registry{gateways: make(map[string]Gateway, len(gateways))}
	for _, g := range gateways {
		r.gateways[g.Name()] = g
	}
	return r
}

func (r *Registry) Get(name string) (Gateway, error) {
	g, ok := r.gateways[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGateway, name)
	}
	return g, nil
}

func (r *Registry) Has(name string) bool {
	_, ok := r.gateways[name]
	return ok
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.gateways))
	for name := range r.gateways {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
