// Package shipment wraps carrier label APIs behind one interface, selected
// through a registry keyed by carrier name.
package shipment

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"app/internal/domain/model"
)

type Label struct {
	URL            string `json:"url"`
	TrackingNumber string `json:"tracking_number"`
}

var ErrUnknownCarrier = errors.New("unknown shipping carrier")

type Carrier interface {
	Name() string
	GenerateLabel(ctx context.Context, order model.Order, address model.Address) (Label, error)
	Track(ctx context.Context, trackingNumber string) (string, error)
}

type Registry struct {
	carriers map[string]Carrier
}

func NewRegistry(carriers ...Carrier) *Registry {
	r := &Registry{carriers: make(map[string]Carrier, len(carriers))}
	for _, c := range carriers {
		r.carriers[c.Name()] = c
	}
	return r
}

func (r *Registry) Get(name string) (Carrier, error) {
	c, ok := r.carriers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCarrier, name)
	}
	return c, nil
}

func (r *Registry) Has(name string) bool {
	_, ok := r.carriers[name]
	return ok
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.carriers))
	for name := range r.carriers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
