package shipment

import (
	"context"
	"fmt"

	"app/internal/domain/model"

	"github.com/google/uuid"
)

// MockCarrier issues labels without any outbound call.
type MockCarrier struct{}

func NewMockCarrier() *MockCarrier { return &MockCarrier{} }

func (c *MockCarrier) Name() string { return "mock" }

func (c *MockCarrier) GenerateLabel(_ context.Context, order model.Order, _ model.Address) (Label, error) {
	tracking := "MOCK-" + uuid.NewString()
	return Label{
		URL:            fmt.Sprintf("https://labels.invalid/%d/%s.pdf", order.ID, tracking),
		TrackingNumber: tracking,
	}, nil
}

func (c *MockCarrier) Track(_ context.Context, trackingNumber string) (string, error) {
	if trackingNumber == "" {
		return "", fmt.Errorf("mock track: empty tracking number")
	}
	return "in_transit", nil
}
