package payment

import (
	"context"
	"encoding/json"
	"fmt"

	"app/internal/domain/model"

	"github.com/google/uuid"
)

// MockGateway settles everything locally. Used in dev environments and
// tests; callbacks carry the outcome in the payload.
type MockGateway struct {
	baseURL string
}

func NewMockGateway(baseURL string) *MockGateway {
	return &MockGateway{baseURL: baseURL}
}

func (g *MockGateway) Name() string { return "mock" }

func (g *MockGateway) Initialize(_ context.Context, order model.Order, _ string) (InitResult, error) {
	txnID := "mock_" + uuid.NewString()
	return InitResult{
		TransactionID: txnID,
		PaymentURL:    fmt.Sprintf("%s/mock-pay/%s?order=%d", g.baseURL, txnID, order.ID),
	}, nil
}

type mockCallback struct {
	OrderID int64 `json:"order_id"`
	Paid    bool  `json:"paid"`
}

func (g *MockGateway) Verify(_ context.Context, payload []byte) (VerifyResult, error) {
	var cb mockCallback
	if err := json.Unmarshal(payload, &cb); err != nil {
		return VerifyResult{}, fmt.Errorf("mock callback payload: %w", err)
	}
	if cb.OrderID <= 0 {
		return VerifyResult{}, fmt.Errorf("mock callback payload: missing order_id")
	}
	return VerifyResult{Success: cb.Paid, OrderID: cb.OrderID}, nil
}

func (g *MockGateway) Refund(_ context.Context, _ model.Order) error {
	return nil
}
