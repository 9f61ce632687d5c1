package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"app/internal/domain/model"
)

const stripeAPIURL = "https://api.stripe.com/v1"

type StripeGateway struct {
	secretKey string
	currency  string
	client    *http.Client
}

func NewStripeGateway(secretKey, currency string) *StripeGateway {
	return &StripeGateway{
		secretKey: secretKey,
		currency:  currency,
		client:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (g *StripeGateway) Name() string { return "stripe" }

type stripePaymentIntent struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	NextAction *struct {
		RedirectToURL *struct {
			URL string `json:"url"`
		} `json:"redirect_to_url"`
	} `json:"next_action"`
	Metadata map[string]string `json:"metadata"`
}

func (g *StripeGateway) Initialize(ctx context.Context, order model.Order, buyerEmail string) (InitResult, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(order.TotalPrice, 10))
	form.Set("currency", g.currency)
	form.Set("payment_method_types[]", "card")
	form.Set("metadata[order_id]", strconv.FormatInt(order.ID, 10))
	form.Set("receipt_email", buyerEmail)

	var intent stripePaymentIntent
	if err := g.do(ctx, http.MethodPost, "/payment_intents", form, &intent); err != nil {
		return InitResult{}, fmt.Errorf("stripe initialize: %w", err)
	}

	result := InitResult{TransactionID: intent.ID}
	if intent.NextAction != nil && intent.NextAction.RedirectToURL != nil {
		result.PaymentURL = intent.NextAction.RedirectToURL.URL
	}
	return result, nil
}

type stripeCallback struct {
	TransactionID string `json:"transaction_id"`
}

func (g *StripeGateway) Verify(ctx context.Context, payload []byte) (VerifyResult, error) {
	var cb stripeCallback
	if err := json.Unmarshal(payload, &cb); err != nil {
		return VerifyResult{}, fmt.Errorf("stripe callback payload: %w", err)
	}
	if cb.TransactionID == "" {
		return VerifyResult{}, fmt.Errorf("stripe callback payload: missing transaction_id")
	}

	var intent stripePaymentIntent
	if err := g.do(ctx, http.MethodGet, "/payment_intents/"+url.PathEscape(cb.TransactionID), nil, &intent); err != nil {
		return VerifyResult{}, fmt.Errorf("stripe verify: %w", err)
	}

	orderID, err := strconv.ParseInt(intent.Metadata["order_id"], 10, 64)
	if err != nil {
		return VerifyResult{}, fmt.Errorf("stripe verify: bad order_id metadata: %w", err)
	}
	return VerifyResult{Success: intent.Status == "succeeded", OrderID: orderID}, nil
}

func (g *StripeGateway) Refund(ctx context.Context, order model.Order) error {
	if order.TransactionID == "" {
		return fmt.Errorf("stripe refund: order %d has no transaction", order.ID)
	}
	form := url.Values{}
	form.Set("payment_intent", order.TransactionID)

	var out struct {
		Status string `json:"status"`
	}
	if err := g.do(ctx, http.MethodPost, "/refunds", form, &out); err != nil {
		return fmt.Errorf("stripe refund: %w", err)
	}
	if out.Status != "succeeded" && out.Status != "pending" {
		return fmt.Errorf("stripe refund: unexpected status %q", out.Status)
	}
	return nil
}

func (g *StripeGateway) do(ctx context.Context, method, path string, form url.Values, out any) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, stripeAPIURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+g.secretKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
