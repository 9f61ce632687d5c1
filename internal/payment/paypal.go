package payment

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"app/internal/domain/model"
)

type PayPalGateway struct {
	apiURL       string
	clientID     string
	clientSecret string
	currency     string
	client       *http.Client
}

func NewPayPalGateway(apiURL, clientID, clientSecret, currency string) *PayPalGateway {
	return &PayPalGateway{
		apiURL:       strings.TrimRight(apiURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		currency:     currency,
		client:       &http.Client{Timeout: 15 * time.Second},
	}
}

func (g *PayPalGateway) Name() string { return "paypal" }

func (g *PayPalGateway) accessToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.apiURL+"/v1/oauth2/token", strings.NewReader("grant_type=client_credentials"))
	if err != nil {
		return "", err
	}
	basic := base64.StdEncoding.EncodeToString([]byte(g.clientID + ":" + g.clientSecret))
	req.Header.Set("Authorization", "Basic "+basic)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("paypal oauth: status %d", resp.StatusCode)
	}

	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.AccessToken, nil
}

type paypalOrder struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	Links         []struct {
		Href string `json:"href"`
		Rel  string `json:"rel"`
	} `json:"links"`
	PurchaseUnits []struct {
		ReferenceID string `json:"reference_id"`
	} `json:"purchase_units"`
}

func (g *PayPalGateway) Initialize(ctx context.Context, order model.Order, buyerEmail string) (InitResult, error) {
	token, err := g.accessToken(ctx)
	if err != nil {
		return InitResult{}, fmt.Errorf("paypal initialize: %w", err)
	}

	body := map[string]any{
		"intent": "CAPTURE",
		"purchase_units": []map[string]any{{
			"reference_id": strconv.FormatInt(order.ID, 10),
			"amount": map[string]string{
				"currency_code": g.currency,
				// minor units to decimal string
				"value": fmt.Sprintf("%d.%02d", order.TotalPrice/100, order.TotalPrice%100),
			},
			"description": fmt.Sprintf("Order %d", order.ID),
		}},
		"payer": map[string]string{"email_address": buyerEmail},
	}

	var created paypalOrder
	if err := g.do(ctx, http.MethodPost, "/v2/checkout/orders", token, body, &created); err != nil {
		return InitResult{}, fmt.Errorf("paypal initialize: %w", err)
	}

	result := InitResult{TransactionID: created.ID}
	for _, link := range created.Links {
		if link.Rel == "approve" {
			result.PaymentURL = link.Href
			break
		}
	}
	return result, nil
}

type paypalCallback struct {
	TransactionID string `json:"transaction_id"`
}

func (g *PayPalGateway) Verify(ctx context.Context, payload []byte) (VerifyResult, error) {
	var cb paypalCallback
	if err := json.Unmarshal(payload, &cb); err != nil {
		return VerifyResult{}, fmt.Errorf("paypal callback payload: %w", err)
	}
	if cb.TransactionID == "" {
		return VerifyResult{}, fmt.Errorf("paypal callback payload: missing transaction_id")
	}

	token, err := g.accessToken(ctx)
	if err != nil {
		return VerifyResult{}, fmt.Errorf("paypal verify: %w", err)
	}

	var captured paypalOrder
	path := "/v2/checkout/orders/" + cb.TransactionID + "/capture"
	if err := g.do(ctx, http.MethodPost, path, token, map[string]any{}, &captured); err != nil {
		return VerifyResult{}, fmt.Errorf("paypal verify: %w", err)
	}
	if len(captured.PurchaseUnits) == 0 {
		return VerifyResult{}, fmt.Errorf("paypal verify: no purchase units")
	}

	orderID, err := strconv.ParseInt(captured.PurchaseUnits[0].ReferenceID, 10, 64)
	if err != nil {
		return VerifyResult{}, fmt.Errorf("paypal verify: bad reference_id: %w", err)
	}
	return VerifyResult{Success: captured.Status == "COMPLETED", OrderID: orderID}, nil
}

// PayPal captures are refunded per capture id, which this integration does
// not track. Denials fall back to manual reconciliation.
func (g *PayPalGateway) Refund(ctx context.Context, order model.Order) error {
	return ErrManualRefund
}

func (g *PayPalGateway) do(ctx context.Context, method, path, token string, body any, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, g.apiURL+path, bytes.NewReader(encoded))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

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
