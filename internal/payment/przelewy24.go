package payment

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"app/internal/domain/model"
)

// Przelewy24 bank-redirect gateway. Transactions are registered with an
// md5 checksum over session|merchant|amount|currency|crc, the buyer is
// redirected to trnRequest, and the status callback is verified with the
// same checksum before the verify call.
type Przelewy24Gateway struct {
	apiURL     string
	merchantID string
	crc        string
	apiKey     string
	returnURL  string
	statusURL  string
	client     *http.Client
}

func NewPrzelewy24Gateway(apiURL, merchantID, crc, apiKey, returnURL, statusURL string) *Przelewy24Gateway {
	return &Przelewy24Gateway{
		apiURL:     strings.TrimRight(apiURL, "/"),
		merchantID: merchantID,
		crc:        crc,
		apiKey:     apiKey,
		returnURL:  returnURL,
		statusURL:  statusURL,
		client:     &http.Client{Timeout: 15 * time.Second},
	}
}

func (g *Przelewy24Gateway) Name() string { return "przelewy24" }

func (g *Przelewy24Gateway) checksum(sessionID string, amount int64, currency string) string {
	data := fmt.Sprintf("%s|%s|%d|%s|%s", sessionID, g.merchantID, amount, currency, g.crc)
	sum := md5.Sum([]byte(data))
	return hex.EncodeToString(sum[:])
}

func (g *Przelewy24Gateway) Initialize(ctx context.Context, order model.Order, buyerEmail string) (InitResult, error) {
	sessionID := strconv.FormatInt(order.ID, 10)
	body := map[string]any{
		"merchantId":  g.merchantID,
		"posId":       g.merchantID,
		"sessionId":   sessionID,
		"amount":      order.TotalPrice,
		"currency":    "PLN",
		"description": fmt.Sprintf("Order %d", order.ID),
		"email":       buyerEmail,
		"country":     "PL",
		"language":    "pl",
		"urlReturn":   g.returnURL,
		"urlStatus":   g.statusURL,
		"sign":        g.checksum(sessionID, order.TotalPrice, "PLN"),
	}

	var out struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := g.do(ctx, http.MethodPost, "/transaction/register", body, &out); err != nil {
		return InitResult{}, fmt.Errorf("przelewy24 initialize: %w", err)
	}

	return InitResult{
		TransactionID: out.Data.Token,
		PaymentURL:    g.apiURL + "/trnRequest/" + out.Data.Token,
	}, nil
}

type p24Callback struct {
	SessionID string `json:"sessionId"`
	OrderID   int64  `json:"orderId"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Sign      string `json:"sign"`
}

func (g *Przelewy24Gateway) Verify(ctx context.Context, payload []byte) (VerifyResult, error) {
	var cb p24Callback
	if err := json.Unmarshal(payload, &cb); err != nil {
		return VerifyResult{}, fmt.Errorf("przelewy24 callback payload: %w", err)
	}

	if cb.Sign != g.checksum(cb.SessionID, cb.Amount, cb.Currency) {
		return VerifyResult{}, fmt.Errorf("przelewy24 verify: checksum mismatch")
	}

	body := map[string]any{
		"merchantId": g.merchantID,
		"posId":      g.merchantID,
		"sessionId":  cb.SessionID,
		"amount":     cb.Amount,
		"currency":   cb.Currency,
		"orderId":    cb.OrderID,
		"sign":       cb.Sign,
	}

	var out struct {
		Data struct {
			Status string `json:"status"`
		} `json:"data"`
	}
	if err := g.do(ctx, http.MethodPut, "/transaction/verify", body, &out); err != nil {
		return VerifyResult{}, fmt.Errorf("przelewy24 verify: %w", err)
	}

	// sessionId is our order id
	orderID, err := strconv.ParseInt(cb.SessionID, 10, 64)
	if err != nil {
		return VerifyResult{}, fmt.Errorf("przelewy24 verify: bad sessionId: %w", err)
	}
	return VerifyResult{Success: out.Data.Status == "success", OrderID: orderID}, nil
}

func (g *Przelewy24Gateway) Refund(ctx context.Context, order model.Order) error {
	return ErrManualRefund
}

func (g *Przelewy24Gateway) do(ctx context.Context, method, path string, body any, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, g.apiURL+path, bytes.NewReader(encoded))
	if err != nil {
		return err
	}
	basic := base64.StdEncoding.EncodeToString([]byte(g.merchantID + ":" + g.apiKey))
	req.Header.Set("Authorization", "Basic "+basic)
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
