package shipment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"app/internal/domain/model"
)

type InPostCarrier struct {
	apiURL string
	apiKey string
	sender map[string]any
	client *http.Client
}

// sender describes the shop-side pickup point and is built once from config.
func NewInPostCarrier(apiURL, apiKey string, sender map[string]any) *InPostCarrier {
	return &InPostCarrier{
		apiURL: strings.TrimRight(apiURL, "/"),
		apiKey: apiKey,
		sender: sender,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *InPostCarrier) Name() string { return "inpost" }

func (c *InPostCarrier) GenerateLabel(ctx context.Context, order model.Order, address model.Address) (Label, error) {
	body := map[string]any{
		"sender": c.sender,
		"receiver": map[string]any{
			"name":  address.Name,
			"phone": address.Phone,
			"address": map[string]any{
				"street":       address.Street,
				"city":         address.City,
				"post_code":    address.PostalCode,
				"country_code": address.CountryCode,
			},
		},
		"parcels": []map[string]any{{
			"dimensions": map[string]int{"length": 30, "width": 20, "height": 10},
			"weight":     map[string]any{"amount": 1, "unit": "kg"},
		}},
		"service":   "inpost_locker_standard",
		"reference": fmt.Sprintf("order-%d", order.ID),
	}

	var out struct {
		TrackingNumber string `json:"tracking_number"`
		LabelURL       string `json:"label_url"`
	}
	if err := c.do(ctx, http.MethodPost, "/shipments", body, &out); err != nil {
		return Label{}, fmt.Errorf("inpost label: %w", err)
	}
	return Label{URL: out.LabelURL, TrackingNumber: out.TrackingNumber}, nil
}

func (c *InPostCarrier) Track(ctx context.Context, trackingNumber string) (string, error) {
	var out struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodGet, "/tracking/"+trackingNumber, nil, &out); err != nil {
		return "", fmt.Errorf("inpost track: %w", err)
	}
	return out.Status, nil
}

func (c *InPostCarrier) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
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
