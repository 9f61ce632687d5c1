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

type DHLCarrier struct {
	apiURL        string
	apiKey        string
	accountNumber string
	client        *http.Client
}

func NewDHLCarrier(apiURL, apiKey, accountNumber string) *DHLCarrier {
	return &DHLCarrier{
		apiURL:        strings.TrimRight(apiURL, "/"),
		apiKey:        apiKey,
		accountNumber: accountNumber,
		client:        &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *DHLCarrier) Name() string { return "dhl" }

func (c *DHLCarrier) GenerateLabel(ctx context.Context, order model.Order, address model.Address) (Label, error) {
	body := map[string]any{
		"customerDetails": map[string]any{
			"receiverDetails": map[string]any{
				"name":        address.Name,
				"addressLine": address.Street,
				"city":        address.City,
				"postalCode":  address.PostalCode,
				"countryCode": address.CountryCode,
				"phone":       address.Phone,
			},
		},
		"accounts": []map[string]string{{
			"typeCode": "shipper",
			"number":   c.accountNumber,
		}},
		"customerReferences": []map[string]string{{
			"value": fmt.Sprintf("order-%d", order.ID),
		}},
	}

	var out struct {
		ShipmentTrackingNumber string `json:"shipmentTrackingNumber"`
		Documents              []struct {
			URL string `json:"url"`
		} `json:"documents"`
	}
	if err := c.do(ctx, http.MethodPost, "/shipments", body, &out); err != nil {
		return Label{}, fmt.Errorf("dhl label: %w", err)
	}

	label := Label{TrackingNumber: out.ShipmentTrackingNumber}
	if len(out.Documents) > 0 {
		label.URL = out.Documents[0].URL
	}
	return label, nil
}

func (c *DHLCarrier) Track(ctx context.Context, trackingNumber string) (string, error) {
	var out struct {
		Shipments []struct {
			Status string `json:"status"`
		} `json:"shipments"`
	}
	if err := c.do(ctx, http.MethodGet, "/tracking?shipmentTrackingNumber="+trackingNumber, nil, &out); err != nil {
		return "", fmt.Errorf("dhl track: %w", err)
	}
	if len(out.Shipments) == 0 {
		return "", fmt.Errorf("dhl track: no shipment for %q", trackingNumber)
	}
	return out.Shipments[0].Status, nil
}

func (c *DHLCarrier) do(ctx context.Context, method, path string, body any, out any) error {
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
	req.Header.Set("DHL-API-Key", c.apiKey)
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
