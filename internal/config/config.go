package config

import (
	"fmt"
	"os"
)

// Config collects everything the process reads from the environment.
// Database settings stay in infra/db; gateway and carrier adapters read
// their credentials from here.
type Config struct {
	Port string

	JWTSecret string

	// shared secret for the webhook HMAC check
	PaymentWebhookSecret string

	// optional; in-memory idempotency store when empty
	RedisAddr     string
	RedisPassword string

	Currency string

	StripeSecretKey      string
	PayPalAPIURL         string
	PayPalClientID       string
	PayPalClientSecret   string
	Przelewy24APIURL     string
	Przelewy24MerchantID string
	Przelewy24CRC        string
	Przelewy24APIKey     string

	InPostAPIURL     string
	InPostAPIKey     string
	DHLAPIURL        string
	DHLAPIKey        string
	DHLAccountNumber string

	GoEnv       string
	FrontendURL string
	BackendURL  string
}

// Load reads the environment. Only what every deployment needs is
// mandatory; provider credentials are validated lazily by their adapters.
func Load() (Config, error) {
	cfg := Config{
		Port: getenv("PORT", "8080"),

		JWTSecret:            os.Getenv("JWT_SECRET"),
		PaymentWebhookSecret: os.Getenv("PAYMENT_WEBHOOK_SECRET"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		Currency: getenv("CURRENCY", "USD"),

		StripeSecretKey:      os.Getenv("STRIPE_SECRET_KEY"),
		PayPalAPIURL:         getenv("PAYPAL_API_URL", "https://api-m.sandbox.paypal.com"),
		PayPalClientID:       os.Getenv("PAYPAL_CLIENT_ID"),
		PayPalClientSecret:   os.Getenv("PAYPAL_CLIENT_SECRET"),
		Przelewy24APIURL:     getenv("PRZELEWY24_API_URL", "https://sandbox.przelewy24.pl/api/v1"),
		Przelewy24MerchantID: os.Getenv("PRZELEWY24_MERCHANT_ID"),
		Przelewy24CRC:        os.Getenv("PRZELEWY24_CRC"),
		Przelewy24APIKey:     os.Getenv("PRZELEWY24_API_KEY"),

		InPostAPIURL:     getenv("INPOST_API_URL", "https://api-shipx-pl.easypack24.net"),
		InPostAPIKey:     os.Getenv("INPOST_API_KEY"),
		DHLAPIURL:        getenv("DHL_API_URL", "https://api-mock.dhl.com"),
		DHLAPIKey:        os.Getenv("DHL_API_KEY"),
		DHLAccountNumber: os.Getenv("DHL_ACCOUNT_NUMBER"),

		GoEnv:       getenv("GO_ENV", "dev"),
		FrontendURL: getenv("FE_URL", "http://localhost:3000"),
		BackendURL:  getenv("BE_URL", "http://localhost:8080"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.PaymentWebhookSecret == "" {
		return Config{}, fmt.Errorf("PAYMENT_WEBHOOK_SECRET is required")
	}

	return cfg, nil
}

func getenv(key string, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}
