package middleware

import (
	"bytes"
	"io"
	"net/http"

	"app/internal/payment"

	"github.com/labstack/echo/v4"
)

// PaymentSignature verifies the HMAC of the raw callback body before any
// handler runs. A mismatch never reaches the order.
func PaymentSignature(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if secret == "" {
				return c.JSON(http.StatusUnauthorized, errorJSON("invalid payment callback"))
			}

			body, err := io.ReadAll(c.Request().Body)
			if err != nil {
				return c.JSON(http.StatusBadRequest, errorJSON("invalid body"))
			}
			// handler re-reads the body
			c.Request().Body = io.NopCloser(bytes.NewReader(body))

			signature := c.Request().Header.Get(payment.SignatureHeader)
			if !payment.VerifySignature(secret, body, signature) {
				return c.JSON(http.StatusUnauthorized, errorJSON("invalid payment signature"))
			}

			return next(c)
		}
	}
}
