package handler

import (
	"net/http"

	"app/internal/middleware"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

const (
	// deduplication key for payment initialization
	idempotencyKeyHeader = "Idempotency-Key"
	// anonymous order access token; ?token= works too for mailed links
	orderTokenHeader = "X-Order-Token"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if he, ok := usecase.AsHTTPError(err); ok {
		return c.JSON(he.Status, ErrorResponse{Error: he.Message, Code: string(he.Code)})
	}

	//500
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

func getUserIDFromContext(c echo.Context) (int64, bool) {
	v := c.Get(middleware.CtxUserIDKey)
	userID, ok := v.(int64)
	return userID, ok && userID > 0
}

// principalFromContext builds the caller identity; zero value when the
// request carries no session.
func principalFromContext(c echo.Context) usecase.Principal {
	var p usecase.Principal
	if userID, ok := getUserIDFromContext(c); ok {
		p.UserID = userID
	}
	if role, ok := c.Get(middleware.CtxUserRoleKey).(string); ok {
		p.Role = role
	}
	return p
}

// orderToken reads the anonymous access token from the header or, for
// links opened straight from a mail, the query string.
func orderToken(c echo.Context) string {
	if t := c.Request().Header.Get(orderTokenHeader); t != "" {
		return t
	}
	return c.QueryParam("token")
}
