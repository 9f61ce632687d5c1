package handler

import (
	"io"
	"net/http"
	"strconv"

	"app/internal/config"
	"app/internal/middleware"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

type PaymentHandler struct {
	uc *usecase.PaymentUsecase
}

func NewPaymentHandler(uc *usecase.PaymentUsecase) *PaymentHandler {
	return &PaymentHandler{uc: uc}
}

type initializePaymentRequest struct {
	OrderID int64  `json:"order_id"`
	Gateway string `json:"gateway"`
}

func (h *PaymentHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	g := e.Group("/payments")
	g.POST("/initialize", h.initialize, middleware.OptionalAuthJWT(cfg))
	g.GET("/status/:id", h.status, middleware.OptionalAuthJWT(cfg))

	// gateway webhooks authenticate by HMAC, not session
	g.POST("/callback/:gateway", h.callback, middleware.PaymentSignature(cfg.PaymentWebhookSecret))
}

func (h *PaymentHandler) initialize(c echo.Context) error {
	var req initializePaymentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if req.OrderID <= 0 {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid order_id"})
	}

	out, err := h.uc.Initialize(c.Request().Context(), principalFromContext(c), req.OrderID, usecase.InitializePaymentInput{
		Gateway:        req.Gateway,
		IdempotencyKey: c.Request().Header.Get(idempotencyKeyHeader),
		AccessToken:    orderToken(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *PaymentHandler) status(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	out, err := h.uc.Status(c.Request().Context(), principalFromContext(c), id, orderToken(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *PaymentHandler) callback(c echo.Context) error {
	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	if err := h.uc.HandleCallback(c.Request().Context(), c.Param("gateway"), payload); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
