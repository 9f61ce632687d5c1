package handler

import (
	"net/http"

	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

type AuthHandler struct {
	uc *usecase.IdentityUsecase
}

func NewAuthHandler(uc *usecase.IdentityUsecase) *AuthHandler {
	return &AuthHandler{uc: uc}
}

type magicLoginRequest struct {
	Token string `json:"token"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/auth/login", h.login)
	e.POST("/auth/magic-login", h.magicLogin)
}

func (h *AuthHandler) login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.PasswordLogin(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// magicLogin trades a mailed one-time token for a session JWT.
func (h *AuthHandler) magicLogin(c echo.Context) error {
	var req magicLoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if req.Token == "" {
		// links carry the token in the query string
		req.Token = c.QueryParam("token")
	}

	out, err := h.uc.MagicLogin(c.Request().Context(), req.Token)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
