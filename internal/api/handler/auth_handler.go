package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/supplytrack/accounts/internal/api/metrics"
	"github.com/supplytrack/accounts/internal/core/domain"
	"github.com/supplytrack/accounts/internal/core/ports"
)

type AuthHandler struct {
	authService    ports.AuthService
	accountService ports.AccountService
}

func NewAuthHandler(authService ports.AuthService, accountService ports.AccountService) *AuthHandler {
	return &AuthHandler{authService: authService, accountService: accountService}
}

type authResponse struct {
	Token   string               `json:"token"`
	Account *ports.AccountRecord `json:"account"`
}

// Login authenticates an account and returns a JWT.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  authResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	token, account, err := h.authService.Login(c.Request().Context(), req.Address, req.Password)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("failure").Inc()
		if !errors.Is(err, domain.ErrInvalidCredentials) && !errors.Is(err, domain.ErrAccountNotFound) {
			metrics.AccountErrorsTotal.WithLabelValues("login", errorReason(err)).Inc()
		}
		return err
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	record := h.accountService.Serialize(account)
	return c.JSON(http.StatusOK, authResponse{Token: token, Account: &record})
}
