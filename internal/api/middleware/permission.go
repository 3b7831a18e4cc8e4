package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/supplytrack/accounts/internal/core/domain"
	"github.com/supplytrack/accounts/internal/core/ports"
)

// CtxAccount holds the caller's account once RequirePermission has loaded it.
const CtxAccount = "account"

// RequirePermission loads the authenticated caller and rejects the request
// with domain.ErrForbidden unless the caller holds perm. It must run after Auth.
func RequirePermission(accounts ports.AccountService, perm string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			address, _ := c.Get(CtxAddress).(string)
			if address == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
			}

			account, err := accounts.GetAccount(c.Request().Context(), address)
			if err != nil {
				// A token for a vanished account grants nothing.
				if errors.Is(err, domain.ErrAccountNotFound) {
					return domain.ErrForbidden
				}
				return err
			}
			if !accounts.HasPermission(account, perm, nil) {
				return domain.ErrForbidden
			}

			c.Set(CtxAccount, account)
			return next(c)
		}
	}
}
