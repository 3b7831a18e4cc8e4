package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/supplytrack/accounts/internal/api/metrics"
	"github.com/supplytrack/accounts/internal/core/domain"
	"github.com/supplytrack/accounts/internal/core/ports"
)

// Permission required to change another account's password.
const permChangePassword = "accounts.change_password"

// AccountHandler handles HTTP requests for account operations.
type AccountHandler struct {
	service ports.AccountService
}

func NewAccountHandler(service ports.AccountService) *AccountHandler {
	return &AccountHandler{service: service}
}

// Create handles POST /v1/accounts.
//
// @Summary      Register an account
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        body  body      createAccountRequest  true  "Account details"
// @Success      201   {object}  ports.AccountRecord
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/accounts [post]
func (h *AccountHandler) Create(c echo.Context) error {
	var req createAccountRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	data := req.AdditionalData
	if data == nil {
		data = domain.NewAdditionalData()
	}

	account, err := h.service.CreateAccount(c.Request().Context(), ports.CreateAccountInput{
		Address:        req.Address,
		Role:           domain.Role(req.Role),
		DisplayName:    req.DisplayName,
		Password:       req.Password,
		AdditionalData: data,
	})
	if err != nil {
		metrics.AccountErrorsTotal.WithLabelValues("create", errorReason(err)).Inc()
		return err
	}

	metrics.AccountsCreatedTotal.WithLabelValues(account.Role.String(), "regular").Inc()
	return c.JSON(http.StatusCreated, h.service.Serialize(account))
}

// CreateSuperuser handles POST /v1/accounts/superusers.
//
// @Summary      Create a superuser
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createSuperuserRequest  true  "Superuser details"
// @Success      201   {object}  ports.AccountRecord
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /v1/accounts/superusers [post]
func (h *AccountHandler) CreateSuperuser(c echo.Context) error {
	var req createSuperuserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	account, err := h.service.CreateSuperuser(c.Request().Context(), ports.CreateSuperuserInput{
		Address:     req.Address,
		Role:        domain.Role(req.Role),
		DisplayName: req.DisplayName,
		Password:    req.Password,
	})
	if err != nil {
		metrics.AccountErrorsTotal.WithLabelValues("create_superuser", errorReason(err)).Inc()
		var pe *domain.PromotionError
		if errors.As(err, &pe) {
			// The account exists, so it still counts as created.
			metrics.AccountsCreatedTotal.WithLabelValues(pe.Account.Role.String(), "regular").Inc()
		}
		return err
	}

	metrics.AccountsCreatedTotal.WithLabelValues(account.Role.String(), "superuser").Inc()
	return c.JSON(http.StatusCreated, h.service.Serialize(account))
}

// Get handles GET /v1/accounts/:address.
//
// @Summary      Get an account
// @Tags         accounts
// @Produce      json
// @Security     BearerAuth
// @Param        address  path      string  true  "Account address"
// @Success      200      {object}  ports.AccountRecord
// @Failure      401      {object}  errorResponse
// @Failure      404      {object}  errorResponse
// @Router       /v1/accounts/{address} [get]
func (h *AccountHandler) Get(c echo.Context) error {
	account, err := h.service.GetAccount(c.Request().Context(), c.Param("address"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, h.service.Serialize(account))
}

// SetPassword handles PUT /v1/accounts/:address/password. Callers may change
// their own password; changing someone else's needs permChangePassword.
//
// @Summary      Set or clear an account password
// @Tags         accounts
// @Accept       json
// @Security     BearerAuth
// @Param        address  path  string              true  "Account address"
// @Param        body     body  setPasswordRequest  true  "New password, null to clear"
// @Success      204
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Failure      422  {object}  errorResponse
// @Router       /v1/accounts/{address}/password [put]
func (h *AccountHandler) SetPassword(c echo.Context) error {
	actorAddress, err := ctxAddress(c)
	if err != nil {
		return err
	}

	var req setPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	ctx := c.Request().Context()
	target := c.Param("address")
	if target != actorAddress {
		actor, err := h.service.GetAccount(ctx, actorAddress)
		if err != nil {
			return err
		}
		if !h.service.HasPermission(actor, permChangePassword, target) {
			return domain.ErrForbidden
		}
	}

	if err := h.service.SetPassword(ctx, target, req.Password); err != nil {
		metrics.AccountErrorsTotal.WithLabelValues("set_password", errorReason(err)).Inc()
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Permissions handles GET /v1/accounts/:address/permissions and evaluates
// the permission predicates for the given account.
//
// @Summary      Evaluate permissions
// @Tags         accounts
// @Produce      json
// @Security     BearerAuth
// @Param        address     path      string  true   "Account address"
// @Param        permission  query     string  false  "Permission codename, e.g. accounts.add_account"
// @Param        module      query     string  false  "Module label, e.g. accounts"
// @Success      200         {object}  permissionsResponse
// @Failure      401         {object}  errorResponse
// @Failure      404         {object}  errorResponse
// @Router       /v1/accounts/{address}/permissions [get]
func (h *AccountHandler) Permissions(c echo.Context) error {
	account, err := h.service.GetAccount(c.Request().Context(), c.Param("address"))
	if err != nil {
		return err
	}

	perm := c.QueryParam("permission")
	module := c.QueryParam("module")
	return c.JSON(http.StatusOK, permissionsResponse{
		Address:             account.Address,
		Permission:          perm,
		Module:              module,
		HasPermission:       h.service.HasPermission(account, perm, nil),
		HasModulePermission: h.service.HasModulePermission(account, module),
	})
}

// errorReason maps an error onto the reason label of AccountErrorsTotal.
func errorReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrAccountExists):
		return "conflict"
	case errors.Is(err, domain.ErrAccountNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrPromotionFailed):
		return "promotion"
	case errors.Is(err, domain.ErrLockBusy):
		return "lock_busy"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return "invalid_credentials"
	default:
		return "internal"
	}
}
