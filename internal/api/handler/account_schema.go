package handler

import (
	"github.com/supplytrack/accounts/internal/core/domain"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Request / Response types ---

// Presence of address, role and displayName is checked by the account
// store so that the error names the missing field the same way for every
// caller; the tags here only bound sizes.
type createAccountRequest struct {
	Address        string                `json:"address"        validate:"max=150"`
	Role           int                   `json:"role"`
	DisplayName    string                `json:"displayName"    validate:"max=150"`
	Password       *string               `json:"password"       validate:"omitempty,min=1,max=72"`
	AdditionalData domain.AdditionalData `json:"additionalData"`
}

type createSuperuserRequest struct {
	Address     string  `json:"address"     validate:"max=150"`
	Role        int     `json:"role"`
	DisplayName string  `json:"displayName" validate:"max=150"`
	Password    *string `json:"password"    validate:"omitempty,min=1,max=72"`
}

// A null password removes the usable credential.
type setPasswordRequest struct {
	Password *string `json:"password" validate:"omitempty,min=1,max=72"`
}

type loginRequest struct {
	Address  string `json:"address"  validate:"required"`
	Password string `json:"password" validate:"required"`
}

type permissionsResponse struct {
	Address             string `json:"address"`
	Permission          string `json:"permission,omitempty"`
	Module              string `json:"module,omitempty"`
	HasPermission       bool   `json:"hasPermission"`
	HasModulePermission bool   `json:"hasModulePermission"`
}
