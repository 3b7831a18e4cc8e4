package ports

import (
	"context"

	"github.com/supplytrack/accounts/internal/core/domain"
)

// CreateAccountInput carries everything needed to register an account.
// A nil Password creates an account that cannot log in yet.
type CreateAccountInput struct {
	Address        string
	Role           domain.Role
	DisplayName    string
	Password       *string
	AdditionalData domain.AdditionalData
}

// CreateSuperuserInput is CreateAccountInput without extension data.
type CreateSuperuserInput struct {
	Address     string
	Role        domain.Role
	DisplayName string
	Password    *string
}

// AccountRecord is the public projection of an account. It is the only
// shape that leaves the service.
type AccountRecord struct {
	Address        string                `json:"address"`
	Role           int                   `json:"role"`
	DisplayName    string                `json:"displayName"`
	AdditionalData domain.AdditionalData `json:"additionalData"`
}

// AccountService defines the account use cases.
type AccountService interface {
	CreateAccount(ctx context.Context, input CreateAccountInput) (*domain.Account, error)
	CreateSuperuser(ctx context.Context, input CreateSuperuserInput) (*domain.Account, error)
	GetAccount(ctx context.Context, address string) (*domain.Account, error)
	SetPassword(ctx context.Context, address string, password *string) error
	Count(ctx context.Context) (int64, error)

	HasPermission(account *domain.Account, permission string, target any) bool
	HasModulePermission(account *domain.Account, moduleLabel string) bool
	Serialize(account *domain.Account) AccountRecord
}
