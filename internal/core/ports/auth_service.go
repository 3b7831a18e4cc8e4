package ports

import (
	"context"

	"github.com/supplytrack/accounts/internal/core/domain"
)

// AuthService checks credentials and issues access tokens.
type AuthService interface {
	Login(ctx context.Context, address, password string) (string, *domain.Account, error)
}
