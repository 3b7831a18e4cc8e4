package ports

import (
	"context"
	"time"

	"github.com/supplytrack/accounts/internal/core/domain"
)

// AccountRepository persists accounts. Implementations must make Create an
// atomic check-and-insert over both address and display name, returning a
// *domain.UniquenessError on collision and leaving the store unchanged.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) (*domain.Account, error)
	FindByAddress(ctx context.Context, address string) (*domain.Account, error)
	UpdatePrivileges(ctx context.Context, address string, isAdmin, isStaff bool) error
	UpdatePassword(ctx context.Context, address, passwordHash string) error
	TouchLastLogin(ctx context.Context, address string, at time.Time) error
	Count(ctx context.Context) (int64, error)
}
