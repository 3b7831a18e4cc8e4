// Package memory holds a process-local account repository for development
// and tests. Data does not survive a restart.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/supplytrack/accounts/internal/core/domain"
)

type AccountRepository struct {
	mu            sync.RWMutex
	byAddress     map[string]*domain.Account
	byDisplayName map[string]string // display name -> address
}

func NewAccountRepository() *AccountRepository {
	return &AccountRepository{
		byAddress:     make(map[string]*domain.Account),
		byDisplayName: make(map[string]string),
	}
}

// Create checks both unique keys and inserts under one write lock.
func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byAddress[account.Address]; exists {
		return nil, &domain.UniquenessError{Field: domain.FieldAddress, Value: account.Address}
	}
	if _, exists := r.byDisplayName[account.DisplayName]; exists {
		return nil, &domain.UniquenessError{Field: domain.FieldDisplayName, Value: account.DisplayName}
	}

	stored := account.Clone()
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	r.byAddress[stored.Address] = stored
	r.byDisplayName[stored.DisplayName] = stored.Address
	return stored.Clone(), nil
}

func (r *AccountRepository) FindByAddress(ctx context.Context, address string) (*domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byAddress[address]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return a.Clone(), nil
}

func (r *AccountRepository) UpdatePrivileges(ctx context.Context, address string, isAdmin, isStaff bool) error {
	return r.update(ctx, address, func(a *domain.Account) {
		a.IsAdmin = isAdmin
		a.IsStaff = isStaff
	})
}

func (r *AccountRepository) UpdatePassword(ctx context.Context, address, passwordHash string) error {
	return r.update(ctx, address, func(a *domain.Account) {
		a.PasswordHash = passwordHash
	})
}

func (r *AccountRepository) TouchLastLogin(ctx context.Context, address string, at time.Time) error {
	return r.update(ctx, address, func(a *domain.Account) {
		t := at.UTC()
		a.LastLogin = &t
	})
}

func (r *AccountRepository) Count(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.byAddress)), nil
}

func (r *AccountRepository) update(ctx context.Context, address string, fn func(*domain.Account)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byAddress[address]
	if !ok {
		return domain.ErrAccountNotFound
	}
	fn(a)
	return nil
}
