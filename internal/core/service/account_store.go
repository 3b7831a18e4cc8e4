package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/supplytrack/accounts/internal/core/domain"
	"github.com/supplytrack/accounts/internal/core/ports"
)

// AccountStore owns account creation, validation, credential handling and
// permission evaluation. Persistence, hashing and cross-request locking are
// injected.
type AccountStore struct {
	repo   ports.AccountRepository
	hasher domain.PasswordHasher
	locker ports.KeyLocker
	logger zerolog.Logger
	now    func() time.Time
}

// Option customises an AccountStore.
type Option func(*AccountStore)

// WithKeyLocker serializes creations that share an address or display name.
func WithKeyLocker(l ports.KeyLocker) Option {
	return func(s *AccountStore) { s.locker = l }
}

// WithClock overrides time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *AccountStore) { s.now = now }
}

func NewAccountStore(repo ports.AccountRepository, hasher domain.PasswordHasher, logger zerolog.Logger, opts ...Option) *AccountStore {
	s := &AccountStore{
		repo:   repo,
		hasher: hasher,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateAccount validates the input, hashes the password when one is given
// and inserts the account. Validation failures never reach the repository.
func (s *AccountStore) CreateAccount(ctx context.Context, input ports.CreateAccountInput) (*domain.Account, error) {
	account := domain.NewAccount(input.Address, input.Role, input.DisplayName, input.AdditionalData, s.now())
	if err := account.Validate(); err != nil {
		return nil, err
	}

	// Hashing is CPU bound and stateless, so it runs before any lock is taken.
	if err := account.SetPassword(s.hasher, input.Password); err != nil {
		if errors.Is(err, domain.ErrValidation) {
			return nil, err
		}
		return nil, fmt.Errorf("create account: hash password: %w", err)
	}

	if s.locker != nil {
		release, err := s.locker.Lock(ctx, addressLockKey(account.Address), displayNameLockKey(account.DisplayName))
		if err != nil {
			return nil, fmt.Errorf("create account: %w", err)
		}
		defer func() {
			// Use a fresh context: the request may already be cancelled.
			if rerr := release(context.WithoutCancel(ctx)); rerr != nil {
				s.logger.Warn().Err(rerr).Str("address", account.Address).Msg("failed to release account key lock")
			}
		}()
	}

	created, err := s.repo.Create(ctx, account)
	if err != nil {
		var ue *domain.UniquenessError
		if errors.As(err, &ue) {
			s.logger.Info().Str("address", account.Address).Str("field", ue.Field).Msg("account collision")
			return nil, err
		}
		s.logger.Error().Err(err).Str("address", account.Address).Msg("failed to create account")
		return nil, fmt.Errorf("create account: %w", err)
	}

	s.logger.Info().
		Str("address", created.Address).
		Str("role", created.Role.String()).
		Bool("has_password", created.HasUsablePassword()).
		Msg("account created")
	return created, nil
}

// CreateSuperuser creates the account and then grants admin and staff flags
// in a second write. If that write fails the account exists unpromoted and
// a *domain.PromotionError carrying it is returned.
func (s *AccountStore) CreateSuperuser(ctx context.Context, input ports.CreateSuperuserInput) (*domain.Account, error) {
	account, err := s.CreateAccount(ctx, ports.CreateAccountInput{
		Address:        input.Address,
		Role:           input.Role,
		DisplayName:    input.DisplayName,
		Password:       input.Password,
		AdditionalData: domain.NewAdditionalData(),
	})
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdatePrivileges(ctx, account.Address, true, true); err != nil {
		s.logger.Error().Err(err).Str("address", account.Address).Msg("superuser promotion failed")
		return nil, &domain.PromotionError{Account: account, Err: err}
	}
	account.Promote()

	s.logger.Info().Str("address", account.Address).Msg("superuser created")
	return account, nil
}

func (s *AccountStore) GetAccount(ctx context.Context, address string) (*domain.Account, error) {
	if address == "" {
		return nil, &domain.ValidationError{Field: domain.FieldAddress}
	}
	return s.repo.FindByAddress(ctx, address)
}

// SetPassword rotates the credential of an existing account. A nil password
// removes the usable credential.
func (s *AccountStore) SetPassword(ctx context.Context, address string, password *string) error {
	account, err := s.GetAccount(ctx, address)
	if err != nil {
		return err
	}
	if err := account.SetPassword(s.hasher, password); err != nil {
		if errors.Is(err, domain.ErrValidation) {
			return err
		}
		return fmt.Errorf("set password: %w", err)
	}
	if err := s.repo.UpdatePassword(ctx, account.Address, account.PasswordHash); err != nil {
		return fmt.Errorf("set password: %w", err)
	}
	s.logger.Info().Str("address", address).Bool("usable", account.HasUsablePassword()).Msg("password changed")
	return nil
}

func (s *AccountStore) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

// HasPermission collapses every permission to the admin flag.
func (s *AccountStore) HasPermission(account *domain.Account, permission string, target any) bool {
	if account == nil {
		return false
	}
	return account.HasPerm(permission, target)
}

// HasModulePermission always allows access.
func (s *AccountStore) HasModulePermission(account *domain.Account, moduleLabel string) bool {
	if account == nil {
		return false
	}
	return account.HasModulePerms(moduleLabel)
}

// Serialize projects an account onto its public record. Credential,
// privilege flags and timestamps are never part of it.
func (s *AccountStore) Serialize(account *domain.Account) ports.AccountRecord {
	return ports.AccountRecord{
		Address:        account.Address,
		Role:           int(account.Role),
		DisplayName:    account.DisplayName,
		AdditionalData: account.AdditionalData.Clone(),
	}
}

func addressLockKey(address string) string {
	return "account:address:" + address
}

func displayNameLockKey(displayName string) string {
	return "account:display_name:" + displayName
}
