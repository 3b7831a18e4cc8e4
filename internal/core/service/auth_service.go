package service

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/supplytrack/accounts/internal/core/domain"
	"github.com/supplytrack/accounts/internal/core/ports"
)

// AuthService implements login over stored accounts.
type AuthService struct {
	repo      ports.AccountRepository
	hasher    domain.PasswordHasher
	jwtSecret string
	tokenTTL  time.Duration
	logger    zerolog.Logger
	now       func() time.Time
}

func NewAuthService(repo ports.AccountRepository, hasher domain.PasswordHasher, jwtSecret string, tokenTTL time.Duration, logger zerolog.Logger) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &AuthService{
		repo:      repo,
		hasher:    hasher,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *AuthService) Login(ctx context.Context, address, password string) (string, *domain.Account, error) {
	if address == "" || password == "" {
		return "", nil, domain.ErrInvalidCredentials
	}

	account, err := s.repo.FindByAddress(ctx, address)
	if err != nil {
		return "", nil, err
	}

	ok, err := account.CheckPassword(s.hasher, password)
	if err != nil || !ok {
		return "", nil, domain.ErrInvalidCredentials
	}

	now := s.now().UTC()
	if err := s.repo.TouchLastLogin(ctx, account.Address, now); err != nil {
		s.logger.Warn().Err(err).Str("address", account.Address).Msg("failed to record last login")
	} else {
		account.LastLogin = &now
	}

	token, err := s.generateToken(account, now)
	if err != nil {
		return "", nil, err
	}
	return token, account, nil
}

func (s *AuthService) generateToken(account *domain.Account, now time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub":      account.Address,
		"role":     int(account.Role),
		"is_admin": account.IsAdmin,
		"is_staff": account.IsStaff,
		"iat":      now.Unix(),
		"exp":      now.Add(s.tokenTTL).Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(s.jwtSecret))
}
