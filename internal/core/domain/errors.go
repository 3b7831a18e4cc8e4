package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("validation failed")

	// ErrAccountExists is matched by every *UniquenessError.
	ErrAccountExists = errors.New("account already exists")

	// ErrPromotionFailed is matched by *PromotionError.
	ErrPromotionFailed = errors.New("account created but promotion failed")

	ErrAccountNotFound    = errors.New("account not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("access forbidden")

	// ErrLockBusy means another creation for the same address or display
	// name held the key lock for the whole retry window.
	ErrLockBusy = errors.New("account key is locked by a concurrent request")
)

// Field names used in validation and uniqueness errors. They match the
// keys of the serialized record.
const (
	FieldAddress     = "address"
	FieldRole        = "role"
	FieldDisplayName = "displayName"
	FieldPassword    = "password"
)

// ValidationError reports a required field that was missing or invalid.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s is required", e.Field)
	}
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// UniquenessError reports a collision on a unique account field.
type UniquenessError struct {
	Field string
	Value string
}

func (e *UniquenessError) Error() string {
	return fmt.Sprintf("an account with %s %q already exists", e.Field, e.Value)
}

func (e *UniquenessError) Is(target error) bool { return target == ErrAccountExists }

// PromotionError is returned when a superuser account was persisted but the
// follow-up write granting admin and staff flags failed. Account is the
// stored, non-elevated record.
type PromotionError struct {
	Account *Account
	Err     error
}

func (e *PromotionError) Error() string {
	return fmt.Sprintf("account %s created but not promoted: %v", e.Account.Address, e.Err)
}

func (e *PromotionError) Is(target error) bool { return target == ErrPromotionFailed }

func (e *PromotionError) Unwrap() error { return e.Err }
