package domain

import "time"

// PasswordHasher is the one-way credential primitive. Implementations must
// be safe for concurrent use.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) (bool, error)
}

// Credentialed is implemented by anything holding a password credential.
type Credentialed interface {
	SetPassword(h PasswordHasher, plaintext *string) error
	CheckPassword(h PasswordHasher, plaintext string) (bool, error)
	HasUsablePassword() bool
	SetUnusablePassword()
}

// Permissioned is implemented by anything the authorization layer can ask
// about permissions.
type Permissioned interface {
	HasPerm(permission string, target any) bool
	HasModulePerms(moduleLabel string) bool
}

// Account is a user identity: a unique address used as the login name, a
// unique display name, a role, an optional credential and role specific
// extension data.
type Account struct {
	ID             string         `json:"id"`
	Address        string         `json:"address"`
	DisplayName    string         `json:"displayName"`
	Role           Role           `json:"role"`
	PasswordHash   string         `json:"-"`
	AdditionalData AdditionalData `json:"additionalData"`
	IsAdmin        bool           `json:"-"`
	IsStaff        bool           `json:"-"`
	DateJoined     time.Time      `json:"-"`
	LastLogin      *time.Time     `json:"-"`
}

var (
	_ Credentialed = (*Account)(nil)
	_ Permissioned = (*Account)(nil)
)

// NewAccount builds an unsaved, non-elevated account joined at now. data is
// copied so the caller's map is never shared with the account.
func NewAccount(address string, role Role, displayName string, data AdditionalData, now time.Time) *Account {
	return &Account{
		Address:        address,
		DisplayName:    displayName,
		Role:           role,
		AdditionalData: data.Clone(),
		DateJoined:     now.UTC(),
	}
}

// Validate checks the fields required at creation, in the order address,
// role, display name.
func (a *Account) Validate() error {
	if a.Address == "" {
		return &ValidationError{Field: FieldAddress}
	}
	if a.Role == 0 {
		return &ValidationError{Field: FieldRole}
	}
	if !a.Role.Valid() {
		return &ValidationError{Field: FieldRole, Reason: "must be between 1 and 5"}
	}
	if a.DisplayName == "" {
		return &ValidationError{Field: FieldDisplayName}
	}
	return nil
}

func (a *Account) String() string { return a.Address }

// SetPassword hashes plaintext into PasswordHash. A nil plaintext leaves the
// account without a usable credential; an empty one is rejected because it
// could never be used to log in.
func (a *Account) SetPassword(h PasswordHasher, plaintext *string) error {
	if plaintext == nil {
		a.SetUnusablePassword()
		return nil
	}
	if *plaintext == "" {
		return &ValidationError{Field: FieldPassword, Reason: "must not be empty"}
	}
	hash, err := h.Hash(*plaintext)
	if err != nil {
		return err
	}
	a.PasswordHash = hash
	return nil
}

// CheckPassword reports whether plaintext matches the stored credential.
// Accounts without a usable credential never match.
func (a *Account) CheckPassword(h PasswordHasher, plaintext string) (bool, error) {
	if !a.HasUsablePassword() {
		return false, nil
	}
	return h.Verify(plaintext, a.PasswordHash)
}

func (a *Account) HasUsablePassword() bool { return a.PasswordHash != "" }

func (a *Account) SetUnusablePassword() { a.PasswordHash = "" }

// HasPerm grants every permission to admins and nothing to anyone else.
func (a *Account) HasPerm(_ string, _ any) bool { return a.IsAdmin }

// HasModulePerms never restricts module access.
func (a *Account) HasModulePerms(_ string) bool { return true }

// Promote grants the admin and staff flags.
func (a *Account) Promote() {
	a.IsAdmin = true
	a.IsStaff = true
}

// Clone returns a copy that shares no mutable state with a.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	c := *a
	c.AdditionalData = a.AdditionalData.Clone()
	if a.LastLogin != nil {
		t := *a.LastLogin
		c.LastLogin = &t
	}
	return &c
}
