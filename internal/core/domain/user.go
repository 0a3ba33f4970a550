package domain

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

var (
	ErrUserNotFound           = errors.New("user not found")
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrDefaultRoleMissing     = errors.New("default role not found")
	ErrPasswordTooLong        = errors.New("password exceeds 72 bytes")
)

// MaxPasswordBytes is the longest password bcrypt accepts, in bytes.
const MaxPasswordBytes = 72

// DuplicateEmailError reports a signup for an email that already has an account.
// It matches ErrEmailAlreadyRegistered with errors.Is.
type DuplicateEmailError struct {
	Email string
}

func (e *DuplicateEmailError) Error() string {
	return fmt.Sprintf("email '%s' is already registered", e.Email)
}

func (e *DuplicateEmailError) Is(target error) bool {
	return target == ErrEmailAlreadyRegistered
}

// User models an account that the BFF authenticates on behalf of end users.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PhoneNumber  string    `json:"phoneNumber"`
	PasswordHash string    `json:"-"`
	Roles        []Role    `json:"roles"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// RoleNames returns the user's role names sorted alphabetically.
// Duplicate references collapse to a single name.
func (u *User) RoleNames() []string {
	seen := make(map[RoleName]struct{}, len(u.Roles))
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		if _, ok := seen[r.Name]; ok {
			continue
		}
		seen[r.Name] = struct{}{}
		names = append(names, string(r.Name))
	}
	sort.Strings(names)
	return names
}

// HasRole reports whether the user holds the named role.
func (u *User) HasRole(name RoleName) bool {
	for _, r := range u.Roles {
		if r.Name == name {
			return true
		}
	}
	return false
}
