package domain

import (
	"errors"
	"fmt"
	"strings"
)

// RoleName is one of the fixed role identifiers. Role rows are keyed by it.
type RoleName string

const (
	RoleAdmin    RoleName = "ADMIN"
	RoleManager  RoleName = "MANAGER"
	RoleEmployee RoleName = "EMPLOYEE"
	RoleUser     RoleName = "USER"
)

// DefaultRole is assigned to every account created through signup.
const DefaultRole = RoleUser

var (
	ErrRoleNotFound    = errors.New("role not found")
	ErrRoleExists      = errors.New("role already exists")
	ErrUnknownRoleName = errors.New("unknown role name")
)

var knownRoles = map[RoleName]struct{}{
	RoleAdmin:    {},
	RoleManager:  {},
	RoleEmployee: {},
	RoleUser:     {},
}

// ParseRoleName maps a wire or storage string to a RoleName.
// Matching is case-insensitive; anything outside the fixed set is rejected.
func ParseRoleName(s string) (RoleName, error) {
	name := RoleName(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := knownRoles[name]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRoleName, s)
	}
	return name, nil
}

// Valid reports whether r belongs to the fixed role set.
func (r RoleName) Valid() bool {
	_, ok := knownRoles[r]
	return ok
}

// Role is a persisted role row.
type Role struct {
	ID   string   `json:"id"`
	Name RoleName `json:"name"`
}
