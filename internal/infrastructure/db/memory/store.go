// Package memory is an in-process store for local runs and tests.
// It enforces the same uniqueness rules as the database-backed stores.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/connectrh/core-auth/internal/core/domain"
)

type Store struct {
	mu    sync.RWMutex
	users map[string]*domain.User // by email
	roles map[domain.RoleName]*domain.Role
}

func NewStore() *Store {
	return &Store{
		users: make(map[string]*domain.User),
		roles: make(map[domain.RoleName]*domain.Role),
	}
}

// UserRepository exposes the store as a ports.UserRepository.
func (s *Store) UserRepository() *UserRepository { return &UserRepository{s: s} }

// RoleRepository exposes the store as a ports.RoleRepository.
func (s *Store) RoleRepository() *RoleRepository { return &RoleRepository{s: s} }

func (s *Store) Ping(context.Context) error { return nil }

// UserCount returns the number of stored users.
func (s *Store) UserCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

// RoleCount returns the number of stored role rows.
func (s *Store) RoleCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.roles)
}

type UserRepository struct {
	s *Store
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *UserRepository) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.users[user.Email]; exists {
		return nil, domain.ErrEmailAlreadyRegistered
	}
	for _, role := range user.Roles {
		if _, ok := r.s.roles[role.Name]; !ok {
			return nil, domain.ErrRoleNotFound
		}
	}

	stored := cloneUser(user)
	stored.ID = uuid.NewString()
	r.s.users[stored.Email] = stored
	return cloneUser(stored), nil
}

type RoleRepository struct {
	s *Store
}

func (r *RoleRepository) FindByName(_ context.Context, name domain.RoleName) (*domain.Role, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	role, ok := r.s.roles[name]
	if !ok {
		return nil, domain.ErrRoleNotFound
	}
	clone := *role
	return &clone, nil
}

func (r *RoleRepository) Create(_ context.Context, name domain.RoleName) (*domain.Role, error) {
	if !name.Valid() {
		return nil, domain.ErrUnknownRoleName
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.roles[name]; exists {
		return nil, domain.ErrRoleExists
	}
	role := &domain.Role{ID: uuid.NewString(), Name: name}
	r.s.roles[name] = role
	clone := *role
	return &clone, nil
}

func cloneUser(u *domain.User) *domain.User {
	clone := *u
	clone.Roles = append([]domain.Role(nil), u.Roles...)
	return &clone
}
