package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/connectrh/core-auth/internal/core/domain"
	"github.com/connectrh/core-auth/internal/core/ports"
)

// Default administrator account created on first start.
const (
	DefaultAdminEmail    = "admin@connectrh.com"
	DefaultAdminPassword = "admin123"
	DefaultAdminName     = "System Administrator"
	DefaultAdminPhone    = "11954444380"
)

// baselineRoles are ensured on every start. USER backs signup.
var baselineRoles = []domain.RoleName{
	domain.RoleAdmin,
	domain.RoleManager,
	domain.RoleEmployee,
	domain.RoleUser,
}

// AdminAccount describes the bootstrap administrator.
type AdminAccount struct {
	Name        string
	Email       string
	Password    string
	PhoneNumber string
}

// Seeder idempotently creates the baseline roles and the administrator.
type Seeder struct {
	users  ports.UserRepository
	roles  ports.RoleRepository
	hasher ports.PasswordHasher
	admin  AdminAccount
	log    zerolog.Logger
}

// NewSeeder returns a Seeder. Empty admin fields fall back to the defaults.
func NewSeeder(users ports.UserRepository, roles ports.RoleRepository, hasher ports.PasswordHasher, admin AdminAccount, log zerolog.Logger) *Seeder {
	if admin.Email == "" {
		admin.Email = DefaultAdminEmail
	}
	if admin.Password == "" {
		admin.Password = DefaultAdminPassword
	}
	if admin.Name == "" {
		admin.Name = DefaultAdminName
	}
	if admin.PhoneNumber == "" {
		admin.PhoneNumber = DefaultAdminPhone
	}
	return &Seeder{users: users, roles: roles, hasher: hasher, admin: admin, log: log}
}

// Run ensures every baseline role exists and that exactly one administrator
// with the ADMIN and MANAGER roles exists. Running it again changes nothing.
func (s *Seeder) Run(ctx context.Context) error {
	resolved := make(map[domain.RoleName]*domain.Role, len(baselineRoles))
	for _, name := range baselineRoles {
		role, err := s.ensureRole(ctx, name)
		if err != nil {
			return err
		}
		resolved[name] = role
	}

	return s.ensureAdmin(ctx, []domain.Role{*resolved[domain.RoleAdmin], *resolved[domain.RoleManager]})
}

func (s *Seeder) ensureRole(ctx context.Context, name domain.RoleName) (*domain.Role, error) {
	role, err := s.roles.FindByName(ctx, name)
	if err == nil {
		return role, nil
	}
	if !errors.Is(err, domain.ErrRoleNotFound) {
		return nil, fmt.Errorf("seed role %s: %w", name, err)
	}

	role, err = s.roles.Create(ctx, name)
	created := err == nil
	if errors.Is(err, domain.ErrRoleExists) {
		// another instance won the race
		role, err = s.roles.FindByName(ctx, name)
	}
	if err != nil {
		return nil, fmt.Errorf("seed role %s: %w", name, err)
	}

	if created {
		s.log.Info().Str("role", string(name)).Msg("role created")
	}
	return role, nil
}

func (s *Seeder) ensureAdmin(ctx context.Context, roles []domain.Role) error {
	_, err := s.users.FindByEmail(ctx, s.admin.Email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return fmt.Errorf("seed admin: %w", err)
	}

	hash, err := s.hasher.Hash(s.admin.Password)
	if err != nil {
		return fmt.Errorf("seed admin: hash password: %w", err)
	}

	now := time.Now().UTC()
	_, err = s.users.Create(ctx, &domain.User{
		Name:         s.admin.Name,
		Email:        s.admin.Email,
		PhoneNumber:  s.admin.PhoneNumber,
		PasswordHash: hash,
		Roles:        roles,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if errors.Is(err, domain.ErrEmailAlreadyRegistered) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	evt := s.log.Info()
	if s.admin.Password == DefaultAdminPassword {
		evt = s.log.Warn()
	}
	evt.Str("email", s.admin.Email).
		Bool("default_password", s.admin.Password == DefaultAdminPassword).
		Msg("admin user created")
	return nil
}
