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

// AuthService validates credentials and registers new accounts.
type AuthService struct {
	users  ports.UserRepository
	roles  ports.RoleRepository
	hasher ports.PasswordHasher
	log    zerolog.Logger
}

func NewAuthService(users ports.UserRepository, roles ports.RoleRepository, hasher ports.PasswordHasher, log zerolog.Logger) *AuthService {
	return &AuthService{users: users, roles: roles, hasher: hasher, log: log}
}

// ValidateCredentials looks the user up by email and checks the password digest.
// Unknown email and wrong password both yield (nil, false, nil).
func (s *AuthService) ValidateCredentials(ctx context.Context, email, rawPassword string) (*domain.User, bool, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("validate credentials: %w", err)
	}

	if !s.hasher.Verify(rawPassword, user.PasswordHash) {
		return nil, false, nil
	}
	return user, true, nil
}

// CreateUser registers a new account holding only the default role.
// The email check is not atomic with the insert; the store's unique index
// settles concurrent signups for the same address.
func (s *AuthService) CreateUser(ctx context.Context, in ports.CreateUserInput) (*domain.User, error) {
	_, err := s.users.FindByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return nil, emailTaken(in.Email)
	case !errors.Is(err, domain.ErrUserNotFound):
		return nil, fmt.Errorf("create user: lookup email: %w", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("create user: hash password: %w", err)
	}

	role, err := s.roles.FindByName(ctx, domain.DefaultRole)
	if err != nil {
		if errors.Is(err, domain.ErrRoleNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrDefaultRoleMissing, domain.DefaultRole)
		}
		return nil, fmt.Errorf("create user: resolve default role: %w", err)
	}

	now := time.Now().UTC()
	created, err := s.users.Create(ctx, &domain.User{
		Name:         in.Name,
		Email:        in.Email,
		PhoneNumber:  in.PhoneNumber,
		PasswordHash: hash,
		Roles:        []domain.Role{*role},
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if errors.Is(err, domain.ErrEmailAlreadyRegistered) {
			return nil, emailTaken(in.Email)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.log.Info().Str("user_id", created.ID).Msg("user registered")
	return created, nil
}

func emailTaken(email string) error {
	return &domain.DuplicateEmailError{Email: email}
}
