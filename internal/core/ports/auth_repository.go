package ports

import (
	"context"

	"github.com/connectrh/core-auth/internal/core/domain"
)

// UserRepository defines persistence for user accounts.
// Implementations enforce a unique email and return
// domain.ErrEmailAlreadyRegistered on violation.
type UserRepository interface {
	// FindByEmail returns domain.ErrUserNotFound when no user matches.
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	// Create stores the user and its role references in a single write.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
}

// RoleRepository defines persistence for role rows.
type RoleRepository interface {
	// FindByName returns domain.ErrRoleNotFound when the role row is absent.
	FindByName(ctx context.Context, name domain.RoleName) (*domain.Role, error)
	// Create returns domain.ErrRoleExists when the name is taken.
	Create(ctx context.Context, name domain.RoleName) (*domain.Role, error)
}

// Pinger is implemented by stores that can report connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}
