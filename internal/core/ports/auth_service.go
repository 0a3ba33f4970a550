package ports

import (
	"context"

	"github.com/connectrh/core-auth/internal/core/domain"
)

// CreateUserInput carries signup data from the transport layer.
type CreateUserInput struct {
	Name        string
	Email       string
	Password    string
	PhoneNumber string
}

// CredentialValidator checks login credentials and registers accounts.
type CredentialValidator interface {
	// ValidateCredentials returns the user and true only when the email exists
	// and the password matches. An unknown email and a wrong password are
	// indistinguishable to the caller.
	ValidateCredentials(ctx context.Context, email, rawPassword string) (*domain.User, bool, error)
	CreateUser(ctx context.Context, input CreateUserInput) (*domain.User, error)
}
