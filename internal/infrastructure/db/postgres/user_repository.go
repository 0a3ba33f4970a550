package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/connectrh/core-auth/internal/core/domain"
)

// UserRepository implements ports.UserRepository backed by PostgreSQL.
type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create inserts the user and its role links in one transaction.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	created := *user
	created.ID = uuid.NewString()
	created.Roles = append([]domain.Role(nil), user.Roles...)

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		const insertUser = `
			INSERT INTO users (id, name, email, phone_number, password_hash, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`
		if _, err := tx.Exec(ctx, insertUser,
			created.ID, created.Name, created.Email, created.PhoneNumber,
			created.PasswordHash, created.CreatedAt, created.UpdatedAt,
		); err != nil {
			return err
		}

		for _, role := range created.Roles {
			if _, err := tx.Exec(ctx, `INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)`, created.ID, role.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgUniqueViolation:
				return nil, domain.ErrEmailAlreadyRegistered
			case pgForeignKeyViolation:
				return nil, domain.ErrRoleNotFound
			}
		}
		return nil, fmt.Errorf("postgres: create user: %w", err)
	}

	return &created, nil
}

// FindByEmail retrieves a user and its roles by exact email.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	const selectUser = `
		SELECT id, name, email, phone_number, password_hash, created_at, updated_at
		FROM users
		WHERE email = $1
	`

	var u domain.User
	err := r.pool.QueryRow(ctx, selectUser, email).Scan(
		&u.ID, &u.Name, &u.Email, &u.PhoneNumber, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("postgres: get user by email: %w", err)
	}

	roles, err := r.rolesOf(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	u.Roles = roles
	return &u, nil
}

func (r *UserRepository) rolesOf(ctx context.Context, userID string) ([]domain.Role, error) {
	const selectRoles = `
		SELECT r.id, r.name
		FROM roles r
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = $1
	`

	rows, err := r.pool.Query(ctx, selectRoles, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres: get user roles: %w", err)
	}
	defer rows.Close()

	var roles []domain.Role
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("postgres: scan role: %w", err)
		}
		name, err := domain.ParseRoleName(raw)
		if err != nil {
			return nil, fmt.Errorf("postgres: user %s: %w", userID, err)
		}
		roles = append(roles, domain.Role{ID: id, Name: name})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: get user roles: %w", err)
	}
	return roles, nil
}
