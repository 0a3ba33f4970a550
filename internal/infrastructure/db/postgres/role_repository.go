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

// RoleRepository implements ports.RoleRepository backed by PostgreSQL.
type RoleRepository struct {
	pool *pgxpool.Pool
}

func NewRoleRepository(pool *pgxpool.Pool) *RoleRepository {
	return &RoleRepository{pool: pool}
}

func (r *RoleRepository) FindByName(ctx context.Context, name domain.RoleName) (*domain.Role, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var id string
	err := r.pool.QueryRow(ctx, `SELECT id FROM roles WHERE name = $1`, string(name)).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRoleNotFound
		}
		return nil, fmt.Errorf("postgres: get role: %w", err)
	}
	return &domain.Role{ID: id, Name: name}, nil
}

func (r *RoleRepository) Create(ctx context.Context, name domain.RoleName) (*domain.Role, error) {
	if !name.Valid() {
		return nil, domain.ErrUnknownRoleName
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	id := uuid.NewString()
	if _, err := r.pool.Exec(ctx, `INSERT INTO roles (id, name) VALUES ($1, $2)`, id, string(name)); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, domain.ErrRoleExists
		}
		return nil, fmt.Errorf("postgres: create role: %w", err)
	}
	return &domain.Role{ID: id, Name: name}, nil
}
