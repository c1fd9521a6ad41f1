package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/auth-service/internal/domain"
)

// RoleRepository defines persistence access for roles.
type RoleRepository interface {
	GetByName(ctx context.Context, name string) (*domain.Role, error)
	// Ensure creates the role if absent. Safe to race across concurrently
	// bootstrapping instances: the unique constraint on name makes the
	// insert a no-op for the loser.
	Ensure(ctx context.Context, name string) (*domain.Role, error)
}

type roleRepository struct {
	pool *pgxpool.Pool
}

// NewRoleRepository returns a Postgres-backed implementation.
func NewRoleRepository(pool *pgxpool.Pool) RoleRepository {
	return &roleRepository{pool: pool}
}

func (r *roleRepository) GetByName(ctx context.Context, name string) (*domain.Role, error) {
	const query = `SELECT role_id, name FROM roles WHERE name = $1`

	var role domain.Role
	if err := r.pool.QueryRow(ctx, query, name).Scan(&role.ID, &role.Name); err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *roleRepository) Ensure(ctx context.Context, name string) (*domain.Role, error) {
	const upsert = `INSERT INTO roles (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`

	if _, err := r.pool.Exec(ctx, upsert, name); err != nil {
		return nil, err
	}
	return r.GetByName(ctx, name)
}
