package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RoleRepository resuelve la pertenencia de un usuario a roles.
type RoleRepository interface {
	// ListRoles devuelve los roles de userID filtrados a role.
	ListRoles(ctx context.Context, userID, role string) ([]string, error)
	Grant(ctx context.Context, userID, role string) error
}

type PgRoleRepository struct {
	pool *pgxpool.Pool
}

func NewPgRoleRepository(pool *pgxpool.Pool) *PgRoleRepository {
	return &PgRoleRepository{pool: pool}
}

func (r *PgRoleRepository) ListRoles(ctx context.Context, userID, role string) ([]string, error) {
	const query = `
		SELECT role
		FROM user_roles
		WHERE user_id = $1 AND role = $2
	`

	rows, err := r.pool.Query(ctx, query, userID, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []string
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, err
		}
		roles = append(roles, label)
	}
	return roles, rows.Err()
}

func (r *PgRoleRepository) Grant(ctx context.Context, userID, role string) error {
	const query = `
		INSERT INTO user_roles (user_id, role)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`
	_, err := r.pool.Exec(ctx, query, userID, role)
	return err
}
