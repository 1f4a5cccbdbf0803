package pgx

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/lborres/webpro/core"
)

const userColumns = `id, login, email, first_name, last_name, display_name, role, password_hash, created_at, updated_at`

func scanUser(row pgx.Row) (*core.User, error) {
	user := &core.User{}
	err := row.Scan(
		&user.ID, &user.Login, &user.Email, &user.FirstName, &user.LastName,
		&user.DisplayName, &user.Role, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, core.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (a *Adapter) FindByID(ctx context.Context, id string) (*core.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, core.ErrUserNotFound
	}
	q := `SELECT ` + userColumns + ` FROM public.users WHERE id = $1`
	return scanUser(a.pool.QueryRow(ctx, q, id))
}

func (a *Adapter) FindByEmail(ctx context.Context, email string) (*core.User, error) {
	q := `SELECT ` + userColumns + ` FROM public.users WHERE lower(email) = lower($1)`
	return scanUser(a.pool.QueryRow(ctx, q, email))
}

func (a *Adapter) Create(ctx context.Context, user *core.User) error {
	query := `INSERT INTO public.users (id, login, email, first_name, last_name, display_name, role, password_hash)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	          RETURNING created_at, updated_at`

	id := uuid.NewString()
	var createdAt, updatedAt time.Time

	err := a.pool.QueryRow(ctx, query,
		id, user.Login, user.Email, user.FirstName, user.LastName, user.DisplayName, user.Role, user.PasswordHash,
	).Scan(&createdAt, &updatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return core.ErrUserExists
		}
		return err
	}

	user.ID = id
	user.CreatedAt = createdAt
	user.UpdatedAt = updatedAt
	return nil
}

func (a *Adapter) SetRole(ctx context.Context, id, role string) error {
	tag, err := a.pool.Exec(ctx, `UPDATE public.users SET role = $1, updated_at = now() WHERE id = $2`, role, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrUserNotFound
	}
	return nil
}
