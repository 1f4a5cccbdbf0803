package pgx

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

func (a *Adapter) GetMetadata(ctx context.Context, id, key string) (string, bool, error) {
	var value string
	err := a.pool.QueryRow(ctx,
		`SELECT meta_value FROM public.user_meta WHERE user_id = $1 AND meta_key = $2`, id, key,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}

func (a *Adapter) SetMetadata(ctx context.Context, id, key, value string) error {
	_, err := a.pool.Exec(ctx,
		`INSERT INTO public.user_meta (user_id, meta_key, meta_value) VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, meta_key) DO UPDATE SET meta_value = EXCLUDED.meta_value, updated_at = now()`,
		id, key, value,
	)
	return err
}

// SetMetadataOnce relies on the (user_id, meta_key) primary key: of two
// racing inserts exactly one affects a row
func (a *Adapter) SetMetadataOnce(ctx context.Context, id, key, value string) (bool, error) {
	tag, err := a.pool.Exec(ctx,
		`INSERT INTO public.user_meta (user_id, meta_key, meta_value) VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, meta_key) DO NOTHING`,
		id, key, value,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (a *Adapter) DeleteMetadata(ctx context.Context, id, key string) error {
	_, err := a.pool.Exec(ctx, `DELETE FROM public.user_meta WHERE user_id = $1 AND meta_key = $2`, id, key)
	return err
}
