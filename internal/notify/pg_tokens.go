package notify

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgTokenRepository implements TokenRepository on Postgres.
type PgTokenRepository struct {
	pool *pgxpool.Pool
}

func NewPgTokenRepository(pool *pgxpool.Pool) *PgTokenRepository {
	return &PgTokenRepository{pool: pool}
}

func scanToken(row pgx.Row) (*DeviceToken, error) {
	var t DeviceToken

	err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.Token,
		&t.Platform,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}

	return &t, nil
}

// UpsertToken registers a token for a user. A token already registered to a
// different user is re-owned, since the device has changed hands.
func (r *PgTokenRepository) UpsertToken(ctx context.Context, userID uuid.UUID, token, platform string) (*DeviceToken, error) {
	id := uuid.New()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO device_tokens (id, user_id, token, platform, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
		ON CONFLICT (token) DO UPDATE
		SET user_id = EXCLUDED.user_id,
		    platform = EXCLUDED.platform,
		    updated_at = now()
		RETURNING id, user_id, token, platform, created_at, updated_at
	`, id, userID, token, platform)

	return scanToken(row)
}

func (r *PgTokenRepository) ListTokensByUser(ctx context.Context, userID uuid.UUID) ([]DeviceToken, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, token, platform, created_at, updated_at
		FROM device_tokens
		WHERE user_id = $1
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []DeviceToken
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgTokenRepository) DeleteToken(ctx context.Context, token string) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM device_tokens
		WHERE token = $1
	`, token)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTokenNotFound
	}
	return nil
}

func (r *PgTokenRepository) DeleteTokensByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM device_tokens
		WHERE user_id = $1
	`, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
