package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/qa-forum-api/internal/database"
	"github.com/iliyamo/qa-forum-api/internal/model"
)

// TokenRepo persists refresh tokens by their SHA-256 hash.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// StoreRefresh inserts a refresh token hash row.
func (r *TokenRepo) StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	return storeRefresh(ctx, r.DB, userID, tokenHash, exp)
}

// FindRefresh returns the stored row for tokenHash or ErrTokenNotFound.
// Expiry is reported through ExpiresAt; the caller decides what to do.
func (r *TokenRepo) FindRefresh(ctx context.Context, tokenHash string) (*model.RefreshToken, error) {
	var t model.RefreshToken
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, user_id, token_hash, expires_at, created_at FROM refresh_tokens WHERE token_hash=? LIMIT 1",
		tokenHash).Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	return &t, nil
}

// DeleteRefresh removes a single token. Deleting an unknown token returns
// ErrTokenNotFound.
func (r *TokenRepo) DeleteRefresh(ctx context.Context, tokenHash string) error {
	return deleteRefresh(ctx, r.DB, tokenHash)
}

// RotateRefresh deletes oldHash and stores newHash for userID in one
// transaction. The delete must hit exactly one row: if another request
// already rotated oldHash, nothing is inserted and ErrTokenNotFound is
// returned.
func (r *TokenRepo) RotateRefresh(ctx context.Context, oldHash string, userID uint64, newHash string, exp time.Time) error {
	return database.WithTx(ctx, r.DB, func(ctx context.Context, tx database.DBTX) error {
		if err := deleteRefresh(ctx, tx, oldHash); err != nil {
			return err
		}
		return storeRefresh(ctx, tx, userID, newHash, exp)
	})
}

// DeleteExpired purges tokens whose expiry is before now and returns the
// number of rows removed.
func (r *TokenRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE expires_at < ?", now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func storeRefresh(ctx context.Context, db database.DBTX, userID uint64, tokenHash string, exp time.Time) error {
	_, err := db.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)",
		userID, tokenHash, exp.UTC())
	return err
}

func deleteRefresh(ctx context.Context, db database.DBTX, tokenHash string) error {
	res, err := db.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE token_hash=?", tokenHash)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return ErrTokenNotFound
	}
	return nil
}
