package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ovaphlow/pitchfork/service-account-go/internal/credential"
)

// RefreshRepo stores one opaque refresh token per account in
// account_refresh_tokens.
type RefreshRepo struct {
	db *sqlx.DB
}

func NewRefreshRepo(db *sqlx.DB) *RefreshRepo {
	return &RefreshRepo{db: db}
}

// EnsureTable creates the refresh token table. The unique account_id is what
// makes Save a single atomic replacement.
func (r *RefreshRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS account_refresh_tokens (
  token TEXT PRIMARY KEY,
  account_id BIGINT NOT NULL UNIQUE REFERENCES accounts(id) ON DELETE CASCADE,
  expires_at TIMESTAMPTZ NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_account_refresh_tokens_expires ON account_refresh_tokens(expires_at);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// Save inserts the token, replacing the account's previous one if present.
func (r *RefreshRepo) Save(ctx context.Context, t *credential.RefreshToken) error {
	const q = `INSERT INTO account_refresh_tokens (token, account_id, expires_at, created_at)
		VALUES (:token, :account_id, :expires_at, :created_at)
		ON CONFLICT (account_id) DO UPDATE
		SET token = EXCLUDED.token, expires_at = EXCLUDED.expires_at, created_at = EXCLUDED.created_at`
	_, err := r.db.NamedExecContext(ctx, q, t)
	return err
}

func (r *RefreshRepo) FindByToken(ctx context.Context, token string) (*credential.RefreshToken, error) {
	var t credential.RefreshToken
	const q = `SELECT token, account_id, expires_at, created_at FROM account_refresh_tokens WHERE token = $1`
	if err := r.db.GetContext(ctx, &t, q, token); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, credential.ErrRefreshTokenNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *RefreshRepo) Delete(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM account_refresh_tokens WHERE token = $1`, token)
	return err
}

func (r *RefreshRepo) DeleteByAccount(ctx context.Context, accountID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM account_refresh_tokens WHERE account_id = $1`, accountID)
	return err
}

// DeleteByAccounts removes the tokens of many accounts at once.
func (r *RefreshRepo) DeleteByAccounts(ctx context.Context, accountIDs []int64) (int64, error) {
	if len(accountIDs) == 0 {
		return 0, nil
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM account_refresh_tokens WHERE account_id = ANY($1)`, pq.Array(accountIDs))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteExpired purges rows past expiry.
func (r *RefreshRepo) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM account_refresh_tokens WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
