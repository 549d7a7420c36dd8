package repo

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ovaphlow/pitchfork/service-account-go/internal/account/entity"
)

// pq error code for unique_violation.
const uniqueViolation = "23505"

// AccountRepo provides data access for the accounts table using sqlx.
type AccountRepo struct {
	db *sqlx.DB
}

func NewAccountRepo(db *sqlx.DB) *AccountRepo { return &AccountRepo{db: db} }

// EnsureTable creates the accounts table if not exists (idempotent).
// This is a convenience for early development; prefer migrations in production.
func (r *AccountRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS accounts (
  id BIGINT PRIMARY KEY,
  username TEXT NOT NULL,
  full_name TEXT NOT NULL,
  phone TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'PENDING_VERIFICATION',
  role TEXT NOT NULL DEFAULT 'user',
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  CONSTRAINT accounts_username_key UNIQUE (username),
  CONSTRAINT accounts_phone_key UNIQUE (phone)
);
CREATE INDEX IF NOT EXISTS idx_accounts_status_created ON accounts(status, created_at);
CREATE INDEX IF NOT EXISTS idx_accounts_status_updated ON accounts(status, updated_at);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

const selectAccount = `SELECT id, username, full_name, phone, password_hash, status, role, created_at, updated_at FROM accounts`

// Create inserts a new account row. A unique violation on username or phone
// (including a race lost against a concurrent signup) is reported as AlreadyExists.
func (r *AccountRepo) Create(ctx context.Context, a *entity.Account) error {
	const q = `INSERT INTO accounts (id, username, full_name, phone, password_hash, status, role, created_at, updated_at)
		VALUES (:id, :username, :full_name, :phone, :password_hash, :status, :role, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, q, a); err != nil {
		return translateUnique(err)
	}
	return nil
}

// GetByID fetches a full account row or entity.ErrAccountNotFound.
func (r *AccountRepo) GetByID(ctx context.Context, id int64) (*entity.Account, error) {
	return r.getOne(ctx, selectAccount+` WHERE id=$1`, id)
}

// GetByUsername fetches by username.
func (r *AccountRepo) GetByUsername(ctx context.Context, username string) (*entity.Account, error) {
	return r.getOne(ctx, selectAccount+` WHERE username=$1`, username)
}

// GetByPhone fetches by normalized phone.
func (r *AccountRepo) GetByPhone(ctx context.Context, phone string) (*entity.Account, error) {
	return r.getOne(ctx, selectAccount+` WHERE phone=$1`, phone)
}

func (r *AccountRepo) getOne(ctx context.Context, q string, arg any) (*entity.Account, error) {
	var row entity.Account
	if err := r.db.GetContext(ctx, &row, q, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entity.ErrAccountNotFound
		}
		return nil, err
	}
	return &row, nil
}

// ExistsByUsername reports whether a username is already taken.
func (r *AccountRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var ok bool
	err := r.db.GetContext(ctx, &ok, `SELECT EXISTS(SELECT 1 FROM accounts WHERE username=$1)`, username)
	return ok, err
}

// ExistsByPhone reports whether a phone is already taken.
func (r *AccountRepo) ExistsByPhone(ctx context.Context, phone string) (bool, error) {
	var ok bool
	err := r.db.GetContext(ctx, &ok, `SELECT EXISTS(SELECT 1 FROM accounts WHERE phone=$1)`, phone)
	return ok, err
}

// Save writes the mutable columns back.
func (r *AccountRepo) Save(ctx context.Context, a *entity.Account) error {
	const q = `UPDATE accounts SET full_name=:full_name, phone=:phone, password_hash=:password_hash,
		status=:status, role=:role, updated_at=:updated_at WHERE id=:id`
	res, err := r.db.NamedExecContext(ctx, q, a)
	if err != nil {
		return translateUnique(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return entity.ErrAccountNotFound
	}
	return nil
}

// Delete removes a single account row or reports entity.ErrAccountNotFound.
func (r *AccountRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id=$1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return entity.ErrAccountNotFound
	}
	return nil
}

// DeleteByIDs removes accounts in bulk and returns the affected row count.
func (r *AccountRepo) DeleteByIDs(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListByStatusCreatedBefore selects cleanup candidates by creation time.
func (r *AccountRepo) ListByStatusCreatedBefore(ctx context.Context, status entity.Status, before time.Time) ([]*entity.Account, error) {
	var rows []*entity.Account
	err := r.db.SelectContext(ctx, &rows, selectAccount+` WHERE status=$1 AND created_at < $2`, status, before)
	return rows, err
}

// ListByStatusUpdatedBefore selects cleanup candidates by last update time.
func (r *AccountRepo) ListByStatusUpdatedBefore(ctx context.Context, status entity.Status, before time.Time) ([]*entity.Account, error) {
	var rows []*entity.Account
	err := r.db.SelectContext(ctx, &rows, selectAccount+` WHERE status=$1 AND updated_at < $2`, status, before)
	return rows, err
}

func translateUnique(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != uniqueViolation {
		return err
	}
	switch {
	case strings.Contains(pqErr.Constraint, "username"):
		return entity.ErrUsernameTaken
	case strings.Contains(pqErr.Constraint, "phone"):
		return entity.ErrPhoneTaken
	}
	return entity.ErrAccountExists
}
