// Package cleanup removes stale pending and disabled accounts together with
// their refresh tokens.
package cleanup

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-account-go/internal/account/entity"
	"github.com/ovaphlow/pitchfork/service-account-go/internal/metrics"
)

// AccountStore is the subset of the account store the sweeps need.
type AccountStore interface {
	ListByStatusCreatedBefore(ctx context.Context, status entity.Status, before time.Time) ([]*entity.Account, error)
	ListByStatusUpdatedBefore(ctx context.Context, status entity.Status, before time.Time) ([]*entity.Account, error)
	DeleteByIDs(ctx context.Context, ids []int64) (int64, error)
}

// TokenStore is the subset of the refresh token store the sweeps need.
type TokenStore interface {
	DeleteByAccounts(ctx context.Context, accountIDs []int64) (int64, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

type Config struct {
	Interval     time.Duration
	PendingAge   time.Duration
	DisabledDays int
}

// ConfigFromEnv reads CLEANUP_INTERVAL, CLEANUP_PENDING_AGE and CLEANUP_DISABLED_DAYS.
func ConfigFromEnv() Config {
	cfg := Config{Interval: time.Hour, PendingAge: 24 * time.Hour, DisabledDays: 30}
	if d, err := time.ParseDuration(os.Getenv("CLEANUP_INTERVAL")); err == nil && d > 0 {
		cfg.Interval = d
	}
	if d, err := time.ParseDuration(os.Getenv("CLEANUP_PENDING_AGE")); err == nil && d > 0 {
		cfg.PendingAge = d
	}
	if n, err := strconv.Atoi(os.Getenv("CLEANUP_DISABLED_DAYS")); err == nil && n > 0 {
		cfg.DisabledDays = n
	}
	return cfg
}

// Result counts rows removed by one sweep.
type Result struct {
	Accounts int64
	Tokens   int64
}

// Job runs the account sweeps.
type Job struct {
	accounts AccountStore
	tokens   TokenStore
	cfg      Config
	logger   *zap.SugaredLogger
	now      func() time.Time
}

func NewJob(accounts AccountStore, tokens TokenStore, cfg Config, logger *zap.SugaredLogger) *Job {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Job{accounts: accounts, tokens: tokens, cfg: cfg, logger: logger, now: time.Now}
}

// CleanupPending deletes PENDING_VERIFICATION accounts created before
// now-PendingAge.
func (j *Job) CleanupPending(ctx context.Context) (Result, error) {
	cutoff := j.now().Add(-j.cfg.PendingAge)
	stale, err := j.accounts.ListByStatusCreatedBefore(ctx, entity.StatusPendingVerification, cutoff)
	if err != nil {
		return Result{}, fmt.Errorf("list pending accounts: %w", err)
	}
	return j.purge(ctx, "pending", stale)
}

// CleanupDisabled deletes DISABLED accounts untouched for DisabledDays.
func (j *Job) CleanupDisabled(ctx context.Context) (Result, error) {
	cutoff := j.now().AddDate(0, 0, -j.cfg.DisabledDays)
	stale, err := j.accounts.ListByStatusUpdatedBefore(ctx, entity.StatusDisabled, cutoff)
	if err != nil {
		return Result{}, fmt.Errorf("list disabled accounts: %w", err)
	}
	return j.purge(ctx, "disabled", stale)
}

// CleanupExpiredTokens drops refresh tokens past their expiry.
func (j *Job) CleanupExpiredTokens(ctx context.Context) (int64, error) {
	n, err := j.tokens.DeleteExpired(ctx)
	if err != nil {
		return 0, fmt.Errorf("delete expired refresh tokens: %w", err)
	}
	if n > 0 {
		metrics.CleanupDeleted.WithLabelValues("expired", "refresh_tokens").Add(float64(n))
		j.logger.Infow("expired refresh tokens removed", "count", n)
	}
	return n, nil
}

// purge removes tokens before accounts so no token outlives its owner.
// An empty selection issues no deletes.
func (j *Job) purge(ctx context.Context, sweep string, stale []*entity.Account) (Result, error) {
	if len(stale) == 0 {
		return Result{}, nil
	}
	ids := make([]int64, 0, len(stale))
	for _, a := range stale {
		ids = append(ids, a.ID)
	}

	var res Result
	var err error
	if res.Tokens, err = j.tokens.DeleteByAccounts(ctx, ids); err != nil {
		return res, fmt.Errorf("delete %s refresh tokens: %w", sweep, err)
	}
	if res.Accounts, err = j.accounts.DeleteByIDs(ctx, ids); err != nil {
		return res, fmt.Errorf("delete %s accounts: %w", sweep, err)
	}
	metrics.CleanupDeleted.WithLabelValues(sweep, "refresh_tokens").Add(float64(res.Tokens))
	metrics.CleanupDeleted.WithLabelValues(sweep, "accounts").Add(float64(res.Accounts))
	j.logger.Infow("stale accounts removed", "sweep", sweep, "accounts", res.Accounts, "tokens", res.Tokens)
	return res, nil
}

// RunOnce runs every sweep. A failing sweep is logged and does not stop the
// others; the first error is returned.
func (j *Job) RunOnce(ctx context.Context) error {
	var first error
	keep := func(err error) {
		if err != nil {
			j.logger.Warnw("cleanup sweep failed", "err", err)
			if first == nil {
				first = err
			}
		}
	}
	_, err := j.CleanupPending(ctx)
	keep(err)
	_, err = j.CleanupDisabled(ctx)
	keep(err)
	_, err = j.CleanupExpiredTokens(ctx)
	keep(err)
	return first
}

// Run sweeps every Interval until ctx is cancelled.
func (j *Job) Run(ctx context.Context) error {
	interval := j.cfg.Interval
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	j.logger.Infow("cleanup job started", "interval", interval.String())
	for {
		select {
		case <-ctx.Done():
			j.logger.Infow("cleanup job stopped")
			return nil
		case <-ticker.C:
			_ = j.RunOnce(ctx)
		}
	}
}
