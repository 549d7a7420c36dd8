package cleanup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-account-go/internal/account/entity"
	"github.com/ovaphlow/pitchfork/service-account-go/internal/credential"
	"github.com/ovaphlow/pitchfork/service-account-go/internal/testutil"
)

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func seed(t *testing.T, s *testutil.AccountStore, tokens *testutil.RefreshTokenStore, id int64, status entity.Status, created, updated time.Time) {
	t.Helper()
	a, err := entity.New(id, "user"+string(rune('a'+id)), "User", "+1555000000"+string(rune('0'+id)), "hash", "user")
	require.NoError(t, err)
	a.Status = status
	a.CreatedAt = created
	a.UpdatedAt = updated
	s.Put(a)
	tokens.Put(&credential.RefreshToken{
		Token:     "tok-" + a.Username,
		AccountID: id,
		ExpiresAt: now.Add(24 * time.Hour),
		CreatedAt: created,
	})
}

func newJob(accounts *testutil.AccountStore, tokens *testutil.RefreshTokenStore) *Job {
	j := NewJob(accounts, tokens, Config{Interval: time.Hour, PendingAge: 24 * time.Hour, DisabledDays: 30}, nil)
	j.now = func() time.Time { return now }
	return j
}

func TestCleanupPending(t *testing.T) {
	ctx := context.Background()
	accounts := testutil.NewAccountStore()
	tokens := testutil.NewRefreshTokenStore()
	seed(t, accounts, tokens, 1, entity.StatusPendingVerification, now.Add(-48*time.Hour), now.Add(-48*time.Hour))
	seed(t, accounts, tokens, 2, entity.StatusPendingVerification, now.Add(-time.Hour), now.Add(-time.Hour))
	seed(t, accounts, tokens, 3, entity.StatusActive, now.Add(-48*time.Hour), now.Add(-48*time.Hour))

	res, err := newJob(accounts, tokens).CleanupPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, Result{Accounts: 1, Tokens: 1}, res)

	_, err = accounts.GetByID(ctx, 1)
	assert.ErrorIs(t, err, entity.ErrAccountNotFound)
	assert.Empty(t, tokens.ForAccount(1))
	assert.Equal(t, 2, accounts.Len())
	assert.Len(t, tokens.ForAccount(2), 1)
	assert.Len(t, tokens.ForAccount(3), 1)
}

func TestCleanupDisabled(t *testing.T) {
	ctx := context.Background()
	accounts := testutil.NewAccountStore()
	tokens := testutil.NewRefreshTokenStore()
	seed(t, accounts, tokens, 1, entity.StatusDisabled, now.AddDate(-1, 0, 0), now.AddDate(0, 0, -31))
	seed(t, accounts, tokens, 2, entity.StatusDisabled, now.AddDate(-1, 0, 0), now.AddDate(0, 0, -5))
	seed(t, accounts, tokens, 3, entity.StatusLocked, now.AddDate(-1, 0, 0), now.AddDate(0, 0, -90))

	res, err := newJob(accounts, tokens).CleanupDisabled(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Accounts)
	assert.Equal(t, 2, accounts.Len())
	assert.Empty(t, tokens.ForAccount(1))
}

func TestCleanupEmptySelectionIssuesNoDeletes(t *testing.T) {
	ctx := context.Background()
	accounts := testutil.NewAccountStore()
	tokens := testutil.NewRefreshTokenStore()
	seed(t, accounts, tokens, 1, entity.StatusActive, now.AddDate(-1, 0, 0), now.AddDate(-1, 0, 0))
	j := newJob(accounts, tokens)

	for name, sweep := range map[string]func(context.Context) (Result, error){
		"pending":  j.CleanupPending,
		"disabled": j.CleanupDisabled,
	} {
		t.Run(name, func(t *testing.T) {
			res, err := sweep(ctx)
			require.NoError(t, err)
			assert.Zero(t, res)
		})
	}
	assert.Zero(t, accounts.Calls("DeleteByIDs"))
	assert.Zero(t, tokens.Calls("DeleteByAccounts"))
	assert.Zero(t, tokens.TotalCalls())
}

func TestCleanupIsIdempotent(t *testing.T) {
	ctx := context.Background()
	accounts := testutil.NewAccountStore()
	tokens := testutil.NewRefreshTokenStore()
	seed(t, accounts, tokens, 1, entity.StatusPendingVerification, now.Add(-48*time.Hour), now.Add(-48*time.Hour))
	j := newJob(accounts, tokens)

	_, err := j.CleanupPending(ctx)
	require.NoError(t, err)
	res, err := j.CleanupPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, res)
	assert.Equal(t, 1, accounts.Calls("DeleteByIDs"))
}

type failingTokens struct{ *testutil.RefreshTokenStore }

func (failingTokens) DeleteExpired(context.Context) (int64, error) {
	return 0, errors.New("connection reset")
}

func TestRunOnceContinuesAfterFailure(t *testing.T) {
	ctx := context.Background()
	accounts := testutil.NewAccountStore()
	tokens := testutil.NewRefreshTokenStore()
	seed(t, accounts, tokens, 1, entity.StatusPendingVerification, now.Add(-48*time.Hour), now.Add(-48*time.Hour))
	seed(t, accounts, tokens, 2, entity.StatusDisabled, now.AddDate(-1, 0, 0), now.AddDate(0, 0, -60))

	j := NewJob(accounts, failingTokens{tokens}, Config{PendingAge: 24 * time.Hour, DisabledDays: 30}, nil)
	j.now = func() time.Time { return now }

	err := j.RunOnce(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Zero(t, accounts.Len())
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	j := newJob(testutil.NewAccountStore(), testutil.NewRefreshTokenStore())
	j.cfg.Interval = 10 * time.Millisecond

	done := make(chan error, 1)
	go func() { done <- j.Run(ctx) }()
	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
