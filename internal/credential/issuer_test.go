package credential_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-account-go/internal/account/entity"
	"github.com/ovaphlow/pitchfork/service-account-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-account-go/internal/credential"
	"github.com/ovaphlow/pitchfork/service-account-go/internal/testutil"
)

type fakeSigner struct{ n int }

func (f *fakeSigner) Sign(id int64, username, role string) (string, error) {
	f.n++
	return "access-" + username + "-" + role, nil
}

func (f *fakeSigner) TTL() time.Duration { return 15 * time.Minute }

type fixture struct {
	accounts *testutil.AccountStore
	tokens   *testutil.RefreshTokenStore
	issuer   *credential.Issuer
	account  *entity.Account
}

func setup(t *testing.T, status entity.Status) *fixture {
	t.Helper()
	accounts := testutil.NewAccountStore()
	tokens := testutil.NewRefreshTokenStore()
	a, err := entity.New(100, "alice", "Alice A.", "+15551234567", "hash", "user")
	require.NoError(t, err)
	a.Status = status
	accounts.Put(a)
	return &fixture{
		accounts: accounts,
		tokens:   tokens,
		issuer:   credential.NewIssuer(tokens, accounts, &fakeSigner{}, 30, nil),
		account:  a,
	}
}

func TestGenerateTokensKeepsSingleRefreshToken(t *testing.T) {
	ctx := context.Background()
	f := setup(t, entity.StatusActive)

	first, err := f.issuer.GenerateTokens(ctx, f.account)
	require.NoError(t, err)
	second, err := f.issuer.GenerateTokens(ctx, f.account)
	require.NoError(t, err)

	live := f.tokens.ForAccount(f.account.ID)
	require.Len(t, live, 1)
	assert.Equal(t, second.RefreshToken, live[0].Token)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
	assert.Len(t, second.RefreshToken, 36)
	assert.Equal(t, "access-alice-user", second.AccessToken)
	assert.Equal(t, "Bearer", second.TokenType)
	assert.Equal(t, int64(900), second.ExpiresIn)
	assert.WithinDuration(t, time.Now().Add(30*24*time.Hour), live[0].ExpiresAt, time.Minute)
}

func TestRefreshRotates(t *testing.T) {
	ctx := context.Background()
	f := setup(t, entity.StatusActive)

	pair, err := f.issuer.GenerateTokens(ctx, f.account)
	require.NoError(t, err)

	rotated, err := f.issuer.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	_, err = f.issuer.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, credential.ErrRefreshTokenNotFound)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	live := f.tokens.ForAccount(f.account.ID)
	require.Len(t, live, 1)
	assert.Equal(t, rotated.RefreshToken, live[0].Token)
}

func TestRefreshFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("malformed", func(t *testing.T) {
		f := setup(t, entity.StatusActive)
		_, err := f.issuer.Refresh(ctx, "not-a-token")
		assert.ErrorIs(t, err, credential.ErrRefreshInvalidFormat)
		assert.Zero(t, f.tokens.TotalCalls())
	})

	t.Run("unknown", func(t *testing.T) {
		f := setup(t, entity.StatusActive)
		_, err := f.issuer.Refresh(ctx, uuid.NewString())
		assert.ErrorIs(t, err, credential.ErrRefreshTokenNotFound)
	})

	t.Run("expired is deleted", func(t *testing.T) {
		f := setup(t, entity.StatusActive)
		tok := uuid.NewString()
		f.tokens.Put(&credential.RefreshToken{
			Token:     tok,
			AccountID: f.account.ID,
			ExpiresAt: time.Now().Add(-time.Minute),
			CreatedAt: time.Now().Add(-time.Hour),
		})
		_, err := f.issuer.Refresh(ctx, tok)
		assert.ErrorIs(t, err, credential.ErrRefreshTokenExpired)
		assert.Equal(t, apperr.KindExpired, apperr.KindOf(err))
		assert.Equal(t, 1, f.tokens.Calls("Delete"))
		assert.Empty(t, f.tokens.ForAccount(f.account.ID))
	})

	t.Run("locked account", func(t *testing.T) {
		f := setup(t, entity.StatusLocked)
		tok := uuid.NewString()
		f.tokens.Put(&credential.RefreshToken{Token: tok, AccountID: f.account.ID, ExpiresAt: time.Now().Add(time.Hour)})
		_, err := f.issuer.Refresh(ctx, tok)
		assert.ErrorIs(t, err, entity.ErrAccountLocked)
		assert.Zero(t, f.tokens.Calls("Save"))
	})

	t.Run("orphaned token", func(t *testing.T) {
		f := setup(t, entity.StatusActive)
		tok := uuid.NewString()
		f.tokens.Put(&credential.RefreshToken{Token: tok, AccountID: 999, ExpiresAt: time.Now().Add(time.Hour)})
		_, err := f.issuer.Refresh(ctx, tok)
		assert.ErrorIs(t, err, entity.ErrAccountNotFound)
		assert.Empty(t, f.tokens.ForAccount(999))
	})
}

func TestLogoutIsIdempotent(t *testing.T) {
	ctx := context.Background()

	for _, v := range []string{"", "   ", "\t\n"} {
		f := setup(t, entity.StatusActive)
		require.NoError(t, f.issuer.Logout(ctx, v))
		assert.Zero(t, f.tokens.TotalCalls(), "value %q", v)
	}

	f := setup(t, entity.StatusActive)
	require.NoError(t, f.issuer.Logout(ctx, "garbage"))
	require.NoError(t, f.issuer.Logout(ctx, uuid.NewString()))
	assert.Zero(t, f.tokens.Calls("Delete"))

	pair, err := f.issuer.GenerateTokens(ctx, f.account)
	require.NoError(t, err)
	require.NoError(t, f.issuer.Logout(ctx, pair.RefreshToken))
	assert.Empty(t, f.tokens.ForAccount(f.account.ID))
	require.NoError(t, f.issuer.Logout(ctx, pair.RefreshToken))
}
