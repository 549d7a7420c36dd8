package entity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-account-go/internal/apperr"
)

func newAccount(t *testing.T, status Status) *Account {
	t.Helper()
	a, err := New(1, "alice", "Alice A.", "+15551234567", "hash", "user")
	require.NoError(t, err)
	a.Status = status
	return a
}

func TestNewStartsPending(t *testing.T) {
	a := newAccount(t, StatusPendingVerification)
	assert.Equal(t, StatusPendingVerification, a.Status)
	assert.False(t, a.CreatedAt.IsZero())
	assert.Equal(t, a.CreatedAt, a.UpdatedAt)
}

func TestNewValidation(t *testing.T) {
	cases := []struct {
		name     string
		username string
		fullName string
		phone    string
		want     error
	}{
		{"short username", "abc", "A", "+15551234567", ErrInvalidUsername},
		{"long username", strings.Repeat("a", 51), "A", "+15551234567", ErrInvalidUsername},
		{"space in username", "al ice", "A", "+15551234567", ErrInvalidUsername},
		{"blank full name", "alice", "  ", "+15551234567", ErrInvalidFullName},
		{"not e164", "alice", "A", "5551234567", ErrInvalidPhone},
		{"leading zero", "alice", "A", "+05551234567", ErrInvalidPhone},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(1, tc.username, tc.fullName, tc.phone, "h", "user")
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestActivate(t *testing.T) {
	cases := []struct {
		from Status
		want error
	}{
		{StatusPendingVerification, nil},
		{StatusActive, ErrAlreadyActive},
		{StatusLocked, ErrLockedCannotActivate},
		{StatusDisabled, ErrDisabledCannotActivate},
	}
	for _, tc := range cases {
		t.Run(string(tc.from), func(t *testing.T) {
			a := newAccount(t, tc.from)
			err := a.Activate()
			if tc.want == nil {
				require.NoError(t, err)
				assert.Equal(t, StatusActive, a.Status)
				return
			}
			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, apperr.KindAccountStateConflict, apperr.KindOf(err))
			assert.Equal(t, tc.from, a.Status)
		})
	}
}

func TestLockUnlockDisable(t *testing.T) {
	a := newAccount(t, StatusPendingVerification)
	require.NoError(t, a.Lock())
	assert.Equal(t, StatusLocked, a.Status)
	assert.ErrorIs(t, a.Lock(), ErrAlreadyLocked)

	require.NoError(t, a.Unlock())
	assert.Equal(t, StatusActive, a.Status)
	assert.ErrorIs(t, a.Unlock(), ErrNotLocked)

	require.NoError(t, a.Disable())
	assert.Equal(t, StatusDisabled, a.Status)
	assert.ErrorIs(t, a.Disable(), ErrMustBeActive)
	assert.ErrorIs(t, a.Lock(), ErrAlreadyLocked)
}

func TestEnsureActive(t *testing.T) {
	cases := map[Status]error{
		StatusActive:              nil,
		StatusPendingVerification: ErrPendingVerification,
		StatusLocked:              ErrAccountLocked,
		StatusDisabled:            ErrAccountDisabled,
		Status("BOGUS"):           ErrUnknownStatus,
	}
	for status, want := range cases {
		a := newAccount(t, status)
		if want == nil {
			assert.NoError(t, a.EnsureActive())
			continue
		}
		assert.ErrorIs(t, a.EnsureActive(), want, string(status))
	}
}

func TestChangePhoneRevalidates(t *testing.T) {
	a := newAccount(t, StatusActive)
	assert.ErrorIs(t, a.ChangePhone("12345"), ErrInvalidPhone)
	assert.Equal(t, "+15551234567", a.Phone)

	require.NoError(t, a.ChangePhone("+447700900123"))
	assert.Equal(t, "+447700900123", a.Phone)
}
