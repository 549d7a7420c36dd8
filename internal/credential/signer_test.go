package credential

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSigner(t *testing.T) *JWTSigner {
	t.Helper()
	k, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return newJWTSigner(k, "test-issuer", time.Minute)
}

func TestSignAndParse(t *testing.T) {
	s := testSigner(t)

	tok, err := s.Sign(42, "alice", "admin")
	require.NoError(t, err)

	claims, err := s.Parse(tok)
	require.NoError(t, err)
	id, err := claims.AccountID()
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "admin", claims.Role)
	assert.NotEmpty(t, claims.ID)
}

func TestParseRejectsExpiredAndForeign(t *testing.T) {
	s := testSigner(t)
	tok, err := s.Sign(1, "alice", "user")
	require.NoError(t, err)

	s.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = s.Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidAccessToken)

	other := testSigner(t)
	foreign, err := other.Sign(1, "alice", "user")
	require.NoError(t, err)
	_, err = testSigner(t).Parse(foreign)
	assert.ErrorIs(t, err, ErrInvalidAccessToken)
}

func TestJWKSShape(t *testing.T) {
	s := testSigner(t)
	keys, ok := s.JWKS()["keys"].([]any)
	require.True(t, ok)
	require.Len(t, keys, 1)
	jwk := keys[0].(map[string]any)
	assert.Equal(t, "RS256", jwk["alg"])
	assert.Equal(t, s.kid, jwk["kid"])
	assert.Equal(t, "AQAB", jwk["e"])
}
