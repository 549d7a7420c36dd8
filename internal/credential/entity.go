package credential

import (
	"time"

	"github.com/ovaphlow/pitchfork/service-account-go/internal/apperr"
)

// RefreshToken is a persisted opaque refresh token. At most one row exists
// per account.
type RefreshToken struct {
	Token     string    `db:"token"`
	AccountID int64     `db:"account_id"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
}

// Expired reports whether the token is past its expiry at now.
func (t *RefreshToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// TokenPair is returned by every successful credential issuance.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

var (
	ErrRefreshTokenNotFound = apperr.New(apperr.KindNotFound, "refresh token not found")
	ErrRefreshInvalidFormat = apperr.New(apperr.KindInvalidFormat, "refresh token malformed")
	ErrRefreshTokenExpired  = apperr.New(apperr.KindExpired, "refresh token expired")
	ErrInvalidAccessToken   = apperr.New(apperr.KindInvalidToken, "access token invalid")
)
