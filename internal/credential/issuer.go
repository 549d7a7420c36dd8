package credential

import (
	"context"
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-account-go/internal/account/entity"
)

// RefreshTokenStore persists refresh tokens. Save must replace any existing
// row for the same account in one step.
type RefreshTokenStore interface {
	Save(ctx context.Context, t *RefreshToken) error
	FindByToken(ctx context.Context, token string) (*RefreshToken, error)
	Delete(ctx context.Context, token string) error
	DeleteByAccount(ctx context.Context, accountID int64) error
}

// AccountFinder loads the account owning a refresh token.
type AccountFinder interface {
	GetByID(ctx context.Context, id int64) (*entity.Account, error)
}

// TokenSigner mints signed access tokens.
type TokenSigner interface {
	Sign(accountID int64, username, role string) (string, error)
	TTL() time.Duration
}

// Config for token issuance.
type Config struct {
	Issuer         string
	AccessTTL      time.Duration
	RefreshTTLDays int
	PrivateKeyFile string
}

// ConfigFromEnv reads token settings from environment variables.
func ConfigFromEnv() Config {
	iss := os.Getenv("JWT_ISSUER")
	if iss == "" {
		iss = "pitchfork-account"
	}
	ttl, err := time.ParseDuration(os.Getenv("JWT_ACCESS_TTL"))
	if err != nil || ttl <= 0 {
		ttl = 15 * time.Minute
	}
	days, err := strconv.Atoi(os.Getenv("REFRESH_TOKEN_DAYS"))
	if err != nil || days <= 0 {
		days = 30
	}
	return Config{Issuer: iss, AccessTTL: ttl, RefreshTTLDays: days, PrivateKeyFile: os.Getenv("JWT_PRIVATE_KEY_FILE")}
}

// Issuer mints and rotates access/refresh pairs.
type Issuer struct {
	tokens   RefreshTokenStore
	accounts AccountFinder
	signer   TokenSigner
	ttl      time.Duration
	logger   *zap.SugaredLogger
	now      func() time.Time
}

func NewIssuer(tokens RefreshTokenStore, accounts AccountFinder, signer TokenSigner, refreshTTLDays int, logger *zap.SugaredLogger) *Issuer {
	if refreshTTLDays <= 0 {
		refreshTTLDays = 30
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Issuer{
		tokens:   tokens,
		accounts: accounts,
		signer:   signer,
		ttl:      time.Duration(refreshTTLDays) * 24 * time.Hour,
		logger:   logger,
		now:      time.Now,
	}
}

// GenerateTokens replaces the account's refresh token and signs a new access
// token. Afterwards exactly one refresh row exists for the account.
func (s *Issuer) GenerateTokens(ctx context.Context, a *entity.Account) (*TokenPair, error) {
	now := s.now().UTC()
	rt := &RefreshToken{
		Token:     uuid.NewString(),
		AccountID: a.ID,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	if err := s.tokens.Save(ctx, rt); err != nil {
		return nil, err
	}
	access, err := s.signer.Sign(a.ID, a.Username, a.Role)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: rt.Token,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.signer.TTL().Seconds()),
	}, nil
}

// Refresh rotates a refresh token. The consumed value is invalidated by the
// replacement inside GenerateTokens.
func (s *Issuer) Refresh(ctx context.Context, value string) (*TokenPair, error) {
	id, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return nil, ErrRefreshInvalidFormat
	}
	rt, err := s.tokens.FindByToken(ctx, id.String())
	if err != nil {
		return nil, err
	}
	if rt.Expired(s.now()) {
		if derr := s.tokens.Delete(ctx, rt.Token); derr != nil {
			s.logger.Warnw("delete expired refresh token failed", "account_id", rt.AccountID, "err", derr)
		}
		return nil, ErrRefreshTokenExpired
	}
	a, err := s.accounts.GetByID(ctx, rt.AccountID)
	if err != nil {
		if errors.Is(err, entity.ErrAccountNotFound) {
			_ = s.tokens.Delete(ctx, rt.Token)
		}
		return nil, err
	}
	if err := a.EnsureActive(); err != nil {
		return nil, err
	}
	return s.GenerateTokens(ctx, a)
}

// Logout deletes the refresh token if it exists. Blank, malformed and unknown
// values are no-ops.
func (s *Issuer) Logout(ctx context.Context, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return nil
	}
	rt, err := s.tokens.FindByToken(ctx, id.String())
	if err != nil {
		if errors.Is(err, ErrRefreshTokenNotFound) {
			return nil
		}
		return err
	}
	return s.tokens.Delete(ctx, rt.Token)
}

// Revoke drops whatever refresh token the account holds.
func (s *Issuer) Revoke(ctx context.Context, accountID int64) error {
	return s.tokens.DeleteByAccount(ctx, accountID)
}
