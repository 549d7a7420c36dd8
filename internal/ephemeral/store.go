// Package ephemeral provides the expiring key-value capability used for OTP
// codes, OTP sessions, password-reset tokens and pending phone changes.
//
// Records are last-writer-wins: a Set on an existing key replaces both the
// value and the TTL. Expiry is enforced by the backend.
package ephemeral

import (
	"context"
	"errors"
	"os"
	"strconv"
	"time"
)

// Store is the capability injected into the use cases.
type Store interface {
	// Set stores value under key for ttl. A ttl <= 0 never expires.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Get returns ErrNotFound when the key is absent or expired.
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// ErrNotFound is returned by Get for missing or expired keys.
var ErrNotFound = errors.New("ephemeral: key not found")

// Namespace partitions the key space.
type Namespace string

const (
	NamespaceOtpCode            Namespace = "otp-code"
	NamespaceOtpSession         Namespace = "otp-session"
	NamespacePasswordResetToken Namespace = "password-reset-token"
	NamespacePendingPhoneChange Namespace = "pending-phone-change"
)

// Key builds "<namespace>:<subject>".
func (n Namespace) Key(subject string) string {
	return string(n) + ":" + subject
}

// OtpCodeKey is keyed by account id.
func OtpCodeKey(accountID int64) string {
	return NamespaceOtpCode.Key(strconv.FormatInt(accountID, 10))
}

// OtpSessionKey is keyed by the opaque session id.
func OtpSessionKey(sessionID string) string { return NamespaceOtpSession.Key(sessionID) }

// ResetTokenKey is keyed by the opaque reset token.
func ResetTokenKey(token string) string { return NamespacePasswordResetToken.Key(token) }

// PendingPhoneKey is keyed by account id.
func PendingPhoneKey(accountID int64) string {
	return NamespacePendingPhoneChange.Key(strconv.FormatInt(accountID, 10))
}

// Config selects and configures a backend.
type Config struct {
	Driver   string // "memory" | "redis"
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// ConfigFromEnv reads the ephemeral store config from environment variables.
func ConfigFromEnv() Config {
	driver := os.Getenv("EPHEMERAL_DRIVER")
	if driver == "" {
		driver = "memory"
	}
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	db, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	return Config{
		Driver:   driver,
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       db,
		Prefix:   os.Getenv("EPHEMERAL_PREFIX"),
	}
}

// New builds the backend named by cfg.Driver. Unknown drivers fall back to memory.
func New(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "redis":
		return NewRedisStore(ctx, cfg)
	default:
		return NewMemoryStore(cfg.Prefix), nil
	}
}

func prefixed(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + ":" + key
}
