package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-account-go/internal/account/entity"
	"github.com/ovaphlow/pitchfork/service-account-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-account-go/internal/credential"
	"github.com/ovaphlow/pitchfork/service-account-go/internal/ephemeral"
	"github.com/ovaphlow/pitchfork/service-account-go/internal/metrics"
	"github.com/ovaphlow/pitchfork/service-account-go/internal/notify"
)

// AccountStore is the durable account registry. Uniqueness of username and
// phone is enforced by the implementation.
type AccountStore interface {
	Create(ctx context.Context, a *entity.Account) error
	GetByID(ctx context.Context, id int64) (*entity.Account, error)
	GetByUsername(ctx context.Context, username string) (*entity.Account, error)
	GetByPhone(ctx context.Context, phone string) (*entity.Account, error)
	Save(ctx context.Context, a *entity.Account) error
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByPhone(ctx context.Context, phone string) (bool, error)
	Delete(ctx context.Context, id int64) error
}

// Credentials issues, rotates and revokes token pairs.
type Credentials interface {
	GenerateTokens(ctx context.Context, a *entity.Account) (*credential.TokenPair, error)
	Refresh(ctx context.Context, value string) (*credential.TokenPair, error)
	Logout(ctx context.Context, value string) error
	Revoke(ctx context.Context, accountID int64) error
}

// IDGenerator hands out account ids.
type IDGenerator interface {
	NextID() int64
}

// Config holds TTLs and defaults for the verification flows.
type Config struct {
	OtpTTL         time.Duration
	OtpSessionTTL  time.Duration
	ResetTokenTTL  time.Duration
	PhoneChangeTTL time.Duration
	DefaultRegion  string
	BcryptCost     int
	DefaultRole    string
}

// DefaultConfig returns the standard TTLs.
func DefaultConfig() Config {
	return Config{
		OtpTTL:         5 * time.Minute,
		OtpSessionTTL:  10 * time.Minute,
		ResetTokenTTL:  5 * time.Minute,
		PhoneChangeTTL: 5 * time.Minute,
		DefaultRegion:  "US",
		BcryptCost:     12,
		DefaultRole:    "user",
	}
}

// ConfigFromEnv overrides the defaults from environment variables.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	durationEnv("OTP_TTL", &cfg.OtpTTL)
	durationEnv("OTP_SESSION_TTL", &cfg.OtpSessionTTL)
	durationEnv("RESET_TOKEN_TTL", &cfg.ResetTokenTTL)
	durationEnv("PHONE_CHANGE_TTL", &cfg.PhoneChangeTTL)
	if v := os.Getenv("PHONE_DEFAULT_REGION"); v != "" {
		cfg.DefaultRegion = strings.ToUpper(v)
	}
	if v, err := strconv.Atoi(os.Getenv("BCRYPT_COST")); err == nil && v > 0 {
		cfg.BcryptCost = v
	}
	if v := os.Getenv("DEFAULT_ROLE"); v != "" {
		cfg.DefaultRole = v
	}
	return cfg
}

func durationEnv(name string, dst *time.Duration) {
	if d, err := time.ParseDuration(os.Getenv(name)); err == nil && d > 0 {
		*dst = d
	}
}

// Deps are the collaborators of Service.
type Deps struct {
	Accounts    AccountStore
	Credentials Credentials
	Ephemeral   ephemeral.Store
	Publisher   notify.Publisher
	Hasher      PasswordHasher
	Phones      PhoneNormalizer
	IDs         IDGenerator
	Logger      *zap.SugaredLogger
}

// Service implements the account verification use cases.
type Service struct {
	accounts  AccountStore
	creds     Credentials
	ephemeral ephemeral.Store
	publisher notify.Publisher
	hasher    PasswordHasher
	phones    PhoneNormalizer
	ids       IDGenerator
	logger    *zap.SugaredLogger
	cfg       Config

	dummyOnce sync.Once
	dummyHash string
}

func NewService(deps Deps, cfg Config) *Service {
	if deps.Hasher == nil {
		deps.Hasher = BcryptHasher{Cost: cfg.BcryptCost}
	}
	if deps.Phones == nil {
		deps.Phones = PhoneNumberNormalizer{DefaultRegion: cfg.DefaultRegion}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop().Sugar()
	}
	if cfg.DefaultRole == "" {
		cfg.DefaultRole = "user"
	}
	return &Service{
		accounts:  deps.Accounts,
		creds:     deps.Credentials,
		ephemeral: deps.Ephemeral,
		publisher: deps.Publisher,
		hasher:    deps.Hasher,
		phones:    deps.Phones,
		ids:       deps.IDs,
		logger:    deps.Logger,
		cfg:       cfg,
	}
}

var (
	ErrInvalidOtp              = apperr.New(apperr.KindInvalidOtp, "otp code invalid or expired")
	ErrOtpSessionInvalid       = apperr.New(apperr.KindInvalidOtp, "otp session invalid or expired")
	ErrInvalidResetToken       = apperr.New(apperr.KindInvalidToken, "reset token invalid or expired")
	ErrInvalidCredentials      = apperr.New(apperr.KindInvalidCredentials, "invalid credentials")
	ErrPhoneChangeNotInitiated = apperr.New(apperr.KindNotInitiated, "phone change not initiated or expired")
	ErrPhoneInUse              = apperr.New(apperr.KindAlreadyExists, "phone already registered to another account")
	ErrSamePhone               = apperr.New(apperr.KindInvalidInput, "new phone matches the current one")
	ErrPasswordRequired        = apperr.New(apperr.KindInvalidInput, "password is required")
)

// resolve finds an account by username, or by phone when the identifier
// starts with '+'. Unparseable phones are reported as not found.
func (s *Service) resolve(ctx context.Context, identifier string) (*entity.Account, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, entity.ErrAccountNotFound
	}
	if strings.HasPrefix(identifier, "+") {
		phone, err := s.phones.Normalize(identifier)
		if err != nil {
			return nil, entity.ErrAccountNotFound
		}
		return s.accounts.GetByPhone(ctx, phone)
	}
	return s.accounts.GetByUsername(ctx, identifier)
}

// burnVerify runs the hasher against a throwaway hash so that a miss costs
// as much as checking a real password.
func (s *Service) burnVerify(password string) {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash("account-dummy-password")
		if err != nil {
			s.logger.Warnw("build dummy password hash failed", "err", err)
			return
		}
		s.dummyHash = h
	})
	if s.dummyHash != "" {
		s.hasher.Verify(s.dummyHash, password)
	}
}

// consumeOtp checks the code stored for the account and deletes it on match.
// A wrong or missing code leaves the stored value untouched.
func (s *Service) consumeOtp(ctx context.Context, accountID int64, code string) error {
	key := ephemeral.OtpCodeKey(accountID)
	stored, err := s.ephemeral.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ephemeral.ErrNotFound) {
			return ErrInvalidOtp
		}
		return fmt.Errorf("load otp: %w", err)
	}
	if !ConstantTimeCompare(stored, strings.TrimSpace(code)) {
		return ErrInvalidOtp
	}
	if err := s.ephemeral.Delete(ctx, key); err != nil {
		return fmt.Errorf("consume otp: %w", err)
	}
	return nil
}

// lookupAccountID reads an ephemeral record whose value is an account id.
func (s *Service) lookupAccountID(ctx context.Context, key string, missing error) (int64, error) {
	v, err := s.ephemeral.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ephemeral.ErrNotFound) {
			return 0, missing
		}
		return 0, err
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, missing
	}
	return id, nil
}

// publish fires the verification-required event. Delivery is best-effort, so
// failures are logged and never returned.
func (s *Service) publish(ctx context.Context, reason notify.Reason, a *entity.Account, phone string) {
	ev := notify.Event{Reason: reason, Account: *a, Phone: phone}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warnw("publish verification event failed", "account_id", a.ID, "reason", reason, "err", err)
	}
}

func (s *Service) observe(op string, err error) {
	result := "ok"
	if err != nil {
		result = strings.ToLower(string(apperr.KindOf(err)))
	}
	metrics.AuthOperations.WithLabelValues(op, result).Inc()
}

// ConstantTimeCompare compares two secrets without leaking timing.
func ConstantTimeCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
