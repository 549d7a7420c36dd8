package notify

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-account-go/internal/ephemeral"
	"github.com/ovaphlow/pitchfork/service-account-go/internal/metrics"
)

// CodeLength is the number of digits in an OTP code.
const CodeLength = 6

// SMSSender delivers a text message.
type SMSSender interface {
	Send(ctx context.Context, phone, message string) error
}

// LogSender writes messages to the log instead of a carrier. Development only.
type LogSender struct {
	Logger *zap.SugaredLogger
}

func (s LogSender) Send(_ context.Context, phone, message string) error {
	s.Logger.Infow("sms (log sender)", "phone", phone, "message", message)
	return nil
}

// Dispatcher generates an OTP for each event, stores it under
// otp-code:<accountId> (replacing any previous code and its TTL) and sends it.
type Dispatcher struct {
	store  ephemeral.Store
	sender SMSSender
	ttl    time.Duration
	logger *zap.SugaredLogger
}

func NewDispatcher(store ephemeral.Store, sender SMSSender, ttl time.Duration, logger *zap.SugaredLogger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Dispatcher{store: store, sender: sender, ttl: ttl, logger: logger}
}

// Handle implements Handler.
func (d *Dispatcher) Handle(ctx context.Context, ev Event) error {
	code, err := GenerateCode()
	if err != nil {
		metrics.OtpDispatched.WithLabelValues(string(ev.Reason), "error").Inc()
		return err
	}
	if err := d.store.Set(ctx, ephemeral.OtpCodeKey(ev.Account.ID), code, d.ttl); err != nil {
		metrics.OtpDispatched.WithLabelValues(string(ev.Reason), "error").Inc()
		return fmt.Errorf("store otp: %w", err)
	}
	msg := fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, int(d.ttl.Minutes()))
	if err := d.sender.Send(ctx, ev.Destination(), msg); err != nil {
		metrics.OtpDispatched.WithLabelValues(string(ev.Reason), "error").Inc()
		return fmt.Errorf("send otp: %w", err)
	}
	metrics.OtpDispatched.WithLabelValues(string(ev.Reason), "ok").Inc()
	d.logger.Debugw("otp dispatched", "event_id", ev.ID, "account_id", ev.Account.ID, "reason", ev.Reason)
	return nil
}

// GenerateCode returns a uniformly random zero-padded 6-digit code.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", CodeLength, n.Int64()), nil
}
