// Package notify carries "verification required" events from the use cases
// to the OTP dispatcher over a bounded in-process queue.
package notify

import (
	"context"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-account-go/internal/account/entity"
	"github.com/ovaphlow/pitchfork/service-account-go/internal/metrics"
	"github.com/ovaphlow/pitchfork/service-account-go/pkg/utilities"
)

// Reason tells the subscriber why a code is needed.
type Reason string

const (
	ReasonSignup        Reason = "signup"
	ReasonResend        Reason = "resend"
	ReasonPasswordReset Reason = "password-reset"
	ReasonPhoneChange   Reason = "phone-change"
)

// Event is published after the triggering mutation has been persisted.
type Event struct {
	ID      string
	Reason  Reason
	Account entity.Account
	// Phone is the destination; empty means Account.Phone.
	Phone string
	At    time.Time
}

// Destination returns the phone the code should be sent to.
func (e Event) Destination() string {
	if e.Phone != "" {
		return e.Phone
	}
	return e.Account.Phone
}

// Publisher is the fire-and-forget side used by the use cases.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, ev Event) error

func (f PublisherFunc) Publish(ctx context.Context, ev Event) error { return f(ctx, ev) }

// Handler consumes events.
type Handler func(ctx context.Context, ev Event) error

// QueueSizeFromEnv reads NOTIFY_QUEUE_SIZE (default 256).
func QueueSizeFromEnv() int {
	n, err := strconv.Atoi(os.Getenv("NOTIFY_QUEUE_SIZE"))
	if err != nil || n <= 0 {
		return 256
	}
	return n
}

// Queue is a bounded Publisher drained by Run.
type Queue struct {
	ch      chan Event
	handler Handler
	logger  *zap.SugaredLogger
}

func NewQueue(size int, handler Handler, logger *zap.SugaredLogger) *Queue {
	if size <= 0 {
		size = 256
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Queue{ch: make(chan Event, size), handler: handler, logger: logger}
}

// Publish enqueues without blocking. A full queue drops the event; the caller
// is never failed because delivery is best-effort.
func (q *Queue) Publish(_ context.Context, ev Event) error {
	if ev.ID == "" {
		ev.ID = utilities.NewKSUID()
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	select {
	case q.ch <- ev:
	default:
		metrics.NotifyDropped.Inc()
		q.logger.Warnw("notify queue full, dropping event", "event_id", ev.ID, "account_id", ev.Account.ID, "reason", ev.Reason)
	}
	return nil
}

// Run delivers events until ctx is cancelled, then drains what is already
// queued.
func (q *Queue) Run(ctx context.Context) error {
	for {
		select {
		case ev := <-q.ch:
			q.deliver(ctx, ev)
		case <-ctx.Done():
			q.drain()
			return nil
		}
	}
}

func (q *Queue) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case ev := <-q.ch:
			q.deliver(ctx, ev)
		default:
			return
		}
	}
}

func (q *Queue) deliver(ctx context.Context, ev Event) {
	if err := q.handler(ctx, ev); err != nil {
		q.logger.Warnw("notify handler failed", "event_id", ev.ID, "account_id", ev.Account.ID, "reason", ev.Reason, "err", err)
	}
}

// Len returns the number of queued events.
func (q *Queue) Len() int { return len(q.ch) }
