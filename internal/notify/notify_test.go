package notify

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-account-go/internal/account/entity"
	"github.com/ovaphlow/pitchfork/service-account-go/internal/ephemeral"
)

type captureSender struct {
	mu    sync.Mutex
	sent  map[string]string
	fails bool
}

func (c *captureSender) Send(_ context.Context, phone, message string) error {
	if c.fails {
		return errors.New("carrier down")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sent == nil {
		c.sent = map[string]string{}
	}
	c.sent[phone] = message
	return nil
}

var sixDigits = regexp.MustCompile(`^[0-9]{6}$`)

func TestGenerateCodeIsSixDigits(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := GenerateCode()
		require.NoError(t, err)
		assert.Regexp(t, sixDigits, code)
	}
}

func TestDispatcherStoresAndSends(t *testing.T) {
	ctx := context.Background()
	store := ephemeral.NewMemoryStore("")
	sender := &captureSender{}
	d := NewDispatcher(store, sender, 5*time.Minute, nil)

	ev := Event{Reason: ReasonPhoneChange, Account: entity.Account{ID: 9, Phone: "+15551234567"}, Phone: "+447700900123"}
	require.NoError(t, d.Handle(ctx, ev))

	code, err := store.Get(ctx, ephemeral.OtpCodeKey(9))
	require.NoError(t, err)
	assert.Regexp(t, sixDigits, code)
	assert.Contains(t, sender.sent["+447700900123"], code)
	assert.NotContains(t, sender.sent, "+15551234567")
}

func TestDispatcherSendFailure(t *testing.T) {
	d := NewDispatcher(ephemeral.NewMemoryStore(""), &captureSender{fails: true}, time.Minute, nil)
	err := d.Handle(context.Background(), Event{Account: entity.Account{ID: 1, Phone: "+15551234567"}})
	assert.Error(t, err)
}

func TestQueueDeliversAndDrops(t *testing.T) {
	var mu sync.Mutex
	var got []Event
	q := NewQueue(1, func(_ context.Context, ev Event) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, ev)
		return nil
	}, nil)

	ctx := context.Background()
	require.NoError(t, q.Publish(ctx, Event{Reason: ReasonSignup, Account: entity.Account{ID: 1}}))
	// queue is full; the second event is dropped without error
	require.NoError(t, q.Publish(ctx, Event{Reason: ReasonSignup, Account: entity.Account{ID: 2}}))
	assert.Equal(t, 1, q.Len())

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		_ = q.Run(runCtx)
		close(done)
	}()
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, int64(1), got[0].Account.ID)
	assert.NotEmpty(t, got[0].ID)
	assert.False(t, got[0].At.IsZero())
}
