package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgersim/internal/ledger"
)

type sent struct {
	exchange, key string
	msg           amqp.Publishing
}

type fakeChannel struct {
	sent    []sent
	failing error
	closed  int
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if f.failing != nil {
		return f.failing
	}
	f.sent = append(f.sent, sent{exchange, key, msg})
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed++
	return nil
}

func TestRoutingKey(t *testing.T) {
	assert.Equal(t, "ledger.activity.withdrawal_started", RoutingKey(ledger.ActivityLogEntry{Type: "WITHDRAWAL_STARTED"}))
	assert.Equal(t, "ledger.activity.system_crash", RoutingKey(ledger.ActivityLogEntry{Type: "SYSTEM_CRASH"}))
}

func TestPublishEncodesEntry(t *testing.T) {
	ch := &fakeChannel{}
	p := newPublisher(ch, "ledger.activity")

	amount := decimal.RequireFromString("12.50")
	e := ledger.ActivityLogEntry{
		ID:        "log-1",
		Type:      "DEPOSIT_STARTED",
		AccountID: "acct-1",
		Amount:    &amount,
		Status:    ledger.LogPending,
		Timestamp: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, p.Publish(context.Background(), e))
	require.Len(t, ch.sent, 1)

	got := ch.sent[0]
	assert.Equal(t, "ledger.activity", got.exchange)
	assert.Equal(t, "ledger.activity.deposit_started", got.key)
	assert.Equal(t, "application/json", got.msg.ContentType)
	assert.Equal(t, amqp.Persistent, got.msg.DeliveryMode)
	assert.Equal(t, "log-1", got.msg.MessageId)

	var decoded ledger.ActivityLogEntry
	require.NoError(t, json.Unmarshal(got.msg.Body, &decoded))
	assert.Equal(t, "acct-1", decoded.AccountID)
	require.NotNil(t, decoded.Amount)
	assert.True(t, decoded.Amount.Equal(amount))
}

func TestPublishErrorsAndClose(t *testing.T) {
	boom := errors.New("channel down")
	ch := &fakeChannel{failing: boom}
	p := newPublisher(ch, "x")

	err := p.Publish(context.Background(), ledger.ActivityLogEntry{Type: "SYSTEM_CRASH"})
	assert.ErrorIs(t, err, boom)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.Equal(t, 1, ch.closed)

	err = p.Publish(context.Background(), ledger.ActivityLogEntry{Type: "SYSTEM_CRASH"})
	assert.ErrorIs(t, err, ErrClosed)
}
