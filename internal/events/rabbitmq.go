// internal/events/rabbitmq.go

// Package events 將活動日誌發佈到 RabbitMQ，供外部觀察者訂閱。
// 發佈為盡力而為：失敗只回傳錯誤，由呼叫端記錄，不影響帳本。
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"ledgersim/internal/ledger"
)

// RoutingPrefix 為所有活動日誌訊息的 routing key 前綴。
const RoutingPrefix = "ledger.activity."

// ErrClosed 代表發佈者已關閉。
var ErrClosed = errors.New("publisher closed")

// channel 為發佈所需的 AMQP channel 子集合，*amqp.Channel 即滿足此介面。
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitMQPublisher 以 topic exchange 發佈活動日誌。
type RabbitMQPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       channel
	exchange string
	closed   bool
}

// DialRabbitMQ 連線並宣告 durable topic exchange。
func DialRabbitMQ(url, exchange string) (*RabbitMQPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	p := newPublisher(ch, exchange)
	p.conn = conn
	return p, nil
}

func newPublisher(ch channel, exchange string) *RabbitMQPublisher {
	return &RabbitMQPublisher{ch: ch, exchange: exchange}
}

// RoutingKey 依日誌種類產生 routing key，例如 WITHDRAWAL_STARTED → ledger.activity.withdrawal_started。
func RoutingKey(e ledger.ActivityLogEntry) string {
	return RoutingPrefix + strings.ToLower(e.Type)
}

// Publish 將單筆日誌以 JSON 發佈。
func (p *RabbitMQPublisher) Publish(ctx context.Context, e ledger.ActivityLogEntry) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode activity %s: %w", e.ID, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    e.ID,
		Timestamp:    e.Timestamp,
		Type:         e.Type,
		Body:         body,
	}
	if err := p.ch.PublishWithContext(ctx, p.exchange, RoutingKey(e), false, false, msg); err != nil {
		return fmt.Errorf("publish %s: %w", e.Type, err)
	}
	return nil
}

// Close 關閉 channel 與連線；重複呼叫無副作用。
func (p *RabbitMQPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	err := p.ch.Close()
	if p.conn != nil {
		err = errors.Join(err, p.conn.Close())
	}
	return err
}
