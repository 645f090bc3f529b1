// internal/bank/publish.go

package bank

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"ledgersim/internal/ledger"
)

const (
	publishTimeout = 2 * time.Second

	// publishQueueSize 為待發佈日誌的緩衝上限；佇列滿時新日誌直接丟棄。
	publishQueueSize = 1024
)

// publishQueue 在背景 goroutine 逐筆呼叫 Publisher，呼叫端只做非阻塞入列。
type publishQueue struct {
	mu     sync.Mutex
	ch     chan ledger.ActivityLogEntry
	closed bool
	done   chan struct{}

	pub Publisher
	log *zap.Logger
}

func newPublishQueue(pub Publisher, log *zap.Logger, size int) *publishQueue {
	q := &publishQueue{
		ch:   make(chan ledger.ActivityLogEntry, size),
		done: make(chan struct{}),
		pub:  pub,
		log:  log,
	}
	go q.run()
	return q
}

func (q *publishQueue) run() {
	defer close(q.done)
	for e := range q.ch {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		if err := q.pub.Publish(ctx, e); err != nil {
			q.log.Warn("publish activity failed", zap.String("type", e.Type), zap.Error(err))
		}
		cancel()
	}
}

// enqueue 放入待發佈日誌，永不阻塞；關閉後或佇列滿時丟棄並記錄。
func (q *publishQueue) enqueue(entries []ledger.ActivityLogEntry) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	for _, e := range entries {
		select {
		case q.ch <- e:
		default:
			q.log.Warn("publish queue full, activity dropped",
				zap.String("type", e.Type),
				zap.String("id", e.ID))
		}
	}
}

// close 停止接收新日誌，並等待已入列者送完。
func (q *publishQueue) close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
	q.mu.Unlock()
	<-q.done
}
