// internal/bank/bank.go

// Package bank 實作交易引擎與當機／復原控制器。
// 存款、提款、轉帳皆為「開始 → 延遲完成」的兩段式操作；
// 提款與轉帳在開始時即樂觀扣款並記錄預扣紀錄，當機後由 Recover 依紀錄退回。
// 所有帳本變更（含計時器回呼）都在單一互斥鎖內序列化執行。
package bank

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"ledgersim/internal/ledger"
	"ledgersim/internal/storage"
)

// DefaultCompletionDelay 為延遲完成的預設處理時間。
const DefaultCompletionDelay = 2 * time.Second

// Persister 接收每次變更後的完整快照。
type Persister interface {
	Save(storage.Snapshot) error
}

// Publisher 接收新寫入的活動日誌（觀察者用，盡力送達）。
// 由背景 goroutine 呼叫，不會阻塞帳本操作。
type Publisher interface {
	Publish(ctx context.Context, e ledger.ActivityLogEntry) error
}

// completion 為單筆交易的延遲完成登記；回呼以指標比對確認自己仍有效。
type completion struct {
	h handle
}

// Bank 為交易引擎的聚合根。
// - mu：序列化所有讀寫（含計時器回呼）。
// - timers：交易 ID → 延遲完成登記；Crash 時整組取消並清空。
// - outbox：臨界區內新增的日誌，解鎖後交給 Publisher。
type Bank struct {
	mu         sync.Mutex
	store      *ledger.Store
	gate       *ledger.Gate
	timers     map[string]*completion
	processing string
	outbox     []ledger.ActivityLogEntry

	delay     time.Duration
	sched     scheduler
	log       *zap.Logger
	persister Persister
	publisher Publisher
	queueSize int
	queue     *publishQueue

	persistMu sync.Mutex
}

// Option 設定 Bank。
type Option func(*Bank)

// WithDelay 設定延遲完成時間。
func WithDelay(d time.Duration) Option {
	return func(b *Bank) { b.delay = d }
}

// WithLogger 設定 zap logger。
func WithLogger(l *zap.Logger) Option {
	return func(b *Bank) {
		if l != nil {
			b.log = l
		}
	}
}

// WithPersister 設定快照持久化；每次變更後呼叫，失敗僅記錄警告。
func WithPersister(p Persister) Option {
	return func(b *Bank) { b.persister = p }
}

// WithPublisher 設定活動日誌發佈者。
func WithPublisher(p Publisher) Option {
	return func(b *Bank) { b.publisher = p }
}

func withScheduler(s scheduler) Option {
	return func(b *Bank) { b.sched = s }
}

func withPublishQueueSize(n int) Option {
	return func(b *Bank) { b.queueSize = n }
}

// NewBank 建立空白、online 的引擎。
func NewBank(opts ...Option) *Bank {
	b := &Bank{
		store:     ledger.NewStore(),
		gate:      ledger.NewGate(ledger.StatusOnline),
		timers:    make(map[string]*completion),
		delay:     DefaultCompletionDelay,
		sched:     realScheduler{},
		log:       zap.NewNop(),
		queueSize: publishQueueSize,
	}
	for _, o := range opts {
		o(b)
	}
	if b.publisher != nil {
		b.queue = newPublishQueue(b.publisher, b.log, b.queueSize)
	}
	return b
}

// Close 停止事件發佈並等待已入列的日誌送完；重複呼叫無副作用。
// 帳本本身在 Close 之後仍可使用，只是不再發佈。
func (b *Bank) Close() {
	if b.queue != nil {
		b.queue.close()
	}
}

// mutate 在臨界區內執行 fn，解鎖後將新日誌交給發佈佇列並寫入快照。
func (b *Bank) mutate(fn func()) {
	b.mu.Lock()
	fn()
	out := b.outbox
	b.outbox = nil
	b.mu.Unlock()

	b.afterChange(out)
}

// appendLog 寫入活動日誌並放入 outbox；呼叫端須持有 mu。
func (b *Bank) appendLog(e ledger.ActivityLogEntry) ledger.ActivityLogEntry {
	e = b.store.AppendLog(e)
	b.outbox = append(b.outbox, e)
	return e
}

func (b *Bank) afterChange(entries []ledger.ActivityLogEntry) {
	if b.queue != nil && len(entries) > 0 {
		b.queue.enqueue(entries)
	}
	b.save()
}

// save 寫入最新快照；persistMu 確保快照依序寫入，後寫者必為較新狀態。
func (b *Bank) save() {
	if b.persister == nil {
		return
	}
	b.persistMu.Lock()
	defer b.persistMu.Unlock()
	if err := b.persister.Save(b.Snapshot()); err != nil {
		b.log.Warn("persist snapshot failed", zap.Error(err))
	}
}

// Snapshot 匯出目前帳本狀態。
func (b *Bank) Snapshot() storage.Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := storage.FromState(b.store.Export(), b.gate.Status(), b.processing)
	s.Meta.Note = "scheduled completions are not persisted"
	return s
}

// Restore 以快照取代目前狀態。
// 計時器不會被保存，因此快照中若仍有在途交易，系統一律以 crashed 啟動，
// 等待明確的 Recover 處理，不會自動續跑。
func (b *Bank) Restore(s storage.Snapshot) {
	b.mutate(func() {
		b.stopAll()
		b.store = ledger.NewStoreFrom(s.State())
		b.gate.Force(s.SystemStatus)
		b.processing = ""

		pending := len(b.store.Pending())
		if pending > 0 && b.gate.Online() {
			_ = b.gate.Transition(ledger.StatusCrashed)
			b.appendLog(ledger.ActivityLogEntry{
				Type:    "SYSTEM_CRASH",
				Details: restartDetails(pending),
				Status:  ledger.LogError,
			})
		}
		b.log.Info("ledger restored",
			zap.Int("accounts", len(s.Accounts)),
			zap.Int("pending", pending),
			zap.String("status", string(b.gate.Status())))
	})
}

// ── Read-only projections ──

// Accounts 依建立順序回傳所有帳戶。
func (b *Bank) Accounts() []ledger.Account {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.store.Accounts()
}

// Account 依 ID 取得帳戶；不存在回傳 ErrAccountNotFound。
func (b *Bank) Account(id string) (ledger.Account, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.store.Account(id)
	if !ok {
		return ledger.Account{}, ErrAccountNotFound
	}
	return a, nil
}

// Transaction 依 ID 取得交易。
func (b *Bank) Transaction(id string) (ledger.Transaction, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.store.Transaction(id)
}

// Transactions 依條件列出交易。
func (b *Bank) Transactions(q ledger.TransactionQuery) []ledger.Transaction {
	b.mu.Lock()
	defer b.mu.Unlock()
	return ledger.FilterTransactions(b.store.Transactions(), q)
}

// ActivityLog 依條件列出活動日誌（新到舊）。
func (b *Bank) ActivityLog(q ledger.LogQuery) []ledger.ActivityLogEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	return ledger.FilterLogs(b.store.Logs(), q)
}

// PendingTransactions 依登記順序回傳在途交易。
func (b *Bank) PendingTransactions() []ledger.Transaction {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.store.Pending()
}

// DeductedAmounts 回傳目前的預扣紀錄。
func (b *Bank) DeductedAmounts() []ledger.DeductedAmount {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.store.Deducted()
}

// Status 回傳系統狀態。
func (b *Bank) Status() ledger.SystemStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.gate.Status()
}

// CurrentlyProcessing 回傳最近開始且尚未結束的交易 ID，無則為空字串。
func (b *Bank) CurrentlyProcessing() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.processing
}

// Stats 回傳帳本摘要。
func (b *Bank) Stats() ledger.Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.store.Summarize()
}

// liveTimers 回傳登記中的延遲完成數量（測試用）。
func (b *Bank) liveTimers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.timers)
}
