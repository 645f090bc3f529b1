// internal/ledger/store.go

package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Store 保存帳戶、交易、在途集合、預扣紀錄與活動日誌。
// 所有集合維持插入順序（復原時依此順序走訪），索引表只用於 O(1) 查找。
// Store 不做任何驗證也不加鎖；唯一寫入者為 bank 套件，並由其互斥鎖保護。
type Store struct {
	accounts   []*Account
	accountIdx map[string]*Account

	txs   []*Transaction
	txIdx map[string]*Transaction

	pending  []string
	deducted []DeductedAmount
	logs     []ActivityLogEntry
}

// State 為 Store 的可序列化匯出形式（值拷貝）。
type State struct {
	Accounts            []Account
	Transactions        []Transaction
	PendingTransactions []Transaction
	DeductedAmounts     []DeductedAmount
	ActivityLog         []ActivityLogEntry
}

// NewStore 建立空白帳本。
func NewStore() *Store {
	return &Store{
		accountIdx: make(map[string]*Account),
		txIdx:      make(map[string]*Transaction),
	}
}

// NewStoreFrom 由匯出狀態重建帳本。
// 在途集合只保留仍存在於交易清單且狀態為 pending 的項目。
func NewStoreFrom(st State) *Store {
	s := NewStore()
	for _, a := range st.Accounts {
		s.AddAccount(a)
	}
	for _, t := range st.Transactions {
		s.AddTransaction(t)
	}
	for _, p := range st.PendingTransactions {
		if t, ok := s.txIdx[p.ID]; ok && t.Status == TxPending {
			s.AddPending(p.ID)
		}
	}
	for _, d := range st.DeductedAmounts {
		s.AddDeducted(d)
	}
	s.logs = append(s.logs, st.ActivityLog...)
	return s
}

// Export 回傳帳本的值拷貝。
func (s *Store) Export() State {
	return State{
		Accounts:            s.Accounts(),
		Transactions:        s.Transactions(),
		PendingTransactions: s.Pending(),
		DeductedAmounts:     s.Deducted(),
		ActivityLog:         s.Logs(),
	}
}

// ── Accounts ──

// AddAccount 追加帳戶；同 ID 重複加入會覆寫索引但保留首次位置。
func (s *Store) AddAccount(a Account) {
	if cur, ok := s.accountIdx[a.ID]; ok {
		*cur = a
		return
	}
	cp := a
	s.accounts = append(s.accounts, &cp)
	s.accountIdx[a.ID] = &cp
}

// Account 依 ID 取得帳戶拷貝。
func (s *Store) Account(id string) (Account, bool) {
	a, ok := s.accountIdx[id]
	if !ok {
		return Account{}, false
	}
	return *a, true
}

// SetBalance 直接設定帳戶餘額；帳戶不存在時回傳 false。
func (s *Store) SetBalance(id string, balance decimal.Decimal) bool {
	a, ok := s.accountIdx[id]
	if !ok {
		return false
	}
	a.Balance = balance
	return true
}

// Accounts 依建立順序回傳所有帳戶拷貝。
func (s *Store) Accounts() []Account {
	out := make([]Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, *a)
	}
	return out
}

// ── Transactions ──

// AddTransaction 追加交易紀錄。
func (s *Store) AddTransaction(t Transaction) {
	if cur, ok := s.txIdx[t.ID]; ok {
		*cur = t
		return
	}
	cp := t
	s.txs = append(s.txs, &cp)
	s.txIdx[t.ID] = &cp
}

// Transaction 依 ID 取得交易拷貝。
func (s *Store) Transaction(id string) (Transaction, bool) {
	t, ok := s.txIdx[id]
	if !ok {
		return Transaction{}, false
	}
	return *t, true
}

// SetTransactionStatus 更新交易狀態；交易已為終態時不變更並回傳 false。
func (s *Store) SetTransactionStatus(id string, status TxStatus) bool {
	t, ok := s.txIdx[id]
	if !ok || t.Status.Terminal() {
		return false
	}
	t.Status = status
	return true
}

// Transactions 依建立順序回傳所有交易拷貝。
func (s *Store) Transactions() []Transaction {
	out := make([]Transaction, 0, len(s.txs))
	for _, t := range s.txs {
		out = append(out, *t)
	}
	return out
}

// ── Pending ──

// AddPending 將交易 ID 加入在途集合（已存在則忽略）。
func (s *Store) AddPending(id string) {
	if s.IsPending(id) {
		return
	}
	s.pending = append(s.pending, id)
}

// RemovePending 自在途集合移除交易 ID。
func (s *Store) RemovePending(id string) {
	for i, p := range s.pending {
		if p == id {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			return
		}
	}
}

// IsPending 回報交易是否在途。
func (s *Store) IsPending(id string) bool {
	for _, p := range s.pending {
		if p == id {
			return true
		}
	}
	return false
}

// Pending 依登記順序回傳在途交易的拷貝。
func (s *Store) Pending() []Transaction {
	out := make([]Transaction, 0, len(s.pending))
	for _, id := range s.pending {
		if t, ok := s.txIdx[id]; ok {
			out = append(out, *t)
		}
	}
	return out
}

// ── Deducted amounts ──

// AddDeducted 記錄一筆預扣款。
func (s *Store) AddDeducted(d DeductedAmount) {
	s.deducted = append(s.deducted, d)
}

// DeductedFor 依交易 ID 查找預扣紀錄。
func (s *Store) DeductedFor(txID string) (DeductedAmount, bool) {
	for _, d := range s.deducted {
		if d.TransactionID == txID {
			return d, true
		}
	}
	return DeductedAmount{}, false
}

// RemoveDeducted 移除指定交易的所有預扣紀錄。
func (s *Store) RemoveDeducted(txID string) {
	out := s.deducted[:0]
	for _, d := range s.deducted {
		if d.TransactionID != txID {
			out = append(out, d)
		}
	}
	s.deducted = out
}

// ClearDeducted 清空所有預扣紀錄。
func (s *Store) ClearDeducted() {
	s.deducted = nil
}

// Deducted 回傳預扣紀錄拷貝。
func (s *Store) Deducted() []DeductedAmount {
	out := make([]DeductedAmount, len(s.deducted))
	copy(out, s.deducted)
	return out
}

// ── Activity log ──

// AppendLog 追加活動日誌；缺少 ID 或時間時自動補上，回傳實際寫入的項目。
func (s *Store) AppendLog(e ActivityLogEntry) ActivityLogEntry {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	s.logs = append(s.logs, e)
	return e
}

// Logs 依寫入順序回傳日誌拷貝。
func (s *Store) Logs() []ActivityLogEntry {
	out := make([]ActivityLogEntry, len(s.logs))
	copy(out, s.logs)
	return out
}
