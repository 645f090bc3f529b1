// internal/ledger/query.go

package ledger

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// LogCategory 為日誌分類篩選條件。
type LogCategory string

const (
	CategoryAll        LogCategory = "all"
	CategoryDeposit    LogCategory = "deposit"
	CategoryWithdrawal LogCategory = "withdrawal"
	CategoryTransfer   LogCategory = "transfer"
	CategorySystem     LogCategory = "system"
	CategoryRecovery   LogCategory = "recovery"
)

// LogQuery 描述日誌篩選：空值代表不篩選。Limit <= 0 代表不限筆數。
type LogQuery struct {
	Category LogCategory
	Status   string
	Limit    int
}

// Match 回報日誌是否符合查詢條件。
// 狀態 success 同時符合 success/completed，error 同時符合 error/failed。
func (q LogQuery) Match(e ActivityLogEntry) bool {
	t := strings.ToLower(e.Type)
	switch q.Category {
	case "", CategoryAll:
	case CategoryDeposit:
		if !strings.Contains(t, "deposit") {
			return false
		}
	case CategoryWithdrawal:
		if !strings.Contains(t, "withdraw") {
			return false
		}
	case CategoryTransfer:
		if !strings.Contains(t, "transfer") {
			return false
		}
	case CategorySystem:
		if !strings.Contains(t, "system") {
			return false
		}
	case CategoryRecovery:
		if !strings.Contains(t, "recovery") && !strings.Contains(t, "rollback") {
			return false
		}
	default:
		return false
	}

	st := strings.ToLower(string(e.Status))
	switch want := strings.ToLower(q.Status); want {
	case "", "all":
		return true
	case "success":
		return st == "success" || st == "completed"
	case "error":
		return st == "error" || st == "failed"
	default:
		return st == want
	}
}

// FilterLogs 套用查詢並以時間新到舊排序；時間相同時後寫入者在前。
func FilterLogs(logs []ActivityLogEntry, q LogQuery) []ActivityLogEntry {
	out := make([]ActivityLogEntry, 0, len(logs))
	for i := len(logs) - 1; i >= 0; i-- {
		if q.Match(logs[i]) {
			out = append(out, logs[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return limit(out, q.Limit)
}

// SortOrder 為交易列表排序。
type SortOrder string

const (
	SortNewest SortOrder = "newest"
	SortOldest SortOrder = "oldest"
)

// TransactionQuery 描述交易列表的篩選與排序。
type TransactionQuery struct {
	Type  TxType
	Sort  SortOrder
	Limit int
}

// FilterTransactions 依種類篩選並依時間排序，預設新到舊。
func FilterTransactions(txs []Transaction, q TransactionQuery) []Transaction {
	out := make([]Transaction, 0, len(txs))
	for _, t := range txs {
		if q.Type == "" || strings.EqualFold(string(q.Type), string(t.Type)) {
			out = append(out, t)
		}
	}
	if q.Sort == SortOldest {
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Timestamp.Before(out[j].Timestamp)
		})
	} else {
		// 反轉後穩定排序，讓同時間的交易以後建立者在前
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Timestamp.After(out[j].Timestamp)
		})
	}
	return limit(out, q.Limit)
}

// Stats 為儀表板摘要。
type Stats struct {
	TotalBalance          decimal.Decimal `json:"totalBalance"`
	Accounts              int             `json:"accounts"`
	TotalTransactions     int             `json:"totalTransactions"`
	PendingTransactions   int             `json:"pendingTransactions"`
	CompletedTransactions int             `json:"completedTransactions"`
	FailedTransactions    int             `json:"failedTransactions"`
}

// Summarize 計算帳本摘要。
func (s *Store) Summarize() Stats {
	st := Stats{TotalBalance: decimal.Zero, Accounts: len(s.accounts), TotalTransactions: len(s.txs)}
	for _, a := range s.accounts {
		st.TotalBalance = st.TotalBalance.Add(a.Balance)
	}
	for _, t := range s.txs {
		switch t.Status {
		case TxPending:
			st.PendingTransactions++
		case TxCompleted:
			st.CompletedTransactions++
		case TxFailed:
			st.FailedTransactions++
		}
	}
	return st
}

func limit[T any](in []T, n int) []T {
	if n > 0 && len(in) > n {
		return in[:n]
	}
	return in
}
