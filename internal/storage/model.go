// internal/storage/model.go
//
// 定義持久化層的快照格式。
// 快照為單一紀錄，包含帳戶、交易、活動日誌、在途交易、系統狀態與預扣紀錄，
// 每次帳本變更後整份重寫。排程中的計時器不會寫入快照。
package storage

import (
	"time"

	"ledgersim/internal/ledger"
)

// CurrentVersion 為目前的快照格式版本。
const CurrentVersion = 1

// Meta 為快照中繼資料：儲存類型、版本與建立時間。
type Meta struct {
	Storage   string    `json:"storage"`
	Version   int       `json:"version"`
	Timestamp time.Time `json:"timestamp"`
	Note      string    `json:"note,omitempty"`
}

// Snapshot 為帳本狀態的完整快照。
type Snapshot struct {
	Meta                Meta                      `json:"_meta"`
	Accounts            []ledger.Account          `json:"accounts"`
	Transactions        []ledger.Transaction      `json:"transactions"`
	ActivityLog         []ledger.ActivityLogEntry `json:"activityLog"`
	PendingTransactions []ledger.Transaction      `json:"pendingTransactions"`
	SystemStatus        ledger.SystemStatus       `json:"systemStatus"`
	DeductedAmounts     []ledger.DeductedAmount   `json:"deductedAmounts"`
	CurrentlyProcessing string                    `json:"currentlyProcessing,omitempty"`
}

// State 轉為 ledger.State，供重建 Store。
func (s Snapshot) State() ledger.State {
	return ledger.State{
		Accounts:            s.Accounts,
		Transactions:        s.Transactions,
		PendingTransactions: s.PendingTransactions,
		DeductedAmounts:     s.DeductedAmounts,
		ActivityLog:         s.ActivityLog,
	}
}

// FromState 由 ledger.State 與系統狀態組出快照。
func FromState(st ledger.State, status ledger.SystemStatus, processing string) Snapshot {
	return Snapshot{
		Meta:                Meta{Version: CurrentVersion},
		Accounts:            st.Accounts,
		Transactions:        st.Transactions,
		ActivityLog:         st.ActivityLog,
		PendingTransactions: st.PendingTransactions,
		SystemStatus:        status,
		DeductedAmounts:     st.DeductedAmounts,
		CurrentlyProcessing: processing,
	}
}
