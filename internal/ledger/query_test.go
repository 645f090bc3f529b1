package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func entry(typ string, status LogStatus, at time.Time) ActivityLogEntry {
	return ActivityLogEntry{ID: typ + string(status), Type: typ, Status: status, Timestamp: at}
}

func TestFilterLogs(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	logs := []ActivityLogEntry{
		entry("DEPOSIT_STARTED", LogPending, base),
		entry("DEPOSIT_COMPLETED", LogSuccess, base.Add(time.Second)),
		entry("WITHDRAWAL_REJECTED", LogError, base.Add(2*time.Second)),
		entry("SYSTEM_CRASH", LogError, base.Add(3*time.Second)),
		entry("RECOVERY_STARTED", LogInfo, base.Add(4*time.Second)),
		entry("TRANSACTION_ROLLBACK", LogWarning, base.Add(5*time.Second)),
		entry("TRANSFER_ROLLBACK", LogCompleted, base.Add(6*time.Second)),
	}

	types := func(in []ActivityLogEntry) []string {
		var out []string
		for _, e := range in {
			out = append(out, e.Type)
		}
		return out
	}

	tests := []struct {
		name string
		q    LogQuery
		want []string
	}{
		{"all newest first", LogQuery{}, []string{
			"TRANSFER_ROLLBACK", "TRANSACTION_ROLLBACK", "RECOVERY_STARTED", "SYSTEM_CRASH",
			"WITHDRAWAL_REJECTED", "DEPOSIT_COMPLETED", "DEPOSIT_STARTED",
		}},
		{"deposit", LogQuery{Category: CategoryDeposit}, []string{"DEPOSIT_COMPLETED", "DEPOSIT_STARTED"}},
		{"withdrawal", LogQuery{Category: CategoryWithdrawal}, []string{"WITHDRAWAL_REJECTED"}},
		{"transfer", LogQuery{Category: CategoryTransfer}, []string{"TRANSFER_ROLLBACK"}},
		{"system", LogQuery{Category: CategorySystem}, []string{"SYSTEM_CRASH"}},
		{"recovery", LogQuery{Category: CategoryRecovery}, []string{"TRANSFER_ROLLBACK", "TRANSACTION_ROLLBACK", "RECOVERY_STARTED"}},
		{"success matches completed", LogQuery{Status: "success"}, []string{"TRANSFER_ROLLBACK", "DEPOSIT_COMPLETED"}},
		{"error", LogQuery{Status: "error"}, []string{"SYSTEM_CRASH", "WITHDRAWAL_REJECTED"}},
		{"exact status", LogQuery{Status: "warning"}, []string{"TRANSACTION_ROLLBACK"}},
		{"combined", LogQuery{Category: CategoryDeposit, Status: "pending"}, []string{"DEPOSIT_STARTED"}},
		{"limit", LogQuery{Limit: 2}, []string{"TRANSFER_ROLLBACK", "TRANSACTION_ROLLBACK"}},
		{"unknown category", LogQuery{Category: "bogus"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, types(FilterLogs(logs, tt.q)))
		})
	}
}

func TestFilterLogsSameTimestampKeepsNewestWriteFirst(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	logs := []ActivityLogEntry{entry("A", LogInfo, at), entry("B", LogInfo, at)}
	got := FilterLogs(logs, LogQuery{})
	assert.Equal(t, "B", got[0].Type)
}

func TestFilterTransactions(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	txs := []Transaction{
		{ID: "1", Type: TxDeposit, Timestamp: base},
		{ID: "2", Type: TxTransfer, Timestamp: base.Add(time.Minute)},
		{ID: "3", Type: TxDeposit, Timestamp: base.Add(2 * time.Minute)},
	}

	ids := func(in []Transaction) []string {
		var out []string
		for _, t := range in {
			out = append(out, t.ID)
		}
		return out
	}

	assert.Equal(t, []string{"3", "2", "1"}, ids(FilterTransactions(txs, TransactionQuery{})))
	assert.Equal(t, []string{"1", "2", "3"}, ids(FilterTransactions(txs, TransactionQuery{Sort: SortOldest})))
	assert.Equal(t, []string{"3", "1"}, ids(FilterTransactions(txs, TransactionQuery{Type: "deposit"})))
	assert.Equal(t, []string{"3"}, ids(FilterTransactions(txs, TransactionQuery{Limit: 1})))
	assert.Nil(t, ids(FilterTransactions(txs, TransactionQuery{Type: TxWithdrawal})))
}
