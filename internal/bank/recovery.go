// internal/bank/recovery.go

package bank

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"ledgersim/internal/ledger"
)

// Crash 模擬系統當機：
// 取消所有延遲完成、狀態設為 crashed、清除處理中標記並記錄 SYSTEM_CRASH。
// 在途交易與預扣紀錄刻意保留，作為復原依據。
// 已是 crashed 或 recovering 時只重新記錄事件，不變更狀態。
func (b *Bank) Crash() {
	b.mutate(func() {
		if !b.gate.Online() {
			b.appendLog(ledger.ActivityLogEntry{
				Type:    "SYSTEM_CRASH",
				Details: fmt.Sprintf("Crash requested while system already %s", b.gate.Status()),
				Status:  ledger.LogError,
			})
			return
		}

		cancelled := b.stopAll()
		_ = b.gate.Transition(ledger.StatusCrashed)
		b.processing = ""
		b.appendLog(ledger.ActivityLogEntry{
			Type:    "SYSTEM_CRASH",
			Details: "System crashed during transaction processing",
			Status:  ledger.LogError,
		})
		b.log.Warn("system crashed",
			zap.Int("cancelled_completions", cancelled),
			zap.Int("pending", len(b.store.Pending())))
	})
}

// Recover 依登記順序走訪在途交易，退回預扣款並將交易標為 failed，最後回到 online。
// 系統已 online 且無在途交易時，僅追加 RECOVERY_STARTED / RECOVERY_COMPLETED 兩筆日誌。
func (b *Bank) Recover() {
	b.mutate(func() {
		if b.gate.Status() != ledger.StatusRecovering {
			if err := b.gate.Transition(ledger.StatusRecovering); err != nil {
				b.log.Error("recovery transition rejected", zap.Error(err))
				return
			}
		}

		pending := b.store.Pending()
		b.appendLog(ledger.ActivityLogEntry{
			Type:    "RECOVERY_STARTED",
			Details: fmt.Sprintf("Recovery process started with %d pending transactions", len(pending)),
			Status:  ledger.LogInfo,
		})

		restored := 0
		for _, tx := range pending {
			if b.rollback(tx) {
				restored++
			}
		}

		_ = b.gate.Transition(ledger.StatusOnline)
		b.store.ClearDeducted()
		b.processing = ""
		b.appendLog(ledger.ActivityLogEntry{
			Type:    "RECOVERY_COMPLETED",
			Details: "System successfully recovered from crash",
			Status:  ledger.LogSuccess,
		})
		b.log.Info("recovery completed",
			zap.Int("rolled_back", len(pending)),
			zap.Int("debits_restored", restored))
	})
}

// rollback 處理單筆在途交易，回報是否退回了預扣款。呼叫端須持有 mu。
func (b *Bank) rollback(tx ledger.Transaction) bool {
	if c, ok := b.timers[tx.ID]; ok {
		c.h.Stop()
		delete(b.timers, tx.ID)
	}

	b.appendLog(ledger.ActivityLogEntry{
		Type:          "TRANSACTION_ROLLBACK",
		TransactionID: tx.ID,
		Details:       fmt.Sprintf("Rolling back transaction %s with ID %s", tx.Type, tx.ID),
		Status:        ledger.LogWarning,
	})

	restored := false
	if d, ok := b.store.DeductedFor(tx.ID); ok {
		if acct, ok := b.store.Account(d.SourceAccountID); ok {
			b.store.SetBalance(acct.ID, acct.Balance.Add(d.Amount))
			b.appendLog(ledger.ActivityLogEntry{
				Type:          string(tx.Type) + "_ROLLBACK",
				AccountID:     d.SourceAccountID,
				TransactionID: tx.ID,
				Amount:        amountPtr(d.Amount),
				Details:       fmt.Sprintf("Rolled back %s of %s", strings.ToLower(string(tx.Type)), d.Amount.StringFixed(2)),
				Status:        ledger.LogCompleted,
			})
			restored = true
		} else {
			b.log.Warn("rollback source account missing",
				zap.String("tx_id", tx.ID),
				zap.String("account_id", d.SourceAccountID))
		}
		b.store.RemoveDeducted(tx.ID)
	}

	b.store.SetTransactionStatus(tx.ID, ledger.TxFailed)
	b.store.RemovePending(tx.ID)
	return restored
}

// Reset 取消所有延遲完成並清空帳本，系統回到 online。
func (b *Bank) Reset() {
	b.mutate(func() {
		b.stopAll()
		b.store = ledger.NewStore()
		b.gate.Force(ledger.StatusOnline)
		b.processing = ""
		b.appendLog(ledger.ActivityLogEntry{
			Type:    "SYSTEM_RESET",
			Details: "System has been reset and all data cleared",
			Status:  ledger.LogInfo,
		})
		b.log.Info("system reset")
	})
}

// ScheduleCrash 於 after 之後觸發 Crash；回傳的函式可在觸發前取消。
// 此計時器不屬於延遲完成登記，不會被 Crash 本身取消。
func (b *Bank) ScheduleCrash(after time.Duration) (cancel func() bool) {
	h := b.sched.AfterFunc(after, b.Crash)
	return h.Stop
}

// stopAll 取消並清空所有延遲完成登記，回傳取消數量。呼叫端須持有 mu。
func (b *Bank) stopAll() int {
	n := len(b.timers)
	for id, c := range b.timers {
		c.h.Stop()
		delete(b.timers, id)
	}
	return n
}

func restartDetails(pending int) string {
	return fmt.Sprintf("System restarted with %d in-flight transactions; scheduled completions were lost", pending)
}
