// internal/bank/engine.go

package bank

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"ledgersim/internal/ledger"
)

// 金額上限：最多 MaxAmountScale 位小數，絕對值不超過 MaxAmount。
const (
	MaxAmountScale = 8

	maxAmountDigits    = 15
	maxCoefficientBits = 128
)

// MaxAmount 為單筆金額與初始餘額的上限。
var MaxAmount = decimal.New(1, maxAmountDigits)

// CreateAccount 以名稱與初始餘額建立帳戶；初始餘額不得為負。
// 建立帳戶不受系統狀態限制。
func (b *Bank) CreateAccount(name string, initial decimal.Decimal) (ledger.Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return ledger.Account{}, ErrInvalidName
	}
	if initial.IsNegative() {
		return ledger.Account{}, fmt.Errorf("%w: initial balance must not be negative", ErrInvalidAmount)
	}
	if err := checkRange(initial); err != nil {
		return ledger.Account{}, err
	}

	a := ledger.Account{
		ID:        uuid.NewString(),
		Name:      name,
		Balance:   initial,
		CreatedAt: time.Now().UTC(),
	}
	b.mutate(func() {
		b.store.AddAccount(a)
		b.appendLog(ledger.ActivityLogEntry{
			Type:      "ACCOUNT_CREATED",
			AccountID: a.ID,
			Details:   fmt.Sprintf("Account %s created with initial balance of %s", name, initial.StringFixed(2)),
			Status:    ledger.LogCompleted,
		})
	})
	b.log.Info("account created", zap.String("account_id", a.ID), zap.String("name", name))
	return a, nil
}

// Deposit 開始一筆存款。餘額在延遲完成時才入帳，因此不產生預扣紀錄。
func (b *Bank) Deposit(accountID string, amount decimal.Decimal) (tx ledger.Transaction, err error) {
	rejected := ledger.ActivityLogEntry{Type: "DEPOSIT_REJECTED", AccountID: accountID, Amount: amountPtr(amount)}

	b.mutate(func() {
		if err = b.admit(amount); err != nil {
			b.reject(rejected, "Deposit", err)
			return
		}
		if _, ok := b.store.Account(accountID); !ok {
			err = ErrAccountNotFound
			b.reject(rejected, "Deposit", err)
			return
		}

		tx = b.begin(ledger.Transaction{Type: ledger.TxDeposit, AccountID: accountID, Amount: amount})
		b.appendLog(ledger.ActivityLogEntry{
			Type:          "DEPOSIT_STARTED",
			AccountID:     accountID,
			TransactionID: tx.ID,
			Amount:        amountPtr(amount),
			Details:       fmt.Sprintf("Starting deposit of %s to account %s", amount.StringFixed(2), accountID),
			Status:        ledger.LogPending,
		})
		b.schedule(tx.ID)
	})
	return tx, err
}

// Withdraw 開始一筆提款：立即扣款並記錄預扣紀錄，延遲完成時才確認。
func (b *Bank) Withdraw(accountID string, amount decimal.Decimal) (tx ledger.Transaction, err error) {
	rejected := ledger.ActivityLogEntry{Type: "WITHDRAWAL_REJECTED", AccountID: accountID, Amount: amountPtr(amount)}

	b.mutate(func() {
		if err = b.admit(amount); err != nil {
			b.reject(rejected, "Withdrawal", err)
			return
		}
		acct, ok := b.store.Account(accountID)
		if !ok {
			err = ErrAccountNotFound
			b.reject(rejected, "Withdrawal", err)
			return
		}
		if acct.Balance.LessThan(amount) {
			err = ErrInsufficientFunds
			b.reject(rejected, "Withdrawal", err)
			return
		}

		tx = b.begin(ledger.Transaction{Type: ledger.TxWithdrawal, AccountID: accountID, Amount: amount})
		b.appendLog(ledger.ActivityLogEntry{
			Type:          "WITHDRAWAL_STARTED",
			AccountID:     accountID,
			TransactionID: tx.ID,
			Amount:        amountPtr(amount),
			Details:       fmt.Sprintf("Starting withdrawal of %s from account %s", amount.StringFixed(2), accountID),
			Status:        ledger.LogPending,
		})
		b.debit(tx)
		b.schedule(tx.ID)
	})
	return tx, err
}

// Transfer 開始一筆轉帳：立即自來源扣款並記錄預扣紀錄；目標帳戶在延遲完成時才入帳。
func (b *Bank) Transfer(sourceID, destID string, amount decimal.Decimal) (tx ledger.Transaction, err error) {
	rejected := ledger.ActivityLogEntry{
		Type:                 "TRANSFER_REJECTED",
		SourceAccountID:      sourceID,
		DestinationAccountID: destID,
		Amount:               amountPtr(amount),
	}

	b.mutate(func() {
		if err = b.admit(amount); err != nil {
			b.reject(rejected, "Transfer", err)
			return
		}
		src, ok := b.store.Account(sourceID)
		if !ok {
			err = fmt.Errorf("source %w", ErrAccountNotFound)
			b.reject(rejected, "Transfer", err)
			return
		}
		if destID == "" || destID == sourceID {
			err = fmt.Errorf("%w: destination must differ from source", ErrInvalidDestination)
			b.reject(rejected, "Transfer", err)
			return
		}
		if _, ok := b.store.Account(destID); !ok {
			err = fmt.Errorf("%w: destination account not found", ErrInvalidDestination)
			b.reject(rejected, "Transfer", err)
			return
		}
		if src.Balance.LessThan(amount) {
			err = ErrInsufficientFunds
			b.reject(rejected, "Transfer", err)
			return
		}

		tx = b.begin(ledger.Transaction{
			Type:                 ledger.TxTransfer,
			SourceAccountID:      sourceID,
			DestinationAccountID: destID,
			Amount:               amount,
		})
		b.appendLog(ledger.ActivityLogEntry{
			Type:                 "TRANSFER_STARTED",
			SourceAccountID:      sourceID,
			DestinationAccountID: destID,
			TransactionID:        tx.ID,
			Amount:               amountPtr(amount),
			Details:              fmt.Sprintf("Starting transfer of %s from account %s to account %s", amount.StringFixed(2), sourceID, destID),
			Status:               ledger.LogPending,
		})
		b.debit(tx)
		b.appendLog(ledger.ActivityLogEntry{
			Type:                 "TRANSFER_SOURCE_DEBITED",
			SourceAccountID:      sourceID,
			DestinationAccountID: destID,
			TransactionID:        tx.ID,
			Amount:               amountPtr(amount),
			Details:              fmt.Sprintf("Debited %s from source account %s", amount.StringFixed(2), sourceID),
			Status:               ledger.LogPending,
		})
		b.schedule(tx.ID)
	})
	return tx, err
}

// admit 為准入檢查：系統須為 online、金額須為正。呼叫端須持有 mu。
func (b *Bank) admit(amount decimal.Decimal) error {
	if err := b.gate.Admit(); err != nil {
		return fmt.Errorf("%w: system is %s", ErrSystemUnavailable, b.gate.Status())
	}
	if !amount.IsPositive() {
		return fmt.Errorf("%w: must be > 0", ErrInvalidAmount)
	}
	return checkRange(amount)
}

// checkRange 限制金額的小數位數與大小。
// 先檢查指數與係數長度，避免對極端值做任何展開運算。
func checkRange(amount decimal.Decimal) error {
	exp := amount.Exponent()
	if exp < -MaxAmountScale {
		return fmt.Errorf("%w: at most %d decimal places", ErrInvalidAmount, MaxAmountScale)
	}
	if exp > maxAmountDigits || amount.Coefficient().BitLen() > maxCoefficientBits ||
		amount.Abs().GreaterThan(MaxAmount) {
		return fmt.Errorf("%w: must not exceed %s", ErrInvalidAmount, MaxAmount)
	}
	return nil
}

// reject 記錄拒絕事件；除日誌外不變更任何帳本狀態。
func (b *Bank) reject(e ledger.ActivityLogEntry, op string, err error) {
	if errors.Is(err, ErrInvalidAmount) {
		// 非法金額不寫入日誌與快照
		e.Amount = nil
	}
	e.Details = fmt.Sprintf("%s rejected: %v", op, err)
	e.Status = ledger.LogError
	b.appendLog(e)
	b.log.Info("transaction rejected", zap.String("type", e.Type), zap.Error(err))
}

// begin 建立 pending 交易並登記為在途。
func (b *Bank) begin(t ledger.Transaction) ledger.Transaction {
	t.ID = uuid.NewString()
	t.Timestamp = time.Now().UTC()
	t.Status = ledger.TxPending
	b.store.AddTransaction(t)
	b.store.AddPending(t.ID)
	b.processing = t.ID
	b.log.Info("transaction started",
		zap.String("tx_id", t.ID),
		zap.String("type", string(t.Type)),
		zap.String("amount", t.Amount.String()))
	return t
}

// debit 自交易的扣款帳戶樂觀扣款，並同時寫入預扣紀錄，兩者不可分離。
func (b *Bank) debit(tx ledger.Transaction) {
	id := tx.DebitAccountID()
	acct, ok := b.store.Account(id)
	if !ok {
		return
	}
	b.store.SetBalance(id, acct.Balance.Sub(tx.Amount))
	b.store.AddDeducted(ledger.DeductedAmount{
		TransactionID:   tx.ID,
		SourceAccountID: id,
		Amount:          tx.Amount,
	})
}

// schedule 為交易登記唯一一個延遲完成回呼。
func (b *Bank) schedule(txID string) {
	c := &completion{}
	c.h = b.sched.AfterFunc(b.delay, func() { b.complete(txID, c) })
	b.timers[txID] = c
}

// complete 為延遲完成回呼。
// 只有在登記仍有效、系統仍 online、交易仍 pending 時才會變更帳本；
// 否則為 no-op，交易留在在途集合等待 Recover。
// 帳戶餘額一律於此時重新讀取，不使用開始時的值。
func (b *Bank) complete(txID string, c *completion) {
	b.mutate(func() {
		if b.timers[txID] != c {
			return
		}
		delete(b.timers, txID)

		if !b.gate.Online() {
			b.log.Debug("completion skipped: system not online", zap.String("tx_id", txID))
			return
		}
		tx, ok := b.store.Transaction(txID)
		if !ok || tx.Status != ledger.TxPending {
			return
		}

		var entry ledger.ActivityLogEntry
		switch tx.Type {
		case ledger.TxDeposit:
			acct, ok := b.store.Account(tx.AccountID)
			if !ok {
				return
			}
			b.store.SetBalance(acct.ID, acct.Balance.Add(tx.Amount))
			entry = ledger.ActivityLogEntry{
				Type:      "DEPOSIT_COMPLETED",
				AccountID: tx.AccountID,
				Details:   fmt.Sprintf("Successfully deposited %s to account %s", tx.Amount.StringFixed(2), tx.AccountID),
			}
		case ledger.TxWithdrawal:
			entry = ledger.ActivityLogEntry{
				Type:      "WITHDRAWAL_COMPLETED",
				AccountID: tx.AccountID,
				Details:   fmt.Sprintf("Successfully withdrew %s from account %s", tx.Amount.StringFixed(2), tx.AccountID),
			}
		case ledger.TxTransfer:
			dest, ok := b.store.Account(tx.DestinationAccountID)
			if !ok {
				return
			}
			b.store.SetBalance(dest.ID, dest.Balance.Add(tx.Amount))
			entry = ledger.ActivityLogEntry{
				Type:                 "TRANSFER_COMPLETED",
				SourceAccountID:      tx.SourceAccountID,
				DestinationAccountID: tx.DestinationAccountID,
				Details: fmt.Sprintf("Successfully transferred %s from account %s to account %s",
					tx.Amount.StringFixed(2), tx.SourceAccountID, tx.DestinationAccountID),
			}
		default:
			return
		}

		b.store.SetTransactionStatus(txID, ledger.TxCompleted)
		entry.TransactionID = txID
		entry.Amount = amountPtr(tx.Amount)
		entry.Status = ledger.LogSuccess
		b.appendLog(entry)

		b.store.RemoveDeducted(txID)
		b.store.RemovePending(txID)
		if b.processing == txID {
			b.processing = ""
		}
		b.log.Info("transaction completed", zap.String("tx_id", txID), zap.String("type", string(tx.Type)))
	})
}

func amountPtr(d decimal.Decimal) *decimal.Decimal {
	return &d
}
