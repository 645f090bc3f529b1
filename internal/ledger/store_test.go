package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorePreservesInsertionOrder(t *testing.T) {
	s := NewStore()
	for _, id := range []string{"c", "a", "b"} {
		s.AddAccount(Account{ID: id, Name: id, Balance: decimal.NewFromInt(1)})
		s.AddTransaction(Transaction{ID: "t" + id, Type: TxDeposit, AccountID: id, Status: TxPending})
		s.AddPending("t" + id)
	}

	var ids []string
	for _, a := range s.Accounts() {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []string{"c", "a", "b"}, ids)

	var pending []string
	for _, tx := range s.Pending() {
		pending = append(pending, tx.ID)
	}
	assert.Equal(t, []string{"tc", "ta", "tb"}, pending)

	s.RemovePending("ta")
	s.AddPending("tc")
	assert.Len(t, s.Pending(), 2)
	assert.False(t, s.IsPending("ta"))
}

func TestStoreReturnsCopies(t *testing.T) {
	s := NewStore()
	s.AddAccount(Account{ID: "a", Balance: decimal.NewFromInt(5)})

	got, ok := s.Account("a")
	require.True(t, ok)
	got.Balance = decimal.NewFromInt(999)

	again, _ := s.Account("a")
	assert.True(t, again.Balance.Equal(decimal.NewFromInt(5)))
	assert.True(t, s.SetBalance("a", decimal.NewFromInt(7)))
	assert.False(t, s.SetBalance("missing", decimal.NewFromInt(7)))
}

func TestTerminalTransactionsAreImmutable(t *testing.T) {
	s := NewStore()
	s.AddTransaction(Transaction{ID: "t", Status: TxPending})

	assert.True(t, s.SetTransactionStatus("t", TxCompleted))
	assert.False(t, s.SetTransactionStatus("t", TxFailed))

	tx, _ := s.Transaction("t")
	assert.Equal(t, TxCompleted, tx.Status)
}

func TestDeductedRecords(t *testing.T) {
	s := NewStore()
	s.AddDeducted(DeductedAmount{TransactionID: "t1", SourceAccountID: "a", Amount: decimal.NewFromInt(10)})
	s.AddDeducted(DeductedAmount{TransactionID: "t2", SourceAccountID: "b", Amount: decimal.NewFromInt(20)})

	d, ok := s.DeductedFor("t2")
	require.True(t, ok)
	assert.Equal(t, "b", d.SourceAccountID)

	s.RemoveDeducted("t1")
	_, ok = s.DeductedFor("t1")
	assert.False(t, ok)
	assert.Len(t, s.Deducted(), 1)

	s.ClearDeducted()
	assert.Empty(t, s.Deducted())
}

func TestAppendLogFillsIDAndTimestamp(t *testing.T) {
	s := NewStore()
	e := s.AppendLog(ActivityLogEntry{Type: "SYSTEM_RESET", Status: LogInfo})
	assert.NotEmpty(t, e.ID)
	assert.False(t, e.Timestamp.IsZero())

	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	e2 := s.AppendLog(ActivityLogEntry{ID: "fixed", Type: "X", Timestamp: at})
	assert.Equal(t, "fixed", e2.ID)
	assert.Equal(t, at, e2.Timestamp)
	assert.Len(t, s.Logs(), 2)
}

func TestExportAndRebuild(t *testing.T) {
	s := NewStore()
	s.AddAccount(Account{ID: "a", Balance: decimal.NewFromInt(50)})
	s.AddTransaction(Transaction{ID: "t1", Status: TxPending})
	s.AddTransaction(Transaction{ID: "t2", Status: TxCompleted})
	s.AddPending("t1")
	s.AddDeducted(DeductedAmount{TransactionID: "t1", SourceAccountID: "a", Amount: decimal.NewFromInt(50)})
	s.AppendLog(ActivityLogEntry{Type: "WITHDRAWAL_STARTED"})

	st := s.Export()
	// 在途清單中的終態交易在重建時會被略過
	st.PendingTransactions = append(st.PendingTransactions, Transaction{ID: "t2"})

	r := NewStoreFrom(st)
	assert.Len(t, r.Accounts(), 1)
	assert.Len(t, r.Transactions(), 2)
	require.Len(t, r.Pending(), 1)
	assert.Equal(t, "t1", r.Pending()[0].ID)
	assert.Len(t, r.Deducted(), 1)
	assert.Len(t, r.Logs(), 1)
}

func TestSummarize(t *testing.T) {
	s := NewStore()
	s.AddAccount(Account{ID: "a", Balance: decimal.RequireFromString("10.25")})
	s.AddAccount(Account{ID: "b", Balance: decimal.RequireFromString("4.75")})
	s.AddTransaction(Transaction{ID: "1", Status: TxPending})
	s.AddTransaction(Transaction{ID: "2", Status: TxCompleted})
	s.AddTransaction(Transaction{ID: "3", Status: TxFailed})
	s.AddTransaction(Transaction{ID: "4", Status: TxFailed})

	st := s.Summarize()
	assert.True(t, st.TotalBalance.Equal(decimal.NewFromInt(15)))
	assert.Equal(t, 2, st.Accounts)
	assert.Equal(t, 4, st.TotalTransactions)
	assert.Equal(t, 1, st.PendingTransactions)
	assert.Equal(t, 1, st.CompletedTransactions)
	assert.Equal(t, 2, st.FailedTransactions)
}

func TestDebitAccountID(t *testing.T) {
	assert.Equal(t, "a", Transaction{Type: TxWithdrawal, AccountID: "a"}.DebitAccountID())
	assert.Equal(t, "s", Transaction{Type: TxTransfer, SourceAccountID: "s", DestinationAccountID: "d"}.DebitAccountID())
	assert.Empty(t, Transaction{Type: TxDeposit, AccountID: "a"}.DebitAccountID())
}
