// internal/storage/jsonstore_test.go
//
// 驗證快照的寫入與讀回：JSON 檔案後端與 bbolt 後端行為一致，
// 且不存在或損壞的快照回傳可辨識的錯誤。
package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgersim/internal/ledger"
)

func sampleSnapshot() Snapshot {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tx := ledger.Transaction{
		ID: "t1", Type: ledger.TxWithdrawal, AccountID: "a1",
		Amount: decimal.NewFromInt(40), Timestamp: now, Status: ledger.TxPending,
	}
	return Snapshot{
		Accounts: []ledger.Account{
			{ID: "a1", Name: "A", Balance: decimal.RequireFromString("60.50"), CreatedAt: now},
		},
		Transactions:        []ledger.Transaction{tx},
		PendingTransactions: []ledger.Transaction{tx},
		DeductedAmounts: []ledger.DeductedAmount{
			{TransactionID: "t1", SourceAccountID: "a1", Amount: decimal.NewFromInt(40)},
		},
		ActivityLog: []ledger.ActivityLogEntry{
			{ID: "l1", Type: "WITHDRAWAL_STARTED", TransactionID: "t1", Status: ledger.LogPending, Timestamp: now},
		},
		SystemStatus: ledger.StatusCrashed,
	}
}

func assertSameSnapshot(t *testing.T, want, got Snapshot) {
	t.Helper()
	require.Len(t, got.Accounts, 1)
	assert.Equal(t, want.Accounts[0].ID, got.Accounts[0].ID)
	assert.True(t, want.Accounts[0].Balance.Equal(got.Accounts[0].Balance), "balance %s", got.Accounts[0].Balance)
	require.Len(t, got.PendingTransactions, 1)
	assert.Equal(t, "t1", got.PendingTransactions[0].ID)
	require.Len(t, got.DeductedAmounts, 1)
	assert.True(t, got.DeductedAmounts[0].Amount.Equal(decimal.NewFromInt(40)))
	assert.Equal(t, ledger.StatusCrashed, got.SystemStatus)
	assert.Len(t, got.ActivityLog, 1)
	assert.Equal(t, CurrentVersion, got.Meta.Version)
}

func TestJSONSnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	s, err := NewJSONStore(path)
	require.NoError(t, err)

	orig := sampleSnapshot()
	require.NoError(t, s.Save(orig))

	// 暫存檔應已被 rename 取代
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	loaded, err := s.Load()
	require.NoError(t, err)
	assertSameSnapshot(t, orig, loaded)
	assert.Equal(t, "json_snapshot", loaded.Meta.Storage)
}

func TestJSONSnapshotMissingAndCorrupt(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadSnapshot(filepath.Join(dir, "nope.json"))
	assert.ErrorIs(t, err, ErrNoSnapshot)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o644))
	_, err = LoadSnapshot(bad)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestBoltSnapshotRoundTrip(t *testing.T) {
	s, err := OpenBolt(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Load()
	assert.ErrorIs(t, err, ErrNoSnapshot)

	orig := sampleSnapshot()
	require.NoError(t, s.Save(orig))

	loaded, err := s.Load()
	require.NoError(t, err)
	assertSameSnapshot(t, orig, loaded)
	assert.Equal(t, "bolt_snapshot", loaded.Meta.Storage)
}

func TestOpenBackends(t *testing.T) {
	dir := t.TempDir()

	js, err := Open(BackendJSON, filepath.Join(dir, "a.json"))
	require.NoError(t, err)
	assert.IsType(t, &JSONStore{}, js)

	bs, err := Open(BackendBolt, filepath.Join(dir, "b.db"))
	require.NoError(t, err)
	assert.IsType(t, &BoltStore{}, bs)
	require.NoError(t, bs.Close())

	_, err = Open("redis", filepath.Join(dir, "c"))
	assert.Error(t, err)
}
