// internal/ledger/model.go

// Package ledger 定義帳本的純資料模型：帳戶、交易、在途交易、預扣紀錄與活動日誌。
// 本套件不含任何驗證或流程邏輯，僅提供可序列化的結構與有序的資料容器。
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// TxType 為交易種類。
type TxType string

const (
	TxDeposit    TxType = "DEPOSIT"
	TxWithdrawal TxType = "WITHDRAWAL"
	TxTransfer   TxType = "TRANSFER"
)

// TxStatus 為交易狀態；pending 只會轉換一次到 completed 或 failed。
type TxStatus string

const (
	TxPending   TxStatus = "pending"
	TxCompleted TxStatus = "completed"
	TxFailed    TxStatus = "failed"
)

// Terminal 回報狀態是否為終態。
func (s TxStatus) Terminal() bool {
	return s == TxCompleted || s == TxFailed
}

// LogStatus 為活動日誌的狀態標記。
type LogStatus string

const (
	LogPending   LogStatus = "pending"
	LogSuccess   LogStatus = "success"
	LogCompleted LogStatus = "completed"
	LogError     LogStatus = "error"
	LogWarning   LogStatus = "warning"
	LogInfo      LogStatus = "info"
)

// Account represents a ledger account.
type Account struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Transaction represents a deposit, withdrawal or transfer.
// DEPOSIT / WITHDRAWAL 使用 AccountID；TRANSFER 使用 Source/Destination。
type Transaction struct {
	ID                   string          `json:"id"`
	Type                 TxType          `json:"type"`
	AccountID            string          `json:"accountId,omitempty"`
	SourceAccountID      string          `json:"sourceAccountId,omitempty"`
	DestinationAccountID string          `json:"destinationAccountId,omitempty"`
	Amount               decimal.Decimal `json:"amount"`
	Timestamp            time.Time       `json:"timestamp"`
	Status               TxStatus        `json:"status"`
}

// DebitAccountID 回傳會被預扣款的帳戶；DEPOSIT 無預扣，回傳空字串。
func (t Transaction) DebitAccountID() string {
	switch t.Type {
	case TxWithdrawal:
		return t.AccountID
	case TxTransfer:
		return t.SourceAccountID
	default:
		return ""
	}
}

// DeductedAmount 為樂觀扣款的鑑識紀錄，只存在於扣款後、完成或回滾前。
type DeductedAmount struct {
	TransactionID   string          `json:"transactionId"`
	SourceAccountID string          `json:"sourceAccountId"`
	Amount          decimal.Decimal `json:"amount"`
}

// ActivityLogEntry 為一筆活動日誌；選填欄位以指標或空字串表示缺省。
type ActivityLogEntry struct {
	ID                   string           `json:"id"`
	Type                 string           `json:"type"`
	AccountID            string           `json:"accountId,omitempty"`
	SourceAccountID      string           `json:"sourceAccountId,omitempty"`
	DestinationAccountID string           `json:"destinationAccountId,omitempty"`
	TransactionID        string           `json:"transactionId,omitempty"`
	Amount               *decimal.Decimal `json:"amount,omitempty"`
	Details              string           `json:"details"`
	Status               LogStatus        `json:"status"`
	Timestamp            time.Time        `json:"timestamp"`
}
