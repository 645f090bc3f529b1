// internal/bank/errors.go
//
// 集中定義交易引擎的拒絕原因（domain errors）。
// 這些錯誤皆為可預期、由呼叫端處理的結果，不會造成程序中止；
// 上層 HTTP handler 以 errors.Is 轉換為對應的狀態碼。

package bank

import "errors"

var (
	// ErrSystemUnavailable 代表系統非 online，拒絕新交易。
	// 對應 HTTP 503。
	ErrSystemUnavailable = errors.New("system unavailable")

	// ErrAccountNotFound 代表帳戶（或轉帳來源帳戶）不存在。
	// 對應 HTTP 404。
	ErrAccountNotFound = errors.New("account not found")

	// ErrInsufficientFunds 代表餘額不足以提款或轉帳。
	// 對應 HTTP 409。
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidDestination 代表轉帳目標不存在或與來源相同。
	// 對應 HTTP 400。
	ErrInvalidDestination = errors.New("invalid destination")

	// ErrInvalidAmount 代表金額非法（交易 <= 0、初始餘額為負，或超出位數與大小上限）。
	// 對應 HTTP 400。
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidName 代表帳戶名稱為空。
	ErrInvalidName = errors.New("account name is required")
)
