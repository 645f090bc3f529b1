// internal/server/response.go
//
// 本檔負責統一 HTTP 回應格式與錯誤碼對應。
//   - 成功：writeJSON；交易類操作回傳 {"ok":true,"transaction":...}。
//   - 拒絕：writeRejection 回傳 {"ok":false,"reason":"..."}，狀態碼由 statusFor 決定。
package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"ledgersim/internal/bank"
	"ledgersim/internal/ledger"
)

type txResponse struct {
	OK          bool               `json:"ok"`
	Transaction ledger.Transaction `json:"transaction"`
}

type rejection struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason"`
}

// writeJSON 統一輸出 JSON 回應。
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeRejection 依錯誤種類輸出拒絕回應。
func writeRejection(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), rejection{OK: false, Reason: err.Error()})
}

// writeBadRequest 輸出 400 拒絕回應（請求格式或參數錯誤）。
func writeBadRequest(w http.ResponseWriter, reason string) {
	writeJSON(w, http.StatusBadRequest, rejection{OK: false, Reason: reason})
}

// statusFor 將引擎錯誤轉為 HTTP 狀態碼。
func statusFor(err error) int {
	switch {
	case errors.Is(err, bank.ErrSystemUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, bank.ErrAccountNotFound):
		return http.StatusNotFound
	case errors.Is(err, bank.ErrInsufficientFunds):
		return http.StatusConflict
	case errors.Is(err, bank.ErrInvalidDestination),
		errors.Is(err, bank.ErrInvalidAmount),
		errors.Is(err, bank.ErrInvalidName):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
