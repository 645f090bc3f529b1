// internal/server/handler.go
//
// Package server
// ─────────────────────────────────────────────
// 提供 HTTP RESTful 介面，作為交易引擎的應用層。
// 每個 handler 僅負責：
//  1. 解析與驗證 HTTP 請求
//  2. 呼叫 bank 層
//  3. 回傳標準化 JSON 回應
//
// 持久化與事件發佈都在 bank 層每次變更後自動進行，handler 不需處理。
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"ledgersim/internal/bank"
	"ledgersim/internal/ledger"
)

// defaultCrashAfter 為模擬當機未指定延遲時的預設值。
const defaultCrashAfter = time.Second

// Server 為 HTTP 層核心結構，注入交易引擎與 logger。
type Server struct {
	Bank *bank.Bank
	log  *zap.Logger
}

// NewServer 建立新的 HTTP 伺服器；log 可為 nil。
func NewServer(b *bank.Bank, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{Bank: b, log: log}
}

// decode 解析 JSON 請求內容；失敗時已寫出 400。
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeBadRequest(w, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// health 提供健康檢查端點：GET /health。
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// status 回傳系統狀態：GET /status。
func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":              s.Bank.Status(),
		"currentlyProcessing": s.Bank.CurrentlyProcessing(),
		"pendingTransactions": len(s.Bank.PendingTransactions()),
	})
}

// stats 回傳儀表板摘要：GET /stats。
func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Bank.Stats())
}

// listAccounts：GET /accounts
func (s *Server) listAccounts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Bank.Accounts())
}

// createAccount：POST /accounts  {name, initialBalance}
func (s *Server) createAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name           string          `json:"name"`
		InitialBalance decimal.Decimal `json:"initialBalance"`
	}
	if !decode(w, r, &req) {
		return
	}
	a, err := s.Bank.CreateAccount(req.Name, req.InitialBalance)
	if err != nil {
		writeRejection(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// getAccount：GET /accounts/{id}
func (s *Server) getAccount(w http.ResponseWriter, r *http.Request) {
	a, err := s.Bank.Account(chi.URLParam(r, "id"))
	if err != nil {
		writeRejection(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

type amountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// deposit：POST /accounts/{id}/deposit  {amount}
func (s *Server) deposit(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if !decode(w, r, &req) {
		return
	}
	tx, err := s.Bank.Deposit(chi.URLParam(r, "id"), req.Amount)
	s.writeStarted(w, tx, err)
}

// withdraw：POST /accounts/{id}/withdraw  {amount}
func (s *Server) withdraw(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if !decode(w, r, &req) {
		return
	}
	tx, err := s.Bank.Withdraw(chi.URLParam(r, "id"), req.Amount)
	s.writeStarted(w, tx, err)
}

type transferRequest struct {
	SourceAccountID      string          `json:"sourceAccountId"`
	DestinationAccountID string          `json:"destinationAccountId"`
	Amount               decimal.Decimal `json:"amount"`
}

// transfer：POST /transfer  {sourceAccountId, destinationAccountId, amount}
func (s *Server) transfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if !decode(w, r, &req) {
		return
	}
	tx, err := s.Bank.Transfer(req.SourceAccountID, req.DestinationAccountID, req.Amount)
	s.writeStarted(w, tx, err)
}

// writeStarted 輸出交易開始結果；成功為 202，因為完成是延遲的。
func (s *Server) writeStarted(w http.ResponseWriter, tx ledger.Transaction, err error) {
	if err != nil {
		writeRejection(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, txResponse{OK: true, Transaction: tx})
}

// listTransactions：GET /transactions?type=&sort=&limit=
func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	n, err := parseLimit(q.Get("limit"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	sortOrder := ledger.SortOrder(strings.ToLower(q.Get("sort")))
	switch sortOrder {
	case "", ledger.SortNewest, ledger.SortOldest:
	default:
		writeBadRequest(w, fmt.Sprintf("unknown sort %q", q.Get("sort")))
		return
	}

	typ := ledger.TxType(strings.ToUpper(q.Get("type")))
	if strings.EqualFold(string(typ), "all") {
		typ = ""
	}
	writeJSON(w, http.StatusOK, s.Bank.Transactions(ledger.TransactionQuery{Type: typ, Sort: sortOrder, Limit: n}))
}

// pendingTransactions：GET /transactions/pending
func (s *Server) pendingTransactions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Bank.PendingTransactions())
}

// logs：GET /logs?category=&status=&limit=
func (s *Server) logs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	n, err := parseLimit(q.Get("limit"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.Bank.ActivityLog(ledger.LogQuery{
		Category: ledger.LogCategory(strings.ToLower(q.Get("category"))),
		Status:   q.Get("status"),
		Limit:    n,
	}))
}

// systemCrash：POST /system/crash
func (s *Server) systemCrash(w http.ResponseWriter, r *http.Request) {
	s.Bank.Crash()
	s.status(w, r)
}

// systemRecover：POST /system/recover
func (s *Server) systemRecover(w http.ResponseWriter, r *http.Request) {
	s.Bank.Recover()
	s.status(w, r)
}

// systemReset：POST /system/reset
func (s *Server) systemReset(w http.ResponseWriter, r *http.Request) {
	s.Bank.Reset()
	s.status(w, r)
}

// simulateCrash 開始一筆交易，並於 crashAfterMs 之後觸發當機：
//
//	POST /system/simulate-crash
//	{type, accountId, destinationAccountId, amount, crashAfterMs}
//
// 交易開始失敗時不排程當機。
func (s *Server) simulateCrash(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type                 string          `json:"type"`
		AccountID            string          `json:"accountId"`
		DestinationAccountID string          `json:"destinationAccountId"`
		Amount               decimal.Decimal `json:"amount"`
		CrashAfterMs         *int64          `json:"crashAfterMs"`
	}
	if !decode(w, r, &req) {
		return
	}

	after := defaultCrashAfter
	if req.CrashAfterMs != nil {
		if *req.CrashAfterMs < 0 {
			writeBadRequest(w, "crashAfterMs must not be negative")
			return
		}
		after = time.Duration(*req.CrashAfterMs) * time.Millisecond
	}

	var (
		tx  ledger.Transaction
		err error
	)
	switch ledger.TxType(strings.ToUpper(req.Type)) {
	case ledger.TxDeposit:
		tx, err = s.Bank.Deposit(req.AccountID, req.Amount)
	case ledger.TxWithdrawal, "WITHDRAW":
		tx, err = s.Bank.Withdraw(req.AccountID, req.Amount)
	case ledger.TxTransfer:
		tx, err = s.Bank.Transfer(req.AccountID, req.DestinationAccountID, req.Amount)
	default:
		writeBadRequest(w, fmt.Sprintf("unknown transaction type %q", req.Type))
		return
	}
	if err != nil {
		writeRejection(w, err)
		return
	}

	s.Bank.ScheduleCrash(after)
	s.log.Info("crash scheduled",
		zap.String("tx_id", tx.ID),
		zap.Duration("after", after))
	writeJSON(w, http.StatusAccepted, map[string]any{
		"ok":           true,
		"transaction":  tx,
		"crashAfterMs": after.Milliseconds(),
	})
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid limit %q", raw)
	}
	return n, nil
}
