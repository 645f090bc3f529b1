// internal/server/router.go
//
// 本檔負責 HTTP 路由註冊與中介層。
// 同一組端點同時掛在根路徑與 /api/v1 之下。
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// maxBodyBytes 為請求內容的大小上限。
const maxBodyBytes = 1 << 20

// Router 建立並回傳整個 HTTP 處理鏈。
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestSize(maxBodyBytes))
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", s.routes)

	// 同時保留根路徑，方便本地開發或測試。
	s.routes(r)
	return r
}

func (s *Server) routes(r chi.Router) {
	r.Get("/health", s.health)
	r.Get("/status", s.status)
	r.Get("/stats", s.stats)

	r.Route("/accounts", func(r chi.Router) {
		r.Get("/", s.listAccounts)
		r.Post("/", s.createAccount)
		r.Get("/{id}", s.getAccount)
		r.Post("/{id}/deposit", s.deposit)
		r.Post("/{id}/withdraw", s.withdraw)
	})
	r.Post("/transfer", s.transfer)

	r.Get("/transactions", s.listTransactions)
	r.Get("/transactions/pending", s.pendingTransactions)
	r.Get("/logs", s.logs)

	r.Route("/system", func(r chi.Router) {
		r.Post("/crash", s.systemCrash)
		r.Post("/recover", s.systemRecover)
		r.Post("/reset", s.systemReset)
		r.Post("/simulate-crash", s.simulateCrash)
	})
}

// requestLogger 以 zap 記錄每個請求的方法、路徑、狀態碼與耗時。
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		s.log.Debug("http request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)))
	})
}
