// cmd/server/main.go

// 本服務以 HTTP 提供模擬交易引擎：帳戶、延遲完成的存提款與轉帳、當機與復原。
// 此檔負責組裝設定、logger、快照儲存、事件發佈與 HTTP 伺服器，
// 並於 SIGINT/SIGTERM 時優雅關閉。
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"ledgersim/internal/bank"
	"ledgersim/internal/config"
	"ledgersim/internal/events"
	"ledgersim/internal/logging"
	"ledgersim/internal/server"
	"ledgersim/internal/storage"
)

const shutdownTimeout = 10 * time.Second

func main() {
	boot := zap.NewExample()
	cfg, err := config.Load(boot)
	if err != nil {
		boot.Fatal("load config", zap.Error(err))
	}

	log, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		boot.Fatal("build logger", zap.Error(err))
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	store, err := storage.Open(cfg.StorageBackend, cfg.DataFile)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn("close snapshot store", zap.Error(err))
		}
	}()

	opts := []bank.Option{
		bank.WithDelay(cfg.CompletionDelay),
		bank.WithLogger(log.Named("bank")),
		bank.WithPersister(store),
	}
	if cfg.RabbitMQURL != "" {
		pub, err := events.DialRabbitMQ(cfg.RabbitMQURL, cfg.RabbitMQExchange)
		if err != nil {
			// 事件發佈為選用功能，連線失敗不阻止啟動
			log.Warn("rabbitmq unavailable, activity publishing disabled", zap.Error(err))
		} else {
			defer func() { _ = pub.Close() }()
			opts = append(opts, bank.WithPublisher(pub))
			log.Info("publishing activity", zap.String("exchange", cfg.RabbitMQExchange))
		}
	}
	b := bank.NewBank(opts...)
	defer b.Close()

	// 載入上次的快照；不存在或損毀時以空帳本啟動
	snap, err := store.Load()
	switch {
	case err == nil:
		b.Restore(snap)
	case errors.Is(err, storage.ErrNoSnapshot):
		log.Info("no snapshot found, starting empty", zap.String("file", cfg.DataFile))
	default:
		log.Warn("snapshot unreadable, starting empty", zap.String("file", cfg.DataFile), zap.Error(err))
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           server.NewServer(b, log.Named("http")).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("ledger server running",
			zap.String("addr", srv.Addr),
			zap.String("storage", cfg.StorageBackend),
			zap.Duration("completion_delay", cfg.CompletionDelay))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
