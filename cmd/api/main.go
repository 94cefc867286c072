package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"cryptoquote-service/internal/bootstrap"
	"cryptoquote-service/internal/config"
	infraconfig "cryptoquote-service/internal/infrastructure/config"
	httpserver "cryptoquote-service/internal/infrastructure/http"
	"cryptoquote-service/internal/infrastructure/logx"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func init() { _ = godotenv.Load() }

func main() {
	logger := logx.L()
	cfg := config.Load()
	addr := ":" + cfg.Port

	feeCache, closeCache, err := bootstrap.BuildFeeCache(cfg)
	if err != nil {
		logger.Fatal("bootstrap fee cache", zap.Error(err))
	}
	defer closeCache()

	md, trader := bootstrap.BuildMarket(cfg, feeCache)
	engine := bootstrap.BuildEngine(md, feeCache)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Pair list is refetched lazily on demand, so a cold market source at
	// boot only delays it.
	if _, err := engine.LoadPairs(ctx); err != nil {
		logger.Warn("initial pair load failed", zap.Error(err))
	}

	ch := bootstrap.BuildFeed(cfg, engine)
	if err := ch.Connect(ctx, engine.OnLiveFeeUpdate); err != nil {
		logger.Warn("live fee channel connect failed", zap.Error(err))
	}
	defer ch.Disconnect()

	if poller := bootstrap.BuildPricePoller(cfg, md, engine); poller != nil {
		go poller.Start(ctx)
	}

	srv := httpserver.NewServer(engine, trader)
	srv.SetReadyCheck(func(r *http.Request) error {
		_, err := md.ListPairs(r.Context())
		return err
	})
	mux := httpserver.NewRouter(srv)

	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		logger.Info("server started", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	shutdownCtx, shCancel := context.WithTimeout(context.Background(), infraconfig.DefaultShutdownTimeout)
	defer shCancel()
	_ = server.Shutdown(shutdownCtx)
	logger.Info("server stopped")
}
