package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/andy6609/bbs-server/internal/auth"
	"github.com/andy6609/bbs-server/internal/bbs"
	"github.com/andy6609/bbs-server/internal/config"
	"github.com/andy6609/bbs-server/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0o755); err != nil {
		logger.Error("failed to create database directory", "error", err)
		os.Exit(1)
	}
	st, err := store.OpenSQLite(context.Background(), cfg.DatabasePath)
	if err != nil {
		logger.Error("failed to open store", "error", err, "path", cfg.DatabasePath)
		os.Exit(1)
	}
	defer st.Close()

	go serveMetrics(cfg.MetricsAddr, logger)

	srv := bbs.NewServer(cfg, st, auth.NewBcrypt(), logger)
	if err := srv.Start(); err != nil {
		logger.Error("failed to start server", "error", err)
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	srv.Stop()
}

func serveMetrics(addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics endpoint failed", "error", err)
	}
}
