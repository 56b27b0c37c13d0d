package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"exchange_go/internal/api"
	"exchange_go/internal/app"
	"exchange_go/internal/feed"
	"exchange_go/internal/infra"
)

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func main() {
	configPath := flag.String("config", "", "path to config.yaml (searched in standard locations when empty)")
	flag.Parse()

	// Without -config, pick up a config file from the standard locations
	// when one exists, otherwise run on defaults.
	path := *configPath
	if path == "" {
		if p := infra.ResolveConfigPath(); fileExists(p) {
			path = p
		}
	}

	workDir := infra.GetWorkspaceDir()
	if err := infra.EnsureDir(workDir); err != nil {
		slog.Error("failed to create workspace", slog.Any("error", err))
		os.Exit(1)
	}
	unlock, err := infra.CreateLockFile(workDir)
	if err != nil {
		slog.Error("startup aborted", slog.Any("error", err))
		os.Exit(1)
	}
	defer unlock()

	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(path); err != nil {
		slog.Error("bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer bootstrap.Close()

	cfg := bootstrap.Config
	infra.PrintBanner(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go bootstrap.RunEventArchiver(ctx)

	hub := api.NewHub()
	go hub.Run(ctx, bootstrap.Events.Subscribe())

	if len(cfg.Feed.Brokers) > 0 {
		publisher := feed.NewPublisher(cfg.Feed.Brokers, cfg.Feed.Topic)
		defer publisher.Close()
		go publisher.Run(ctx, bootstrap.Events.Subscribe())
		slog.Info("trade feed started", "topic", cfg.Feed.Topic)
	}

	server := api.NewServer(bootstrap.Book, hub, cfg.RateLimiter())
	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: server.Router(),
	}

	go func() {
		slog.Info("http server listening", "addr", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown failed", slog.Any("error", err))
	}
}
