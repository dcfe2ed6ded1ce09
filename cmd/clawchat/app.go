package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"clawchat/internal/bus"
	"clawchat/internal/chat"
	"clawchat/internal/config"
	"clawchat/internal/domain"
	"clawchat/internal/gateway"
	"clawchat/internal/storage"
)

var logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

var logFile *os.File

// setupLogger rebuilds the global logger from config. A nil config resets
// to info level on stderr.
func setupLogger(cfg *config.Config) {
	level := slog.LevelInfo
	var out io.Writer = os.Stderr
	if cfg != nil {
		if l, err := config.ParseLogLevel(cfg.General.LogLevel); err == nil {
			level = l
		}
		if path := cfg.General.LogFile; path != "" {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err == nil {
				if f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600); err == nil {
					if logFile != nil {
						logFile.Close()
					}
					logFile = f
					out = f
				}
			}
		}
	}
	logger = slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// app wires the chat store to its gateway and persistence backend.
type app struct {
	kv    domain.KVStore
	store *chat.Store
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	kv, err := storage.Open(cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	gw := gateway.NewClient(gateway.ClientConfig{
		BaseURL:         cfg.Gateway.BaseURL,
		Token:           cfg.Gateway.Token,
		Timeout:         time.Duration(cfg.Gateway.TimeoutSeconds) * time.Second,
		RateLimitPerMin: cfg.Gateway.RateLimitPerMin,
		RateBurst:       cfg.Gateway.RateBurst,
		Logger:          logger,
	})

	store := chat.NewStore(chat.StoreConfig{
		Gateway:     gw,
		Local:       storage.NewLocal(kv, logger),
		Bus:         bus.NewEventBus(logger),
		Logger:      logger,
		UI:          cfg.UI,
		ModelPrefix: cfg.Gateway.ModelPrefix,
		Agents:      cfg.Agents,
		Models:      cfg.Models,
	})
	store.Restore(ctx)
	return &app{kv: kv, store: store}, nil
}

func (a *app) Close() {
	a.store.Close()
	if err := a.kv.Close(); err != nil {
		logger.Warn("close storage", "err", err)
	}
}
