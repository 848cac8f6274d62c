package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rewired-gh/tradestream/internal/api"
	"github.com/rewired-gh/tradestream/internal/config"
	"github.com/rewired-gh/tradestream/internal/logger"
	"github.com/rewired-gh/tradestream/internal/storage"
	"github.com/rewired-gh/tradestream/internal/stream"
	"github.com/rewired-gh/tradestream/internal/telegram"
)

const shutdownTimeout = 5 * time.Second

var configPath = flag.String("config", "", "Path to configuration file (defaults and TRADESTREAM_* env when empty)")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if err := logger.Init(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		OutputFile: cfg.Logging.OutputFile,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	if *configPath != "" {
		logger.Info("Configuration loaded from %s", *configPath)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	opts := stream.Options{}

	var store *storage.Storage
	if cfg.Archive.Enabled {
		store, err = storage.New(cfg.Archive.MaxTrades, cfg.Archive.DBPath)
		if err != nil {
			logger.Fatal("Failed to initialize trade archive: %v", err)
		}
		defer func() {
			if err := store.Close(); err != nil {
				logger.Error("Failed to close trade archive: %v", err)
			}
		}()
		opts.Recorder = store
		logger.Info("Trade archive enabled (max %d trades)", cfg.Archive.MaxTrades)

		wg.Add(1)
		go func() {
			defer wg.Done()
			rotateArchive(ctx, store, cfg.Archive.RotateInterval)
		}()
	} else {
		logger.Debug("Trade archive disabled")
	}

	var telegramClient *telegram.Client
	if cfg.Telegram.Enabled {
		telegramClient, err = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase)
		if err != nil {
			logger.Fatal("Failed to initialize Telegram client: %v", err)
		}
		notifier := telegram.NewNotifier(telegramClient, 0)
		opts.Listener = notifier.OnEvent

		wg.Add(1)
		go func() {
			defer wg.Done()
			notifier.Run(ctx)
		}()
		logger.Info("Telegram client initialized successfully")
	} else {
		logger.Debug("Telegram notifications disabled")
	}

	ctrl := stream.New(stream.Config{
		Capacity:         cfg.Feed.Capacity,
		HighlightDelay:   cfg.Feed.HighlightDelay,
		HandshakeTimeout: cfg.Feed.HandshakeTimeout,
		ReadLimit:        cfg.Feed.ReadLimit,
	}, opts)

	loopDone := make(chan error, 1)
	go func() { loopDone <- ctrl.Run(ctx) }()

	if telegramClient != nil {
		telegramClient.ListenForCommands(ctx, ctrl.Snapshot)
	}

	if cfg.Feed.URL != "" {
		if err := ctrl.Connect(cfg.Feed.URL); err != nil {
			logger.Error("Failed to connect to %s: %v", cfg.Feed.URL, err)
		}
	} else {
		logger.Info("No feed.url configured, waiting for a connect request")
	}

	var srv *http.Server
	if cfg.API.Enabled {
		var archive api.Archive
		if store != nil {
			archive = store
		}
		_, srv = api.NewServer(cfg.API.Addr, ctrl, archive)
		go func() {
			logger.Info("HTTP API listening on %s", cfg.API.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("HTTP server failed: %v", err)
				stop()
			}
		}()
	}

	logger.Info("Trade stream service started (capacity: %d, highlight delay: %v)",
		cfg.Feed.Capacity, cfg.Feed.HighlightDelay)

	<-ctx.Done()
	logger.Info("Shutdown signal received, cleaning up...")

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("HTTP server shutdown: %v", err)
		}
		cancel()
	}
	if err := <-loopDone; err != nil {
		logger.Error("Stream controller: %v", err)
	}
	wg.Wait()
	logger.Info("Service stopped")
}

func rotateArchive(ctx context.Context, store *storage.Storage, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.RotateTrades()
			if err != nil {
				logger.Warn("Failed to rotate trade archive: %v", err)
				continue
			}
			if n > 0 {
				logger.Debug("Rotated %d archived trades", n)
			}
		}
	}
}
