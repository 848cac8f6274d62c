package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rewired-gh/tradestream/internal/logger"
	"github.com/rewired-gh/tradestream/internal/producer"
)

var (
	addr     = flag.String("addr", ":8080", "Listen address")
	interval = flag.Duration("interval", time.Second, "Delay between trades per client")
	logLevel = flag.String("log-level", "info", "Log level")
)

func main() {
	flag.Parse()

	if err := logger.Init(logger.Config{Level: *logLevel, Format: "text"}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gen := producer.NewGenerator(uint64(time.Now().UnixNano()))
	srv := &http.Server{
		Addr:    *addr,
		Handler: producer.NewHandler(gen, *interval),
	}

	go func() {
		logger.Info("Mock WebSocket server started on ws://localhost%s", *addr)
		logger.Info("Sending mock trade data every %v...", *interval)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("WebSocket server error: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	// Hijacked WebSocket connections are not tracked by Shutdown.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Shutdown: %v", err)
	}
}
