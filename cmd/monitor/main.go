package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/time/rate"

	"github.com/8nevil8/telegram-channel-monitor/config"
	httpDelivery "github.com/8nevil8/telegram-channel-monitor/internal/delivery/http"
	"github.com/8nevil8/telegram-channel-monitor/internal/domain"
	"github.com/8nevil8/telegram-channel-monitor/internal/infrastructure/cache"
	"github.com/8nevil8/telegram-channel-monitor/internal/infrastructure/store"
	"github.com/8nevil8/telegram-channel-monitor/internal/infrastructure/telegram"
	"github.com/8nevil8/telegram-channel-monitor/internal/usecase"
)

func main() {
	historyLimit := flag.Int("history", 0, "scan up to N recent messages and exit (0 runs the live monitor)")
	flag.Parse()

	// Load .env if present; real environment variables win
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting Telegram Channel Monitor v1.0.0")
	log.Printf("Environment: %s", cfg.Server.Environment)
	log.Printf("Channels: %d, Products: %d", len(cfg.Channels), len(cfg.Products))

	// Compile the matcher. Malformed rules are disabled individually and
	// reported here; well-formed rules keep working.
	matcher, compileErrs := usecase.NewMatcherService(
		cfg.Products,
		cfg.PricePatterns,
		cfg.PriceNumberFormat,
		usecase.MatcherConfig{
			Matching:           cfg.Matching,
			EnableDebugLogging: cfg.Monitoring.DebugLogging,
		},
	)
	for _, cerr := range compileErrs {
		log.Printf("[CONFIG] rule disabled: %v", cerr)
	}

	// Initialize infrastructure dependencies
	client := telegram.NewClient(
		cfg.Telegram.BotToken,
		cfg.Telegram.BaseURL,
		rate.Limit(cfg.RateLimit.Telegram),
		cfg.Telegram.PollTimeout,
	)
	if cfg.Server.Environment == "development" {
		client.SetDebug(true)
		log.Printf("Telegram client debug mode enabled")
	}

	source := telegram.NewSource(client, cfg.Channels)

	var notifier domain.NotificationSender
	if cfg.Notifications.Enabled && cfg.Notifications.ChatID != "" {
		notifier = telegram.NewNotifier(
			client,
			cfg.Notifications.ChatID,
			cfg.Notifications.IncludeLink,
			cfg.Notifications.IncludeKeywords,
		)
	} else {
		log.Printf("WARNING: notifications disabled (enabled=%v, chat_id set=%v)",
			cfg.Notifications.Enabled, cfg.Notifications.ChatID != "")
	}

	var matches domain.MatchRepository
	var matchStore *store.Store
	if cfg.Monitoring.SaveMatches {
		if dir := filepath.Dir(cfg.Monitoring.DatabasePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				log.Fatalf("Failed to create database directory: %v", err)
			}
		}
		matchStore, err = store.Open(cfg.Monitoring.DatabasePath)
		if err != nil {
			log.Fatalf("Failed to open match database: %v", err)
		}
		defer matchStore.Close()
		matches = matchStore
		log.Printf("Match database: %s", cfg.Monitoring.DatabasePath)
	}

	seen := cache.NewMemoryCache()

	// Initialize usecase layer
	monitor := usecase.NewMonitorService(matcher, source, notifier, matches, seen,
		usecase.MonitorConfig{
			MaxAgeDays:  cfg.Monitoring.MaxAgeDays,
			SaveMatches: cfg.Monitoring.SaveMatches,
			DedupeTTL:   cfg.Monitoring.DedupeTTL,
			NotifyRate:  rate.Limit(cfg.RateLimit.Telegram),
		})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if matchStore != nil && cfg.Monitoring.RetentionDays > 0 {
		go matchStore.RunRetention(ctx,
			time.Duration(cfg.Monitoring.RetentionDays)*24*time.Hour, 24*time.Hour)
	}

	source.Validate(ctx)

	// One-shot history scan mode
	if *historyLimit > 0 {
		if _, err := monitor.ScanHistory(ctx, *historyLimit); err != nil {
			log.Fatalf("History scan failed: %v", err)
		}
		return
	}

	// Scan the retained backlog once before going live
	if cfg.Monitoring.HistoryLimit > 0 {
		if _, err := monitor.ScanHistory(ctx, cfg.Monitoring.HistoryLimit); err != nil {
			log.Printf("[MONITOR] initial history scan failed: %v", err)
		}
	}

	// Start the HTTP API alongside the monitor
	handler := httpDelivery.NewHandler(matcher, matches)
	router := httpDelivery.SetupRouter(cfg, handler)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}
	go func() {
		log.Printf("Server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Run the live monitor until interrupted
	if err := monitor.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("[MONITOR] stopped: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	log.Printf("Shutdown complete")
}

func init() {
	// Set log flags for better debugging
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.SetOutput(os.Stdout)
}
