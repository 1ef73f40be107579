package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Abdussalam-popsy/savvy-dca/internal/config"
	"github.com/Abdussalam-popsy/savvy-dca/internal/engine"
	"github.com/Abdussalam-popsy/savvy-dca/internal/notifier"
	"github.com/Abdussalam-popsy/savvy-dca/internal/prices"
	"github.com/Abdussalam-popsy/savvy-dca/internal/recorder"
	"github.com/Abdussalam-popsy/savvy-dca/internal/scheduler"
	"github.com/Abdussalam-popsy/savvy-dca/internal/server"
	"github.com/Abdussalam-popsy/savvy-dca/internal/store"
	"github.com/Abdussalam-popsy/savvy-dca/internal/strategy"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] savvy-dca starting...")

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	// Init strategy catalog
	catalog := strategy.Default()
	if cfg.Catalog.File != "" {
		catalog, err = strategy.Load(cfg.Catalog.File)
		if err != nil {
			log.Fatalf("[FATAL] load catalog: %v", err)
		}
	}

	// Init price source
	source := prices.NewStaticSource(prices.Table(cfg.Prices))
	log.Printf("[INFO] price source: %s", source.Name())

	// Init state store and engine
	fileStore, err := store.NewFileStore(cfg.Engine.StateFile)
	if err != nil {
		log.Fatalf("[FATAL] init state store: %v", err)
	}
	eng, err := engine.New(fileStore, source, engine.WithOverrun(cfg.Engine.AllowOverrun))
	if err != nil {
		log.Fatalf("[FATAL] init engine: %v", err)
	}

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	// Init notifier
	var n notifier.Notifier
	if cfg.Notify.WebhookURL != "" {
		n = notifier.NewWebhookNotifier(cfg.Notify.WebhookURL)
	} else {
		n = notifier.NewLogNotifier()
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Optional calendar-driven weekly ticks
	if cfg.Schedule.AutoTick {
		sched := scheduler.New(ctx, eng, n, rec)
		if err := sched.Register(cfg.Schedule.WeeklyCron); err != nil {
			log.Fatalf("[FATAL] register cron tasks: %v", err)
		}
		sched.Start()
		defer sched.Stop()

		if os.Getenv("RUN_ON_START") == "true" {
			log.Println("[INFO] RUN_ON_START enabled, executing weekly buy now")
			go sched.RunWeeklyNow()
		}
	}

	// HTTP API
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: server.New(eng, catalog, rec, n),
	}
	go func() {
		log.Printf("[INFO] listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[FATAL] http server: %v", err)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[ERROR] http shutdown: %v", err)
	}
	cancel()
	log.Println("[INFO] savvy-dca stopped")
}
