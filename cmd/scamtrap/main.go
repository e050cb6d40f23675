package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/satyarth42/scamtrap/internal/classify"
	"github.com/satyarth42/scamtrap/internal/config"
	"github.com/satyarth42/scamtrap/internal/engine"
	"github.com/satyarth42/scamtrap/internal/feed"
	"github.com/satyarth42/scamtrap/internal/httpapi"
	"github.com/satyarth42/scamtrap/internal/notify"
	"github.com/satyarth42/scamtrap/internal/observability"
	"github.com/satyarth42/scamtrap/internal/persona"
	"github.com/satyarth42/scamtrap/internal/session"
	"github.com/satyarth42/scamtrap/internal/transcript"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	archive, err := transcript.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("transcript store init failed: %v", err)
	}
	defer archive.Close()

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()

	dispatcher := notify.New(cfg.CollectorURL, cfg.CollectorTimeout, cfg.CollectorQueueSize)
	if collector, ok := dispatcher.(*notify.Collector); ok {
		collector.SetEventHook(func(event string) {
			metrics.CollectorEvents.WithLabelValues(event).Inc()
		})
		collector.Start(runCtx)
		log.Printf("intelligence collector: %s", cfg.CollectorURL)
	} else {
		log.Printf("intelligence collector: disabled (no COLLECTOR_URL)")
	}

	sessions := session.NewStore(cfg.SessionIdleTimeout)
	sessions.SetEvictHook(func(_ *session.State) {
		metrics.ActiveConversations.Set(float64(sessions.Count()))
	})
	sessions.StartJanitor(runCtx, 30*time.Second)

	classifier := classify.New(classify.Weights{
		FlagWeight:  cfg.ClassifyFlagWeight,
		MatchWeight: cfg.ClassifyMatchWeight,
		Threshold:   cfg.ClassifyThreshold,
		MinFlags:    cfg.ClassifyMinFlags,
	})

	hub := feed.NewHub()
	eng := engine.New(
		sessions,
		classifier,
		persona.NewResponder(),
		dispatcher,
		archive,
		hub,
		metrics,
	)

	api := httpapi.New(cfg, eng, sessions, hub, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	runCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}
