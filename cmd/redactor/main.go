// Command redactor runs the PII redaction engine's management API.
//
// It wires together the pattern registry, neural recognizer, generative
// reviewer, session store, and entity registry into one engine and exposes
// runtime inspection/configuration over HTTP (see internal/management).
// Detection and document redaction themselves are reached through
// internal/redactor.Service, which an embedding dispatch layer (CLI, RPC,
// plugin host) calls directly rather than over this process's network
// surface.
//
// Usage:
//
//	./redactor
//
//	# Custom management port, durable session store
//	MANAGEMENT_PORT=9090 SESSION_DURABLE_FILE=sessions.db ./redactor
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

	"pii-redaction-engine/internal/config"
	"pii-redaction-engine/internal/engine"
	"pii-redaction-engine/internal/generative"
	"pii-redaction-engine/internal/logger"
	"pii-redaction-engine/internal/management"
	"pii-redaction-engine/internal/metrics"
	"pii-redaction-engine/internal/neural"
	"pii-redaction-engine/internal/recognizers"
	"pii-redaction-engine/internal/session"
)

func main() {
	cfg := config.Load()
	lg := logger.New("ENGINE", cfg.LogLevel)

	printBanner(cfg)

	patterns := recognizers.NewRegistry(lg)
	if cfg.CustomPatternsFile != "" {
		if err := patterns.LoadCustomPatterns(cfg.CustomPatternsFile); err != nil {
			lg.Warnf("init", "failed to load custom patterns from %s: %v", cfg.CustomPatternsFile, err)
		}
	}

	neuralRec := buildNeuralRecognizer(cfg, lg)
	reviewer := buildGenerativeReviewer(cfg, lg)
	sessions := buildSessionStore(cfg, lg)

	// Entity registry is constructed before the engine and mutates it
	// through the EntityFilter closure, so disable/enable calls made at
	// management runtime take effect on the engine's very next call.
	entities := management.NewEntityRegistry(cfg.DisabledEntityTypes, "disabled-entities.json", lg)

	m := metrics.New()

	eng := engine.New(patterns, neuralRec, reviewer, sessions, m, lg, cfg.ScoreThreshold, entities.Filter())

	mgmt := management.New(eng, entities, m, cfg.ManagementPort, cfg.ManagementToken, lg)
	srv := &http.Server{
		Addr:              fmt.Sprintf("127.0.0.1:%d", cfg.ManagementPort),
		Handler:           mgmt.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[MANAGEMENT] Fatal: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	lg.Infof("shutdown", "shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		lg.Errorf("shutdown", "error: %v", err)
	}
}

func buildNeuralRecognizer(cfg *config.Config, lg *logger.Logger) neural.Recognizer {
	if !cfg.UseNeuralRecognizer {
		return neural.Disabled{}
	}
	return neural.New(neural.Config{
		ModelPath:       cfg.NeuralModelPath,
		ModelName:       cfg.NeuralModelName,
		OnnxLibraryPath: cfg.NeuralOnnxLibrary,
		Timeout:         10 * time.Second,
	}, lg)
}

func buildGenerativeReviewer(cfg *config.Config, lg *logger.Logger) generative.Reviewer {
	if !cfg.UseGenerativeReviewer {
		return generative.Disabled{}
	}
	return generative.NewHTTPReviewer(
		cfg.GenerativeEndpoint,
		cfg.GenerativeModel,
		cfg.GenerativeTimeout,
		cfg.GenerativeCacheFile,
		cfg.GenerativeCacheCapacity,
		cfg.GenerativeMaxConcurrent,
		lg,
	)
}

func buildSessionStore(cfg *config.Config, lg *logger.Logger) session.Store {
	if cfg.SessionDurableFile == "" {
		return session.NewMemory(cfg.SessionTTL, lg)
	}
	store, err := session.NewDurable(cfg.SessionDurableFile, cfg.SessionTTL, lg)
	if err != nil {
		lg.Warnf("init", "durable session store unavailable, falling back to in-memory: %v", err)
		return session.NewMemory(cfg.SessionTTL, lg)
	}
	return store
}

func printBanner(cfg *config.Config) {
	fmt.Printf(`
╔══════════════════════════════════════════════════════╗
║          PII Redaction Engine  (Go)                   ║
╚══════════════════════════════════════════════════════╝
  Management port   : %d
  Score threshold    : %.2f
  Neural recognizer  : %v
  Generative review  : %v
  Session TTL        : %s
  Durable sessions    : %s

  Check status:
    curl http://localhost:%d/status
`, cfg.ManagementPort, cfg.ScoreThreshold,
		cfg.UseNeuralRecognizer, cfg.UseGenerativeReviewer,
		cfg.SessionTTL, orNone(cfg.SessionDurableFile),
		cfg.ManagementPort)
}

func orNone(s string) string {
	if s == "" {
		return "(in-memory)"
	}
	return s
}
