package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"loan-predictor/internal/cfg"
	"loan-predictor/internal/metrics"
	"loan-predictor/internal/ml"
	"loan-predictor/internal/storage"
	"loan-predictor/internal/web"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := cfg.LoadEnvFile(".env"); err != nil {
		log.Warn().Err(err).Msg("ignoring .env file")
	}

	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	setupLogging(c)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New()
	mw := metrics.NewWrapper(m)

	store := initializeStorage(c)
	if store != nil {
		defer store.Close()
	}

	// Load failures leave the slot empty; the server still starts and
	// answers predictions with "model unavailable".
	models := ml.LoadModels(c.ModelPaths(), mw)
	recordModelLoads(store, models)
	if !models.Ready() {
		log.Warn().Msg("Serving without a complete model pair, predictions will be refused")
	}

	scorer := ml.NewScorer(models, c.DecisionPolicy, mw)

	hub := web.NewHub(mw)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		hub.Run()
	}()

	// A nil *storage.Store must not become a non-nil interface.
	var history web.LoadHistory
	if store != nil {
		history = store
	}

	server := web.NewServer(scorer, hub, history, mw, web.Config{
		Addr:         c.Addr(),
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
	})

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := server.Start(); err != nil {
			log.Error().Err(err).Msg("HTTP server failed")
			cancel()
		}
	}()

	waitForShutdown(ctx, cancel, server, &wg)
}

// setupLogging applies the configured level and output format.
func setupLogging(c cfg.Settings) {
	level, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano
	if c.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

// initializeStorage opens the load history store if DATA_PATH is configured
func initializeStorage(c cfg.Settings) *storage.Store {
	if c.DataPath == "" {
		return nil
	}
	if err := os.MkdirAll(c.DataPath, 0o755); err != nil {
		log.Warn().Err(err).Msg("storage initialization failed, continuing without persistence")
		return nil
	}
	store, err := storage.New(c.DataPath)
	if err != nil {
		log.Warn().Err(err).Msg("storage initialization failed, continuing without persistence")
		return nil
	}
	return store
}

func recordModelLoads(store *storage.Store, models *ml.Models) {
	if store == nil {
		return
	}
	for _, st := range models.Status() {
		err := store.RecordModelLoad(storage.ModelLoadRecord{
			Model:    st.Model,
			Path:     st.Path,
			Loaded:   st.Loaded,
			Error:    st.Error,
			Name:     st.Name,
			Version:  st.Version,
			Kind:     string(st.Kind),
			SHA256:   st.SHA256,
			LoadedAt: st.LoadedAt,
		})
		if err != nil {
			log.Warn().Err(err).Str("model", st.Model).Msg("failed to record model load")
		}
	}
}

// waitForShutdown blocks until a signal or a server failure, then drains
// the HTTP server and the decision feed.
func waitForShutdown(ctx context.Context, cancel context.CancelFunc, server *web.Server, wg *sync.WaitGroup) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Info().Msg("shutdown signal received")
	case <-ctx.Done():
		log.Info().Msg("context canceled")
	}

	log.Info().Msg("shutting down gracefully...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to shutdown HTTP server")
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info().Msg("all goroutines stopped")
	case <-shutdownCtx.Done():
		log.Warn().Msg("shutdown timeout, forcing exit")
	}
}
