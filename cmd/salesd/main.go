package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"sales-forecast-api/internal/api"
	"sales-forecast-api/internal/audit"
	"sales-forecast-api/internal/cfg"
	"sales-forecast-api/internal/forecast"
	"sales-forecast-api/internal/metrics"
	"sales-forecast-api/internal/ml"
	"sales-forecast-api/internal/storage"
)

func main() {
	// .env is optional; explicit environment variables win either way.
	_ = godotenv.Load()

	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New()

	auditStore, err := audit.Open(c.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("audit store initialization failed")
	}
	defer auditStore.Close()
	auditLogger := audit.NewLogger(auditStore, m)

	history := initializeHistory(c)
	if history != nil {
		defer history.Close()
	}
	var recorder forecast.Recorder
	if history != nil {
		recorder = history
	}

	// The scorer starts empty and the server comes up immediately;
	// /predict returns 503 until the model finishes loading.
	scorer := ml.NewScorer(m)
	go loadModel(scorer, c)

	svc := forecast.NewService(scorer, recorder)
	server := api.NewServer(svc, m)

	srv := &http.Server{
		Addr:              c.Addr(),
		Handler:           server.Router(auditLogger),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", c.Addr()).
			Str("title", c.APITitle).
			Str("version", c.APIVersion).
			Msg("starting sales forecast API")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("http server failed")
			cancel()
		}
	}()

	waitForShutdown(ctx, srv)
}

// initializeHistory opens the prediction history store if DATA_PATH is
// configured.
func initializeHistory(c cfg.Settings) *storage.Store {
	if c.DataPath == "" {
		return nil
	}
	store, err := storage.New(c.DataPath)
	if err != nil {
		log.Warn().Err(err).Msg("history store initialization failed, continuing without prediction history")
		return nil
	}
	return store
}

// loadModel loads the model artifact and attaches it to the scorer. A
// load failure leaves the scorer not-ready so requests keep getting a
// clear 503 instead of garbage predictions.
func loadModel(scorer *ml.Scorer, c cfg.Settings) {
	booster, err := ml.LoadBooster(c.ModelPath, c.PythonPath, c.ScoreTimeout)
	if err != nil {
		log.Error().Err(err).Str("model_path", c.ModelPath).Msg("model load failed, predict endpoint stays unavailable")
		return
	}
	scorer.Attach(booster)
}

func waitForShutdown(ctx context.Context, srv *http.Server) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		log.Info().Str("signal", s.String()).Msg("shutting down")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
}
