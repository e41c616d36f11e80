// Package main provides the HTTP API server for sigdebate.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/signalboard/sigdebate/internal/config"
	"github.com/signalboard/sigdebate/internal/db"
	"github.com/signalboard/sigdebate/internal/debate"
	"github.com/signalboard/sigdebate/internal/llm"
	"github.com/signalboard/sigdebate/internal/server"
	"github.com/signalboard/sigdebate/internal/store"
)

func main() {
	wipeDB := flag.Bool("wipe", false, "wipe all data from database on startup (testing only)")
	flag.Parse()

	// .env is optional, env vars win
	_ = godotenv.Load()

	cfg := config.Load()

	logger, closeLog := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	defer closeLog()
	slog.SetDefault(logger)

	logger.Info("starting sigdebate-server", "addr", cfg.ListenAddr, "store", cfg.Store, "provider", cfg.LLMProvider)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	debateStore, closeStore, err := buildStore(ctx, cfg, logger, *wipeDB)
	cancel()
	if err != nil {
		logger.Error("failed to initialize store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	roster, err := buildRoster(cfg)
	if err != nil {
		logger.Error("failed to load roster", "error", err)
		os.Exit(1)
	}

	generator, classifier, err := buildCollaborators(cfg, roster)
	if err != nil {
		logger.Error("failed to initialize LLM backend", "error", err)
		os.Exit(1)
	}

	coordinator := debate.NewCoordinator(debateStore, generator, classifier, roster, logger, nil)
	coordinator.GenerateTimeout = cfg.GenerateTimeout

	srv := server.New(coordinator, logger)
	httpServer := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Minute, // run endpoint blocks on several LLM calls
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("API available", "url", "http://localhost"+cfg.ListenAddr+"/api")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// buildStore selects the persistence backend from config.
func buildStore(ctx context.Context, cfg config.Config, logger *slog.Logger, wipe bool) (debate.Store, func(), error) {
	switch cfg.Store {
	case config.StoreMemory:
		return store.NewMemory(), func() {}, nil

	default:
		client, err := db.NewClient(ctx, db.Config{
			URL:       cfg.SurrealDBURL,
			Namespace: cfg.SurrealDBNamespace,
			Database:  cfg.SurrealDBDatabase,
			Username:  cfg.SurrealDBUser,
			Password:  cfg.SurrealDBPass,
			AuthLevel: cfg.SurrealDBAuthLevel,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := client.InitSchema(ctx); err != nil {
			client.Close(context.Background())
			return nil, nil, err
		}
		if wipe || os.Getenv("SIGDEBATE_WIPE_DB") == "true" {
			if err := client.WipeData(ctx); err != nil {
				client.Close(context.Background())
				return nil, nil, err
			}
		}
		closeDB := func() {
			if err := client.Close(context.Background()); err != nil {
				logger.Error("failed to close database", "error", err)
			}
		}
		return client, closeDB, nil
	}
}

// buildRoster loads the roster file when configured, otherwise builds the
// default roster with the configured number of debate rounds.
func buildRoster(cfg config.Config) (*debate.Roster, error) {
	if cfg.RosterFile != "" {
		return debate.LoadRoster(cfg.RosterFile)
	}
	return debate.NewRoster(cfg.DebateRounds), nil
}

// buildCollaborators wires the generator and consensus classifier. The
// "static:<bool>" consensus mode pins the consensus verdict without an LLM
// round trip, which keeps offline runs deterministic.
func buildCollaborators(cfg config.Config, roster *debate.Roster) (debate.Generator, debate.Classifier, error) {
	if cfg.LLMProvider == config.ProviderNone {
		return nil, nil, nil
	}

	model, err := llm.NewModel(cfg)
	if err != nil {
		return nil, nil, err
	}

	var classifier debate.Classifier = llm.NewClassifier(model)
	if mode, ok := strings.CutPrefix(cfg.ConsensusMode, "static:"); ok {
		verdict, err := strconv.ParseBool(mode)
		if err != nil {
			return nil, nil, err
		}
		classifier = debate.StaticClassifier(verdict)
	}

	return llm.NewGenerator(model, roster), classifier, nil
}
