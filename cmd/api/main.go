package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/passage-engine/internal/config"
	"github.com/jwebster45206/passage-engine/internal/handlers"
	"github.com/jwebster45206/passage-engine/internal/logger"
	"github.com/jwebster45206/passage-engine/internal/middleware"
	"github.com/jwebster45206/passage-engine/internal/storage"
	"github.com/jwebster45206/passage-engine/pkg/dice"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Passage Engine API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"session_store", cfg.SessionStore,
		"data_dir", cfg.DataDir)

	// Every story must load cleanly before the server accepts traffic
	library := storage.NewLibrary(cfg.DataDir, log)
	loadCtx, loadCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer loadCancel()
	if err := library.LoadAll(loadCtx); err != nil {
		log.Error("Story validation failed", "dir", library.Dir(), "error", err)
		os.Exit(1)
	}
	if _, err := library.GetStory(loadCtx, cfg.DefaultStory); err != nil {
		log.Error("Default story not available", "story", cfg.DefaultStory, "error", err)
		os.Exit(1)
	}
	log.Info("Stories loaded", "dir", library.Dir())

	var store storage.Storage
	switch cfg.SessionStore {
	case config.StoreRedis:
		rs, err := storage.NewRedisStorage(cfg.RedisURL, cfg.SessionTTL, log)
		if err != nil {
			log.Error("Failed to configure redis storage", "error", err)
			os.Exit(1)
		}
		storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer storageCancel()
		if err := rs.WaitForConnection(storageCtx, 30, 2*time.Second); err != nil {
			log.Error("Failed to connect to storage", "error", err)
			os.Exit(1)
		}
		store = rs
	default:
		store = storage.NewMemoryStorage(cfg.SessionTTL)
	}
	log.Info("Storage ready", "store", cfg.SessionStore, "ttl", cfg.SessionTTL)

	roller := dice.NewRandom(cfg.DiceSeed)

	mux := http.NewServeMux()

	mux.Handle("/health", handlers.NewHealthHandler(store, library, log))

	storyHandler := handlers.NewStoryHandler(library, log)
	mux.Handle("/v1/stories", storyHandler)
	mux.Handle("/v1/stories/", storyHandler)

	sessionHandler := handlers.NewSessionHandler(library, store, roller, cfg.DefaultStory, log)
	mux.Handle("/v1/sessions", sessionHandler)
	mux.Handle("/v1/sessions/", sessionHandler)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      middleware.Logger(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}

	log.Info("Server exited")
}
