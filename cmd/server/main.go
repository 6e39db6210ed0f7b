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

	"github.com/orderlens/order-analyzer/internal/api"
	"github.com/orderlens/order-analyzer/internal/cache"
	"github.com/orderlens/order-analyzer/internal/clock"
	"github.com/orderlens/order-analyzer/internal/config"
	"github.com/orderlens/order-analyzer/internal/core"
	"github.com/orderlens/order-analyzer/internal/logger"
	"github.com/orderlens/order-analyzer/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLog, err := logger.New(cfg.LogMode, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLog.Sync()
	appLog.Debug("service starting in DEBUG mode")

	clk := clock.System()

	// Initialize database store
	dbStore, err := store.NewSQLiteStore(cfg.DatabaseURL, clk)
	if err != nil {
		appLog.Fatal("failed to initialize database", "error", err)
	}
	defer dbStore.Close()

	var checklists store.ChecklistStore = dbStore
	if cfg.RedisAddr != "" {
		redisStore, err := store.NewRedisChecklistStore(cfg.RedisAddr, clk)
		if err != nil {
			appLog.Fatal("failed to connect to redis", "addr", cfg.RedisAddr, "error", err)
		}
		defer redisStore.Close()
		checklists = redisStore
		appLog.Info("checklists stored in redis", "addr", cfg.RedisAddr)
	}

	model, err := core.NewGeminiModel(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel, appLog)
	if err != nil {
		appLog.Fatal("failed to initialize model", "error", err)
	}
	defer model.Close()

	chatService := core.NewChatService(dbStore, model, clk, appLog)
	extractionService := core.NewExtractionService(model, cache.New(clk), checklists, clk, cfg.ChecklistTTL, appLog)

	apiHandler := api.NewAPIHandler(chatService, extractionService, appLog)
	router := api.NewRouter(apiHandler)

	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)

	// No WriteTimeout: chat replies stream for as long as the model talks.
	srv := &http.Server{
		Addr:        serverAddr,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	go func() {
		appLog.Info("starting server", "addr", serverAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal("could not listen", "addr", serverAddr, "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLog.Error("server forced to shutdown", "error", err)
		return
	}
	appLog.Info("server exiting gracefully")
}
