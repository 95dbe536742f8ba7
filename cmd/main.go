/*
Package main runs the chat server.

It loads configuration, initialises logging, opens the database (applying
migrations), optionally connects object storage, starts the chat hub and
serves HTTP until SIGINT or SIGTERM, then shuts the server and the hub down
in that order.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"moodchat/internal/app/chat"
	"moodchat/internal/app/db"
	"moodchat/internal/app/storage"
	"moodchat/internal/app/user"
	"moodchat/internal/configs"
	"moodchat/internal/handler"
	"moodchat/internal/pkg/logx"
)

func main() {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logx.InitGlobalLogger(logx.Options{Level: cfg.LogLevel, Pretty: cfg.IsDevelopment()})
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Bool("storage_enabled", cfg.StorageEnabled()).
		Msg("configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
	if err != nil {
		logx.Fatal(err, "database initialisation failed")
	}
	defer pool.Close()

	queries := db.New(pool)
	for _, seed := range cfg.SeedUsers {
		u := user.User{ID: seed.ID, FirstName: seed.FirstName, LastName: seed.LastName}
		if err := queries.UpsertUser(ctx, u); err != nil {
			logx.Fatal(err, "failed to seed user", "user_id", seed.ID)
		}
		logx.Info("seeded user", "user_id", seed.ID)
	}

	var store storage.StorageService
	if cfg.StorageEnabled() {
		store, err = storage.NewStorageService(ctx, storage.ServiceConfig{
			BucketName:      cfg.S3BucketName,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
		if err != nil {
			logx.Fatal(err, "object storage initialisation failed")
		}
	} else {
		logx.Warn("S3 settings incomplete, voice and file uploads are disabled")
	}

	hub := chat.NewHub(queries, chat.HubConfig{
		PersistTimeout: cfg.PersistTimeout,
		SendBuffer:     cfg.SendBuffer,
		DispatchQueue:  cfg.DispatchQueue,
	})

	router := handler.Router(&handler.AppDeps{
		Hub:     hub,
		Config:  cfg,
		History: queries,
		Users:   queries,
		Storage: store,
	})

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logx.Info("chat server listening", "addr", serverAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Fatal(err, "server failed to start")
		}
	}()

	<-ctx.Done()
	logx.Info("received shutdown signal, starting graceful shutdown")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	// Hijacked sockets are not tracked by the server; the hub closes them.
	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "http server shutdown incomplete")
	}
	if err := hub.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "hub shutdown incomplete")
	}

	logx.Info("server stopped")
}
