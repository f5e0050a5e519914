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

	"mukha.dev/mukha-chat/internal/api"
	"mukha.dev/mukha-chat/internal/auth"
	"mukha.dev/mukha-chat/internal/config"
	"mukha.dev/mukha-chat/internal/core"
	"mukha.dev/mukha-chat/internal/store"
)

func main() {
	// Load configuration
	config.LoadConfig()

	// Setup logging
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if config.AppConfig.LogLevel == "DEBUG" {
		log.Println("Service starting in DEBUG mode")
	}

	// Initialize database store
	dbStore, err := store.NewSQLiteStore(config.AppConfig.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer dbStore.Close()

	// Seed the operator account if configured. Idempotent: existing
	// accounts are promoted, not duplicated.
	if config.AppConfig.SeedAdminEmail != "" {
		if err := seedAdmin(dbStore); err != nil {
			log.Fatalf("Failed to seed admin account: %v", err)
		}
	}

	// Initialize LLM service
	llmService := core.NewLLMService()
	defer llmService.Close()

	// Initialize core services
	accountService := core.NewAccountService(dbStore, core.AdminPolicy{
		BootstrapEmails:  config.AppConfig.AdminEmails,
		RestrictedEmails: config.AppConfig.RestrictedEmails,
	})
	chatService := core.NewChatService(dbStore, llmService)

	// Initialize API Handler and Router
	apiHandler := api.NewAPIHandler(accountService, chatService)
	router := api.NewRouter(apiHandler)

	// Start HTTP server
	serverAddr := fmt.Sprintf(":%s", config.AppConfig.HTTPPort)

	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // LLM calls can take time
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown handling
	go func() {
		log.Printf("Starting server on %s. Press Ctrl+C to quit.", serverAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", serverAddr, err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give active connections time to finish.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting gracefully")
}

func seedAdmin(dbStore *store.SQLiteStore) error {
	passwordHash, err := auth.HashPassword(config.AppConfig.SeedAdminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash seed password: %w", err)
	}

	var displayName *string
	if config.AppConfig.SeedAdminName != "" {
		displayName = &config.AppConfig.SeedAdminName
	}

	admin, err := dbStore.UpsertAdmin(config.AppConfig.SeedAdminEmail, passwordHash, displayName)
	if err != nil {
		return err
	}
	log.Printf("Admin user seeded/updated: %s", admin.Email)
	return nil
}
