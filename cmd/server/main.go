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

	"docvault.io/docvault/internal/api"
	"docvault.io/docvault/internal/chunker"
	"docvault.io/docvault/internal/config"
	"docvault.io/docvault/internal/core"
	"docvault.io/docvault/internal/crypto"
	"docvault.io/docvault/internal/embed"
	"docvault.io/docvault/internal/store"
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

	// Initialize embedding service
	embedder, err := embed.NewGeminiEmbedder(context.Background(),
		config.AppConfig.GeminiAPIKey, config.AppConfig.EmbeddingModel, config.AppConfig.EmbeddingDim)
	if err != nil {
		log.Fatalf("Failed to initialize embedder: %v", err)
	}
	defer embedder.Close()

	// Initialize at-rest encryption
	if config.AppConfig.EncryptionKey == "" {
		log.Println("ENCRYPTION_KEY not set, using an ephemeral key; stored files will be unreadable after restart")
	}
	encryptor, err := crypto.NewAESEncryptor(config.AppConfig.EncryptionKey)
	if err != nil {
		log.Fatalf("Failed to initialize encryptor: %v", err)
	}

	// Initialize services
	textChunker := chunker.New(config.AppConfig.ChunkSize, config.AppConfig.ChunkOverlap)
	typeService := core.NewTypeService(dbStore)
	fileService := core.NewFileService(dbStore, embedder, encryptor, textChunker, config.AppConfig.EmbedConcurrency)
	searchService := core.NewSearchService(dbStore, embedder, config.AppConfig.SearchTopK)

	// Initialize API Handler and Router
	apiHandler := api.NewAPIHandler(typeService, fileService, searchService)
	router := api.NewRouter(apiHandler)

	// Start HTTP server
	serverAddr := fmt.Sprintf(":%s", config.AppConfig.HTTPPort)

	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second, // Uploads can carry large bodies
		WriteTimeout: 60 * time.Second, // Embedding calls can take time
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

	// Give active connections time to finish before forcing the exit.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting gracefully")
}
