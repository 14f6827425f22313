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

	"github.com/emmanuel1-byte/chatpdf/internal/api"
	"github.com/emmanuel1-byte/chatpdf/internal/config"
	"github.com/emmanuel1-byte/chatpdf/internal/core"
	"github.com/emmanuel1-byte/chatpdf/internal/mail"
	"github.com/emmanuel1-byte/chatpdf/internal/session"
	"github.com/emmanuel1-byte/chatpdf/internal/store"
	"github.com/emmanuel1-byte/chatpdf/internal/vector"
)

func main() {
	// Load configuration
	config.LoadConfig()

	// Setup logging
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if config.AppConfig.LogLevel == "DEBUG" {
		log.Println("Service starting in DEBUG mode")
	}

	// Initialize database store (users + conversation log)
	dbStore, err := store.NewSQLiteStore(config.AppConfig.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer dbStore.Close()

	// Initialize LLM service
	llmService := core.NewLLMService()
	defer llmService.Close()

	// Initialize vector partition store
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	vectorStore, err := vector.NewStore(ctx, config.AppConfig.QdrantAddr,
		config.AppConfig.QdrantCollection, llmService)
	cancel()
	if err != nil {
		log.Fatalf("Failed to initialize vector store: %v", err)
	}
	defer vectorStore.Close()

	// Initialize the RAG pipeline and session registry
	pipeline := core.NewPipeline(vectorStore, llmService)
	registry := session.NewRegistry()

	mailer := mail.NewClient(config.AppConfig.PlunkSecretKey)

	// Initialize API Handler and Router
	apiHandler := api.NewAPIHandler(dbStore, vectorStore, core.NewIngestor(),
		pipeline, registry, mailer, []byte(config.AppConfig.JWTSecret))
	router := api.NewRouter(apiHandler)

	// Start HTTP server
	serverAddr := fmt.Sprintf(":%s", config.AppConfig.HTTPPort)

	srv := &http.Server{
		Addr:    serverAddr,
		Handler: router,
		// No WriteTimeout: chat sessions hold their connection open for the
		// lifetime of the client.
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
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
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting gracefully")
}
