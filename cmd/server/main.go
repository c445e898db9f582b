package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"reader-sync/internal/config"
	"reader-sync/internal/handler"

	"github.com/joho/godotenv"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or could not be loaded: %v", err)
	}
	// Wiring
	container, err := config.NewContainer()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	// Handlers
	sessionHandler := handler.NewSessionHandler(
		container.SessionManager,
		container.Logger,
	)

	highlightHandler := handler.NewHighlightHandler(
		container.SessionManager,
		container.Logger,
	)

	// Router
	router := handler.NewRouter(
		sessionHandler,
		highlightHandler,
		handler.BearerTokenMiddleware(tokenValidator(container), container.Logger),
		container.Config.GetAllowedOrigins(),
	)

	// start server
	server := &http.Server{
		Addr:              ":" + container.Config.GetServerPort(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Run server
	go func() {
		container.Logger.Info("Server listening", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			container.Logger.Error("Server failed to start", err)
			os.Exit(1)
		}
	}()
	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	container.Logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		container.Logger.Error("Server shutdown failed", err)
	}
	if err := container.Close(); err != nil {
		container.Logger.Error("Failed to release resources", err)
	}

	container.Logger.Info("Server exited")
}

// tokenValidator checks tokens up front when the supabase backend is in use.
func tokenValidator(container *config.Container) handler.TokenValidator {
	if container.SupabaseClient == nil {
		return nil
	}
	return container.SupabaseClient
}
