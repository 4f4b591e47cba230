package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"gocalc/internal/api"
	"gocalc/internal/config"
	"gocalc/internal/container"
	"gocalc/ui"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Load application configuration
	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Create dependency injection container
	appContainer, err := container.Open(ctx, appConfig)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	defer appContainer.Shutdown(context.Background())

	// Initialize web server
	server, err := ui.NewServer(appConfig, appContainer.Calculator, appContainer.Reports, appContainer.Exporter, appContainer.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize server: %v", err)
	}

	// The JSON API runs next to the UI on its own port
	apiServer := &http.Server{
		Addr:              ":" + appConfig.API.Port,
		Handler:           api.NewServer(appConfig, appContainer.Calculator, appContainer.Reports, appContainer.Exporter, appContainer.Logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		appContainer.Logger.Info("API listening on %s", apiServer.Addr)
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Println("Shutting down servers...")
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("UI shutdown: %v", err)
		}
		return apiServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
