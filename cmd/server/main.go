package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anshmangla/logger/internal/auth"
	"github.com/anshmangla/logger/internal/config"
	"github.com/anshmangla/logger/internal/database"
	"github.com/anshmangla/logger/internal/handlers"
	"github.com/anshmangla/logger/internal/services"
	"github.com/anshmangla/logger/internal/storage"
)

func main() {
	httpPort := flag.String("http-port", "", "HTTP port (overrides HTTP_PORT)")
	flag.Parse()

	cfg := config.LoadConfig()
	if *httpPort != "" {
		cfg.HTTPPort = *httpPort
	}

	log.Println("Starting...")
	log.Printf("HTTP port: %s", cfg.HTTPPort)
	log.Printf("Allowed origin: %s", cfg.AllowedOrigin)
	log.Printf("Upload dir: %s", cfg.UploadDir)
	log.Printf("Database: %s", cfg.DSNForLog())
	log.Printf("Environment: %s", cfg.Environment)

	db, err := database.Open(cfg.DSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	uploads, err := storage.New(cfg.UploadDir)
	if err != nil {
		log.Fatalf("Failed to prepare upload directory: %v", err)
	}

	h := handlers.New(
		cfg,
		auth.DefaultVerifier(),
		auth.NewMemoryStore(),
		database.NewStore(db),
		uploads,
		services.GetMetrics(),
		db,
	)

	httpServer := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      h.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("HTTP server listening on port %s", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to serve HTTP: %v", err)
		}
	}()

	<-done
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down HTTP server: %v", err)
	} else {
		log.Println("HTTP server gracefully stopped")
	}

	log.Println("Goodbye!")
}
