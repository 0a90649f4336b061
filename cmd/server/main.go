package main

import (
	"context"
	"errors"
	"fmt"
	"go-taxonomy-service/internal/cache"
	"go-taxonomy-service/internal/config"
	"go-taxonomy-service/internal/data"
	"go-taxonomy-service/internal/handler"
	"go-taxonomy-service/internal/logger"
	"go-taxonomy-service/internal/middleware"
	"go-taxonomy-service/internal/service"
	"go-taxonomy-service/internal/snowflake"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	// --- Configuration Loading ---
	cfg, err := config.LoadConfig()
	if err != nil {
		// Use fmt.Printf here because the logger is not yet initialized.
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// --- Logger Initialization ---
	log := logger.New(cfg.Log, os.Stdout)

	// --- Database Initialization and Migration ---
	log.Info("Applying database migrations...")
	if err := data.ApplyMigrations(cfg.DB.Driver, cfg.DB.DSN, "migrations"); err != nil {
		log.Fatal(err, "Failed to apply migrations")
	}
	log.Info("Migrations applied successfully.")

	log.Info("Connecting to the database...")
	db, err := data.NewDB(cfg.DB.Driver, cfg.DB.DSN)
	if err != nil {
		log.Fatal(err, "Failed to connect to database")
	}
	defer db.Close()
	log.Info("Database connection successful.")

	// --- Cache Initialization ---
	log.Info("Initializing SQLite cache...")
	readCache, err := cache.New(cfg.Cache)
	if err != nil {
		log.Fatal(err, "Failed to initialize cache")
	}
	defer readCache.Close()
	log.Info("Cache initialized.")

	// --- Identifier Generator Initialization ---
	// One generator instance is shared by everything in this process; two
	// independent instances must never share a machine id.
	generator, err := snowflake.New(cfg.Snowflake.MachineID)
	if err != nil {
		log.Fatal(err, "Failed to initialize snowflake generator")
	}
	log.With(map[string]interface{}{"machine_id": cfg.Snowflake.MachineID}).Info("Snowflake generator initialized.")

	// --- Dependency Injection and Handler Initialization ---
	// Initialize the application layers, injecting dependencies from top to bottom.
	categoryRepository := data.NewCategoryRepository(db)
	postRepository := data.NewPostRepository(db)
	tagRepository := data.NewTagRepository(db)
	taxonomyService := service.NewTaxonomyService(categoryRepository, generator, readCache)
	postService := service.NewPostService(postRepository, tagRepository, taxonomyService, generator)
	categoryHandler := handler.NewCategoryHandler(taxonomyService, log)
	postHandler := handler.NewPostHandler(postService, log)
	idHandler := handler.NewIDHandler(generator)

	errorMiddleware := middleware.Error(log)

	// --- Router Setup ---
	// The router is the central hub that directs incoming requests to the correct handlers.
	router := handler.NewRouter(categoryHandler, postHandler, idHandler, errorMiddleware)

	// --- Server Initialization and Graceful Shutdown ---
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}
	go func() {
		if cfg.Server.TLS.Enabled {
			log.Info(fmt.Sprintf("Starting HTTPS server on %s", server.Addr))
			if err := server.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal(err, "Could not start HTTPS server")
			}
		} else {
			log.Info(fmt.Sprintf("Starting HTTP server on %s", server.Addr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal(err, "Could not start HTTP server")
			}
		}
	}()
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Warn("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatal(err, "Server forced to shutdown")
	}
	log.Info("Server exiting")
}
