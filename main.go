package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"leaguesync/internal/config"
	"leaguesync/internal/container"
	"leaguesync/internal/handler"
	"leaguesync/pkg/logger"
)

// Resources holds all resources that need cleanup
type Resources struct {
	container *container.Container
	server    *http.Server
	// stopBackground cancels the scheduler and the event consumer
	stopBackground context.CancelFunc
	schedulerDone  <-chan struct{}
	log            *logger.Logger
	mu             sync.Mutex
	closed         bool
}

// Cleanup gracefully closes all resources
func (r *Resources) Cleanup(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	var errors []error

	r.log.Info("Starting graceful shutdown...")

	// Shutdown HTTP server first to stop accepting new requests
	if r.server != nil {
		r.log.Info("Shutting down HTTP server...")
		if err := r.server.Shutdown(ctx); err != nil {
			r.log.WithError(err).Error("Failed to shutdown HTTP server")
			errors = append(errors, fmt.Errorf("HTTP server shutdown: %w", err))
		} else {
			r.log.Info("HTTP server shutdown complete")
		}
	}

	// Let an in-flight sync pass observe cancellation before the stores go away
	if r.stopBackground != nil {
		r.log.Info("Stopping scheduler...")
		r.stopBackground()
		select {
		case <-r.schedulerDone:
			r.log.Info("Scheduler stopped")
		case <-ctx.Done():
			r.log.Warn("Scheduler did not stop before shutdown deadline")
			errors = append(errors, fmt.Errorf("scheduler shutdown: %w", ctx.Err()))
		}
	}

	if c := r.container; c != nil {
		healthCtx, healthCancel := context.WithTimeout(ctx, 2*time.Second)
		if c.HasRedis() {
			if err := c.RedisClient.Health(healthCtx); err != nil {
				r.log.WithError(err).Warn("Redis health check failed before closing")
			}
		}
		if c.DB != nil {
			if err := c.DB.Health(healthCtx); err != nil {
				r.log.WithError(err).Warn("Database health check failed before closing")
			}
		}
		healthCancel()

		r.log.Info("Closing event bus, Redis and database connections...")
		if err := c.Close(); err != nil {
			r.log.WithError(err).Error("Failed to close connections")
			errors = append(errors, err)
		} else {
			r.log.Info("Connections closed successfully")
		}
	}

	if len(errors) > 0 {
		r.log.WithField("error_count", len(errors)).Error("Cleanup completed with errors")
		return fmt.Errorf("cleanup completed with %d errors: %v", len(errors), errors)
	}

	r.log.Info("Graceful shutdown completed successfully")
	return nil
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.WithFields(map[string]interface{}{
		"port":        cfg.Port,
		"log_level":   cfg.LogLevel,
		"environment": cfg.Environment,
		"categories":  len(cfg.Categories),
	}).Info("Starting leaguesync server")

	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	c, err := container.New(initCtx, cfg, log)
	initCancel()
	if err != nil {
		log.WithError(err).Fatal("Failed to create container")
	}

	bgCtx, stopBackground := context.WithCancel(context.Background())
	if err := c.Start(bgCtx); err != nil {
		stopBackground()
		_ = c.Close()
		log.WithError(err).Fatal("Failed to start notification consumer")
	}

	schedulerDone := make(chan struct{})
	go func() {
		defer close(schedulerDone)
		c.Services.Scheduler.Run(bgCtx)
	}()

	server := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        handler.NewRouter(c),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   60 * time.Second, // a manual sync can take a while
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	// Create resources manager for cleanup
	resources := &Resources{
		container:      c,
		server:         server,
		stopBackground: stopBackground,
		schedulerDone:  schedulerDone,
		log:            log,
	}

	// Setup graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := resources.Cleanup(cleanupCtx); err != nil {
			log.WithError(err).Error("Cleanup completed with errors")
		}
	}()

	// Start server in a goroutine
	serverErrChan := make(chan error, 1)
	go func() {
		log.Info("Server starting on port " + cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("Server error occurred")
			serverErrChan <- err
		}
	}()

	// Wait for interrupt signal or server error
	select {
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("Received shutdown signal")
	case err := <-serverErrChan:
		log.WithError(err).Error("Server failed, initiating shutdown")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer cancel()

	if err := resources.Cleanup(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown completed with errors")
		os.Exit(1)
	}

	log.Info("Application shutdown complete")
}
