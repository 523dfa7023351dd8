package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/blood-link/request-matching-service/internal/adapters/messaging"
	"github.com/blood-link/request-matching-service/internal/adapters/repository"
	"github.com/blood-link/request-matching-service/internal/adapters/sweeper"
	"github.com/blood-link/request-matching-service/internal/config"
	"github.com/blood-link/request-matching-service/internal/core/ports"
	"github.com/blood-link/request-matching-service/internal/core/services"
)

func main() {
	log.Println("Starting expiry sweeper service...")

	cfg := config.LoadSweeperConfig()

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("sweeper: failed to open database: %v", err)
	}
	defer db.Close()

	var publisher ports.RequestEventPublisher
	message_broker, err := messaging.NewRabbitMQBroker(cfg.RabbitMQURL, cfg.EventQueueName)
	if err != nil {
		log.Printf("sweeper: WARNING - failed to connect to RabbitMQ, expiry events disabled: %v", err)
	} else {
		defer message_broker.Close()
		publisher = message_broker
		log.Println("sweeper: connected to RabbitMQ")
	}

	requestRepo := repository.NewRequestRepository(db)
	donorRepo := repository.NewDonorRepository(db)
	requestService := services.NewRequestService(requestRepo, services.NewMatchService(donorRepo, nil), publisher)

	sweep_worker := sweeper.NewSweeper(requestService, cfg.SweepInterval)

	// Start health check HTTP server
	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		status := "UP"
		httpStatus := http.StatusOK

		if !sweep_worker.IsHealthy() {
			status = "DOWN"
			httpStatus = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(httpStatus)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":    status,
			"component": "expiry-sweeper",
		})
	})
	healthMux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		status := "UP"
		httpStatus := http.StatusOK

		if !sweep_worker.IsReady() {
			status = "DOWN"
			httpStatus = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(httpStatus)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":    status,
			"component": "expiry-sweeper",
		})
	})

	healthServer := &http.Server{
		Addr:    ":8090",
		Handler: healthMux,
	}

	go func() {
		log.Println("sweeper: starting health check server on :8090")
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("sweeper: health server error: %v", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Channel to capture fatal errors from the sweep worker
	errChan := make(chan error, 1)

	go func() {
		log.Println("sweeper: starting expiry sweep worker...")
		if err := sweep_worker.Start(ctx); err != nil && err != context.Canceled {
			log.Printf("sweeper: worker error: %v", err)
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Wait for shutdown signal or fatal error
	select {
	case sig := <-sigChan:
		log.Printf("sweeper: received signal %v, initiating shutdown...", sig)
		cancel()

	case err := <-errChan:
		log.Printf("sweeper: fatal error, shutting down: %v", err)
		cancel()
	}

	// Shutdown health server gracefully
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("sweeper: error shutting down health server: %v", err)
	}

	log.Println("sweeper: shutdown complete")
}
