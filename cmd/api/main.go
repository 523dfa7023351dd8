package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/blood-link/request-matching-service/internal/adapters/handler"
	"github.com/blood-link/request-matching-service/internal/adapters/messaging"
	"github.com/blood-link/request-matching-service/internal/adapters/middleware"
	"github.com/blood-link/request-matching-service/internal/adapters/repository"
	"github.com/blood-link/request-matching-service/internal/config"
	"github.com/blood-link/request-matching-service/internal/core/ports"
	"github.com/blood-link/request-matching-service/internal/core/services"
)

func main() {

	cfg := config.Load()
	ctx := context.Background()

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	requestRepo := repository.NewRequestRepository(db)
	donorRepo := repository.NewDonorRepository(db)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddress,
		Password: cfg.RedisPassword,
		DB:       0,
	})

	if err := redisClient.Ping(ctx).Err(); err != nil {
		// Redis only backs the match cache; start degraded rather than fail.
		log.Printf("WARNING: failed to connect to redis, match caching disabled: %v", err)
	} else {
		log.Println("Connected to Redis successfully")
	}

	var publisher ports.RequestEventPublisher
	if cfg.RabbitMQURL != "" {
		broker, err := messaging.NewRabbitMQBroker(cfg.RabbitMQURL, cfg.EventQueueName)
		if err != nil {
			log.Printf("WARNING: failed to connect to RabbitMQ, events disabled: %v", err)
		} else {
			defer broker.Close()
			publisher = broker
			log.Println("Connected to RabbitMQ successfully")
		}
	}

	matchService := services.NewMatchService(donorRepo, redisClient)
	requestService := services.NewRequestService(requestRepo, matchService, publisher)

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWTPublicKey)

	requestHandler := handler.NewRequestHandler(requestService)
	donorHandler := handler.NewDonorHandler(requestService, matchService)
	healthHandler := handler.NewHealthHandler(db, redisClient)

	mux := http.NewServeMux()

	// Health endpoints (OpenShift compatible)
	mux.HandleFunc("/health", healthHandler.Health)
	mux.HandleFunc("/health/ready", healthHandler.Ready)
	mux.HandleFunc("/health/live", healthHandler.Live)

	// Prometheus metrics
	mux.Handle("/metrics", promhttp.Handler())

	// API endpoints
	mux.Handle("POST /requests",
		authMiddleware.RequireRole([]string{"recipient", "admin"}, requestHandler.Create),
	)
	mux.Handle("GET /requests",
		authMiddleware.RequireRole([]string{"donor", "recipient", "admin"}, requestHandler.List),
	)
	mux.Handle("GET /requests/mine",
		authMiddleware.RequireRole([]string{"recipient", "admin"}, requestHandler.ListMine),
	)
	mux.Handle("GET /requests/matching",
		authMiddleware.RequireRole([]string{"donor"}, requestHandler.ListMatching),
	)
	mux.Handle("GET /requests/responses",
		authMiddleware.RequireRole([]string{"donor"}, requestHandler.ListMyResponses),
	)
	mux.Handle("GET /requests/{id}",
		authMiddleware.RequireRole([]string{"donor", "recipient", "admin"}, requestHandler.Get),
	)
	mux.Handle("GET /requests/{id}/donors",
		authMiddleware.RequireRole([]string{"recipient", "admin"}, donorHandler.ListCompatible),
	)
	mux.Handle("POST /requests/{id}/respond",
		authMiddleware.RequireRole([]string{"donor"}, requestHandler.Respond),
	)
	mux.Handle("PATCH /requests/{id}/status",
		authMiddleware.RequireRole([]string{"recipient", "admin"}, requestHandler.UpdateStatus),
	)

	cors := middleware.CORSMiddleware(cfg.AllowedOrigins)

	log.Printf("Starting server on :%s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, cors(mux)); err != nil {
		log.Fatalf("Could not start server: %s\n", err)
	}
}
