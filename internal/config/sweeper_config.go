package config

import (
	"os"
	"time"
)

// SweeperConfig holds configuration for the expiry sweeper service.
// This is a minimal config that only includes what the sweeper needs.
type SweeperConfig struct {
	DatabaseURL    string
	RabbitMQURL    string
	EventQueueName string
	SweepInterval  time.Duration
}

func LoadSweeperConfig() *SweeperConfig {
	dbURL := os.Getenv("DB_CONNECTION_STRING")
	if dbURL == "" {
		panic("DB_CONNECTION_STRING environment variable is required")
	}

	rabbitURL := os.Getenv("RABBITMQ_URL")
	if rabbitURL == "" {
		panic("RABBITMQ_URL environment variable is required")
	}

	queueName := os.Getenv("REQUEST_EVENT_QUEUE")
	if queueName == "" {
		queueName = "blood-request-events"
	}

	interval := time.Minute
	if raw := os.Getenv("SWEEP_INTERVAL"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			panic("SWEEP_INTERVAL must be a duration like 30s or 2m: " + err.Error())
		}
		interval = parsed
	}

	return &SweeperConfig{
		DatabaseURL:    dbURL,
		RabbitMQURL:    rabbitURL,
		EventQueueName: queueName,
		SweepInterval:  interval,
	}
}
