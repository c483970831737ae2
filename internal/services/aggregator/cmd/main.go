package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/LeonardoBeccarini/agrimonitor/internal/model"
	"github.com/LeonardoBeccarini/agrimonitor/internal/services/aggregator"
	"github.com/LeonardoBeccarini/agrimonitor/pkg/rabbitmq"
)

func env(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envDur(key string, def time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := &rabbitmq.RabbitMQConfig{
		Host:     env("RABBITMQ_HOST", "localhost"),
		Port:     envInt("RABBITMQ_PORT", 1883),
		User:     env("RABBITMQ_USER", "guest"),
		Password: env("RABBITMQ_PASSWORD", "guest"),
		ClientID: env("MQTT_CLIENT_ID", fmt.Sprintf("aggregator-%s", env("HOSTNAME", "local"))),
	}
	client, err := rabbitmq.NewRabbitMQConn(ctx, cfg)
	if err != nil {
		log.Fatalf("aggregator: mqtt connect failed: %v", err)
	}
	defer rabbitmq.CloseRabbitMQConn(client)

	rawSub := env("RAW_SUB_TOPIC", model.RawSubTopic)
	consumer := rabbitmq.NewMultiConsumer(client, rabbitmq.SplitTopics(rawSub), nil)
	publisher := rabbitmq.NewPublisher(client, "")

	interval := envDur("AGGREGATION_INTERVAL", time.Minute)
	svc := aggregator.NewDataAggregatorService(consumer, publisher, interval)

	log.Printf("aggregator: consuming %s, window %s", rawSub, interval)
	svc.Start(ctx)
	log.Println("aggregator: shutdown complete")
}
