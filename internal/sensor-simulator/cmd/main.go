package main

import (
	"context"
	"flag"
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
	"github.com/LeonardoBeccarini/agrimonitor/internal/model/entities"
	sensorSimulator "github.com/LeonardoBeccarini/agrimonitor/internal/sensor-simulator"
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

func main() {
	// .env opzionale (sviluppo locale)
	_ = godotenv.Load()

	farms := flag.String("farms", env("FARM_IDS", "1,2,3,4,5"), "comma separated farm ids")
	profile := flag.String("profile", env("SIM_PROFILE", string(sensorSimulator.ProfileLive)), "batch|live|realistic")
	seed := flag.Int64("seed", time.Now().UnixNano(), "random seed")
	interval := flag.Duration("interval", 10*time.Second, "publish interval")
	topic := flag.String("topic", env("SIM_TOPIC", model.ReadingTopicTmpl), "topic template ({farm} is replaced)")
	clientID := flag.String("client-id", env("MQTT_CLIENT_ID", fmt.Sprintf("sensor-sim-%s", env("HOSTNAME", "local"))), "MQTT client ID")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := &rabbitmq.RabbitMQConfig{
		Host:     env("RABBITMQ_HOST", "localhost"),
		Port:     envInt("RABBITMQ_PORT", 1883),
		User:     env("RABBITMQ_USER", "guest"),
		Password: env("RABBITMQ_PASSWORD", "guest"),
		ClientID: *clientID,
	}
	client, err := rabbitmq.NewRabbitMQConn(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}

	generator, err := sensorSimulator.NewDataGenerator(sensorSimulator.Profile(*profile), *seed)
	if err != nil {
		log.Fatalf("sensor: %v", err)
	}
	publisher := rabbitmq.NewPublisher(client, "")
	sim := sensorSimulator.NewSensorSimulator(publisher, generator, entities.ParseFarms(strings.Split(*farms, ",")))
	sim.SetTopic(*topic)

	log.Printf("sensor: simulating farms=%s profile=%s on %s every %s", *farms, *profile, *topic, *interval)
	sim.Start(ctx, *interval)
}
