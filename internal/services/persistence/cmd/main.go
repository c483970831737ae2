package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/joho/godotenv"

	"github.com/LeonardoBeccarini/agrimonitor/internal/model"
	persistencepkg "github.com/LeonardoBeccarini/agrimonitor/internal/services/persistence"
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
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- MQTT (RabbitMQ/MQTT) ---
	mqCfg := &rabbitmq.RabbitMQConfig{
		Host:     env("RABBITMQ_HOST", env("MQTT_HOST", "localhost")),
		Port:     envInt("RABBITMQ_PORT", envInt("MQTT_PORT", 1883)),
		User:     env("RABBITMQ_USER", env("MQTT_USER", "guest")),
		Password: env("RABBITMQ_PASSWORD", env("MQTT_PASS", "guest")),
		ClientID: env("MQTT_CLIENT_ID", fmt.Sprintf("persistence-%s", env("HOSTNAME", "local"))),
	}
	mqClient, err := rabbitmq.NewRabbitMQConn(ctx, mqCfg)
	if err != nil {
		log.Fatalf("persistence: mqtt connect failed: %v", err)
	}
	defer rabbitmq.CloseRabbitMQConn(mqClient)
	topic := env("READING_SUB_TOPIC", model.ReadingSubTopic)
	consumer := rabbitmq.NewConsumer(mqClient, topic, nil)

	// --- InfluxDB ---
	influxURL := env("INFLUX_URL", "http://localhost:8086")
	influxToken := env("INFLUX_TOKEN", "")
	influxClient := influxdb2.NewClient(influxURL, influxToken)
	defer influxClient.Close()

	store, err := persistencepkg.NewInfluxStore(influxClient, persistencepkg.InfluxConfig{
		InfluxURL:    influxURL,
		InfluxToken:  influxToken,
		InfluxOrg:    env("INFLUX_ORG", "org"),
		InfluxBucket: env("INFLUX_BUCKET", "sensor-data"),
		Measurement:  env("MEASUREMENT", "sensor_reading"),
	})
	if err != nil {
		log.Fatalf("persistence: init failed: %v", err)
	}

	// Service: consumer MQTT -> scrive su Influx e mantiene cache
	svc := persistencepkg.NewService(consumer, store)

	mux := persistencepkg.NewHTTPMux(svc, mqClient.IsConnectionOpen)
	httpPort := env("PORT", "8080")
	srv := &http.Server{
		Addr:              ":" + httpPort,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("persistence: HTTP listening on :%s", httpPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("persistence: http server error: %v", err)
		}
	}()

	// Avvia il consumo MQTT (e quindi scritture Influx)
	go svc.Start(ctx)

	<-ctx.Done()
	stop()

	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shCtx)
	log.Println("persistence: shutdown complete")
}
