package main

import (
	"context"
	"errors"
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
	msg "github.com/LeonardoBeccarini/agrimonitor/internal/model/messages"
	"github.com/LeonardoBeccarini/agrimonitor/internal/services/event"
	"github.com/LeonardoBeccarini/agrimonitor/internal/storage"
	"github.com/LeonardoBeccarini/agrimonitor/pkg/rabbitmq"
)

func envStr(key, def string) string {
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

	// === Config ===
	cfg := struct {
		Rabbit rabbitmq.RabbitMQConfig

		InfluxURL    string
		InfluxToken  string
		InfluxOrg    string
		InfluxBucket string

		JournalPath string

		Topics        []string
		BatchSize     int
		FlushInterval time.Duration

		HTTPPort       int
		ReadinessGrace time.Duration
	}{
		Rabbit: rabbitmq.RabbitMQConfig{
			Host:     envStr("RABBITMQ_HOST", "localhost"),
			Port:     envInt("RABBITMQ_PORT", 1883),
			User:     envStr("RABBITMQ_USER", "guest"),
			Password: envStr("RABBITMQ_PASSWORD", "guest"),
			ClientID: fmt.Sprintf("event-svc-%s", envStr("HOSTNAME", "local")),
		},

		InfluxURL:    envStr("INFLUX_URL", "http://localhost:8086"),
		InfluxToken:  os.Getenv("INFLUX_TOKEN"),
		InfluxOrg:    envStr("INFLUX_ORG", "org"),
		InfluxBucket: envStr("INFLUX_BUCKET", "events"),

		JournalPath: envStr("JOURNAL_PATH", "/data/alerts.db"),

		Topics:        rabbitmq.SplitTopics(envStr("EVENT_SUB_TOPICS", model.AlertSubTopic+","+model.AdvisorySubTopic)),
		BatchSize:     envInt("WRITE_BATCH_SIZE", 10),
		FlushInterval: time.Duration(envInt("WRITE_FLUSH_INTERVAL_MS", 200)) * time.Millisecond,

		HTTPPort:       envInt("HTTP_PORT", 8080),
		ReadinessGrace: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// === InfluxDB ===
	opts := influxdb2.DefaultOptions().
		SetBatchSize(uint(cfg.BatchSize)).
		SetFlushInterval(uint(cfg.FlushInterval.Milliseconds()))
	influx := influxdb2.NewClientWithOptions(cfg.InfluxURL, cfg.InfluxToken, opts)
	defer influx.Close()
	writer := event.NewWriter(influx.WriteAPI(cfg.InfluxOrg, cfg.InfluxBucket))

	// === Journal ===
	journal, err := storage.Open(cfg.JournalPath)
	if err != nil {
		log.Fatalf("event-svc: journal: %v", err)
	}
	defer journal.Close()

	// === MQTT ===
	mqttClient, err := rabbitmq.NewRabbitMQConn(ctx, &cfg.Rabbit)
	if err != nil {
		log.Fatalf("event-svc: mqtt connection error: %v", err)
	}
	defer rabbitmq.CloseRabbitMQConn(mqttClient)

	// === HTTP ===
	deps := event.Deps{MQTT: mqttClient, Influx: influx, Writer: writer, Journal: journal}
	mux := http.NewServeMux()
	mux.Handle("/healthz", event.NewHealthHandler(deps))
	mux.Handle("/readyz", event.NewReadyHandler(deps, 2*time.Second))
	// Rotta chiamata dal gateway
	mux.Handle("/events/alerts/latest", event.NewAlertsLatestHandler(journal))
	mux.Handle("/events/advisories/latest", event.NewAdvisoriesLatestHandler(influx, cfg.InfluxOrg, cfg.InfluxBucket))

	hs := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.HTTPPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Printf("event-svc: HTTP listening on :%d", cfg.HTTPPort)
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("event-svc: http server error: %v", err)
		}
	}()

	// === Consumer ===
	h := event.NewMQTTHandler(writer.Write, func(a msg.AlertEvent) {
		jctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := journal.SaveAlerts(jctx, a.FarmID, a.ReadingTime, a.Alerts); err != nil {
			log.Printf("event-svc: journal write farm=%s: %v", a.FarmID, err)
		}
	})
	consumer := rabbitmq.NewMultiConsumer(mqttClient, cfg.Topics, h.Handle)
	log.Printf("event-svc: subscribing to %s", strings.Join(cfg.Topics, ","))
	consumer.ConsumeMessage(ctx)

	log.Printf("event-svc: shutting down...")

	// graceful http
	shCtx, shCancel := context.WithTimeout(context.Background(), cfg.ReadinessGrace)
	defer shCancel()
	_ = hs.Shutdown(shCtx)

	// consenti flush
	writer.Flush()
}
