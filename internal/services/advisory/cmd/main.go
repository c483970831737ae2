package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/LeonardoBeccarini/agrimonitor/internal/model"
	"github.com/LeonardoBeccarini/agrimonitor/internal/services/advisory"
	"github.com/LeonardoBeccarini/agrimonitor/pkg/rabbitmq"
	"github.com/LeonardoBeccarini/agrimonitor/pkg/translate"
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
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- MQTT ---
	mqCfg := &rabbitmq.RabbitMQConfig{
		Host:     env("RABBITMQ_HOST", "localhost"),
		Port:     envInt("RABBITMQ_PORT", 1883),
		User:     env("RABBITMQ_USER", "guest"),
		Password: env("RABBITMQ_PASSWORD", "guest"),
		ClientID: env("MQTT_CLIENT_ID", fmt.Sprintf("advisory-%s", env("HOSTNAME", "local"))),
	}
	mqClient, err := rabbitmq.NewRabbitMQConn(ctx, mqCfg)
	if err != nil {
		log.Fatalf("advisory: mqtt connect failed: %v", err)
	}
	defer rabbitmq.CloseRabbitMQConn(mqClient)

	readingSub := env("READING_SUB_TOPIC", model.ReadingSubTopic)
	consumer := rabbitmq.NewMultiConsumer(mqClient, rabbitmq.SplitTopics(readingSub), nil)
	publisher := rabbitmq.NewPublisher(mqClient, "")

	// --- Metrics ---
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := advisory.NewMetrics(reg)

	// --- Translator ---
	var tr translate.Translator = translate.Passthrough{}
	if url := env("TRANSLATE_URL", ""); url != "" {
		tr = translate.NewHTTPTranslator(url, envDur("TRANSLATE_TIMEOUT", 3*time.Second))
	}

	svc := advisory.NewService(consumer, publisher, metrics)

	// --- HTTP ---
	router := advisory.NewRouter(&advisory.API{
		Translator: tr,
		Metrics:    metrics,
		Gatherer:   reg,
		Ready:      mqClient.IsConnectionOpen,
	})
	httpPort := env("PORT", "8080")
	srv := &http.Server{
		Addr:              ":" + httpPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("advisory: HTTP listening on :%s", httpPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("advisory: http server error: %v", err)
		}
	}()

	// --- gRPC ---
	grpcAddr := ":" + env("GRPC_PORT", "50051")
	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		log.Fatalf("advisory: listen %s: %v", grpcAddr, err)
	}
	grpcServer := grpc.NewServer()
	advisory.RegisterAdvisorServer(grpcServer, advisory.NewGrpcHandler(tr, metrics))
	hs := health.NewServer()
	hs.SetServingStatus(advisory.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, hs)
	go func() {
		log.Printf("advisory: gRPC listening on %s", grpcAddr)
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatalf("advisory: gRPC serve error: %v", err)
		}
	}()

	// Avvia il consumo MQTT
	log.Printf("advisory: consuming %s", readingSub)
	go svc.Start(ctx)

	<-ctx.Done()
	stop()

	hs.Shutdown()
	grpcServer.GracefulStop()
	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shCtx)
	log.Println("advisory: shutdown complete")
}
