package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/LeonardoBeccarini/agrimonitor/internal/services/advisory"
	"github.com/LeonardoBeccarini/agrimonitor/internal/services/gateway/app"
	"github.com/LeonardoBeccarini/agrimonitor/pkg/rabbitmq"
	"github.com/LeonardoBeccarini/agrimonitor/pkg/translate"
)

func main() {
	_ = godotenv.Load()
	cfg := loadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var tr translate.Translator = translate.Passthrough{}
	if cfg.TranslateURL != "" {
		tr = translate.NewHTTPTranslator(cfg.TranslateURL, ms(cfg.TimeoutMs))
	}

	gwCfg := app.Config{
		PersistenceBaseURL: cfg.PersistenceURL,
		EventsBaseURL:      cfg.EventURL,
		HTTPTimeout:        ms(cfg.TimeoutMs),
		AdvisorTimeout:     ms(cfg.AdvisoryMs),
		Breaker: app.BreakerConfig{
			Failures: cfg.CBFails,
			OpenFor:  ms(cfg.CBOpenMs),
			Interval: ms(cfg.CBIntervalMs),
		},
		Translator:     tr,
		AllowedOrigins: cfg.AllowedOrigins,
		Registry:       reg,
	}
	if cfg.AdvisoryAddr != "" {
		conn, err := advisory.Dial(cfg.AdvisoryAddr)
		if err != nil {
			log.Fatalf("gateway: %v", err)
		}
		defer conn.Close()
		gwCfg.Advisor = advisory.NewAdvisorClient(conn)
	}
	gw := app.NewGateway(gwCfg)

	// Alert live: MQTT -> websocket hub (opzionale, il dashboard funziona anche senza)
	go func() {
		mq, err := rabbitmq.NewRabbitMQConn(ctx, &rabbitmq.RabbitMQConfig{
			Host:     cfg.MQTTHost,
			Port:     cfg.MQTTPort,
			User:     cfg.MQTTUser,
			Password: cfg.MQTTPassword,
			ClientID: fmt.Sprintf("gateway-%d", time.Now().UnixNano()),
		})
		if err != nil {
			log.Printf("gateway: mqtt unavailable, /ws/alerts will stay silent: %v", err)
			return
		}
		rabbitmq.NewConsumer(mq, cfg.AlertTopic, gw.Hub().HandleAlert).ConsumeMessage(ctx)
	}()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           gw.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Printf("gateway: listening on :%s (advisory=%q)", cfg.Port, cfg.AdvisoryAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("gateway: http server error: %v", err)
		}
	}()

	<-ctx.Done()
	stop()

	gw.Hub().Close()
	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shCtx)
	log.Println("gateway: shutdown complete")
}
