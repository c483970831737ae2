package main

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port      string
	TimeoutMs int

	PersistenceURL string // es. http://persistence.cloud:8080
	EventURL       string // es. http://event-service.fog:8080
	AdvisoryAddr   string // gRPC, es. advisory:50051; vuoto = valutazione locale
	AdvisoryMs     int
	TranslateURL   string

	CBFails      int
	CBOpenMs     int
	CBIntervalMs int

	AllowedOrigins []string

	// MQTT per /ws/alerts
	MQTTHost     string
	MQTTPort     int
	MQTTUser     string
	MQTTPassword string
	AlertTopic   string
}

func getenv(k, d string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return d
}

func getenvInt(k string, d int) int {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return d
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func loadConfig() Config {
	var origins []string
	for _, o := range strings.Split(getenv("ALLOWED_ORIGINS", ""), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return Config{
		Port:      getenv("PORT", "5009"),
		TimeoutMs: getenvInt("TIMEOUT_MS", 3000),

		PersistenceURL: getenv("PERSISTENCE_URL", "http://persistence.cloud:8080"),
		EventURL:       getenv("EVENT_URL", "http://event-service.fog:8080"),
		AdvisoryAddr:   getenv("ADVISORY_GRPC_ADDR", ""),
		AdvisoryMs:     getenvInt("ADVISORY_TIMEOUT_MS", 1000),
		TranslateURL:   getenv("TRANSLATE_URL", ""),

		CBFails:      getenvInt("CB_FAILS", 3),
		CBOpenMs:     getenvInt("CB_OPEN_MS", 10000),
		CBIntervalMs: getenvInt("CB_INTERVAL_MS", 60000),

		AllowedOrigins: origins,

		MQTTHost:     getenv("RABBITMQ_HOST", "localhost"),
		MQTTPort:     getenvInt("RABBITMQ_PORT", 1883),
		MQTTUser:     getenv("RABBITMQ_USER", "guest"),
		MQTTPassword: getenv("RABBITMQ_PASSWORD", "guest"),
		AlertTopic:   getenv("ALERT_SUB_TOPIC", "event/alert/#"),
	}
}
