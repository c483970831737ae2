package app

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/sony/gobreaker"

	"github.com/LeonardoBeccarini/agrimonitor/internal/services/advisory"
	"github.com/LeonardoBeccarini/agrimonitor/pkg/translate"
)

type Config struct {
	PersistenceBaseURL string
	EventsBaseURL      string
	PersistencePath    string
	EventsPath         string
	HTTPTimeout        time.Duration
	AdvisorTimeout     time.Duration

	Breaker BreakerConfig

	// Advisor is the remote decision engine; nil means evaluate in process.
	Advisor    advisory.AdvisorClient
	Translator translate.Translator

	AllowedOrigins []string
	Registry       *prometheus.Registry
}

type Gateway struct {
	cfg         Config
	persistence *Upstream
	events      *Upstream
	advisorCB   *gobreaker.CircuitBreaker
	metrics     *Metrics
	hub         *Hub
}

func NewGateway(cfg Config) *Gateway {
	if cfg.PersistencePath == "" {
		cfg.PersistencePath = "/data/latest"
	}
	if cfg.EventsPath == "" {
		cfg.EventsPath = "/events/alerts/latest"
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 3 * time.Second
	}
	if cfg.AdvisorTimeout <= 0 {
		cfg.AdvisorTimeout = time.Second
	}
	if cfg.Translator == nil {
		cfg.Translator = translate.Passthrough{}
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}

	g := &Gateway{cfg: cfg, metrics: NewMetrics(cfg.Registry)}
	// Un breaker per ciascun upstream
	g.persistence = NewUpstream("persistence", cfg.PersistenceBaseURL, cfg.PersistencePath, cfg.HTTPTimeout,
		mkCB("persistence", cfg.Breaker, g.metrics.breakerChanged))
	g.events = NewUpstream("events", cfg.EventsBaseURL, cfg.EventsPath, cfg.HTTPTimeout,
		mkCB("events", cfg.Breaker, g.metrics.breakerChanged))
	g.advisorCB = mkCB("advisory", cfg.Breaker, g.metrics.breakerChanged)
	g.hub = NewHub(g.checkOrigin)
	return g
}

// Hub returns the websocket hub fed by the alert consumer.
func (g *Gateway) Hub() *Hub { return g.hub }

// Handler returns the routed, CORS-wrapped HTTP handler.
func (g *Gateway) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("ok")) }).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(g.cfg.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.Handle("/dashboard/data", g.observe("/dashboard/data", http.HandlerFunc(g.HandleDashboard))).Methods(http.MethodGet)
	r.HandleFunc("/ws/alerts", g.hub.ServeWS).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins: g.allowedOrigins(),
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	return c.Handler(r)
}

func (g *Gateway) allowedOrigins() []string {
	if len(g.cfg.AllowedOrigins) == 0 {
		return []string{"http://localhost:5173", "http://localhost:3000"}
	}
	return g.cfg.AllowedOrigins
}

func (g *Gateway) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range g.allowedOrigins() {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.code = code
	s.ResponseWriter.WriteHeader(code)
}

func (g *Gateway) observe(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)
		g.metrics.Requests.WithLabelValues(route, strconv.Itoa(rec.code)).Observe(time.Since(start).Seconds())
	})
}
