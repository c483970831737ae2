package advisory

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/LeonardoBeccarini/agrimonitor/internal/advisor"
	"github.com/LeonardoBeccarini/agrimonitor/internal/model"
	"github.com/LeonardoBeccarini/agrimonitor/internal/model/messages"
	"github.com/LeonardoBeccarini/agrimonitor/pkg/translate"
)

const maxBody = 1 << 20

// API serves on-demand evaluations over HTTP.
type API struct {
	Translator translate.Translator
	Metrics    *Metrics
	Gatherer   prometheus.Gatherer
	// Ready reports whether the MQTT side is up; nil means always ready.
	Ready func() bool
}

func NewRouter(a *API) *mux.Router {
	if a.Translator == nil {
		a.Translator = translate.Passthrough{}
	}
	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("ok")) }).Methods(http.MethodGet)
	r.HandleFunc("/readyz", a.readyz).Methods(http.MethodGet)
	if a.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(a.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/evaluate", a.evaluate).Methods(http.MethodPost)
	v1.HandleFunc("/alerts", a.alerts).Methods(http.MethodPost)
	return r
}

func (a *API) readyz(w http.ResponseWriter, _ *http.Request) {
	ready := a.Ready == nil || a.Ready()
	code := http.StatusOK
	if !ready {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{"ready": ready})
}

// POST /v1/evaluate?lang=
func (a *API) evaluate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	reading, err := messages.DecodeReading(body)
	if err != nil {
		a.Metrics.invalid()
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ev, err := Evaluate(reading)
	if err != nil {
		a.Metrics.invalid()
		writeError(w, statusFor(err), err)
		return
	}
	a.Metrics.observe(ev)
	writeJSON(w, http.StatusOK, Localize(r.Context(), a.Translator, r.URL.Query().Get("lang"), ev))
}

// POST /v1/alerts with a JSON array of readings.
func (a *API) alerts(w http.ResponseWriter, r *http.Request) {
	var raw []json.RawMessage
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: expected a JSON array of readings", advisor.ErrInvalidInput))
		return
	}
	readings := make([]model.Reading, 0, len(raw))
	for i, item := range raw {
		reading, err := messages.DecodeReading(item)
		if err != nil {
			a.Metrics.invalid()
			writeError(w, http.StatusBadRequest, fmt.Errorf("reading %d: %w", i, err))
			return
		}
		readings = append(readings, reading)
	}
	writeJSON(w, http.StatusOK, map[string]any{"farms": advisor.ClassifyFarms(readings)})
}

func statusFor(err error) int {
	if errors.Is(err, advisor.ErrInvalidInput) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
