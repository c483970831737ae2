package event

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
)

// Pinger is satisfied by the alert journal.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the dependencies checked by /healthz and /readyz.
type Deps struct {
	MQTT    mqtt.Client
	Influx  influxdb2.Client
	Writer  *Writer
	Journal Pinger
}

func (d Deps) mqttOK() bool   { return d.MQTT != nil && d.MQTT.IsConnectionOpen() }
func (d Deps) influxOK() bool { return d.Influx != nil } // esistenza client (check leggero)

func (d Deps) journalOK(ctx context.Context) bool {
	if d.Journal == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	return d.Journal.Ping(ctx) == nil
}

type healthHandler struct{ deps Deps }

func NewHealthHandler(d Deps) http.Handler { return &healthHandler{deps: d} }

func (h *healthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	type status struct {
		Status          string  `json:"status"`
		MQTTConnected   bool    `json:"mqtt_connected"`
		InfluxOK        bool    `json:"influx_ok"`
		JournalOK       bool    `json:"journal_ok"`
		LastWriteErrorS float64 `json:"last_write_error_age_sec"`
	}
	st := status{
		MQTTConnected:   h.deps.mqttOK(),
		InfluxOK:        h.deps.influxOK(),
		JournalOK:       h.deps.journalOK(r.Context()),
		LastWriteErrorS: h.deps.Writer.LastErrorAge().Seconds(),
	}

	// ok se deps ok e nessun errore recente di scrittura
	switch {
	case st.MQTTConnected && st.InfluxOK && st.JournalOK && h.deps.Writer.LastErrorAge() > 30*time.Second:
		st.Status = "ok"
	case st.MQTTConnected || st.InfluxOK || st.JournalOK:
		st.Status = "degraded"
	default:
		st.Status = "down"
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(st)
}

// Handler /readyz: 200 solo se tutte le dipendenze sono ok.
type readyHandler struct {
	deps     Deps
	minError time.Duration
}

func NewReadyHandler(d Deps, minOkErrorAge time.Duration) http.Handler {
	return &readyHandler{deps: d, minError: minOkErrorAge}
}

func (h *readyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ready := h.deps.mqttOK() && h.deps.influxOK() && h.deps.journalOK(r.Context()) &&
		h.deps.Writer.LastErrorAge() > h.minError
	w.Header().Set("Content-Type", "application/json")
	if !ready {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	type resp struct {
		Ready bool `json:"ready"`
	}
	_ = json.NewEncoder(w).Encode(resp{Ready: ready})
}
