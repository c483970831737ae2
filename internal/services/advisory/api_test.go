package advisory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/LeonardoBeccarini/agrimonitor/internal/advisor"
)

type prefixTranslator struct{}

func (prefixTranslator) Translate(_ context.Context, text, lang string) (string, error) {
	return "[" + lang + "] " + text, nil
}

func newTestRouter(ready bool) http.Handler {
	reg := prometheus.NewRegistry()
	return NewRouter(&API{
		Translator: prefixTranslator{},
		Metrics:    NewMetrics(reg),
		Gatherer:   reg,
		Ready:      func() bool { return ready },
	})
}

func TestEvaluateEndpoint(t *testing.T) {
	h := newTestRouter(true)

	req := httptest.NewRequest(http.MethodPost, "/v1/evaluate", strings.NewReader(stressedReading))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body)
	}
	var ev Evaluation
	if err := json.NewDecoder(rec.Body).Decode(&ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.FarmID != "f1" || ev.Severity != advisor.SeverityCritical {
		t.Errorf("unexpected evaluation: %+v", ev)
	}
	if len(ev.Alerts) != 3 || len(ev.Status) != 3 {
		t.Errorf("alerts=%d status=%d, want 3 and 3", len(ev.Alerts), len(ev.Status))
	}
	if ev.Summary != "Soil: dry conditions — irrigation needed; pH: acidic." {
		t.Errorf("summary = %q", ev.Summary)
	}
}

func TestEvaluateEndpointTranslates(t *testing.T) {
	h := newTestRouter(true)

	req := httptest.NewRequest(http.MethodPost, "/v1/evaluate?lang=hi", strings.NewReader(stressedReading))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var ev Evaluation
	if err := json.NewDecoder(rec.Body).Decode(&ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.HasPrefix(ev.Headline, "[hi] ") || !strings.HasPrefix(ev.Irrigation.Message, "[hi] ") {
		t.Errorf("texts not translated: headline=%q irrigation=%q", ev.Headline, ev.Irrigation.Message)
	}
	// codes and severities are never translated
	if ev.Alerts[0].Code != advisor.AlertLowSoilMoisture || ev.Alerts[0].Severity != advisor.SeverityCritical {
		t.Errorf("alert identity changed: %+v", ev.Alerts[0])
	}
}

func TestEvaluateEndpointRejectsInvalidInput(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{"malformed", `not json`},
		{"wrong type", `{"soil_moisture_percent":"dry"}`},
		{"array", `[1,2]`},
	}
	h := newTestRouter(true)
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/evaluate", strings.NewReader(tc.body)))
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestAlertsEndpoint(t *testing.T) {
	h := newTestRouter(true)
	body := "[" + calmReading + "," + stressedReading + `,{"farm_id":"f1","temperature_c":45}]`

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/alerts", strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body)
	}
	var out struct {
		Farms []advisor.FarmAlerts `json:"farms"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Farms) != 1 || out.Farms[0].FarmID != "f1" {
		t.Fatalf("want only f1, got %+v", out.Farms)
	}
	if n := len(out.Farms[0].Readings); n != 2 {
		t.Errorf("f1 readings with alerts = %d, want 2", n)
	}
}

func TestAlertsEndpointRejectsNonArray(t *testing.T) {
	h := newTestRouter(true)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/alerts", strings.NewReader(stressedReading)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHealthReadyMetrics(t *testing.T) {
	testCases := []struct {
		path  string
		ready bool
		want  int
	}{
		{"/healthz", true, http.StatusOK},
		{"/readyz", true, http.StatusOK},
		{"/readyz", false, http.StatusServiceUnavailable},
		{"/metrics", true, http.StatusOK},
	}
	for _, tc := range testCases {
		rec := httptest.NewRecorder()
		newTestRouter(tc.ready).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))
		if rec.Code != tc.want {
			t.Errorf("GET %s (ready=%v) = %d, want %d", tc.path, tc.ready, rec.Code, tc.want)
		}
	}
}

func TestEvaluateEndpointMethodNotAllowed(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(true).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/evaluate", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}
