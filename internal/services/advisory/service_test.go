package advisory

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/LeonardoBeccarini/agrimonitor/internal/advisor"
	"github.com/LeonardoBeccarini/agrimonitor/internal/model"
	"github.com/LeonardoBeccarini/agrimonitor/internal/model/messages"
	"github.com/LeonardoBeccarini/agrimonitor/pkg/rabbitmq/rabbitmqtest"
)

const stressedReading = `{"farm_id":"f1","soil_moisture_percent":20,"temperature_c":40,"humidity_percent":70,
"rainfall_mm":150,"ph":5,"n":50,"p":50,"k":50}`

const calmReading = `{"farm_id":"f2","soil_moisture_percent":50,"temperature_c":25,"humidity_percent":70,
"rainfall_mm":150,"ph":6.5,"n":50,"p":50,"k":50}`

func newTestService(t *testing.T) (*Service, *rabbitmqtest.Publisher, *Metrics) {
	t.Helper()
	pub := &rabbitmqtest.Publisher{}
	m := NewMetrics(prometheus.NewRegistry())
	s := NewService(nil, pub, m)
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }
	n := 0
	s.newID = func() string { n++; return fmt.Sprintf("id-%d", n) }
	return s, pub, m
}

func TestHandleReadingPublishesAdvisoryAndAlert(t *testing.T) {
	s, pub, m := newTestService(t)

	if err := s.handleReading("", rabbitmqtest.NewMessage("sensor/reading/f1", []byte(stressedReading))); err != nil {
		t.Fatalf("handleReading: %v", err)
	}
	if len(pub.Messages) != 2 {
		t.Fatalf("want advisory and alert published, got %d messages", len(pub.Messages))
	}

	adv := pub.Messages[0]
	if adv.Topic != "event/advisory/f1" || adv.QoS != 1 {
		t.Errorf("unexpected advisory publication: %+v", adv)
	}
	var advEv messages.AdvisoryEvent
	if err := json.Unmarshal([]byte(adv.Payload), &advEv); err != nil {
		t.Fatalf("decode advisory: %v", err)
	}
	if advEv.Severity != advisor.SeverityCritical {
		t.Errorf("advisory severity = %s, want critical", advEv.Severity)
	}
	if advEv.Headline != "Low soil moisture! Irrigation needed." {
		t.Errorf("headline = %q", advEv.Headline)
	}
	if advEv.Irrigation.Severity == nil || *advEv.Irrigation.Severity != advisor.SeverityCritical {
		t.Errorf("irrigation result = %+v", advEv.Irrigation)
	}

	al := pub.Messages[1]
	if al.Topic != "event/alert/f1" || al.QoS != 1 {
		t.Errorf("unexpected alert publication: %+v", al)
	}
	var alertEv messages.AlertEvent
	if err := json.Unmarshal([]byte(al.Payload), &alertEv); err != nil {
		t.Fatalf("decode alert: %v", err)
	}
	var codes []string
	for _, a := range alertEv.Alerts {
		codes = append(codes, a.Code)
	}
	want := []string{advisor.AlertLowSoilMoisture, advisor.AlertHighTemperature, advisor.AlertSoilAcidic}
	if len(codes) != len(want) {
		t.Fatalf("alert codes = %v, want %v", codes, want)
	}
	for i := range want {
		if codes[i] != want[i] {
			t.Errorf("alert[%d] = %s, want %s", i, codes[i], want[i])
		}
	}
	if alertEv.Severity != advisor.SeverityCritical {
		t.Errorf("alert severity = %s, want critical", alertEv.Severity)
	}

	if got := testutil.ToFloat64(m.Readings); got != 1 {
		t.Errorf("readings counter = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Alerts.WithLabelValues(advisor.AlertHighTemperature)); got != 1 {
		t.Errorf("high_temperature counter = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Advisories.WithLabelValues("irrigation", "critical")); got != 1 {
		t.Errorf("irrigation/critical counter = %v, want 1", got)
	}
}

func TestHandleReadingWithoutAlerts(t *testing.T) {
	s, pub, _ := newTestService(t)

	if err := s.handleReading("", rabbitmqtest.NewMessage("sensor/reading/f2", []byte(calmReading))); err != nil {
		t.Fatalf("handleReading: %v", err)
	}
	if len(pub.Messages) != 1 || pub.Messages[0].Topic != "event/advisory/f2" {
		t.Fatalf("want only the advisory, got %+v", pub.Messages)
	}
}

func TestHandleReadingDropsDuplicates(t *testing.T) {
	s, pub, m := newTestService(t)
	msg := rabbitmqtest.NewMessage("sensor/reading/f2", []byte(calmReading))

	for i := 0; i < 3; i++ {
		if err := s.handleReading("", msg); err != nil {
			t.Fatalf("handleReading: %v", err)
		}
	}
	if len(pub.Messages) != 1 {
		t.Errorf("want 1 publication, got %d", len(pub.Messages))
	}
	if got := testutil.ToFloat64(m.Duplicates); got != 2 {
		t.Errorf("duplicates = %v, want 2", got)
	}
}

func TestHandleReadingInvalidPayload(t *testing.T) {
	testCases := []struct {
		name    string
		payload string
	}{
		{"not json", `{{{`},
		{"string moisture", `{"farm_id":"f1","soil_moisture_percent":"wet"}`},
		{"bool ph", `{"farm_id":"f1","ph":true}`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s, pub, m := newTestService(t)
			if err := s.handleReading("", rabbitmqtest.NewMessage("sensor/reading/f1", []byte(tc.payload))); err != nil {
				t.Fatalf("invalid payloads must not stop the stream: %v", err)
			}
			if len(pub.Messages) != 0 {
				t.Errorf("nothing should be published, got %+v", pub.Messages)
			}
			if got := testutil.ToFloat64(m.Invalid); got != 1 {
				t.Errorf("invalid = %v, want 1", got)
			}
		})
	}
}

func TestHandleReadingFarmFromTopic(t *testing.T) {
	s, pub, _ := newTestService(t)
	payload := `{"soil_moisture_percent":50,"temperature_c":25,"ph":6.5}`

	if err := s.handleReading("", rabbitmqtest.NewMessage("sensor/reading/north", []byte(payload))); err != nil {
		t.Fatalf("handleReading: %v", err)
	}
	if len(pub.Messages) != 1 {
		t.Fatalf("want 1 publication, got %d", len(pub.Messages))
	}
	var ev messages.AdvisoryEvent
	if err := json.Unmarshal([]byte(pub.Messages[0].Payload), &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.FarmID != "north" || pub.Messages[0].Topic != "event/advisory/north" {
		t.Errorf("farm = %q topic = %q", ev.FarmID, pub.Messages[0].Topic)
	}
	// partial reading: only irrigation can be computed
	if ev.Irrigation.Error != "" || ev.Fertilizer.Error == "" || ev.CropSuggestion.Error == "" {
		t.Errorf("unexpected per-advisory results: %+v", ev)
	}
}

func TestProcessUsesNowWhenReadingHasNoTimestamp(t *testing.T) {
	s, _, _ := newTestService(t)
	adv, alert, err := s.Process(model.Reading{FarmID: "f3", SoilMoisture: model.Float(50)})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !adv.ReadingTime.Equal(s.now()) {
		t.Errorf("reading time = %v, want %v", adv.ReadingTime, s.now())
	}
	if alert != nil {
		t.Errorf("unexpected alert event: %+v", alert)
	}
}
