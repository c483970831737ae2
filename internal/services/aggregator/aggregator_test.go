package aggregator

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/LeonardoBeccarini/agrimonitor/internal/model/entities"
	"github.com/LeonardoBeccarini/agrimonitor/pkg/rabbitmq/rabbitmqtest"
)

var t0 = time.Date(2024, 7, 1, 6, 0, 0, 0, time.UTC)

func newTestAggregator() (*DataAggregatorService, *rabbitmqtest.Publisher) {
	pub := &rabbitmqtest.Publisher{}
	d := NewDataAggregatorService(nil, pub, time.Minute)
	d.now = func() time.Time { return t0 }
	return d, pub
}

func deliver(t *testing.T, d *DataAggregatorService, topic, payload string) {
	t.Helper()
	if err := d.messageHandler(topic, rabbitmqtest.NewMessage(topic, []byte(payload))); err != nil {
		t.Fatalf("messageHandler(%s): %v", topic, err)
	}
}

func TestMergeReadings(t *testing.T) {
	samples := []entities.Reading{
		{Timestamp: t0, SoilMoisture: entities.Float(20), PH: entities.Float(6.5)},
		{Timestamp: t0.Add(30 * time.Second), SoilMoisture: entities.Float(25.5), Temperature: entities.Float(31)},
		{SoilMoisture: entities.Float(30)},
	}
	got := MergeReadings("f1", samples, t0.Add(time.Hour))

	if got.FarmID != "f1" || !got.Timestamp.Equal(t0.Add(30*time.Second)) {
		t.Errorf("farm=%s ts=%s", got.FarmID, got.Timestamp)
	}
	if got.SoilMoisture == nil || *got.SoilMoisture != 25.17 {
		t.Errorf("moisture = %v, want 25.17", got.SoilMoisture)
	}
	if *got.PH != 6.5 || *got.Temperature != 31 {
		t.Errorf("ph=%v temp=%v", *got.PH, *got.Temperature)
	}
	if got.Humidity != nil || got.Nitrogen != nil {
		t.Errorf("unreported measurements must stay nil: %+v", got)
	}

	empty := MergeReadings("f2", []entities.Reading{{}}, t0)
	if !empty.Timestamp.Equal(t0) || len(empty.Measurements()) != 0 {
		t.Errorf("empty merge = %+v", empty)
	}
}

func TestAggregatorPublishesOneReadingPerFarm(t *testing.T) {
	d, pub := newTestAggregator()

	deliver(t, d, "sensor/raw/f2/probe-1", `{"soil_moisture_percent": 40}`)
	deliver(t, d, "sensor/raw/f1/probe-1", `{"soil_moisture_percent": 10, "timestamp": "2024-07-01T05:59:00Z"}`)
	deliver(t, d, "sensor/raw/f1/probe-2", `{"soil_moisture_percent": 20, "temperature_c": 35}`)
	deliver(t, d, "sensor/raw/f1/probe-2", `{"soil_moisture_percent": 20, "temperature_c": 35}`) // duplicato
	deliver(t, d, "sensor/raw/f1/probe-3", `not json`)

	if n := d.aggregateAndPublish(); n != 2 {
		t.Fatalf("published %d, want 2", n)
	}
	sent := pub.Sent()
	if len(sent) != 2 || sent[0].Topic != "sensor/reading/f1" || sent[1].Topic != "sensor/reading/f2" {
		t.Fatalf("sent = %+v", sent)
	}
	var r entities.Reading
	if err := json.Unmarshal([]byte(sent[0].Payload), &r); err != nil {
		t.Fatal(err)
	}
	if r.FarmID != "f1" || *r.SoilMoisture != 15 || *r.Temperature != 35 {
		t.Errorf("merged f1 = %+v", r)
	}
	if !r.Timestamp.Equal(t0.Add(-time.Minute)) {
		t.Errorf("timestamp = %s", r.Timestamp)
	}

	// la finestra è stata svuotata
	if n := d.aggregateAndPublish(); n != 0 {
		t.Errorf("second flush published %d", n)
	}
}

func TestAggregatorDropsSamplesWithoutFarm(t *testing.T) {
	d, pub := newTestAggregator()

	deliver(t, d, "sensor/raw/", `{"soil_moisture_percent": 40}`)
	if n := d.aggregateAndPublish(); n != 0 || len(pub.Sent()) != 0 {
		t.Errorf("published %d for a sample without farm", n)
	}
}
