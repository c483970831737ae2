package messages

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/LeonardoBeccarini/agrimonitor/internal/model/entities"
)

func TestDecodeReadingAliases(t *testing.T) {
	payload := `{
		"timestamp": "2025-03-01T10:15:30.123456",
		"farm_id": 3,
		"N": 90, "P": 42.5, "K": 43,
		"pH": 6.4,
		"temperature_C": 27.1,
		"humidity_percent": 80,
		"soil_moisture_percent": 21.5,
		"rainfall_mm": 120
	}`
	r, err := DecodeReading([]byte(payload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.FarmID != "3" {
		t.Errorf("farm id = %q", r.FarmID)
	}
	want := time.Date(2025, 3, 1, 10, 15, 30, 123456000, time.UTC)
	if !r.Timestamp.Equal(want) {
		t.Errorf("timestamp = %v, want %v", r.Timestamp, want)
	}
	checks := map[string]*float64{
		"moisture": r.SoilMoisture, "temperature": r.Temperature, "humidity": r.Humidity,
		"rainfall": r.Rainfall, "ph": r.PH, "n": r.Nitrogen, "p": r.Phosphorus, "k": r.Potassium,
	}
	for name, p := range checks {
		if p == nil {
			t.Errorf("%s not decoded", name)
		}
	}
	if *r.Temperature != 27.1 || *r.PH != 6.4 || *r.Phosphorus != 42.5 {
		t.Errorf("unexpected values: %+v", r.Measurements())
	}
}

func TestDecodeReadingCloudDocument(t *testing.T) {
	r, err := DecodeReading([]byte(`{"farm_id":"north","moisture":35,"temperature":31,"ph":null,"timestamp":"2025-03-01T10:00:00Z"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.PH != nil {
		t.Errorf("null ph should be missing")
	}
	if r.SoilMoisture == nil || *r.SoilMoisture != 35 {
		t.Errorf("moisture = %v", r.SoilMoisture)
	}
	if r.Humidity != nil {
		t.Errorf("absent humidity should be nil")
	}
}

func TestDecodeReadingRejectsWrongTypes(t *testing.T) {
	testCases := []struct {
		name     string
		payload  string
		errorMsg string
	}{
		{"string moisture", `{"soil_moisture_percent":"dry"}`, "soil_moisture_percent"},
		{"numeric string is not coerced", `{"ph":"6.5"}`, "ph"},
		{"bool nitrogen", `{"N":true}`, "n has type bool"},
		{"object farm", `{"farm_id":{"a":1}}`, "farm_id"},
		{"bad timestamp", `{"timestamp":"yesterday"}`, "timestamp"},
		{"not json", `{"ph":`, "invalid input"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeReading([]byte(tc.payload))
			if err == nil {
				t.Fatalf("expected error")
			}
			if !errors.Is(err, entities.ErrInvalidInput) {
				t.Errorf("want ErrInvalidInput, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.errorMsg) {
				t.Errorf("error %q should mention %q", err, tc.errorMsg)
			}
		})
	}
}

func TestDecodeReadingDuplicateAliasesIsStable(t *testing.T) {
	payload := []byte(`{"temperature":20,"temperature_c":30,"TEMP":10}`)
	for i := 0; i < 20; i++ {
		r, err := DecodeReading(payload)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if *r.Temperature != 30 {
			t.Fatalf("run %d: temperature = %v, want 30", i, *r.Temperature)
		}
	}
}
