package advisor

import (
	"errors"
	"math"
	"testing"

	"github.com/LeonardoBeccarini/agrimonitor/internal/model/entities"
)

func fullReading() entities.Reading {
	return entities.Reading{
		FarmID:       "1",
		SoilMoisture: entities.Float(22),
		Temperature:  entities.Float(25),
		Humidity:     entities.Float(70),
		Rainfall:     entities.Float(150),
		PH:           entities.Float(6.5),
		Nitrogen:     entities.Float(60),
		Phosphorus:   entities.Float(30),
		Potassium:    entities.Float(90),
	}
}

func TestEvaluate(t *testing.T) {
	rep := Evaluate(fullReading())
	if rep.Err() != nil {
		t.Fatalf("unexpected error: %v", rep.Err())
	}
	if rep.Irrigation.Advisory.Severity != SeverityCritical {
		t.Errorf("irrigation severity = %s", rep.Irrigation.Advisory.Severity)
	}
	if got := rep.Fertilizer.Advisory.Message; got != "Soil pH is balanced. | Low Phosphorus — use DAP fertilizer." {
		t.Errorf("fertilizer = %q", got)
	}
	if got := rep.CropSuggestion.Advisory.Message; got != "Ideal for rice, wheat, or maize." {
		t.Errorf("crop = %q", got)
	}
	if rep.Severity() != SeverityCritical {
		t.Errorf("report severity = %s", rep.Severity())
	}
	if rep.FarmID != "1" {
		t.Errorf("farm id = %q", rep.FarmID)
	}
}

func TestEvaluatePartialFailure(t *testing.T) {
	r := fullReading()
	r.Rainfall = nil
	r.Phosphorus = entities.Float(math.NaN())

	rep := Evaluate(r)
	if !rep.Irrigation.OK() {
		t.Fatalf("irrigation should survive other failures: %v", rep.Irrigation.Err)
	}
	if !errors.Is(rep.Fertilizer.Err, ErrInvalidInput) {
		t.Errorf("fertilizer: want ErrInvalidInput, got %v", rep.Fertilizer.Err)
	}
	if !errors.Is(rep.CropSuggestion.Err, ErrMissingField) {
		t.Errorf("crop: want ErrMissingField, got %v", rep.CropSuggestion.Err)
	}
	if !IsInvalidInput(rep.CropSuggestion.Err) {
		t.Errorf("missing field should also be invalid input")
	}
	if rep.Severity() != SeverityCritical {
		t.Errorf("severity should come from irrigation only, got %s", rep.Severity())
	}
}

func TestEvaluateIrrigationWithoutTemperature(t *testing.T) {
	rep := Evaluate(entities.Reading{SoilMoisture: entities.Float(80)})
	if !rep.Irrigation.OK() || rep.Irrigation.Advisory.Severity != SeverityOK {
		t.Fatalf("irrigation = %+v", rep.Irrigation)
	}
	if rep.CropSuggestion.Err == nil || rep.Fertilizer.Err == nil {
		t.Fatalf("expected missing field errors")
	}
}

func TestSeverityText(t *testing.T) {
	for _, s := range []Severity{SeverityOK, SeverityInfo, SeverityWarning, SeverityCritical} {
		b, err := s.MarshalText()
		if err != nil {
			t.Fatalf("marshal %d: %v", s, err)
		}
		var back Severity
		if err := back.UnmarshalText(b); err != nil || back != s {
			t.Fatalf("round trip %s: got %s, %v", s, back, err)
		}
	}
	if _, err := ParseSeverity("fatal"); err == nil {
		t.Fatalf("expected error for unknown severity")
	}
	if Worst() != SeverityOK || Worst(SeverityInfo, SeverityCritical, SeverityWarning) != SeverityCritical {
		t.Fatalf("Worst ordering broken")
	}
}
