package advisor

import (
	"fmt"

	"github.com/LeonardoBeccarini/agrimonitor/internal/model/entities"
)

// Status is one row of the dashboard status panel.
type Status struct {
	Metric   string   `json:"metric"`
	Severity Severity `json:"severity"`
	Label    string   `json:"label"`
}

// StatusPanel renders the dashboard status rows for the present measurements.
// It uses the alert-path moisture bound (80) and the advisory pH bound (7.5).
func StatusPanel(r entities.Reading) []Status {
	out := make([]Status, 0, 3)
	if m := r.SoilMoisture; m != nil {
		switch {
		case *m < MoistureLow:
			out = append(out, Status{entities.FieldSoilMoisture, SeverityCritical, "Irrigation Needed"})
		case *m > MoistureHighAlert:
			out = append(out, Status{entities.FieldSoilMoisture, SeverityWarning, "Soil Too Wet"})
		default:
			out = append(out, Status{entities.FieldSoilMoisture, SeverityOK, "Moisture Optimal"})
		}
	}
	if t := r.Temperature; t != nil {
		switch {
		case *t > TempHigh:
			out = append(out, Status{entities.FieldTemperature, SeverityWarning, "Heat Stress Risk"})
		case *t < TempLow:
			out = append(out, Status{entities.FieldTemperature, SeverityInfo, "Low Temperature — Growth Slows"})
		default:
			out = append(out, Status{entities.FieldTemperature, SeverityOK, "Temperature Healthy"})
		}
	}
	if ph := r.PH; ph != nil {
		if *ph < PHAcidic || *ph > PHAlkalineAdvisory {
			out = append(out, Status{entities.FieldPH, SeverityWarning, "pH Imbalance"})
		} else {
			out = append(out, Status{entities.FieldPH, SeverityOK, "pH Balanced"})
		}
	}
	return out
}

// Headline is the one-line status attached to uploaded readings.
// Only the first matching condition is reported.
func Headline(r entities.Reading) string {
	switch {
	case r.SoilMoisture != nil && *r.SoilMoisture < MoistureLow:
		return "Low soil moisture! Irrigation needed."
	case r.PH != nil && *r.PH < PHAcidic:
		return "Soil too acidic!"
	case r.Temperature != nil && *r.Temperature > TempHigh:
		return "High temperature!"
	default:
		return "All conditions normal."
	}
}

// Summary is the short insight line shown under the dashboard charts.
func Summary(r entities.Reading) string {
	soil := "healthy soil"
	if r.SoilMoisture != nil && *r.SoilMoisture < MoistureLow {
		soil = "dry conditions — irrigation needed"
	}
	acidity := "neutral/basic"
	if r.PH != nil && *r.PH < PHSummaryAcidic {
		acidity = "acidic"
	}
	return fmt.Sprintf("Soil: %s; pH: %s.", soil, acidity)
}
