package advisor

import (
	"sort"

	"github.com/LeonardoBeccarini/agrimonitor/internal/model/entities"
)

// Alert codes, in evaluation order.
const (
	AlertLowSoilMoisture = "low_soil_moisture"
	AlertHighTemperature = "high_temperature"
	AlertSoilAcidic      = "soil_acidic"
	AlertSoilAlkaline    = "soil_alkaline"
)

// Alert is an out-of-range condition found in one reading.
type Alert struct {
	Code     string   `json:"code"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Defaults for measurements missing from a reading. None of them can trigger an alert.
const (
	defaultAlertMoisture    = 100.0
	defaultAlertTemperature = 0.0
	defaultAlertPH          = 7.0
)

// Classify checks every alert rule against r, always in the order
// moisture, temperature, acidity, alkalinity. Missing measurements take
// neutral defaults; only present non-finite values are rejected.
func Classify(r entities.Reading) ([]Alert, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	moisture := valueOr(r.SoilMoisture, defaultAlertMoisture)
	temp := valueOr(r.Temperature, defaultAlertTemperature)
	ph := valueOr(r.PH, defaultAlertPH)

	alerts := []Alert{}
	if moisture < MoistureCriticalLow {
		alerts = append(alerts, Alert{AlertLowSoilMoisture, SeverityCritical, "Low soil moisture! Immediate irrigation needed."})
	}
	if temp > TempHigh {
		alerts = append(alerts, Alert{AlertHighTemperature, SeverityWarning, "High temperature detected! Consider shade or early watering."})
	}
	if ph < PHAcidic {
		alerts = append(alerts, Alert{AlertSoilAcidic, SeverityWarning, "Soil too acidic! Apply lime to balance pH."})
	}
	if ph > PHAlkalineAlert {
		alerts = append(alerts, Alert{AlertSoilAlkaline, SeverityWarning, "Soil too alkaline! Consider organic compost."})
	}
	return alerts, nil
}

// WorstAlert returns the highest severity in alerts.
func WorstAlert(alerts []Alert) Severity {
	w := SeverityOK
	for _, a := range alerts {
		w = Worst(w, a.Severity)
	}
	return w
}

// ReadingAlerts are the alerts raised by one reading.
type ReadingAlerts struct {
	Reading entities.Reading `json:"reading"`
	Alerts  []Alert          `json:"alerts"`
}

// FarmAlerts groups alerts for display.
type FarmAlerts struct {
	FarmID   string          `json:"farm_id"`
	Readings []ReadingAlerts `json:"readings"`
	Errors   []string        `json:"errors,omitempty"`
}

// ClassifyFarms classifies a batch of readings and groups the results per
// farm, sorted by farm id. Farms with neither alerts nor errors are dropped.
func ClassifyFarms(readings []entities.Reading) []FarmAlerts {
	byFarm := make(map[string]*FarmAlerts)
	var order []string
	get := func(id string) *FarmAlerts {
		fa, ok := byFarm[id]
		if !ok {
			fa = &FarmAlerts{FarmID: id}
			byFarm[id] = fa
			order = append(order, id)
		}
		return fa
	}

	for _, r := range readings {
		alerts, err := Classify(r)
		if err != nil {
			fa := get(r.FarmID)
			fa.Errors = append(fa.Errors, err.Error())
			continue
		}
		if len(alerts) == 0 {
			continue
		}
		fa := get(r.FarmID)
		fa.Readings = append(fa.Readings, ReadingAlerts{Reading: r, Alerts: alerts})
	}

	sort.Strings(order)
	out := make([]FarmAlerts, 0, len(order))
	for _, id := range order {
		out = append(out, *byFarm[id])
	}
	return out
}

func valueOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}
