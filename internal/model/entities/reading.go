package entities

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidInput is returned when a measurement is not a usable number.
var ErrInvalidInput = errors.New("invalid input")

// Reading is a single timestamped sensor/soil sample for a farm.
// Measurements are optional: nil means the producer did not report it.
type Reading struct {
	FarmID       string    `json:"farm_id"`
	Timestamp    time.Time `json:"timestamp"`
	SoilMoisture *float64  `json:"soil_moisture_percent,omitempty"` // %
	Temperature  *float64  `json:"temperature_c,omitempty"`         // °C
	Humidity     *float64  `json:"humidity_percent,omitempty"`      // %
	Rainfall     *float64  `json:"rainfall_mm,omitempty"`           // mm
	PH           *float64  `json:"ph,omitempty"`
	Nitrogen     *float64  `json:"n,omitempty"`
	Phosphorus   *float64  `json:"p,omitempty"`
	Potassium    *float64  `json:"k,omitempty"`
}

// Float returns a pointer to v, handy for building readings.
func Float(v float64) *float64 { return &v }

// Measurement names, as used in error messages and storage fields.
const (
	FieldSoilMoisture = "soil_moisture_percent"
	FieldTemperature  = "temperature_c"
	FieldHumidity     = "humidity_percent"
	FieldRainfall     = "rainfall_mm"
	FieldPH           = "ph"
	FieldNitrogen     = "n"
	FieldPhosphorus   = "p"
	FieldPotassium    = "k"
)

// Measurements returns the present measurements keyed by canonical name.
func (r Reading) Measurements() map[string]float64 {
	out := make(map[string]float64, 8)
	for _, m := range r.fields() {
		if m.value != nil {
			out[m.name] = *m.value
		}
	}
	return out
}

// Validate rejects present measurements that are NaN or infinite.
func (r Reading) Validate() error {
	for _, m := range r.fields() {
		if m.value == nil {
			continue
		}
		if err := CheckFinite(m.name, *m.value); err != nil {
			return err
		}
	}
	return nil
}

// CheckFinite wraps ErrInvalidInput when v is NaN or ±Inf.
func CheckFinite(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s is not a finite number (%v)", ErrInvalidInput, name, v)
	}
	return nil
}

type measurement struct {
	name  string
	value *float64
}

func (r Reading) fields() []measurement {
	return []measurement{
		{FieldSoilMoisture, r.SoilMoisture},
		{FieldTemperature, r.Temperature},
		{FieldHumidity, r.Humidity},
		{FieldRainfall, r.Rainfall},
		{FieldPH, r.PH},
		{FieldNitrogen, r.Nitrogen},
		{FieldPhosphorus, r.Phosphorus},
		{FieldPotassium, r.Potassium},
	}
}
