// Package advisor maps sensor readings to agronomic advisories and alerts.
package advisor

// Soil moisture, percent.
const (
	MoistureLow          = 30.0 // below: irrigation needed
	MoistureHighAdvisory = 70.0 // above: optimal, no irrigation
	MoistureHighAlert    = 80.0 // above: soil too wet (dashboard status)
	MoistureCriticalLow  = 25.0 // below: low-moisture alert
)

// Air temperature, °C.
const (
	TempHigh           = 38.0 // heat stress
	TempHighSimulation = 42.0 // upper simulation bound, not a rule boundary
	TempLow            = 15.0 // growth slows
)

// Soil pH.
const (
	PHAcidic           = 5.5
	PHAlkalineAdvisory = 7.5
	PHAlkalineAlert    = 8.5
	PHSummaryAcidic    = 6.0
)

// NPKLow is the nutrient index below which N, P or K is deficient.
const NPKLow = 40.0

// Band is a closed interval [Min, Max].
type Band struct{ Min, Max float64 }

// Contains reports whether v lies in the band, bounds included.
func (b Band) Contains(v float64) bool { return v >= b.Min && v <= b.Max }

// Climate bands for crop suggestions.
var (
	CropIdealTemp     = Band{Min: 20, Max: 30}
	CropIdealRainfall = Band{Min: 100, Max: 200}
	CropIdealHumidity = Band{Min: 60, Max: 80}
)

const (
	CropHotDryTempMin      = 30.0
	CropHotDryRainfallMax  = 100.0
	CropCoolDryRainfallMax = 80.0
	CropCoolDryTempMax     = 25.0
)
