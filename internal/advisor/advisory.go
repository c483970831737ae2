package advisor

import (
	"strings"

	"github.com/LeonardoBeccarini/agrimonitor/internal/model/entities"
)

// Delimiter joins fertilizer sub-findings into the rendered message.
const Delimiter = " | "

// Kind names an advisory.
type Kind string

const (
	KindIrrigation     Kind = "irrigation"
	KindFertilizer     Kind = "fertilizer"
	KindCropSuggestion Kind = "crop_suggestion"
)

// Finding is one reasoned sub-result of an advisory.
type Finding struct {
	Code     string   `json:"code"`
	Severity Severity `json:"severity"`
	Text     string   `json:"text"`
}

// Advisory is a human-readable recommendation with its severity.
type Advisory struct {
	Kind     Kind      `json:"kind"`
	Severity Severity  `json:"severity"`
	Message  string    `json:"message"`
	Findings []Finding `json:"findings"`
}

func newAdvisory(kind Kind, findings ...Finding) Advisory {
	texts := make([]string, 0, len(findings))
	sev := SeverityOK
	for _, f := range findings {
		texts = append(texts, f.Text)
		sev = Worst(sev, f.Severity)
	}
	return Advisory{
		Kind:     kind,
		Severity: sev,
		Message:  strings.Join(texts, Delimiter),
		Findings: findings,
	}
}

// Irrigation findings.
var (
	findingIrrigationNeeded = Finding{"irrigation_needed", SeverityCritical, "Irrigation needed — soil moisture too low."}
	findingMoistureOptimal  = Finding{"moisture_optimal", SeverityOK, "Soil moisture optimal. No irrigation required."}
	findingMoistureModerate = Finding{"moisture_moderate", SeverityInfo, "Soil moisture moderate — monitor regularly."}
)

// EvaluateIrrigation classifies soil moisture. temperature is validated but
// does not take part in the decision.
func EvaluateIrrigation(moisture, temperature float64) (Advisory, error) {
	if err := entities.CheckFinite(entities.FieldSoilMoisture, moisture); err != nil {
		return Advisory{}, err
	}
	if err := entities.CheckFinite(entities.FieldTemperature, temperature); err != nil {
		return Advisory{}, err
	}

	switch {
	case moisture < MoistureLow:
		return newAdvisory(KindIrrigation, findingIrrigationNeeded), nil
	case moisture > MoistureHighAdvisory:
		return newAdvisory(KindIrrigation, findingMoistureOptimal), nil
	default:
		return newAdvisory(KindIrrigation, findingMoistureModerate), nil
	}
}

// Fertilizer findings.
var (
	findingSoilAcidic    = Finding{"soil_acidic", SeverityWarning, "Soil too acidic — add lime or organic matter."}
	findingSoilAlkaline  = Finding{"soil_alkaline", SeverityWarning, "Soil too alkaline — add compost or sulfur."}
	findingPHBalanced    = Finding{"ph_balanced", SeverityOK, "Soil pH is balanced."}
	findingLowNitrogen   = Finding{"low_nitrogen", SeverityWarning, "Low Nitrogen — apply urea or compost."}
	findingLowPhosphorus = Finding{"low_phosphorus", SeverityWarning, "Low Phosphorus — use DAP fertilizer."}
	findingLowPotassium  = Finding{"low_potassium", SeverityWarning, "Low Potassium — apply potash fertilizer."}
	findingNPKAdequate   = Finding{"npk_adequate", SeverityOK, "NPK levels are adequate."}
)

// EvaluateFertilizer emits exactly one pH clause followed by one clause per
// deficient nutrient in N, P, K order, or the adequacy clause when none is.
func EvaluateFertilizer(ph, n, p, k float64) (Advisory, error) {
	for _, in := range []struct {
		name string
		v    float64
	}{
		{entities.FieldPH, ph},
		{entities.FieldNitrogen, n},
		{entities.FieldPhosphorus, p},
		{entities.FieldPotassium, k},
	} {
		if err := entities.CheckFinite(in.name, in.v); err != nil {
			return Advisory{}, err
		}
	}

	findings := make([]Finding, 0, 4)
	switch {
	case ph < PHAcidic:
		findings = append(findings, findingSoilAcidic)
	case ph > PHAlkalineAdvisory:
		findings = append(findings, findingSoilAlkaline)
	default:
		findings = append(findings, findingPHBalanced)
	}

	if n < NPKLow {
		findings = append(findings, findingLowNitrogen)
	}
	if p < NPKLow {
		findings = append(findings, findingLowPhosphorus)
	}
	if k < NPKLow {
		findings = append(findings, findingLowPotassium)
	}
	if len(findings) == 1 {
		findings = append(findings, findingNPKAdequate)
	}
	return newAdvisory(KindFertilizer, findings...), nil
}

// Crop findings, in band priority order.
var (
	findingCropIdeal    = Finding{"crop_ideal", SeverityOK, "Ideal for rice, wheat, or maize."}
	findingCropHotDry   = Finding{"crop_hot_dry", SeverityInfo, "Suitable for maize, sunflower, or cotton."}
	findingCropCoolDry  = Finding{"crop_cool_dry", SeverityInfo, "Try potato, chickpea, or pulses."}
	findingCropModerate = Finding{"crop_moderate", SeverityInfo, "Moderate conditions — suitable for multiple crops."}
)

// EvaluateCropSuggestion picks the first matching climate band:
// ideal, hot and dry, cool and dry, then the moderate fallback.
func EvaluateCropSuggestion(temperature, humidity, rainfall float64) (Advisory, error) {
	if err := entities.CheckFinite(entities.FieldTemperature, temperature); err != nil {
		return Advisory{}, err
	}
	if err := entities.CheckFinite(entities.FieldHumidity, humidity); err != nil {
		return Advisory{}, err
	}
	if err := entities.CheckFinite(entities.FieldRainfall, rainfall); err != nil {
		return Advisory{}, err
	}

	switch {
	case CropIdealTemp.Contains(temperature) &&
		CropIdealRainfall.Contains(rainfall) &&
		CropIdealHumidity.Contains(humidity):
		return newAdvisory(KindCropSuggestion, findingCropIdeal), nil
	case temperature > CropHotDryTempMin && rainfall < CropHotDryRainfallMax:
		return newAdvisory(KindCropSuggestion, findingCropHotDry), nil
	case rainfall < CropCoolDryRainfallMax && temperature < CropCoolDryTempMax:
		return newAdvisory(KindCropSuggestion, findingCropCoolDry), nil
	default:
		return newAdvisory(KindCropSuggestion, findingCropModerate), nil
	}
}
