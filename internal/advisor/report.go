package advisor

import "github.com/LeonardoBeccarini/agrimonitor/internal/model/entities"

// Result holds one advisory or the error that prevented it.
type Result struct {
	Advisory *Advisory
	Err      error
}

// OK reports whether the advisory was computed.
func (r Result) OK() bool { return r.Err == nil && r.Advisory != nil }

// Report is the outcome of the three advisories for one reading.
// Each is computed independently: one failure does not hide the others.
type Report struct {
	FarmID         string
	Irrigation     Result
	Fertilizer     Result
	CropSuggestion Result
}

// Severity is the worst severity among the computed advisories.
func (r Report) Severity() Severity {
	w := SeverityOK
	for _, res := range r.Results() {
		if res.OK() {
			w = Worst(w, res.Advisory.Severity)
		}
	}
	return w
}

// Results returns irrigation, fertilizer and crop results in that order.
func (r Report) Results() []Result {
	return []Result{r.Irrigation, r.Fertilizer, r.CropSuggestion}
}

// Err returns the first advisory error, if any.
func (r Report) Err() error {
	for _, res := range r.Results() {
		if res.Err != nil {
			return res.Err
		}
	}
	return nil
}

// Evaluate runs every advisory on r.
func Evaluate(r entities.Reading) Report {
	return Report{
		FarmID: r.FarmID,
		Irrigation: result(func() (Advisory, error) {
			if r.SoilMoisture == nil {
				return Advisory{}, missing(entities.FieldSoilMoisture)
			}
			// temperature is not part of the irrigation decision
			temp := 0.0
			if r.Temperature != nil {
				temp = *r.Temperature
			}
			return EvaluateIrrigation(*r.SoilMoisture, temp)
		}),
		Fertilizer: result(func() (Advisory, error) {
			if err := require(
				named{entities.FieldPH, r.PH},
				named{entities.FieldNitrogen, r.Nitrogen},
				named{entities.FieldPhosphorus, r.Phosphorus},
				named{entities.FieldPotassium, r.Potassium},
			); err != nil {
				return Advisory{}, err
			}
			return EvaluateFertilizer(*r.PH, *r.Nitrogen, *r.Phosphorus, *r.Potassium)
		}),
		CropSuggestion: result(func() (Advisory, error) {
			if err := require(
				named{entities.FieldTemperature, r.Temperature},
				named{entities.FieldHumidity, r.Humidity},
				named{entities.FieldRainfall, r.Rainfall},
			); err != nil {
				return Advisory{}, err
			}
			return EvaluateCropSuggestion(*r.Temperature, *r.Humidity, *r.Rainfall)
		}),
	}
}

type named struct {
	name  string
	value *float64
}

func require(fields ...named) error {
	for _, f := range fields {
		if f.value == nil {
			return missing(f.name)
		}
	}
	return nil
}

func result(fn func() (Advisory, error)) Result {
	a, err := fn()
	if err != nil {
		return Result{Err: err}
	}
	return Result{Advisory: &a}
}
