package messages

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/LeonardoBeccarini/agrimonitor/internal/model/entities"
)

// Alias accettati dai vari producer (CSV, cloud document, stream live).
var readingAliases = map[string]string{
	"soil_moisture_percent": entities.FieldSoilMoisture,
	"soil_moisture":         entities.FieldSoilMoisture,
	"moisture":              entities.FieldSoilMoisture,
	"temperature_c":         entities.FieldTemperature,
	"temperature":           entities.FieldTemperature,
	"temp":                  entities.FieldTemperature,
	"humidity_percent":      entities.FieldHumidity,
	"humidity":              entities.FieldHumidity,
	"rainfall_mm":           entities.FieldRainfall,
	"rainfall":              entities.FieldRainfall,
	"rain":                  entities.FieldRainfall,
	"ph":                    entities.FieldPH,
	"n":                     entities.FieldNitrogen,
	"nitrogen":              entities.FieldNitrogen,
	"p":                     entities.FieldPhosphorus,
	"phosphorus":            entities.FieldPhosphorus,
	"k":                     entities.FieldPotassium,
	"potassium":             entities.FieldPotassium,
}

// timestamp layouts seen from producers; python isoformat has no zone.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
}

// DecodeReading normalizes a producer payload into a canonical Reading.
// Measurements that are present but not numbers are rejected, never coerced.
func DecodeReading(payload []byte) (entities.Reading, error) {
	var raw map[string]any
	if err := json.Unmarshal(payload, &raw); err != nil {
		return entities.Reading{}, fmt.Errorf("%w: %v", entities.ErrInvalidInput, err)
	}
	return ReadingFromMap(raw)
}

// ReadingFromMap is DecodeReading for an already parsed document.
func ReadingFromMap(raw map[string]any) (entities.Reading, error) {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	// ordine stabile delle chiavi: decodifica deterministica anche con alias duplicati
	sort.Strings(keys)

	var r entities.Reading
	for _, k := range keys {
		v := raw[k]
		key := strings.ToLower(strings.TrimSpace(k))
		switch key {
		case "farm_id", "farm":
			id, err := farmID(v)
			if err != nil {
				return entities.Reading{}, err
			}
			r.FarmID = id
			continue
		case "timestamp", "time":
			t, err := parseTimestamp(v)
			if err != nil {
				return entities.Reading{}, err
			}
			r.Timestamp = t
			continue
		}

		name, ok := readingAliases[key]
		if !ok || v == nil {
			continue
		}
		f, err := number(name, v)
		if err != nil {
			return entities.Reading{}, err
		}
		assign(&r, name, f)
	}
	return r, nil
}

func number(name string, v any) (float64, error) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %s is not numeric (%q)", entities.ErrInvalidInput, name, x.String())
		}
		f = parsed
	default:
		return 0, fmt.Errorf("%w: %s has type %T, want number", entities.ErrInvalidInput, name, v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, entities.CheckFinite(name, f)
	}
	return f, nil
}

func assign(r *entities.Reading, name string, v float64) {
	p := entities.Float(v)
	switch name {
	case entities.FieldSoilMoisture:
		r.SoilMoisture = p
	case entities.FieldTemperature:
		r.Temperature = p
	case entities.FieldHumidity:
		r.Humidity = p
	case entities.FieldRainfall:
		r.Rainfall = p
	case entities.FieldPH:
		r.PH = p
	case entities.FieldNitrogen:
		r.Nitrogen = p
	case entities.FieldPhosphorus:
		r.Phosphorus = p
	case entities.FieldPotassium:
		r.Potassium = p
	}
}

func farmID(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return strings.TrimSpace(x), nil
	case float64:
		if x == math.Trunc(x) {
			return strconv.FormatInt(int64(x), 10), nil
		}
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case json.Number:
		return x.String(), nil
	}
	return "", fmt.Errorf("%w: farm_id has type %T", entities.ErrInvalidInput, v)
}

func parseTimestamp(v any) (time.Time, error) {
	s, ok := v.(string)
	if v == nil || (ok && strings.TrimSpace(s) == "") {
		return time.Time{}, nil
	}
	if !ok {
		return time.Time{}, fmt.Errorf("%w: timestamp has type %T", entities.ErrInvalidInput, v)
	}
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unrecognised timestamp %q", entities.ErrInvalidInput, s)
}
