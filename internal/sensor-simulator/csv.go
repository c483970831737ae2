package sensor_simulator

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/LeonardoBeccarini/agrimonitor/internal/model/entities"
)

// CSVHeader is the column layout of the simulated dataset.
var CSVHeader = []string{
	"timestamp", "farm_id", "N", "P", "K", "pH",
	"temperature_C", "humidity_percent", "soil_moisture_percent", "rainfall_mm",
}

// WriteCSV writes readings in the dataset layout. Missing values are empty cells.
func WriteCSV(w io.Writer, readings []entities.Reading) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range readings {
		ts := ""
		if !r.Timestamp.IsZero() {
			ts = r.Timestamp.UTC().Format(time.RFC3339)
		}
		row := []string{
			ts, r.FarmID,
			cell(r.Nitrogen), cell(r.Phosphorus), cell(r.Potassium), cell(r.PH),
			cell(r.Temperature), cell(r.Humidity), cell(r.SoilMoisture), cell(r.Rainfall),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func cell(p *float64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatFloat(*p, 'f', -1, 64)
}
