package persistence

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/LeonardoBeccarini/agrimonitor/internal/model"
	"github.com/LeonardoBeccarini/agrimonitor/internal/model/messages"
)

// Configurazione Influx
type InfluxConfig struct {
	InfluxURL    string
	InfluxToken  string
	InfluxOrg    string
	InfluxBucket string
	Measurement  string // default "sensor_reading"
}

// ReadingStore is where readings are persisted and read back.
type ReadingStore interface {
	WriteReading(ctx context.Context, r model.Reading) error
	// LatestReadings returns the newest reading per farm within the last
	// minutes; an empty farm means every farm.
	LatestReadings(ctx context.Context, minutes int, farm string) ([]model.Reading, error)
}

// InfluxStore is the InfluxDB v2 ReadingStore.
type InfluxStore struct {
	writeAPI    api.WriteAPIBlocking
	queryAPI    api.QueryAPI
	bucket      string
	measurement string
}

var _ ReadingStore = (*InfluxStore)(nil)

func NewInfluxStore(client influxdb2.Client, cfg InfluxConfig) (*InfluxStore, error) {
	if cfg.InfluxOrg == "" || cfg.InfluxBucket == "" {
		return nil, fmt.Errorf("influx config incomplete")
	}
	if cfg.Measurement == "" {
		cfg.Measurement = "sensor_reading"
	}
	return &InfluxStore{
		writeAPI:    client.WriteAPIBlocking(cfg.InfluxOrg, cfg.InfluxBucket),
		queryAPI:    client.QueryAPI(cfg.InfluxOrg),
		bucket:      cfg.InfluxBucket,
		measurement: sanitizeMeasurement(cfg.Measurement),
	}, nil
}

func (s *InfluxStore) WriteReading(ctx context.Context, r model.Reading) error {
	p, err := ReadingPoint(s.measurement, r)
	if err != nil {
		return err
	}
	return s.writeAPI.WritePoint(ctx, p)
}

func (s *InfluxStore) LatestReadings(ctx context.Context, minutes int, farm string) ([]model.Reading, error) {
	res, err := s.queryAPI.Query(ctx, buildLatestFlux(s.bucket, s.measurement, minutes, farm))
	if err != nil {
		return nil, fmt.Errorf("influx query: %w", err)
	}
	defer res.Close()

	out := make([]model.Reading, 0)
	for res.Next() {
		rec := res.Record()
		r, err := messages.ReadingFromMap(rec.Values())
		if err != nil {
			return nil, fmt.Errorf("influx record: %w", err)
		}
		r.Timestamp = rec.Time().UTC()
		out = append(out, r)
	}
	if res.Err() != nil {
		return nil, fmt.Errorf("influx iter: %w", res.Err())
	}
	sortByFarm(out)
	return out, nil
}

// ReadingPoint builds one point per reading: tag farm_id, one field per
// present measurement. Readings without measurements are not written.
func ReadingPoint(measurement string, r model.Reading) (*write.Point, error) {
	fields := make(map[string]interface{}, 8)
	for k, v := range r.Measurements() {
		fields[k] = v
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("reading for farm %q has no measurements", r.FarmID)
	}
	t := r.Timestamp
	if t.IsZero() {
		t = time.Now()
	}
	tags := map[string]string{"farm_id": r.FarmID}
	return influxdb2.NewPoint(measurement, tags, fields, t), nil
}

func buildLatestFlux(bucket, measurement string, minutes int, farm string) string {
	farmFilter := ""
	if farm != "" {
		farmFilter = fmt.Sprintf("\n  |> filter(fn: (r) => r.farm_id == %q)", farm)
	}
	return fmt.Sprintf(`
from(bucket: %q)
  |> range(start: -%dm)
  |> filter(fn: (r) => r._measurement == %q)%s
  |> last()
  |> pivot(rowKey: ["_time"], columnKey: ["_field"], valueColumn: "_value")
  |> group(columns: ["farm_id"])
  |> sort(columns: ["_time"], desc: true)
  |> limit(n: 1)
  |> group()
`, bucket, minutes, measurement, farmFilter)
}

func sortByFarm(list []model.Reading) {
	sort.SliceStable(list, func(i, j int) bool { return list[i].FarmID < list[j].FarmID })
}

func sanitizeMeasurement(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9',
			r == '_', r == ':', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
