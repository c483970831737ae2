package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"

	"github.com/LeonardoBeccarini/agrimonitor/internal/storage"
)

// AlertLister is the read side of the alert journal.
type AlertLister interface {
	ListAlerts(ctx context.Context, farmID string, since time.Time, limit int) ([]storage.AlertRecord, error)
}

// FarmAlerts is the payload exposed to the gateway.
type FarmAlerts struct {
	FarmID string                `json:"farm_id"`
	Alerts []storage.AlertRecord `json:"alerts"`
}

// Advisory is one evaluated advisory read back from Influx.
type Advisory struct {
	FarmID   string `json:"farm_id"`
	Severity string `json:"severity"`
	Headline string `json:"headline"`
	Time     string `json:"time"` // RFC3339
}

type queryParams struct {
	Farm      string
	Minutes   int
	Limit     int
	TimeoutMS int
}

func parseQuery(r *http.Request, defMin, defLim, defTOms int) queryParams {
	q := r.URL.Query()
	get := func(k string, def, min, max int) int {
		if v := strings.TrimSpace(q.Get(k)); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				if n < min {
					return min
				}
				if max > 0 && n > max {
					return max
				}
				return n
			}
		}
		return def
	}
	return queryParams{
		Farm:      strings.TrimSpace(q.Get("farm")),
		Minutes:   get("minutes", defMin, 1, 7*24*60),
		Limit:     get("limit", defLim, 1, 500),
		TimeoutMS: get("timeout_ms", defTOms, 200, 5000),
	}
}

// GroupByFarm groups records per farm, farms sorted by id, records kept in order.
func GroupByFarm(records []storage.AlertRecord) []FarmAlerts {
	byFarm := make(map[string][]storage.AlertRecord)
	for _, rec := range records {
		byFarm[rec.FarmID] = append(byFarm[rec.FarmID], rec)
	}
	farms := make([]string, 0, len(byFarm))
	for f := range byFarm {
		farms = append(farms, f)
	}
	sort.Strings(farms)
	out := make([]FarmAlerts, 0, len(farms))
	for _, f := range farms {
		out = append(out, FarmAlerts{FarmID: f, Alerts: byFarm[f]})
	}
	return out
}

// GET /events/alerts/latest?farm=&limit=50&minutes=1440
func NewAlertsLatestHandler(journal AlertLister) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := parseQuery(r, 1440, 50, 2000)
		ctx, cancel := context.WithTimeout(r.Context(), time.Duration(p.TimeoutMS)*time.Millisecond)
		defer cancel()

		since := time.Now().Add(-time.Duration(p.Minutes) * time.Minute)
		records, err := journal.ListAlerts(ctx, p.Farm, since, p.Limit)
		w.Header().Set("Content-Type", "application/json")
		if err != nil {
			log.Printf("event-svc: journal query: %v", err)
			w.Header().Set("X-Error", "journal-query-error")
			_, _ = w.Write([]byte("[]"))
			return
		}
		_ = json.NewEncoder(w).Encode(GroupByFarm(records))
	})
}

func buildAdvisoryFlux(bucket string, minutes, limit int, farm string) string {
	farmFilter := ""
	if farm != "" {
		farmFilter = fmt.Sprintf(" and r.farm_id == %q", farm)
	}
	return fmt.Sprintf(`
from(bucket: %q)
  |> range(start: -%dm)
  |> filter(fn: (r) => r._measurement == %q and r.event_type == %q%s)
  |> filter(fn: (r) => r._field == "headline")
  |> keep(columns: ["_time","_value","farm_id","severity"])
  |> group()
  |> sort(columns: ["_time"], desc: true)
  |> limit(n:%d)
`, bucket, minutes, Measurement, TypeAdvisoryEvaluated, farmFilter, limit)
}

// GET /events/advisories/latest?farm=&limit=20&minutes=1440
func NewAdvisoriesLatestHandler(influx influxdb2.Client, org, bucket string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := parseQuery(r, 1440, 20, 2000)
		ctx, cancel := context.WithTimeout(r.Context(), time.Duration(p.TimeoutMS)*time.Millisecond)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		res, err := influx.QueryAPI(org).Query(ctx, buildAdvisoryFlux(bucket, p.Minutes, p.Limit, p.Farm))
		if err != nil {
			w.Header().Set("X-Error", "influx-query-error")
			_, _ = w.Write([]byte("[]"))
			return
		}
		defer res.Close()

		out := make([]Advisory, 0, p.Limit)
		for res.Next() {
			rec := res.Record()
			out = append(out, Advisory{
				FarmID:   stringValue(rec.ValueByKey("farm_id")),
				Severity: stringValue(rec.ValueByKey("severity")),
				Headline: stringValue(rec.Value()),
				Time:     rec.Time().UTC().Format(time.RFC3339),
			})
		}
		if res.Err() != nil {
			w.Header().Set("X-Error", "influx-iter-error")
		}
		_ = json.NewEncoder(w).Encode(out)
	})
}

func stringValue(v interface{}) string {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}
