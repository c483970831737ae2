package persistence

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	sensorSimulator "github.com/LeonardoBeccarini/agrimonitor/internal/sensor-simulator"
)

func NewHTTPMux(svc *Service, ready func() bool) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("ok")) })

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ok := ready == nil || ready()
		w.Header().Set("Content-Type", "application/json")
		if !ok {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ready": ok})
	})

	// GET /data/latest
	// Query params:
	//   source=auto|influx|cache   (default auto: prova Influx, fallback cache)
	//   minutes=<int>              (finestra temporale per Influx, default 1440 = 24h)
	//   farm=<id>                  (opzionale)
	mux.HandleFunc("/data/latest", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		source := strings.ToLower(q.Get("source"))
		if source == "" {
			source = SourceAuto
		}
		minutes := 60 * 24
		if s := q.Get("minutes"); s != "" {
			if n, err := strconv.Atoi(s); err == nil && n > 0 {
				minutes = n
			}
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		list, used := svc.Latest(ctx, source, minutes, strings.TrimSpace(q.Get("farm")))

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Data-Source", used)
		_ = json.NewEncoder(w).Encode(list)
	})

	// GET /data/export.csv?farm=
	mux.HandleFunc("/data/export.csv", func(w http.ResponseWriter, r *http.Request) {
		list := svc.LatestCache(strings.TrimSpace(r.URL.Query().Get("farm")))
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="readings.csv"`)
		if err := sensorSimulator.WriteCSV(w, list); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})

	return mux
}
