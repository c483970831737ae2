package persistence

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/LeonardoBeccarini/agrimonitor/internal/model"
	"github.com/LeonardoBeccarini/agrimonitor/pkg/rabbitmq/rabbitmqtest"
)

type fakeStore struct {
	mu       sync.Mutex
	written  []model.Reading
	latest   []model.Reading
	writeErr error
	queryErr error
}

func (f *fakeStore) WriteReading(_ context.Context, r model.Reading) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.written = append(f.written, r)
	return nil
}

func (f *fakeStore) LatestReadings(_ context.Context, _ int, farm string) ([]model.Reading, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	var out []model.Reading
	for _, r := range f.latest {
		if farm == "" || r.FarmID == farm {
			out = append(out, r)
		}
	}
	return out, nil
}

func deliver(t *testing.T, s *Service, topic, payload string) {
	t.Helper()
	_ = s.handleReading(topic, rabbitmqtest.NewMessage(topic, []byte(payload)))
}

func TestHandleReadingWritesAndCaches(t *testing.T) {
	store := &fakeStore{}
	s := NewService(nil, store)

	deliver(t, s, "sensor/reading/f1", `{"farm_id":"f1","timestamp":"2024-05-01T10:00:00Z","moisture":42,"temp":21}`)
	deliver(t, s, "sensor/reading/f2", `{"ph":6.8}`)
	deliver(t, s, "sensor/reading/f1", `{"farm_id":"f1","timestamp":"2024-05-01T09:00:00Z","moisture":10}`)
	deliver(t, s, "sensor/reading/f1", `{"farm_id":"f1","moisture":"wet"}`)

	if len(store.written) != 3 {
		t.Fatalf("want 3 writes, got %d", len(store.written))
	}
	if store.written[1].FarmID != "f2" {
		t.Errorf("farm from topic not applied: %+v", store.written[1])
	}

	cache := s.LatestCache("")
	if len(cache) != 2 || cache[0].FarmID != "f1" || cache[1].FarmID != "f2" {
		t.Fatalf("unexpected cache: %+v", cache)
	}
	// an older reading never replaces a newer one
	if *cache[0].SoilMoisture != 42 {
		t.Errorf("cached moisture = %v, want 42", *cache[0].SoilMoisture)
	}
	if got := s.LatestCache("f2"); len(got) != 1 {
		t.Errorf("farm filter: got %d", len(got))
	}
}

func TestHandleReadingWriteError(t *testing.T) {
	store := &fakeStore{writeErr: errors.New("influx down")}
	s := NewService(nil, store)

	err := s.handleReading("sensor/reading/f1", rabbitmqtest.NewMessage("sensor/reading/f1", []byte(`{"farm_id":"f1","ph":7}`)))
	if err == nil {
		t.Fatalf("expected write error")
	}
	// the cache is still updated so the dashboard keeps working
	if len(s.LatestCache("")) != 1 {
		t.Errorf("cache not updated on write failure")
	}
}

func TestLatestFallsBackToCache(t *testing.T) {
	influxReading := model.Reading{FarmID: "f9", PH: model.Float(7)}
	testCases := []struct {
		name     string
		store    *fakeStore
		source   string
		wantUsed string
		wantFarm string
	}{
		{"influx ok", &fakeStore{latest: []model.Reading{influxReading}}, SourceAuto, SourceInflux, "f9"},
		{"influx empty", &fakeStore{}, SourceAuto, SourceCache, "f1"},
		{"influx error", &fakeStore{queryErr: errors.New("timeout")}, SourceInflux, SourceCache, "f1"},
		{"cache forced", &fakeStore{latest: []model.Reading{influxReading}}, SourceCache, SourceCache, "f1"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewService(nil, tc.store)
			s.remember(model.Reading{FarmID: "f1", Timestamp: time.Now(), PH: model.Float(6)})

			list, used := s.Latest(context.Background(), tc.source, 60, "")
			if used != tc.wantUsed {
				t.Errorf("used = %s, want %s", used, tc.wantUsed)
			}
			if len(list) != 1 || list[0].FarmID != tc.wantFarm {
				t.Errorf("list = %+v", list)
			}
		})
	}
}

func TestHTTPLatest(t *testing.T) {
	s := NewService(nil, &fakeStore{})
	s.remember(model.Reading{FarmID: "f1", Timestamp: time.Now(), SoilMoisture: model.Float(33)})
	mux := NewHTTPMux(s, nil)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/data/latest?source=auto&minutes=30", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if src := rec.Header().Get("X-Data-Source"); src != SourceCache {
		t.Errorf("X-Data-Source = %q", src)
	}
	var list []model.Reading
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 1 || *list[0].SoilMoisture != 33 {
		t.Errorf("unexpected body: %+v", list)
	}
}

func TestHTTPExportCSV(t *testing.T) {
	s := NewService(nil, &fakeStore{})
	s.remember(model.Reading{FarmID: "f1", Timestamp: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), PH: model.Float(6.5)})
	mux := NewHTTPMux(s, nil)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/data/export.csv", nil))
	rows, err := csv.NewReader(strings.NewReader(rec.Body.String())).ReadAll()
	if err != nil {
		t.Fatalf("csv: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("want header and one row, got %d", len(rows))
	}
	if rows[1][0] != "2024-05-01T10:00:00Z" || rows[1][1] != "f1" || rows[1][5] != "6.5" {
		t.Errorf("unexpected row: %v", rows[1])
	}
}

func TestHTTPReadyz(t *testing.T) {
	mux := NewHTTPMux(NewService(nil, &fakeStore{}), func() bool { return false })
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestReadingPoint(t *testing.T) {
	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	p, err := ReadingPoint("sensor_reading", model.Reading{FarmID: "f1", Timestamp: ts, PH: model.Float(6.5), Nitrogen: model.Float(40)})
	if err != nil {
		t.Fatalf("ReadingPoint: %v", err)
	}
	if p.Name() != "sensor_reading" || !p.Time().Equal(ts) {
		t.Errorf("name=%s time=%v", p.Name(), p.Time())
	}
	if len(p.TagList()) != 1 || p.TagList()[0].Value != "f1" {
		t.Errorf("tags = %+v", p.TagList())
	}
	if len(p.FieldList()) != 2 {
		t.Errorf("fields = %d, want 2", len(p.FieldList()))
	}

	if _, err := ReadingPoint("sensor_reading", model.Reading{FarmID: "f1"}); err == nil {
		t.Errorf("expected error for empty reading")
	}
}

func TestBuildLatestFlux(t *testing.T) {
	q := buildLatestFlux("bucket", "sensor_reading", 30, "f1")
	for _, want := range []string{`from(bucket: "bucket")`, "range(start: -30m)", `r.farm_id == "f1"`, "pivot("} {
		if !strings.Contains(q, want) {
			t.Errorf("query missing %q:\n%s", want, q)
		}
	}
	if strings.Contains(buildLatestFlux("bucket", "sensor_reading", 30, ""), "farm_id ==") {
		t.Errorf("farm filter must be omitted for all farms")
	}
}
