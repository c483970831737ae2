package app

import (
	"sort"
	"time"

	"github.com/LeonardoBeccarini/agrimonitor/internal/advisor"
	"github.com/LeonardoBeccarini/agrimonitor/internal/model"
	"github.com/LeonardoBeccarini/agrimonitor/internal/services/advisory"
)

// Where an evaluation came from.
const (
	SourceRemote = "grpc"
	SourceLocal  = "local"
)

// FarmView is what the dashboard shows for one farm.
type FarmView struct {
	FarmID     string              `json:"farm_id"`
	Reading    model.Reading       `json:"reading"`
	Evaluation advisory.Evaluation `json:"evaluation"`
	Source     string              `json:"source"` // grpc | local
}

// Stats are the averages of the farms' latest readings. A nil average
// means no farm reported that measurement.
type Stats struct {
	Count          int      `json:"count"`
	AvgTemperature *float64 `json:"avg_temperature_c"`
	AvgHumidity    *float64 `json:"avg_humidity_percent"`
	AvgMoisture    *float64 `json:"avg_soil_moisture_percent"`
}

// Upstream status as reported to the dashboard.
type UpstreamStatus struct {
	Breaker string `json:"breaker"`
	Stale   bool   `json:"stale"`
	Error   string `json:"error,omitempty"`
}

// ---------- Upstream payloads ----------

// AlertRecord is one journaled alert as served by the event service.
type AlertRecord struct {
	ID          string           `json:"id"`
	FarmID      string           `json:"farm_id"`
	ReadingTime time.Time        `json:"reading_time"`
	Code        string           `json:"code"`
	Severity    advisor.Severity `json:"severity"`
	Message     string           `json:"message"`
}

type FarmAlerts struct {
	FarmID string        `json:"farm_id"`
	Alerts []AlertRecord `json:"alerts"`
}

type DashboardData struct {
	Farms     []FarmView                `json:"farms"`
	Alerts    []FarmAlerts              `json:"alerts"`
	Stats     Stats                     `json:"stats"`
	Upstreams map[string]UpstreamStatus `json:"upstreams"`
}

func sortByFarm(list []model.Reading) {
	sort.SliceStable(list, func(i, j int) bool { return list[i].FarmID < list[j].FarmID })
}
