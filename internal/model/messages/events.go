package messages

import (
	"time"

	"github.com/LeonardoBeccarini/agrimonitor/internal/advisor"
)

// AlertEvent is published on event/alert/{farm} when a reading raised alerts.
type AlertEvent struct {
	ID          string           `json:"id"`
	FarmID      string           `json:"farm_id"`
	ReadingTime time.Time        `json:"reading_time"`
	Severity    advisor.Severity `json:"severity"` // worst alert
	Alerts      []advisor.Alert  `json:"alerts"`
	Timestamp   time.Time        `json:"timestamp"`
}

// AdvisoryResult is one advisory or the reason it could not be computed.
type AdvisoryResult struct {
	Severity *advisor.Severity `json:"severity,omitempty"`
	Message  string            `json:"message,omitempty"`
	Findings []advisor.Finding `json:"findings,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// AdvisoryEvent is published on event/advisory/{farm} for every evaluated reading.
type AdvisoryEvent struct {
	ID             string           `json:"id"`
	FarmID         string           `json:"farm_id"`
	ReadingTime    time.Time        `json:"reading_time"`
	Irrigation     AdvisoryResult   `json:"irrigation"`
	Fertilizer     AdvisoryResult   `json:"fertilizer"`
	CropSuggestion AdvisoryResult   `json:"crop_suggestion"`
	Severity       advisor.Severity `json:"severity"`
	Headline       string           `json:"headline"`
	Timestamp      time.Time        `json:"timestamp"`
}

// NewAdvisoryResult flattens an advisor.Result for the wire.
func NewAdvisoryResult(res advisor.Result) AdvisoryResult {
	if res.Err != nil {
		return AdvisoryResult{Error: res.Err.Error()}
	}
	if res.Advisory == nil {
		return AdvisoryResult{}
	}
	sev := res.Advisory.Severity
	return AdvisoryResult{
		Severity: &sev,
		Message:  res.Advisory.Message,
		Findings: res.Advisory.Findings,
	}
}
