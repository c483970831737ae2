package model

import (
	"strings"

	"github.com/LeonardoBeccarini/agrimonitor/internal/model/entities"
	"github.com/LeonardoBeccarini/agrimonitor/internal/model/messages"
)

// Alias per esporre tipi comuni ai servizi

type (
	Reading        = entities.Reading
	Farm           = entities.Farm
	AlertEvent     = messages.AlertEvent
	AdvisoryEvent  = messages.AdvisoryEvent
	AdvisoryResult = messages.AdvisoryResult
)

// Topic MQTT condivisi tra i servizi.
const (
	RawTopicTmpl      = "sensor/raw/{farm}" // + "/{sensor}"
	ReadingTopicTmpl  = "sensor/reading/{farm}"
	AlertTopicTmpl    = "event/alert/{farm}"
	AdvisoryTopicTmpl = "event/advisory/{farm}"

	RawSubTopic      = "sensor/raw/#"
	ReadingSubTopic  = "sensor/reading/#"
	AlertSubTopic    = "event/alert/#"
	AdvisorySubTopic = "event/advisory/#"
)

var (
	DecodeReading = messages.DecodeReading
	Float         = entities.Float
)

// Topic sostituisce {farm} nel template; farm vuota → "unknown".
func Topic(tmpl, farmID string) string {
	farmID = strings.TrimSpace(farmID)
	if farmID == "" {
		farmID = "unknown"
	}
	return strings.ReplaceAll(tmpl, "{farm}", farmID)
}

// FarmFromTopic estrae la farm da "prefix/{farm}[/...]".
func FarmFromTopic(topic, prefix string) string {
	suffix := strings.TrimPrefix(topic, strings.TrimSuffix(prefix, "/")+"/")
	if suffix == topic {
		return ""
	}
	if i := strings.Index(suffix, "/"); i >= 0 {
		suffix = suffix[:i]
	}
	return suffix
}
