package event

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/LeonardoBeccarini/agrimonitor/internal/model"
	msg "github.com/LeonardoBeccarini/agrimonitor/internal/model/messages"
	"github.com/LeonardoBeccarini/agrimonitor/pkg/dedup"
)

// Event types.
const (
	TypeAlertRaised       = "alert.raised"
	TypeAdvisoryEvaluated = "advisory.evaluated"
)

const sourceAdvisory = "advisory-service"

type CommonEvent struct {
	EventType     string // alert.raised | advisory.evaluated
	SourceService string
	FarmID        string
	Severity      string // ok|info|warning|critical
	Fields        map[string]interface{}
	Timestamp     time.Time
}

// MQTTHandler trasforma messaggi MQTT in CommonEvent e li passa a sink (Influx).
// Gli alert vengono passati anche a onAlert (journal).
type MQTTHandler struct {
	sink    func(CommonEvent)
	onAlert func(msg.AlertEvent)
	deduper *dedup.Deduper
}

func NewMQTTHandler(sink func(CommonEvent), onAlert func(msg.AlertEvent)) *MQTTHandler {
	return &MQTTHandler{sink: sink, onAlert: onAlert, deduper: dedup.New(10*time.Minute, 20000)}
}

func (h *MQTTHandler) Handle(_ string, m mqtt.Message) error {
	topic := m.Topic()
	payload := m.Payload()

	// entrambi i topic sono QoS1: possibili redelivery
	if !h.deduper.ShouldProcessPayload(payload) {
		return nil
	}

	switch {
	case strings.HasPrefix(topic, "event/alert/"):
		a, evt, err := decodeAlert(topic, payload)
		if err != nil {
			return err
		}
		if h.onAlert != nil {
			h.onAlert(a)
		}
		h.emit(evt)
	case strings.HasPrefix(topic, "event/advisory/"):
		evt, err := decodeAdvisory(topic, payload)
		if err != nil {
			return err
		}
		h.emit(evt)
	}
	return nil // ignora altri topic
}

func (h *MQTTHandler) emit(evt CommonEvent) {
	if h.sink != nil {
		h.sink(evt)
	}
}

func decodeAlert(topic string, payload []byte) (msg.AlertEvent, CommonEvent, error) {
	var a msg.AlertEvent
	if err := json.Unmarshal(payload, &a); err != nil {
		return msg.AlertEvent{}, CommonEvent{}, fmt.Errorf("alert: %w", err)
	}
	a.FarmID = pickFarm(topic, a.FarmID, "event/alert")
	if a.FarmID == "" {
		return msg.AlertEvent{}, CommonEvent{}, fmt.Errorf("alert: missing farm")
	}
	codes := make([]string, 0, len(a.Alerts))
	for _, al := range a.Alerts {
		codes = append(codes, al.Code)
	}
	return a, CommonEvent{
		EventType:     TypeAlertRaised,
		SourceService: sourceAdvisory,
		FarmID:        a.FarmID,
		Severity:      a.Severity.String(),
		Fields: map[string]interface{}{
			"alert_count": int64(len(a.Alerts)),
			"codes":       strings.Join(codes, ","),
		},
		Timestamp: eventTime(a.ReadingTime, a.Timestamp),
	}, nil
}

func decodeAdvisory(topic string, payload []byte) (CommonEvent, error) {
	var a msg.AdvisoryEvent
	if err := json.Unmarshal(payload, &a); err != nil {
		return CommonEvent{}, fmt.Errorf("advisory: %w", err)
	}
	farm := pickFarm(topic, a.FarmID, "event/advisory")
	if farm == "" {
		return CommonEvent{}, fmt.Errorf("advisory: missing farm")
	}
	fields := map[string]interface{}{
		"headline": a.Headline,
	}
	for name, res := range map[string]msg.AdvisoryResult{
		"irrigation":      a.Irrigation,
		"fertilizer":      a.Fertilizer,
		"crop_suggestion": a.CropSuggestion,
	} {
		if res.Severity != nil {
			fields[name+"_severity"] = res.Severity.String()
		} else if res.Error != "" {
			fields[name+"_error"] = res.Error
		}
	}
	return CommonEvent{
		EventType:     TypeAdvisoryEvaluated,
		SourceService: sourceAdvisory,
		FarmID:        farm,
		Severity:      a.Severity.String(),
		Fields:        fields,
		Timestamp:     eventTime(a.ReadingTime, a.Timestamp),
	}, nil
}

// pickFarm usa il payload, oppure il topic "prefix/{farm}".
func pickFarm(topic, farmID, prefix string) string {
	if s := strings.TrimSpace(farmID); s != "" {
		return s
	}
	return model.FarmFromTopic(topic, prefix)
}

func eventTime(reading, published time.Time) time.Time {
	switch {
	case !reading.IsZero():
		return reading
	case !published.IsZero():
		return published
	default:
		return time.Now().UTC()
	}
}
