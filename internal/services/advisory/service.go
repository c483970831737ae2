package advisory

import (
	"context"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/LeonardoBeccarini/agrimonitor/internal/advisor"
	"github.com/LeonardoBeccarini/agrimonitor/internal/model"
	"github.com/LeonardoBeccarini/agrimonitor/internal/model/messages"
	"github.com/LeonardoBeccarini/agrimonitor/pkg/dedup"
	"github.com/LeonardoBeccarini/agrimonitor/pkg/rabbitmq"
)

// Service consumes readings, evaluates them and publishes advisory and alert events.
type Service struct {
	consumer  rabbitmq.IConsumer
	publisher rabbitmq.IPublisher
	deduper   *dedup.Deduper
	metrics   *Metrics

	alertTopicTmpl    string
	advisoryTopicTmpl string

	now   func() time.Time
	newID func() string
}

func NewService(c rabbitmq.IConsumer, p rabbitmq.IPublisher, m *Metrics) *Service {
	s := &Service{
		consumer:          c,
		publisher:         p,
		deduper:           dedup.New(10*time.Minute, 20000),
		metrics:           m,
		alertTopicTmpl:    model.AlertTopicTmpl,
		advisoryTopicTmpl: model.AdvisoryTopicTmpl,
		now:               func() time.Time { return time.Now().UTC() },
		newID:             func() string { return uuid.NewString() },
	}
	if c != nil {
		c.SetHandler(s.handleReading)
	}
	return s
}

// Start blocks consuming readings until ctx is done.
func (s *Service) Start(ctx context.Context) {
	s.consumer.ConsumeMessage(ctx)
}

func (s *Service) handleReading(_ string, msg mqtt.Message) error {
	if !s.deduper.ShouldProcessPayload(msg.Payload()) {
		s.metrics.duplicate()
		return nil
	}

	r, err := messages.DecodeReading(msg.Payload())
	if err != nil {
		s.metrics.invalid()
		log.Printf("advisory: invalid reading on %s: %v", msg.Topic(), err)
		return nil // non bloccare lo stream
	}
	if r.FarmID == "" {
		r.FarmID = model.FarmFromTopic(msg.Topic(), "sensor/reading")
	}

	adv, alert, err := s.Process(r)
	if err != nil {
		s.metrics.invalid()
		log.Printf("advisory: farm=%s rejected: %v", r.FarmID, err)
		return nil
	}

	if err := rabbitmq.PublishJSON(s.publisher, model.Topic(s.advisoryTopicTmpl, r.FarmID), adv); err != nil {
		return fmt.Errorf("publish advisory: %w", err)
	}
	if alert != nil {
		if err := rabbitmq.PublishJSON(s.publisher, model.Topic(s.alertTopicTmpl, r.FarmID), alert); err != nil {
			return fmt.Errorf("publish alert: %w", err)
		}
	}
	n := 0
	if alert != nil {
		n = len(alert.Alerts)
	}
	log.Printf("advisory: farm=%s severity=%s alerts=%d headline=%q", r.FarmID, adv.Severity, n, adv.Headline)
	return nil
}

// Process evaluates r and builds the events to publish. The alert event is
// nil when the reading raised no alerts.
func (s *Service) Process(r model.Reading) (messages.AdvisoryEvent, *messages.AlertEvent, error) {
	ev, err := Evaluate(r)
	if err != nil {
		return messages.AdvisoryEvent{}, nil, err
	}
	s.metrics.observe(ev)

	now := s.now()
	readingTime := r.Timestamp
	if readingTime.IsZero() {
		readingTime = now
	}

	adv := messages.AdvisoryEvent{
		ID:             s.newID(),
		FarmID:         r.FarmID,
		ReadingTime:    readingTime,
		Irrigation:     ev.Irrigation,
		Fertilizer:     ev.Fertilizer,
		CropSuggestion: ev.CropSuggestion,
		Severity:       ev.Severity,
		Headline:       ev.Headline,
		Timestamp:      now,
	}
	if len(ev.Alerts) == 0 {
		return adv, nil, nil
	}
	return adv, &messages.AlertEvent{
		ID:          s.newID(),
		FarmID:      r.FarmID,
		ReadingTime: readingTime,
		Severity:    advisor.WorstAlert(ev.Alerts),
		Alerts:      ev.Alerts,
		Timestamp:   now,
	}, nil
}
