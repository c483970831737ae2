package sensor_simulator

import (
	"context"
	"log"
	"time"

	"github.com/LeonardoBeccarini/agrimonitor/internal/model"
	"github.com/LeonardoBeccarini/agrimonitor/pkg/rabbitmq"
)

// SensorSimulator publishes one reading per farm at every tick.
type SensorSimulator struct {
	farms     []model.Farm
	generator *DataGenerator
	publisher rabbitmq.IPublisher
	topicTmpl string
}

func NewSensorSimulator(publisher rabbitmq.IPublisher, gen *DataGenerator, farms []model.Farm) *SensorSimulator {
	return &SensorSimulator{
		farms:     farms,
		generator: gen,
		publisher: publisher,
		topicTmpl: model.ReadingTopicTmpl,
	}
}

// SetTopic overrides the topic template, e.g. "sensor/raw/{farm}/probe-1"
// to feed the aggregator instead of the advisory service.
func (s *SensorSimulator) SetTopic(tmpl string) {
	if tmpl != "" {
		s.topicTmpl = tmpl
	}
}

// Start pubblica a intervalli regolari finché ctx non viene cancellato.
func (s *SensorSimulator) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.publisher.Close()
			return
		case <-ticker.C:
			s.PublishOnce()
		}
	}
}

// PublishOnce emits one reading for every farm and returns how many were published.
func (s *SensorSimulator) PublishOnce() int {
	sent := 0
	for _, f := range s.farms {
		r := s.generator.Next(f.ID)
		topic := model.Topic(s.topicTmpl, f.ID)
		if err := rabbitmq.PublishJSON(s.publisher, topic, r); err != nil {
			log.Printf("sensor: publish error farm=%s: %v", f.ID, err)
			continue
		}
		log.Printf("sensor: pub farm=%s moisture=%.2f%% temp=%.2fC ph=%.2f",
			f.ID, *r.SoilMoisture, *r.Temperature, *r.PH)
		sent++
	}
	return sent
}
