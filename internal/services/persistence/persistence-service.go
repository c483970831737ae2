package persistence

import (
	"context"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/LeonardoBeccarini/agrimonitor/internal/model"
	"github.com/LeonardoBeccarini/agrimonitor/internal/model/messages"
	"github.com/LeonardoBeccarini/agrimonitor/pkg/dedup"
	"github.com/LeonardoBeccarini/agrimonitor/pkg/rabbitmq"
)

// Data sources reported in X-Data-Source.
const (
	SourceAuto   = "auto"
	SourceInflux = "influx"
	SourceCache  = "cache"
)

// Service stores every reading and remembers the latest one per farm.
type Service struct {
	consumer rabbitmq.IConsumer
	store    ReadingStore
	deduper  *dedup.Deduper

	mu     sync.RWMutex
	latest map[string]model.Reading
}

func NewService(consumer rabbitmq.IConsumer, store ReadingStore) *Service {
	s := &Service{
		consumer: consumer,
		store:    store,
		deduper:  dedup.New(10*time.Minute, 20000),
		latest:   make(map[string]model.Reading),
	}
	if consumer != nil {
		consumer.SetHandler(s.handleReading)
	}
	return s
}

// Start blocks consuming readings until ctx is done.
func (s *Service) Start(ctx context.Context) {
	s.consumer.ConsumeMessage(ctx)
}

func (s *Service) handleReading(topic string, msg mqtt.Message) error {
	if !s.deduper.ShouldProcessPayload(msg.Payload()) {
		return nil
	}
	r, err := messages.DecodeReading(msg.Payload())
	if err != nil {
		log.Printf("persistence: invalid reading on %s: %v", topic, err)
		return nil // non bloccare lo stream
	}
	if err := r.Validate(); err != nil {
		log.Printf("persistence: invalid reading on %s: %v", topic, err)
		return nil
	}
	if r.FarmID == "" {
		r.FarmID = model.FarmFromTopic(msg.Topic(), "sensor/reading")
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}

	s.remember(r)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.store.WriteReading(ctx, r); err != nil {
		log.Printf("persistence: write error farm=%s: %v", r.FarmID, err)
		return err
	}
	log.Printf("persistence: wrote farm=%s fields=%d", r.FarmID, len(r.Measurements()))
	return nil
}

func (s *Service) remember(r model.Reading) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.latest[r.FarmID]; ok && prev.Timestamp.After(r.Timestamp) {
		return
	}
	s.latest[r.FarmID] = r
}

// LatestCache returns the cached latest reading per farm, sorted by farm.
func (s *Service) LatestCache(farm string) []model.Reading {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Reading, 0, len(s.latest))
	for id, r := range s.latest {
		if farm != "" && id != farm {
			continue
		}
		out = append(out, r)
	}
	sortByFarm(out)
	return out
}

// Latest prefers the store and falls back to the cache, reporting the
// source actually used.
func (s *Service) Latest(ctx context.Context, source string, minutes int, farm string) ([]model.Reading, string) {
	if (source == SourceInflux || source == SourceAuto) && s.store != nil {
		list, err := s.store.LatestReadings(ctx, minutes, farm)
		if err == nil && len(list) > 0 {
			return list, SourceInflux
		}
		if err != nil {
			log.Printf("persistence: latest from store failed, using cache: %v", err)
		}
	}
	return s.LatestCache(farm), SourceCache
}
