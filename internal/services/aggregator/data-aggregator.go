package aggregator

import (
	"context"
	"log"
	"math"
	"sort"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/LeonardoBeccarini/agrimonitor/internal/model"
	"github.com/LeonardoBeccarini/agrimonitor/internal/model/entities"
	"github.com/LeonardoBeccarini/agrimonitor/pkg/dedup"
	"github.com/LeonardoBeccarini/agrimonitor/pkg/rabbitmq"
)

// DataAggregatorService merges the partial samples of a farm's probes
// (sensor/raw/{farm}/{sensor}) into one reading per farm and interval.
type DataAggregatorService struct {
	consumer            rabbitmq.IConsumer
	publisher           rabbitmq.IPublisher
	deduper             *dedup.Deduper
	buffer              map[string][]entities.Reading // key is FarmID
	mutex               sync.Mutex
	aggregationInterval time.Duration
	readingTopicTmpl    string
	now                 func() time.Time
}

func NewDataAggregatorService(consumer rabbitmq.IConsumer, publisher rabbitmq.IPublisher, aggregationInterval time.Duration) *DataAggregatorService {
	d := &DataAggregatorService{
		consumer:            consumer,
		publisher:           publisher,
		deduper:             dedup.New(10*time.Minute, 20000),
		aggregationInterval: aggregationInterval,
		buffer:              make(map[string][]entities.Reading),
		readingTopicTmpl:    model.ReadingTopicTmpl,
		now:                 func() time.Time { return time.Now().UTC() },
	}
	if consumer != nil {
		consumer.SetHandler(d.messageHandler)
	}
	return d
}

func (d *DataAggregatorService) messageHandler(_ string, message mqtt.Message) error {
	if !d.deduper.ShouldProcessPayload(message.Payload()) {
		return nil
	}
	sample, err := model.DecodeReading(message.Payload())
	if err != nil {
		log.Printf("aggregator: invalid sample on %s: %v", message.Topic(), err)
		return nil
	}
	if sample.FarmID == "" {
		sample.FarmID = model.FarmFromTopic(message.Topic(), "sensor/raw")
	}
	if sample.FarmID == "" {
		log.Printf("aggregator: sample without farm on %s dropped", message.Topic())
		return nil
	}

	d.mutex.Lock()
	d.buffer[sample.FarmID] = append(d.buffer[sample.FarmID], sample)
	n := len(d.buffer[sample.FarmID])
	d.mutex.Unlock()

	log.Printf("aggregator: buffered sample farm=%s (%d in window)", sample.FarmID, n)
	return nil
}

func (d *DataAggregatorService) Start(ctx context.Context) {
	// il consumer gira in background, altrimenti il ticker non viene mai raggiunto
	go d.consumer.ConsumeMessage(ctx)

	ticker := time.NewTicker(d.aggregationInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.aggregateAndPublish() // svuota l'ultima finestra
			return
		case <-ticker.C:
			d.aggregateAndPublish()
		}
	}
}

// aggregateAndPublish publishes one merged reading per buffered farm and
// returns how many were published.
func (d *DataAggregatorService) aggregateAndPublish() int {
	d.mutex.Lock()
	window := d.buffer
	d.buffer = make(map[string][]entities.Reading)
	d.mutex.Unlock()

	farms := make([]string, 0, len(window))
	for farm := range window {
		farms = append(farms, farm)
	}
	sort.Strings(farms)

	published := 0
	for _, farm := range farms {
		out := MergeReadings(farm, window[farm], d.now())
		if err := rabbitmq.PublishJSON(d.publisher, model.Topic(d.readingTopicTmpl, farm), out); err != nil {
			log.Printf("aggregator: publish farm=%s: %v", farm, err)
			continue
		}
		published++
		log.Printf("aggregator: published farm=%s from %d samples", farm, len(window[farm]))
	}
	return published
}

// MergeReadings averages every measurement over the samples that report it,
// rounded to 2 decimals. The timestamp is the newest sample's, or fallback
// when no sample carries one.
func MergeReadings(farmID string, samples []entities.Reading, fallback time.Time) entities.Reading {
	out := entities.Reading{FarmID: farmID}
	mean := func(get func(entities.Reading) *float64) *float64 {
		var sum float64
		n := 0
		for _, s := range samples {
			if v := get(s); v != nil {
				sum += *v
				n++
			}
		}
		if n == 0 {
			return nil
		}
		return entities.Float(math.Round(sum/float64(n)*100) / 100)
	}
	out.SoilMoisture = mean(func(r entities.Reading) *float64 { return r.SoilMoisture })
	out.Temperature = mean(func(r entities.Reading) *float64 { return r.Temperature })
	out.Humidity = mean(func(r entities.Reading) *float64 { return r.Humidity })
	out.Rainfall = mean(func(r entities.Reading) *float64 { return r.Rainfall })
	out.PH = mean(func(r entities.Reading) *float64 { return r.PH })
	out.Nitrogen = mean(func(r entities.Reading) *float64 { return r.Nitrogen })
	out.Phosphorus = mean(func(r entities.Reading) *float64 { return r.Phosphorus })
	out.Potassium = mean(func(r entities.Reading) *float64 { return r.Potassium })

	for _, s := range samples {
		if s.Timestamp.After(out.Timestamp) {
			out.Timestamp = s.Timestamp
		}
	}
	if out.Timestamp.IsZero() {
		out.Timestamp = fallback
	}
	return out
}
