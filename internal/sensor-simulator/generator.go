package sensor_simulator

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/LeonardoBeccarini/agrimonitor/internal/model/entities"
)

// Profile selects the value ranges of generated readings.
type Profile string

const (
	ProfileBatch     Profile = "batch"     // dataset CSV
	ProfileLive      Profile = "live"      // stream live: più caldo e più umido
	ProfileRealistic Profile = "realistic" // random walk per farm
)

// Range is a uniform sampling interval.
type Range struct{ Min, Max float64 }

func (r Range) width() float64 { return r.Max - r.Min }

func (r Range) clamp(v float64) float64 { return math.Max(r.Min, math.Min(r.Max, v)) }

// Ranges holds one Range per measurement.
type Ranges struct {
	Nitrogen, Phosphorus, Potassium Range
	PH                              Range
	Temperature                     Range
	Humidity                        Range
	Moisture                        Range
	Rainfall                        Range
}

var batchRanges = Ranges{
	Nitrogen:    Range{10, 140},
	Phosphorus:  Range{5, 145},
	Potassium:   Range{5, 205},
	PH:          Range{4.5, 8.5},
	Temperature: Range{15, 40},
	Humidity:    Range{30, 100},
	Moisture:    Range{10, 60},
	Rainfall:    Range{0, 300},
}

// RangesFor returns the sampling ranges of a profile.
func RangesFor(p Profile) (Ranges, error) {
	switch p {
	case ProfileBatch, ProfileRealistic, "":
		return batchRanges, nil
	case ProfileLive:
		r := batchRanges
		r.Temperature = Range{15, 45}
		r.Moisture = Range{10, 90}
		return r, nil
	}
	return Ranges{}, fmt.Errorf("unknown profile %q", p)
}

// walkStep is the max per-reading drift of the realistic profile, as a
// fraction of the range width.
const walkStep = 0.05

// DataGenerator produces random readings. Given the same seed and call
// sequence it produces the same readings.
type DataGenerator struct {
	mu      sync.Mutex
	rng     *rand.Rand
	profile Profile
	ranges  Ranges
	last    map[string]entities.Reading // solo profilo realistic
	now     func() time.Time
}

func NewDataGenerator(profile Profile, seed int64) (*DataGenerator, error) {
	ranges, err := RangesFor(profile)
	if err != nil {
		return nil, err
	}
	if profile == "" {
		profile = ProfileBatch
	}
	return &DataGenerator{
		rng:     rand.New(rand.NewSource(seed)),
		profile: profile,
		ranges:  ranges,
		last:    make(map[string]entities.Reading),
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

func (g *DataGenerator) Profile() Profile { return g.profile }

// Next returns a reading for farmID stamped with the current time.
func (g *DataGenerator) Next(farmID string) entities.Reading {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.next(farmID, g.now())
}

// Batch generates n readings spread over farms, one every step starting at start.
func (g *DataGenerator) Batch(farms []string, n int, start time.Time, step time.Duration) []entities.Reading {
	if len(farms) == 0 || n <= 0 {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]entities.Reading, 0, n)
	for i := 0; i < n; i++ {
		farm := farms[g.rng.Intn(len(farms))]
		out = append(out, g.next(farm, start.Add(time.Duration(i)*step)))
	}
	return out
}

func (g *DataGenerator) next(farmID string, ts time.Time) entities.Reading {
	prev, walk := g.last[farmID]
	walk = walk && g.profile == ProfileRealistic

	sample := func(r Range, prev *float64) *float64 {
		var v float64
		if walk && prev != nil {
			v = r.clamp(*prev + (g.rng.Float64()*2-1)*walkStep*r.width())
		} else {
			v = r.Min + g.rng.Float64()*r.width()
		}
		return entities.Float(round2(v))
	}

	r := entities.Reading{
		FarmID:       farmID,
		Timestamp:    ts,
		Nitrogen:     sample(g.ranges.Nitrogen, prev.Nitrogen),
		Phosphorus:   sample(g.ranges.Phosphorus, prev.Phosphorus),
		Potassium:    sample(g.ranges.Potassium, prev.Potassium),
		PH:           sample(g.ranges.PH, prev.PH),
		Temperature:  sample(g.ranges.Temperature, prev.Temperature),
		Humidity:     sample(g.ranges.Humidity, prev.Humidity),
		SoilMoisture: sample(g.ranges.Moisture, prev.SoilMoisture),
		Rainfall:     sample(g.ranges.Rainfall, prev.Rainfall),
	}
	if g.profile == ProfileRealistic {
		g.last[farmID] = r
	}
	return r
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
