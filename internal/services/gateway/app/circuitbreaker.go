package app

import (
	"time"

	"github.com/sony/gobreaker"
)

// BreakerConfig configures one circuit breaker per upstream.
// Stati: Closed -> (Failures errori consecutivi) -> Open -> (dopo OpenFor) -> HalfOpen.
type BreakerConfig struct {
	Failures int
	OpenFor  time.Duration
	Interval time.Duration // azzera i contatori in Closed; 0 = mai
}

func (c BreakerConfig) withDefaults() BreakerConfig {
	if c.Failures < 1 {
		c.Failures = 3
	}
	if c.OpenFor <= 0 {
		c.OpenFor = 10 * time.Second
	}
	return c
}

// mkCB costruisce un breaker e pubblica i cambi di stato su onChange.
func mkCB(name string, cfg BreakerConfig, onChange func(name string, to gobreaker.State)) *gobreaker.CircuitBreaker {
	cfg = cfg.withDefaults()
	fails := uint32(cfg.Failures)
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     name,
		Interval: cfg.Interval,
		Timeout:  cfg.OpenFor,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= fails
		},
		OnStateChange: func(name string, _ gobreaker.State, to gobreaker.State) {
			if onChange != nil {
				onChange(name, to)
			}
		},
	})
}

// stateValue maps breaker states to the gauge value: closed 0, half-open 1, open 2.
func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
