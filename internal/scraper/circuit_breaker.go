package scraper

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/logger"
	"github.com/sony/gobreaker"

	"lottosim/internal/config"
	"lottosim/internal/metrics"
	"lottosim/internal/models"
)

// BreakerSource guards a Source with a circuit breaker so a dead upstream is not
// hammered on every page load.
type BreakerSource struct {
	source  Source
	breaker *gobreaker.CircuitBreaker
}

// NewBreakerSource wraps source. With the breaker disabled calls pass straight through.
func NewBreakerSource(source Source, cfg *config.CircuitBreakerConfig) *BreakerSource {
	if cfg == nil || !cfg.Enabled {
		return &BreakerSource{source: source}
	}

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= cfg.MinRequests &&
				float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warningf("Circuit breaker '%s' state changed from %s to %s", name, from, to)
		},
		// the caller going away says nothing about the upstream
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}

	return &BreakerSource{
		source:  source,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// Latest fetches through the breaker. Rejections by an open breaker wrap ErrFetchFailed.
func (b *BreakerSource) Latest(ctx context.Context) (models.LatestNumbers, error) {
	latest, err := b.execute(ctx)
	metrics.RecordScrape(err)
	if err != nil {
		logger.Errorf("Fetching latest numbers failed: %v", err)
	}
	return latest, err
}

func (b *BreakerSource) execute(ctx context.Context) (models.LatestNumbers, error) {
	if b.breaker == nil {
		return b.source.Latest(ctx)
	}

	result, err := b.breaker.Execute(func() (interface{}, error) {
		return b.source.Latest(ctx)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return models.LatestNumbers{}, fmt.Errorf("%w: %w", ErrFetchFailed, err)
		}
		return models.LatestNumbers{}, err
	}
	return result.(models.LatestNumbers), nil
}

// State reports the breaker state, or "disabled".
func (b *BreakerSource) State() string {
	if b.breaker == nil {
		return "disabled"
	}
	return b.breaker.State().String()
}
