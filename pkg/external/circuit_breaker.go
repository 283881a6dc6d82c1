package external

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/vhl-acmg-classifier/internal/domain"
)

// ErrSourceUnavailable is returned while a source's circuit is open.
var ErrSourceUnavailable = errors.New("frequency source temporarily unavailable")

// BreakerSource wraps a remote LocusSource with a circuit breaker so a failing
// backend is skipped quickly instead of costing every request its full timeout.
type BreakerSource struct {
	next    domain.LocusSource
	breaker *gobreaker.CircuitBreaker
}

// NewBreakerSource creates a circuit breaker named after the wrapped source.
func NewBreakerSource(next domain.LocusSource, config domain.BreakerConfig, logger *logrus.Logger) *BreakerSource {
	if config.MaxRequests == 0 {
		config.MaxRequests = 3
	}
	if config.Interval == 0 {
		config.Interval = 30 * time.Second
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	if config.FailureThreshold == 0 {
		config.FailureThreshold = 3
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        next.Name(),
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= config.FailureThreshold && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
		// A caller giving up is not a backend failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &BreakerSource{next: next, breaker: breaker}
}

// Name implements domain.LocusSource.
func (b *BreakerSource) Name() string {
	return b.next.Name()
}

// Query implements domain.LocusSource.
func (b *BreakerSource) Query(ctx context.Context, locus domain.Locus) (*domain.FrequencyResult, error) {
	result, err := b.breaker.Execute(func() (interface{}, error) {
		return b.next.Query(ctx, locus)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %s circuit breaker is %s", ErrSourceUnavailable, b.Name(), b.breaker.State())
		}
		return nil, err
	}
	return result.(*domain.FrequencyResult), nil
}

// State returns the current breaker state.
func (b *BreakerSource) State() gobreaker.State {
	return b.breaker.State()
}

// Counts returns the breaker's counters for the current interval.
func (b *BreakerSource) Counts() gobreaker.Counts {
	return b.breaker.Counts()
}

var _ domain.LocusSource = (*BreakerSource)(nil)
