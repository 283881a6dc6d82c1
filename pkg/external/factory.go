package external

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/vhl-acmg-classifier/internal/domain"
)

// Frequency backends selectable in configuration.
const (
	BackendGnomAD = "gnomad"
	BackendGeneBe = "genebe"
	BackendLocal  = "local"
	BackendNone   = "none"
)

// Backend is a configured frequency adapter together with the resources it holds.
type Backend struct {
	Adapter domain.FrequencyAdapter
	closers []func() error
}

// Close releases database and Redis connections.
func (b *Backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewBackend assembles the frequency adapter named by config. Remote sources are
// wrapped, inside out, with a circuit breaker, a Redis cache when a URL is set, and
// an in-memory LRU. The "none" backend yields a nil adapter.
func NewBackend(ctx context.Context, freq domain.FrequencyConfig, cache domain.CacheConfig, logger *logrus.Logger) (*Backend, error) {
	backend := &Backend{}

	var source domain.LocusSource
	switch freq.Backend {
	case BackendNone, "":
		return backend, nil
	case BackendGnomAD:
		source = NewBreakerSource(NewGnomADClient(freq.GnomAD), freq.Breaker, logger)
	case BackendGeneBe:
		source = NewBreakerSource(NewGeneBeClient(freq.GeneBe), freq.Breaker, logger)
	case BackendLocal:
		store, err := NewLocalFrequencyStore(freq.Local.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open local frequency store: %w", err)
		}
		backend.closers = append(backend.closers, store.Close)
		source = store
	default:
		return nil, fmt.Errorf("%w: unknown frequency backend %q", domain.ErrInvalidInput, freq.Backend)
	}

	if freq.Backend != BackendLocal {
		if cache.RedisURL != "" {
			client, err := NewRedisClient(ctx, cache.RedisURL)
			if err != nil {
				backend.Close()
				return nil, err
			}
			backend.closers = append(backend.closers, client.Close)
			source = NewRedisCachedSource(source, client, cache.DefaultTTL, logger)
		}
		source = NewCachedSource(source, cache.MaxItems, cache.DefaultTTL)
	}

	backend.Adapter = NewLocusFrequencyAdapter(NewEnsemblVEPResolver(freq.Ensembl), source, logger)

	logger.WithFields(logrus.Fields{
		"backend": freq.Backend,
		"source":  source.Name(),
		"redis":   cache.RedisURL != "",
	}).Info("Population frequency backend configured")
	return backend, nil
}

