package external

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/vhl-acmg-classifier/internal/domain"
)

// LocusFrequencyAdapter answers frequency lookups by resolving the coding change to a
// GRCh38 locus and querying a population source for it. It never returns an error:
// any failure along the way becomes an unresolved result.
type LocusFrequencyAdapter struct {
	resolver domain.LocusResolver
	source   domain.LocusSource
	logger   *logrus.Logger
}

// NewLocusFrequencyAdapter composes a resolver and a source.
func NewLocusFrequencyAdapter(resolver domain.LocusResolver, source domain.LocusSource, logger *logrus.Logger) *LocusFrequencyAdapter {
	return &LocusFrequencyAdapter{resolver: resolver, source: source, logger: logger}
}

// Name returns the source name, which is what reports cite.
func (a *LocusFrequencyAdapter) Name() string {
	return a.source.Name()
}

// Lookup implements domain.FrequencyAdapter.
func (a *LocusFrequencyAdapter) Lookup(ctx context.Context, v domain.VariantDescriptor) domain.FrequencyResult {
	hgvs := v.HGVS()
	if hgvs == "" {
		return domain.Unresolved(a.Name(), "variant has no coding change to resolve")
	}

	locus, err := a.resolver.Resolve(ctx, hgvs)
	if err != nil {
		a.logger.WithFields(logrus.Fields{
			"variant": hgvs,
			"source":  a.Name(),
		}).WithError(err).Warn("Failed to resolve variant to a genomic locus")
		return domain.Unresolved(a.Name(), "locus resolution failed: %v", err)
	}
	if locus == nil || !locus.Valid() {
		return domain.Unresolved(a.Name(), "%v for %s", domain.ErrLocusUnresolved, hgvs)
	}

	result, err := a.source.Query(ctx, *locus)
	if err != nil {
		a.logger.WithFields(logrus.Fields{
			"variant": hgvs,
			"locus":   locus.ID(),
			"source":  a.Name(),
		}).WithError(err).Warn("Population frequency query failed")
		r := domain.Unresolved(a.Name(), "query for %s failed: %v", locus.ID(), err)
		r.Locus = locus
		return r
	}
	if result == nil {
		r := domain.Unresolved(a.Name(), "query for %s returned no result", locus.ID())
		r.Locus = locus
		return r
	}
	if result.Locus == nil {
		result.Locus = locus
	}
	return *result
}

// StaticAdapter returns one fixed result for every lookup.
type StaticAdapter struct {
	Result domain.FrequencyResult
}

// NewStaticAdapter builds an adapter from command-line style flags. absent takes
// precedence over faf; with neither set the locus is reported unresolved.
func NewStaticAdapter(faf *float64, absent bool) *StaticAdapter {
	switch {
	case absent:
		return &StaticAdapter{Result: domain.Absent("static", nil)}
	case faf != nil:
		v := *faf
		return &StaticAdapter{Result: domain.Present("static", nil, &v)}
	default:
		return &StaticAdapter{Result: domain.Unresolved("static", "no frequency supplied")}
	}
}

// Name implements domain.FrequencyAdapter.
func (s *StaticAdapter) Name() string {
	if s.Result.Source != "" {
		return s.Result.Source
	}
	return "static"
}

// Lookup implements domain.FrequencyAdapter.
func (s *StaticAdapter) Lookup(ctx context.Context, _ domain.VariantDescriptor) domain.FrequencyResult {
	if err := ctx.Err(); err != nil {
		return domain.Unresolved(s.Name(), "lookup cancelled: %v", err)
	}
	return s.Result
}

// queryError tags a failure with the source that produced it.
func queryError(source string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s query aborted: %w", source, err)
	}
	return fmt.Errorf("%s query failed: %w", source, err)
}

var (
	_ domain.FrequencyAdapter = (*LocusFrequencyAdapter)(nil)
	_ domain.FrequencyAdapter = (*StaticAdapter)(nil)
)
