package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vhl-acmg-classifier/internal/domain"
	"github.com/vhl-acmg-classifier/internal/evidence"
	"github.com/vhl-acmg-classifier/internal/genemodel"
)

// DefaultLookupTimeout bounds one population-frequency lookup.
const DefaultLookupTimeout = 10 * time.Second

// ClassifierService runs the VHL classification workflow: describe the variant, look up
// population frequency when a frequency code is requested, evaluate the codes and combine.
type ClassifierService struct {
	logger        *logrus.Logger
	tables        *genemodel.Tables
	builder       *DescriptorBuilder
	registry      *evidence.Registry
	engine        *RuleEngine
	frequency     domain.FrequencyAdapter
	lookupTimeout time.Duration
}

// NewClassifierService creates a classifier service. A nil adapter disables frequency
// lookups; the frequency codes then report an unresolved locus.
func NewClassifierService(logger *logrus.Logger, tables *genemodel.Tables, frequency domain.FrequencyAdapter, lookupTimeout time.Duration) *ClassifierService {
	if lookupTimeout <= 0 {
		lookupTimeout = DefaultLookupTimeout
	}
	return &ClassifierService{
		logger:        logger,
		tables:        tables,
		builder:       NewDescriptorBuilder(tables),
		registry:      evidence.NewRegistry(tables),
		engine:        NewRuleEngine(logger),
		frequency:     frequency,
		lookupTimeout: lookupTimeout,
	}
}

// Tables returns the gene tables the service classifies against.
func (c *ClassifierService) Tables() *genemodel.Tables {
	return c.tables
}

// Engine returns the rule engine, for callers that combine externally supplied evidence.
func (c *ClassifierService) Engine() *RuleEngine {
	return c.engine
}

// FrequencySource names the population-frequency backend, or "none".
func (c *ClassifierService) FrequencySource() string {
	if c.frequency == nil {
		return "none"
	}
	return c.frequency.Name()
}

// Describe builds the variant descriptor without evaluating any code.
func (c *ClassifierService) Describe(hgvs string, evCtx domain.EvidenceContext) domain.VariantDescriptor {
	return c.builder.Build(hgvs, evCtx)
}

// Classify evaluates the requested codes (all of them when none are given) and combines
// the results. The only error is an invalid evidence context.
func (c *ClassifierService) Classify(ctx context.Context, hgvs string, evCtx domain.EvidenceContext, codes ...domain.EvidenceCode) (*domain.ClassificationReport, error) {
	if err := evCtx.Validate(); err != nil {
		return nil, err
	}
	startTime := time.Now()

	v := c.builder.Build(hgvs, evCtx)
	c.logger.WithFields(logrus.Fields(v.LogFields())).Debug("Built variant descriptor")

	classifiers := c.registry.Select(codes...)
	freq := c.lookupIfNeeded(ctx, v, classifiers)
	results := c.engine.EvaluateAll(classifiers, v, freq, evCtx)
	verdict := c.engine.Combine(results)

	c.logger.WithFields(logrus.Fields{
		"variant":         v.HGVS(),
		"variant_type":    v.Type,
		"classification":  verdict.Label.String(),
		"codes_applied":   len(verdict.Contributing),
		"processing_time": time.Since(startTime),
	}).Info("Variant classification completed")

	return &domain.ClassificationReport{
		Variant:   v,
		Frequency: freq,
		Evidence:  results,
		Verdict:   verdict,
		Tables:    c.tables.Version,
	}, nil
}

// EvaluateCode evaluates a single code. It never fails: an unknown code or an invalid
// context yields a null result explaining why.
func (c *ClassifierService) EvaluateCode(ctx context.Context, code string, hgvs string, evCtx domain.EvidenceContext) domain.EvidenceResult {
	parsed, err := domain.ParseEvidenceCode(code)
	if err != nil {
		return domain.NotApplied(domain.EvidenceCode(code), "Unknown evidence code %q.", code)
	}
	classifier, ok := c.registry.Get(parsed)
	if !ok {
		return domain.NotApplied(parsed, "Unknown evidence code %q.", code)
	}
	if err := evCtx.Validate(); err != nil {
		return domain.NotApplied(parsed, "Invalid evidence context: %v.", err)
	}

	v := c.builder.Build(hgvs, evCtx)
	freq := c.lookupIfNeeded(ctx, v, []evidence.Classifier{classifier})
	result := classifier.Classify(v, freq, evCtx)

	c.logger.WithFields(logrus.Fields{
		"code":     parsed,
		"variant":  v.HGVS(),
		"strength": result.Strength.String(),
	}).Debug("Evaluated evidence code")

	return result
}

func (c *ClassifierService) lookupIfNeeded(ctx context.Context, v domain.VariantDescriptor, classifiers []evidence.Classifier) *domain.FrequencyResult {
	if !v.Classifiable() {
		return nil
	}
	for _, cl := range classifiers {
		if cl.NeedsFrequency() {
			r := c.lookup(ctx, v)
			return &r
		}
	}
	return nil
}

// lookup performs the single bounded-time adapter call for a request.
func (c *ClassifierService) lookup(ctx context.Context, v domain.VariantDescriptor) domain.FrequencyResult {
	if c.frequency == nil {
		return domain.Unresolved("none", "no population frequency backend configured")
	}

	lookupCtx, cancel := context.WithTimeout(ctx, c.lookupTimeout)
	defer cancel()

	start := time.Now()
	result := c.frequency.Lookup(lookupCtx, v)
	if result.Status == "" {
		result = domain.Unresolved(c.frequency.Name(), "backend returned no status")
	}

	entry := c.logger.WithFields(logrus.Fields{
		"variant":  v.HGVS(),
		"source":   result.Source,
		"status":   result.Status,
		"present":  result.Present,
		"duration": time.Since(start),
	})
	if result.Resolved() {
		entry.Debug("Population frequency lookup completed")
	} else {
		entry.WithField("detail", result.Detail).Warn("Population frequency lookup unresolved")
	}
	return result
}
