package evidence

import (
	"github.com/vhl-acmg-classifier/internal/domain"
	"github.com/vhl-acmg-classifier/internal/genemodel"
)

// needsFrequency is embedded by the population-frequency criteria.
type needsFrequency struct{}

func (needsFrequency) NeedsFrequency() bool { return true }

// unresolved reports the null result shared by every frequency code when no usable
// lookup exists.
func unresolved(code domain.EvidenceCode, freq *domain.FrequencyResult) (domain.EvidenceResult, bool) {
	if freq == nil {
		return domain.NotApplied(code, "No population frequency lookup was performed; %s not evaluated.", code), true
	}
	if !freq.Resolved() {
		return domain.NotApplied(code, "Could not resolve the variant in %s: %s.", sourceName(freq), freq.Detail), true
	}
	return domain.EvidenceResult{}, false
}

func sourceName(freq *domain.FrequencyResult) string {
	if freq.Source == "" {
		return "the population database"
	}
	return freq.Source
}

// PM2 applies when the variant is absent or extremely rare in the population database.
type PM2 struct {
	pathogenic
	needsFrequency
	tables *genemodel.Tables
}

func NewPM2(tables *genemodel.Tables) *PM2 {
	return &PM2{tables: tables}
}

func (*PM2) Code() domain.EvidenceCode { return domain.PM2_SUPPORTING }

func (c *PM2) Classify(v domain.VariantDescriptor, freq *domain.FrequencyResult, _ domain.EvidenceContext) domain.EvidenceResult {
	if r, ok := unparsed(domain.PM2_SUPPORTING, v); ok {
		return r
	}
	if r, ok := unresolved(domain.PM2_SUPPORTING, freq); ok {
		return r
	}
	threshold := c.tables.Thresholds.PM2
	switch {
	case !freq.Present:
		return domain.Applied(domain.PM2_SUPPORTING, domain.SUPPORTING, "Absent from %s.", sourceName(freq))
	case freq.FAF == nil:
		return domain.Applied(domain.PM2_SUPPORTING, domain.SUPPORTING,
			"Observed in %s without a filtering allele frequency; treated as extremely rare.", sourceName(freq))
	case *freq.FAF <= threshold:
		return domain.Applied(domain.PM2_SUPPORTING, domain.SUPPORTING,
			"Filtering allele frequency %.3g in %s is at or below %.3g.", *freq.FAF, sourceName(freq), threshold)
	}
	return domain.NotApplied(domain.PM2_SUPPORTING,
		"Filtering allele frequency %.3g in %s exceeds %.3g.", *freq.FAF, sourceName(freq), threshold)
}

// BS1 applies when the allele is more common than the disorder allows.
type BS1 struct {
	benign
	needsFrequency
	tables *genemodel.Tables
}

func NewBS1(tables *genemodel.Tables) *BS1 {
	return &BS1{tables: tables}
}

func (*BS1) Code() domain.EvidenceCode { return domain.BS1 }

func (c *BS1) Classify(v domain.VariantDescriptor, freq *domain.FrequencyResult, _ domain.EvidenceContext) domain.EvidenceResult {
	return atOrAbove(domain.BS1, domain.STRONG, c.tables.Thresholds.BS1, v, freq)
}

// BA1 is the stand-alone benign frequency criterion.
type BA1 struct {
	benign
	needsFrequency
	tables *genemodel.Tables
}

func NewBA1(tables *genemodel.Tables) *BA1 {
	return &BA1{tables: tables}
}

func (*BA1) Code() domain.EvidenceCode { return domain.BA1 }

func (c *BA1) Classify(v domain.VariantDescriptor, freq *domain.FrequencyResult, _ domain.EvidenceContext) domain.EvidenceResult {
	return atOrAbove(domain.BA1, domain.STAND_ALONE, c.tables.Thresholds.BA1, v, freq)
}

func atOrAbove(code domain.EvidenceCode, strength domain.Strength, threshold float64, v domain.VariantDescriptor, freq *domain.FrequencyResult) domain.EvidenceResult {
	if r, ok := unparsed(code, v); ok {
		return r
	}
	if r, ok := unresolved(code, freq); ok {
		return r
	}
	switch {
	case !freq.Present:
		return domain.NotApplied(code, "Absent from %s.", sourceName(freq))
	case freq.FAF == nil:
		return domain.NotApplied(code, "Observed in %s without a filtering allele frequency.", sourceName(freq))
	case *freq.FAF >= threshold:
		return domain.Applied(code, strength,
			"Filtering allele frequency %.3g in %s is at or above %.3g.", *freq.FAF, sourceName(freq), threshold)
	}
	return domain.NotApplied(code, "Filtering allele frequency %.3g in %s is below %.3g.", *freq.FAF, sourceName(freq), threshold)
}
