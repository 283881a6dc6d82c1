package service

import (
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/vhl-acmg-classifier/internal/domain"
	"github.com/vhl-acmg-classifier/internal/evidence"
)

// RuleEngine runs evidence classifiers and combines their results into a verdict
// using the ACMG/AMP 2015 combination table.
type RuleEngine struct {
	logger *logrus.Logger
}

// NewRuleEngine creates a new rule engine
func NewRuleEngine(logger *logrus.Logger) *RuleEngine {
	return &RuleEngine{logger: logger}
}

// EvaluateAll runs each classifier in its own goroutine. Results keep the order of
// classifiers; every goroutine writes only its own slot.
func (e *RuleEngine) EvaluateAll(classifiers []evidence.Classifier, v domain.VariantDescriptor, freq *domain.FrequencyResult, ctx domain.EvidenceContext) []domain.EvidenceResult {
	results := make([]domain.EvidenceResult, len(classifiers))

	var wg sync.WaitGroup
	for i, c := range classifiers {
		wg.Add(1)
		go func(i int, c evidence.Classifier) {
			defer wg.Done()
			results[i] = c.Classify(v, freq, ctx)
		}(i, c)
	}
	wg.Wait()

	e.logger.WithFields(logrus.Fields{
		"variant":       v.HGVS(),
		"total_codes":   len(results),
		"applied_codes": countApplied(results),
	}).Debug("Completed evidence evaluation")

	return results
}

// Combine aggregates evidence into a classification. Results with null strength are
// ignored and each applicable result counts at the strength it actually carries, so a
// downgraded PVS1_Moderate counts as a Moderate. The outcome depends only on the
// multiset of results, never on their order.
func (e *RuleEngine) Combine(results []domain.EvidenceResult) domain.ClassificationVerdict {
	counts := countByStrength(results)
	label := determineClassification(counts.Pathogenic, counts.Benign)

	contributing := make([]domain.EvidenceResult, 0, len(results))
	for _, r := range results {
		if r.Applicable() {
			contributing = append(contributing, r)
		}
	}
	sortCanonical(contributing)

	e.logger.WithFields(logrus.Fields{
		"classification": label.String(),
		"pathogenic":     counts.Pathogenic,
		"benign":         counts.Benign,
	}).Debug("Completed evidence combination")

	return domain.ClassificationVerdict{
		Label:        label,
		Contributing: contributing,
		Counts:       counts,
	}
}

// countByStrength tallies applicable results per direction.
func countByStrength(results []domain.EvidenceResult) domain.StrengthCounts {
	counts := domain.StrengthCounts{
		Pathogenic: map[domain.Strength]int{},
		Benign:     map[domain.Strength]int{},
	}
	for _, r := range results {
		if !r.Applicable() {
			continue
		}
		if r.Code.Direction() == domain.BENIGN_DIRECTION {
			counts.Benign[r.Strength]++
		} else {
			counts.Pathogenic[r.Strength]++
		}
	}
	return counts
}

// determineClassification applies the combination rows with "at least" semantics.
// Precedence is Pathogenic, Likely Pathogenic, Benign, Likely Benign, then Uncertain.
func determineClassification(pathogenic, benign map[domain.Strength]int) domain.Classification {
	pvs := pathogenic[domain.VERY_STRONG]
	ps := pathogenic[domain.STRONG]
	pm := pathogenic[domain.MODERATE]
	pp := pathogenic[domain.SUPPORTING]

	ba := benign[domain.STAND_ALONE]
	bs := benign[domain.STRONG]
	bp := benign[domain.SUPPORTING]

	if (pvs >= 1 && (ps >= 1 || pm >= 2 || (pm >= 1 && pp >= 1) || pp >= 2)) ||
		(ps >= 2) ||
		(ps >= 1 && (pm >= 3 || (pm >= 2 && pp >= 2) || (pm >= 1 && pp >= 4))) {
		return domain.PATHOGENIC
	}

	if (pvs >= 1 && pm >= 1) ||
		(ps >= 1 && (pm >= 1 || pp >= 2)) ||
		(pm >= 3) ||
		(pm >= 2 && pp >= 2) ||
		(pm >= 1 && pp >= 4) {
		return domain.LIKELY_PATHOGENIC
	}

	if ba >= 1 || bs >= 2 {
		return domain.BENIGN
	}

	if (bs >= 1 && bp >= 1) || bp >= 2 {
		return domain.LIKELY_BENIGN
	}

	return domain.VUS
}

var codeRank = func() map[domain.EvidenceCode]int {
	m := make(map[domain.EvidenceCode]int, len(domain.AllEvidenceCodes))
	for i, c := range domain.AllEvidenceCodes {
		m[c] = i
	}
	return m
}()

func rankOf(c domain.EvidenceCode) int {
	if r, ok := codeRank[c]; ok {
		return r
	}
	return len(codeRank)
}

// sortCanonical orders results by code, then strength and justification, so equal
// multisets always render identically.
func sortCanonical(results []domain.EvidenceResult) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if ra, rb := rankOf(a.Code), rankOf(b.Code); ra != rb {
			return ra < rb
		}
		if a.Code != b.Code {
			return a.Code < b.Code
		}
		if a.Strength != b.Strength {
			return a.Strength < b.Strength
		}
		return a.Justification < b.Justification
	})
}

func countApplied(results []domain.EvidenceResult) int {
	n := 0
	for _, r := range results {
		if r.Applicable() {
			n++
		}
	}
	return n
}
