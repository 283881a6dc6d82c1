package service

import (
	"math/rand"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vhl-acmg-classifier/internal/domain"
	"github.com/vhl-acmg-classifier/internal/evidence"
	"github.com/vhl-acmg-classifier/internal/genemodel"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return logger
}

func ev(code domain.EvidenceCode, s domain.Strength) domain.EvidenceResult {
	return domain.Applied(code, s, "test evidence")
}

func TestRuleEngine_Combine(t *testing.T) {
	engine := NewRuleEngine(quietLogger())

	tests := []struct {
		name     string
		evidence []domain.EvidenceResult
		want     domain.Classification
	}{
		{name: "no evidence", want: domain.VUS},
		{
			name:     "very strong and strong",
			evidence: []domain.EvidenceResult{ev(domain.PVS1, domain.VERY_STRONG), ev(domain.PS1, domain.STRONG)},
			want:     domain.PATHOGENIC,
		},
		{
			name:     "very strong and two moderate",
			evidence: []domain.EvidenceResult{ev(domain.PVS1, domain.VERY_STRONG), ev(domain.PM1, domain.MODERATE), ev(domain.PM4, domain.MODERATE)},
			want:     domain.PATHOGENIC,
		},
		{
			name:     "very strong moderate and supporting",
			evidence: []domain.EvidenceResult{ev(domain.PVS1, domain.VERY_STRONG), ev(domain.PM1, domain.MODERATE), ev(domain.PM2_SUPPORTING, domain.SUPPORTING)},
			want:     domain.PATHOGENIC,
		},
		{
			name:     "very strong and two supporting",
			evidence: []domain.EvidenceResult{ev(domain.PVS1, domain.VERY_STRONG), ev(domain.PS2, domain.SUPPORTING), ev(domain.PM2_SUPPORTING, domain.SUPPORTING)},
			want:     domain.PATHOGENIC,
		},
		{
			name:     "two strong",
			evidence: []domain.EvidenceResult{ev(domain.PS1, domain.STRONG), ev(domain.PS2, domain.STRONG)},
			want:     domain.PATHOGENIC,
		},
		{
			name:     "strong and three moderate",
			evidence: []domain.EvidenceResult{ev(domain.PS1, domain.STRONG), ev(domain.PM1, domain.MODERATE), ev(domain.PM4, domain.MODERATE), ev(domain.PS2, domain.MODERATE)},
			want:     domain.PATHOGENIC,
		},
		{
			name:     "strong two moderate two supporting",
			evidence: []domain.EvidenceResult{ev(domain.PS1, domain.STRONG), ev(domain.PM1, domain.MODERATE), ev(domain.PM4, domain.MODERATE), ev(domain.PS2, domain.SUPPORTING), ev(domain.PM2_SUPPORTING, domain.SUPPORTING)},
			want:     domain.PATHOGENIC,
		},
		{
			name:     "strong and two moderate",
			evidence: []domain.EvidenceResult{ev(domain.PS1, domain.STRONG), ev(domain.PM1, domain.MODERATE), ev(domain.PM4, domain.MODERATE)},
			want:     domain.LIKELY_PATHOGENIC,
		},
		{
			name:     "very strong and moderate",
			evidence: []domain.EvidenceResult{ev(domain.PVS1, domain.VERY_STRONG), ev(domain.PM1, domain.MODERATE)},
			want:     domain.LIKELY_PATHOGENIC,
		},
		{
			name:     "downgraded PVS1 counts at returned strength",
			evidence: []domain.EvidenceResult{ev(domain.PVS1, domain.MODERATE), ev(domain.PM1, domain.MODERATE)},
			want:     domain.VUS,
		},
		{
			name:     "strong and moderate",
			evidence: []domain.EvidenceResult{ev(domain.PS1, domain.STRONG), ev(domain.PM1, domain.MODERATE)},
			want:     domain.LIKELY_PATHOGENIC,
		},
		{
			name:     "strong and two supporting",
			evidence: []domain.EvidenceResult{ev(domain.PS1, domain.STRONG), ev(domain.PS2, domain.SUPPORTING), ev(domain.PM2_SUPPORTING, domain.SUPPORTING)},
			want:     domain.LIKELY_PATHOGENIC,
		},
		{
			name:     "three moderate",
			evidence: []domain.EvidenceResult{ev(domain.PVS1, domain.MODERATE), ev(domain.PM1, domain.MODERATE), ev(domain.PM4, domain.MODERATE)},
			want:     domain.LIKELY_PATHOGENIC,
		},
		{
			name:     "two moderate two supporting",
			evidence: []domain.EvidenceResult{ev(domain.PM1, domain.MODERATE), ev(domain.PM4, domain.MODERATE), ev(domain.PS2, domain.SUPPORTING), ev(domain.PM2_SUPPORTING, domain.SUPPORTING)},
			want:     domain.LIKELY_PATHOGENIC,
		},
		{
			name: "moderate and four supporting",
			evidence: []domain.EvidenceResult{
				ev(domain.PM1, domain.MODERATE), ev(domain.PVS1, domain.SUPPORTING), ev(domain.PS2, domain.SUPPORTING),
				ev(domain.PM2_SUPPORTING, domain.SUPPORTING), ev(domain.PM4, domain.SUPPORTING),
			},
			want: domain.LIKELY_PATHOGENIC,
		},
		{
			name:     "moderate and three supporting",
			evidence: []domain.EvidenceResult{ev(domain.PM1, domain.MODERATE), ev(domain.PVS1, domain.SUPPORTING), ev(domain.PS2, domain.SUPPORTING), ev(domain.PM2_SUPPORTING, domain.SUPPORTING)},
			want:     domain.VUS,
		},
		{
			name:     "very strong alone",
			evidence: []domain.EvidenceResult{ev(domain.PVS1, domain.VERY_STRONG)},
			want:     domain.VUS,
		},
		{
			name:     "stand-alone benign",
			evidence: []domain.EvidenceResult{ev(domain.BA1, domain.STAND_ALONE), ev(domain.BS1, domain.STRONG)},
			want:     domain.BENIGN,
		},
		{
			name:     "single benign strong",
			evidence: []domain.EvidenceResult{ev(domain.BS1, domain.STRONG)},
			want:     domain.VUS,
		},
		{
			name:     "two benign strong",
			evidence: []domain.EvidenceResult{ev(domain.BS1, domain.STRONG), ev(domain.BS1, domain.STRONG)},
			want:     domain.BENIGN,
		},
		{
			name:     "benign strong and supporting",
			evidence: []domain.EvidenceResult{ev(domain.BS1, domain.STRONG), ev(domain.BA1, domain.SUPPORTING)},
			want:     domain.LIKELY_BENIGN,
		},
		{
			name:     "pathogenic outranks benign",
			evidence: []domain.EvidenceResult{ev(domain.PS1, domain.STRONG), ev(domain.PS2, domain.STRONG), ev(domain.BA1, domain.STAND_ALONE)},
			want:     domain.PATHOGENIC,
		},
		{
			name:     "likely pathogenic outranks benign",
			evidence: []domain.EvidenceResult{ev(domain.PS1, domain.STRONG), ev(domain.PM1, domain.MODERATE), ev(domain.BA1, domain.STAND_ALONE)},
			want:     domain.LIKELY_PATHOGENIC,
		},
		{
			name: "null strengths ignored",
			evidence: []domain.EvidenceResult{
				domain.NotApplied(domain.PVS1, "n/a"), domain.NotApplied(domain.PS1, "n/a"),
				ev(domain.PM2_SUPPORTING, domain.SUPPORTING),
			},
			want: domain.VUS,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict := engine.Combine(tt.evidence)
			assert.Equal(t, tt.want, verdict.Label)
		})
	}
}

func TestRuleEngine_StrongWithTwoModerateIsLikelyPathogenic(t *testing.T) {
	engine := NewRuleEngine(quietLogger())
	verdict := engine.Combine([]domain.EvidenceResult{
		ev(domain.PM4, domain.MODERATE),
		ev(domain.PS1, domain.STRONG),
		ev(domain.PM1, domain.MODERATE),
	})
	assert.Equal(t, domain.LIKELY_PATHOGENIC, verdict.Label)
	assert.Equal(t, 1, verdict.Counts.Pathogenic[domain.STRONG])
	assert.Equal(t, 2, verdict.Counts.Pathogenic[domain.MODERATE])
}

func TestRuleEngine_CommutativeAndIdempotent(t *testing.T) {
	engine := NewRuleEngine(quietLogger())
	base := []domain.EvidenceResult{
		ev(domain.PVS1, domain.MODERATE),
		ev(domain.PS1, domain.STRONG),
		ev(domain.PM1, domain.MODERATE),
		ev(domain.PM2_SUPPORTING, domain.SUPPORTING),
		domain.NotApplied(domain.PM4, "n/a"),
		ev(domain.BS1, domain.STRONG),
	}
	want := engine.Combine(base)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 50; i++ {
		shuffled := append([]domain.EvidenceResult(nil), base...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		got := engine.Combine(shuffled)
		assert.Equal(t, want, got)
	}

	assert.Equal(t, want, engine.Combine(base))
}

func TestRuleEngine_ContributingOrder(t *testing.T) {
	engine := NewRuleEngine(quietLogger())
	verdict := engine.Combine([]domain.EvidenceResult{
		ev(domain.BS1, domain.STRONG),
		ev(domain.PM1, domain.MODERATE),
		domain.NotApplied(domain.PS2, "n/a"),
		ev(domain.PVS1, domain.VERY_STRONG),
	})
	require.Len(t, verdict.Contributing, 3)
	assert.Equal(t, domain.PVS1, verdict.Contributing[0].Code)
	assert.Equal(t, domain.PM1, verdict.Contributing[1].Code)
	assert.Equal(t, domain.BS1, verdict.Contributing[2].Code)
	assert.Equal(t, 1, verdict.Counts.Benign[domain.STRONG])
}

func TestRuleEngine_EvaluateAllKeepsOrder(t *testing.T) {
	tables := genemodel.VHL()
	engine := NewRuleEngine(quietLogger())
	registry := evidence.NewRegistry(tables)
	builder := NewDescriptorBuilder(tables)

	v := builder.Build("NM_000551.4(VHL):c.263G>A (p.Trp88Ter)", domain.EvidenceContext{})
	freq := domain.Absent("test", nil)
	results := engine.EvaluateAll(registry.All(), v, &freq, domain.EvidenceContext{})

	require.Len(t, results, len(domain.AllEvidenceCodes))
	for i, code := range domain.AllEvidenceCodes {
		assert.Equal(t, code, results[i].Code)
	}
	assert.Equal(t, domain.VERY_STRONG, results[0].Strength)
	assert.Equal(t, domain.SUPPORTING, results[4].Strength)
	assert.Equal(t, domain.VUS, engine.Combine(results).Label)
}
