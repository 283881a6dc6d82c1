package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/vhl-acmg-classifier/internal/domain"
	"github.com/vhl-acmg-classifier/internal/feedback"
	"github.com/vhl-acmg-classifier/internal/genemodel"
)

var errFeedbackDisabled = errors.New("feedback store is disabled in this deployment")

var metadataClassifyVariant = &mcp.Tool{
	Name: "classify_variant",
	Description: "Classify a VHL variant under the ClinGen VHL expert panel ACMG/AMP rules. " +
		"Evaluates PVS1, PS1, PS2, PM1, PM2_Supporting, PM4, BA1 and BS1 (or the requested subset), " +
		"looks up gnomAD frequency when a frequency code is needed, and combines the applicable codes " +
		"into Pathogenic, Likely Pathogenic, Uncertain Significance, Likely Benign or Benign.",
}

var metadataEvaluateEvidence = &mcp.Tool{
	Name: "evaluate_evidence",
	Description: "Evaluate a single ACMG/AMP evidence code for a VHL variant. Always returns a result: " +
		"strength is null when the code does not apply, and context explains which rule branch fired.",
}

var metadataCombineEvidence = &mcp.Tool{
	Name: "combine_evidence",
	Description: "Combine per-code evidence strengths into a final ACMG/AMP classification using the " +
		"2015 combination table. Codes starting with B count toward benign.",
}

var metadataDescribeTables = &mcp.Tool{
	Name:        "describe_tables",
	Description: "Describe the versioned VHL gene tables: transcript, exons, critical domains, hotspots and frequency thresholds.",
}

var metadataSubmitFeedback = &mcp.Tool{
	Name: "submit_feedback",
	Description: "Record a curator's classification for a variant. The engine classification is recomputed " +
		"and stored alongside the curator label so disagreements can be reviewed later.",
}

var metadataGetFeedback = &mcp.Tool{
	Name:        "get_feedback",
	Description: "Look up the stored curator review for a variant.",
}

// ClassifyVariantInput is the input for classify_variant.
type ClassifyVariantInput struct {
	Variant string                  `json:"variant" jsonschema:"HGVS coding change such as NM_000551.4(VHL):c.263G>A (p.Trp88Ter)"`
	Codes   []string                `json:"codes,omitempty" jsonschema:"evidence codes to evaluate; every code when omitted"`
	Context *domain.EvidenceContext `json:"context,omitempty" jsonschema:"curator-supplied flags: exon skipping, cryptic splice frame, duplication tandem status, de novo and phenotype data"`
}

// EvidenceOutput is one evidence code verdict. Context carries the justification.
type EvidenceOutput struct {
	Code     string  `json:"code"`
	Strength *string `json:"strength"`
	Context  string  `json:"context"`
}

// FrequencyOutput summarizes the population frequency lookup.
type FrequencyOutput struct {
	Status  string   `json:"status"`
	Present bool     `json:"present"`
	FAF     *float64 `json:"filtering_allele_frequency,omitempty"`
	Locus   string   `json:"locus,omitempty"`
	Source  string   `json:"source,omitempty"`
	Detail  string   `json:"detail,omitempty"`
}

// ClassifyVariantOutput is the output for classify_variant.
type ClassifyVariantOutput struct {
	Variant        string           `json:"variant"`
	HGVS           string           `json:"hgvs,omitempty"`
	VariantType    string           `json:"variant_type"`
	ParseError     string           `json:"parse_error,omitempty"`
	Classification string           `json:"classification"`
	Contributing   []string         `json:"contributing_codes"`
	Evidence       []EvidenceOutput `json:"evidence"`
	Frequency      *FrequencyOutput `json:"frequency,omitempty"`
	TablesVersion  string           `json:"tables_version"`
}

// ClassifyVariant runs the full classification workflow.
func (s *Server) ClassifyVariant(ctx context.Context, _ *mcp.CallToolRequest, input ClassifyVariantInput) (*mcp.CallToolResult, ClassifyVariantOutput, error) {
	if input.Variant == "" {
		return nil, ClassifyVariantOutput{}, fmt.Errorf("variant is required")
	}
	codes := make([]domain.EvidenceCode, 0, len(input.Codes))
	for _, raw := range input.Codes {
		code, err := domain.ParseEvidenceCode(raw)
		if err != nil {
			return nil, ClassifyVariantOutput{}, err
		}
		codes = append(codes, code)
	}

	report, err := s.classifier.Classify(ctx, input.Variant, contextOrZero(input.Context), codes...)
	if err != nil {
		return nil, ClassifyVariantOutput{}, err
	}

	out := ClassifyVariantOutput{
		Variant:        report.Variant.Input,
		HGVS:           report.Variant.HGVS(),
		VariantType:    string(report.Variant.Type),
		ParseError:     report.Variant.ParseError,
		Classification: string(report.Verdict.Label),
		Contributing:   labels(report.Verdict.Contributing),
		Evidence:       make([]EvidenceOutput, 0, len(report.Evidence)),
		TablesVersion:  report.Tables,
	}
	for _, r := range report.Evidence {
		out.Evidence = append(out.Evidence, toEvidenceOutput(r))
	}
	if f := report.Frequency; f != nil {
		out.Frequency = &FrequencyOutput{
			Status:  string(f.Status),
			Present: f.Present,
			FAF:     f.FAF,
			Source:  f.Source,
			Detail:  f.Detail,
		}
		if f.Locus != nil {
			out.Frequency.Locus = f.Locus.ID()
		}
	}
	return nil, out, nil
}

// EvaluateEvidenceInput is the input for evaluate_evidence.
type EvaluateEvidenceInput struct {
	Code    string                  `json:"code" jsonschema:"evidence code: PVS1, PS1, PS2, PM1, PM2_Supporting, PM4, BA1 or BS1"`
	Variant string                  `json:"variant" jsonschema:"HGVS coding change"`
	Context *domain.EvidenceContext `json:"context,omitempty" jsonschema:"curator-supplied flags the code may need"`
}

// EvaluateEvidence evaluates one code. It never fails.
func (s *Server) EvaluateEvidence(ctx context.Context, _ *mcp.CallToolRequest, input EvaluateEvidenceInput) (*mcp.CallToolResult, EvidenceOutput, error) {
	result := s.classifier.EvaluateCode(ctx, input.Code, input.Variant, contextOrZero(input.Context))
	return nil, toEvidenceOutput(result), nil
}

// EvidenceInput is one caller-supplied evidence verdict.
type EvidenceInput struct {
	Code          string `json:"code" jsonschema:"evidence code such as PVS1 or BS1"`
	Strength      string `json:"strength,omitempty" jsonschema:"None, Supporting, Moderate, Strong, VeryStrong or StandAlone; empty when the code does not apply"`
	Justification string `json:"justification,omitempty"`
}

// CombineEvidenceInput is the input for combine_evidence.
type CombineEvidenceInput struct {
	Evidence []EvidenceInput `json:"evidence" jsonschema:"evidence verdicts to combine"`
}

// CombineEvidenceOutput is the output for combine_evidence.
type CombineEvidenceOutput struct {
	Classification   string         `json:"classification"`
	Contributing     []string       `json:"contributing_codes"`
	PathogenicCounts map[string]int `json:"pathogenic_counts"`
	BenignCounts     map[string]int `json:"benign_counts"`
}

// CombineEvidence applies the combination table to the supplied verdicts.
func (s *Server) CombineEvidence(_ context.Context, _ *mcp.CallToolRequest, input CombineEvidenceInput) (*mcp.CallToolResult, CombineEvidenceOutput, error) {
	results := make([]domain.EvidenceResult, 0, len(input.Evidence))
	for i, e := range input.Evidence {
		if e.Code == "" {
			return nil, CombineEvidenceOutput{}, fmt.Errorf("evidence[%d]: code is required", i)
		}
		strength, err := domain.ParseStrength(e.Strength)
		if err != nil {
			return nil, CombineEvidenceOutput{}, fmt.Errorf("evidence[%d]: %w", i, err)
		}
		results = append(results, domain.EvidenceResult{
			Code:          domain.EvidenceCode(e.Code),
			Strength:      strength,
			Justification: e.Justification,
		})
	}

	verdict := s.classifier.Engine().Combine(results)
	return nil, CombineEvidenceOutput{
		Classification:   string(verdict.Label),
		Contributing:     labels(verdict.Contributing),
		PathogenicCounts: countsByName(verdict.Counts.Pathogenic),
		BenignCounts:     countsByName(verdict.Counts.Benign),
	}, nil
}

// DescribeTablesInput is the (empty) input for describe_tables.
type DescribeTablesInput struct{}

// DescribeTablesOutput is the output for describe_tables.
type DescribeTablesOutput struct {
	Version          string               `json:"version"`
	Gene             string               `json:"gene"`
	Transcript       string               `json:"transcript"`
	ProteinLength    int                  `json:"protein_length"`
	Exons            []genemodel.Range    `json:"exons"`
	CriticalDomains  []genemodel.Range    `json:"critical_domains"`
	GermlineHotspots []int                `json:"germline_hotspots"`
	ReferenceCount   int                  `json:"reference_pathogenic_count"`
	Thresholds       genemodel.Thresholds `json:"thresholds"`
}

// DescribeTables reports the gene tables in use.
func (s *Server) DescribeTables(_ context.Context, _ *mcp.CallToolRequest, _ DescribeTablesInput) (*mcp.CallToolResult, DescribeTablesOutput, error) {
	t := s.classifier.Tables()
	return nil, DescribeTablesOutput{
		Version:          t.Version,
		Gene:             t.Gene,
		Transcript:       t.Transcript,
		ProteinLength:    t.ProteinLength,
		Exons:            t.Exons,
		CriticalDomains:  t.CriticalDomains,
		GermlineHotspots: t.GermlineHotspots,
		ReferenceCount:   len(t.Reference),
		Thresholds:       t.Thresholds,
	}, nil
}

// SubmitFeedbackInput is the input for submit_feedback.
type SubmitFeedbackInput struct {
	Variant               string                  `json:"variant" jsonschema:"HGVS coding change"`
	CuratorClassification string                  `json:"curator_classification" jsonschema:"Pathogenic, Likely Pathogenic, Uncertain Significance, Likely Benign or Benign"`
	Notes                 string                  `json:"notes,omitempty"`
	Context               *domain.EvidenceContext `json:"context,omitempty" jsonschema:"flags used when recomputing the engine classification"`
}

// FeedbackOutput is a stored curator review.
type FeedbackOutput struct {
	Found                 bool     `json:"found"`
	ID                    int64    `json:"id,omitempty"`
	NormalizedHGVS        string   `json:"normalized_hgvs,omitempty"`
	EngineClassification  string   `json:"engine_classification,omitempty"`
	CuratorClassification string   `json:"curator_classification,omitempty"`
	Agreed                bool     `json:"agreed"`
	AppliedCodes          []string `json:"applied_codes,omitempty"`
	TablesVersion         string   `json:"tables_version,omitempty"`
	Notes                 string   `json:"notes,omitempty"`
	UpdatedAt             string   `json:"updated_at,omitempty"`
}

// SubmitFeedback recomputes the engine verdict and stores the curator review.
func (s *Server) SubmitFeedback(ctx context.Context, _ *mcp.CallToolRequest, input SubmitFeedbackInput) (*mcp.CallToolResult, FeedbackOutput, error) {
	if s.feedback == nil {
		return nil, FeedbackOutput{}, errFeedbackDisabled
	}
	curator, err := domain.ParseClassification(input.CuratorClassification)
	if err != nil {
		return nil, FeedbackOutput{}, err
	}

	report, err := s.classifier.Classify(ctx, input.Variant, contextOrZero(input.Context))
	if err != nil {
		return nil, FeedbackOutput{}, err
	}
	fb := feedback.FromReport(report, curator, input.Notes)
	if err := s.feedback.Save(ctx, fb); err != nil {
		return nil, FeedbackOutput{}, fmt.Errorf("failed to save feedback: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"variant": fb.NormalizedHGVS,
		"engine":  fb.EngineClassification,
		"curator": fb.CuratorClassification,
		"agreed":  fb.Agreed,
	}).Info("Curator feedback recorded via MCP")

	return nil, toFeedbackOutput(fb), nil
}

// GetFeedbackInput is the input for get_feedback.
type GetFeedbackInput struct {
	Variant string `json:"variant" jsonschema:"HGVS coding change; normalized before lookup"`
}

// GetFeedback returns the stored review for a variant; found is false when none exists.
func (s *Server) GetFeedback(ctx context.Context, _ *mcp.CallToolRequest, input GetFeedbackInput) (*mcp.CallToolResult, FeedbackOutput, error) {
	if s.feedback == nil {
		return nil, FeedbackOutput{}, errFeedbackDisabled
	}
	hgvs := s.classifier.Describe(input.Variant, domain.EvidenceContext{}).HGVS()
	if hgvs == "" {
		return nil, FeedbackOutput{}, fmt.Errorf("could not parse a coding change from %q", input.Variant)
	}

	fb, err := s.feedback.Get(ctx, hgvs)
	if err != nil {
		return nil, FeedbackOutput{}, err
	}
	if fb == nil {
		return nil, FeedbackOutput{Found: false, NormalizedHGVS: hgvs}, nil
	}
	return nil, toFeedbackOutput(fb), nil
}

func contextOrZero(c *domain.EvidenceContext) domain.EvidenceContext {
	if c == nil {
		return domain.EvidenceContext{}
	}
	return *c
}

func toEvidenceOutput(r domain.EvidenceResult) EvidenceOutput {
	out := EvidenceOutput{Code: string(r.Code), Context: r.Justification}
	if r.Strength != domain.NOT_APPLICABLE {
		strength := string(r.Strength)
		out.Strength = &strength
	}
	return out
}

func toFeedbackOutput(fb *feedback.Feedback) FeedbackOutput {
	return FeedbackOutput{
		Found:                 true,
		ID:                    fb.ID,
		NormalizedHGVS:        fb.NormalizedHGVS,
		EngineClassification:  string(fb.EngineClassification),
		CuratorClassification: string(fb.CuratorClassification),
		Agreed:                fb.Agreed,
		AppliedCodes:          fb.AppliedCodes,
		TablesVersion:         fb.TablesVersion,
		Notes:                 fb.Notes,
		UpdatedAt:             fb.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func labels(results []domain.EvidenceResult) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.Label())
	}
	return out
}

func countsByName(counts map[domain.Strength]int) map[string]int {
	out := make(map[string]int, len(counts))
	for strength, n := range counts {
		out[string(strength)] = n
	}
	return out
}
