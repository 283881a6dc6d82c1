// Package feedback stores curator reviews of engine classifications.
// A review records whether the curator agreed with the engine label and which
// evidence codes the engine applied, keyed by normalized HGVS.
package feedback

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/vhl-acmg-classifier/internal/domain"
)

// Feedback is one curator review of a classification.
type Feedback struct {
	ID                    int64                 `json:"id,omitempty"`
	Variant               string                `json:"variant"`         // Original input
	NormalizedHGVS        string                `json:"normalized_hgvs"` // Transcript-qualified coding notation
	EngineClassification  domain.Classification `json:"engine_classification"`
	CuratorClassification domain.Classification `json:"curator_classification"`
	Agreed                bool                  `json:"agreed"`
	AppliedCodes          []string              `json:"applied_codes,omitempty"` // e.g. PVS1, PM2_Supporting
	TablesVersion         string                `json:"tables_version,omitempty"`
	Notes                 string                `json:"notes,omitempty"`
	CreatedAt             time.Time             `json:"created_at"`
	UpdatedAt             time.Time             `json:"updated_at"`
}

// FromReport builds a review of the engine verdict in report.
func FromReport(report *domain.ClassificationReport, curator domain.Classification, notes string) *Feedback {
	codes := make([]string, 0, len(report.Verdict.Contributing))
	for _, r := range report.Verdict.Contributing {
		codes = append(codes, r.Label())
	}
	return &Feedback{
		Variant:               report.Variant.Input,
		NormalizedHGVS:        report.Variant.HGVS(),
		EngineClassification:  report.Verdict.Label,
		CuratorClassification: curator,
		Agreed:                report.Verdict.Label == curator,
		AppliedCodes:          codes,
		TablesVersion:         report.Tables,
		Notes:                 notes,
	}
}

// Validate checks the fields every store requires.
func (f *Feedback) Validate() error {
	if strings.TrimSpace(f.NormalizedHGVS) == "" {
		return domain.NewValidationError("normalized_hgvs", "is required", f.NormalizedHGVS)
	}
	if !f.EngineClassification.IsValid() {
		return domain.NewValidationError("engine_classification", "must be an ACMG/AMP label", f.EngineClassification)
	}
	if !f.CuratorClassification.IsValid() {
		return domain.NewValidationError("curator_classification", "must be an ACMG/AMP label", f.CuratorClassification)
	}
	return nil
}

// Store defines the interface for feedback storage operations.
type Store interface {
	// Save stores or updates a review. A review for the same normalized HGVS is replaced.
	Save(ctx context.Context, feedback *Feedback) error

	// Get returns the review for a variant, or nil if none exists.
	Get(ctx context.Context, normalizedHGVS string) (*Feedback, error)

	// List returns reviews ordered newest first.
	List(ctx context.Context, limit, offset int) ([]*Feedback, error)

	Count(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id int64) error

	// ExportJSON writes every review as a FeedbackExport document.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// ImportJSON loads a FeedbackExport document, skipping variants already reviewed.
	ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error)

	Close() error
}

// FeedbackExport is the JSON document produced by ExportJSON.
type FeedbackExport struct {
	Version    string      `json:"version"`
	ExportedAt time.Time   `json:"exported_at"`
	Count      int         `json:"count"`
	Feedback   []*Feedback `json:"feedback"`
}
