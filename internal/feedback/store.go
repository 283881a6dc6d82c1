package feedback

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/vhl-acmg-classifier/internal/domain"
)

// Drivers accepted by NewStore.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverNone     = "none"
)

// exportVersion is written into every FeedbackExport.
const exportVersion = "1.0"

// maxExportLimit is the maximum number of entries to export at once.
const maxExportLimit = 1000000

// NewStore opens the store selected by cfg. The "none" driver returns a nil store.
func NewStore(cfg domain.FeedbackConfig) (Store, error) {
	switch cfg.Driver {
	case DriverNone, "":
		return nil, nil
	case DriverSQLite:
		store, err := NewSQLiteStore(cfg.DSN)
		if err != nil {
			return nil, err
		}
		return store, nil
	case DriverPostgres:
		store, err := NewPostgresStoreFromURL(cfg.DSN)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	return nil, fmt.Errorf("%w: unknown feedback driver %q", domain.ErrInvalidInput, cfg.Driver)
}

// feedbackColumns is the column order scanFeedback expects.
const feedbackColumns = `id, variant, normalized_hgvs,
	engine_classification, curator_classification, agreed,
	applied_codes, tables_version, notes, created_at, updated_at`

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanFeedback scans a row into a Feedback struct.
func scanFeedback(s scanner) (*Feedback, error) {
	fb := &Feedback{}
	var engine, curator, codes string

	err := s.Scan(
		&fb.ID, &fb.Variant, &fb.NormalizedHGVS,
		&engine, &curator, &fb.Agreed,
		&codes, &fb.TablesVersion, &fb.Notes, &fb.CreatedAt, &fb.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	fb.EngineClassification = domain.Classification(engine)
	fb.CuratorClassification = domain.Classification(curator)
	fb.AppliedCodes = splitCodes(codes)
	return fb, nil
}

func joinCodes(codes []string) string {
	return strings.Join(codes, ",")
}

func splitCodes(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func exportJSON(ctx context.Context, store Store, writer io.Writer) error {
	all, err := store.List(ctx, maxExportLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list feedback: %w", err)
	}

	export := &FeedbackExport{
		Version:    exportVersion,
		ExportedAt: time.Now().UTC(),
		Count:      len(all),
		Feedback:   all,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

func importJSON(ctx context.Context, store Store, reader io.Reader) (imported int, skipped int, err error) {
	var export FeedbackExport
	if err := json.NewDecoder(reader).Decode(&export); err != nil {
		return 0, 0, fmt.Errorf("failed to decode JSON: %w", err)
	}

	for _, fb := range export.Feedback {
		if fb == nil {
			continue
		}
		existing, err := store.Get(ctx, fb.NormalizedHGVS)
		if err != nil {
			return imported, skipped, fmt.Errorf("failed to check existing: %w", err)
		}
		if existing != nil {
			skipped++
			continue
		}

		if err := store.Save(ctx, fb); err != nil {
			return imported, skipped, fmt.Errorf("failed to save %s: %w", fb.NormalizedHGVS, err)
		}
		imported++
	}

	return imported, skipped, nil
}
