package domain

import (
	"context"
	"fmt"
)

// LookupStatus distinguishes a resolved locus from a failed resolution.
type LookupStatus string

const (
	LOOKUP_RESOLVED   LookupStatus = "resolved"
	LOOKUP_UNRESOLVED LookupStatus = "unresolved"
)

// Locus is a GRCh38 genomic allele.
type Locus struct {
	Chrom string `json:"chrom"`
	Pos   int    `json:"pos"`
	Ref   string `json:"ref"`
	Alt   string `json:"alt"`
}

// ID renders the gnomAD-style variant id, e.g. "3-10142187-C-T".
func (l Locus) ID() string {
	return fmt.Sprintf("%s-%d-%s-%s", l.Chrom, l.Pos, l.Ref, l.Alt)
}

// Valid reports whether every field is populated.
func (l Locus) Valid() bool {
	return l.Chrom != "" && l.Pos > 0 && l.Ref != "" && l.Alt != ""
}

// FrequencyResult is what the population-frequency adapter reports for one variant.
// FAF is nil when the database holds the variant but no filtering allele frequency could be computed.
type FrequencyResult struct {
	Status  LookupStatus `json:"status"`
	Present bool         `json:"present"`
	FAF     *float64     `json:"filtering_allele_frequency"`
	Locus   *Locus       `json:"locus,omitempty"`
	Source  string       `json:"source,omitempty"`
	Detail  string       `json:"detail,omitempty"`
}

// Resolved reports whether the locus could be resolved and queried.
func (f FrequencyResult) Resolved() bool {
	return f.Status == LOOKUP_RESOLVED
}

// Unresolved builds the outcome for a failed resolution or lookup.
func Unresolved(source, format string, args ...any) FrequencyResult {
	return FrequencyResult{Status: LOOKUP_UNRESOLVED, Source: source, Detail: fmt.Sprintf(format, args...)}
}

// Absent builds the outcome for a resolved locus missing from the database.
func Absent(source string, locus *Locus) FrequencyResult {
	return FrequencyResult{Status: LOOKUP_RESOLVED, Present: false, Locus: locus, Source: source}
}

// Present builds the outcome for a resolved locus seen in the database. faf may be nil.
func Present(source string, locus *Locus, faf *float64) FrequencyResult {
	return FrequencyResult{Status: LOOKUP_RESOLVED, Present: true, FAF: faf, Locus: locus, Source: source}
}

// FrequencyAdapter is the population-frequency lookup capability.
// Implementations must be total: failures come back as an unresolved result, never as an error.
type FrequencyAdapter interface {
	Name() string
	Lookup(ctx context.Context, variant VariantDescriptor) FrequencyResult
}

// LocusResolver maps a transcript-relative coding change to a genomic locus.
type LocusResolver interface {
	Resolve(ctx context.Context, hgvs string) (*Locus, error)
}

// LocusSource queries a population database by genomic locus.
// A nil *FrequencyResult with nil error is not allowed.
type LocusSource interface {
	Name() string
	Query(ctx context.Context, locus Locus) (*FrequencyResult, error)
}
