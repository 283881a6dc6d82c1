package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/vhl-acmg-classifier/internal/domain"
)

// EnsemblVEPResolver maps transcript HGVS to GRCh38 loci through the Ensembl VEP REST API.
type EnsemblVEPResolver struct {
	baseURL    string
	httpClient *http.Client
	rateLimit  *rate.Limiter
}

// vepRequest is the POST body of /vep/human/hgvs.
type vepRequest struct {
	HGVSNotations []string `json:"hgvs_notations"`
	RefSeq        int      `json:"refseq"`
	VCFString     int      `json:"vcf_string"`
}

// vepEntry is the part of one VEP consequence record the resolver reads.
type vepEntry struct {
	Input         string `json:"input"`
	AssemblyName  string `json:"assembly_name"`
	SeqRegionName string `json:"seq_region_name"`
	Start         int    `json:"start"`
	End           int    `json:"end"`
	AlleleString  string `json:"allele_string"`
	// VCFString is "chrom-pos-ref-alt" with the VCF anchor base for indels.
	VCFString string `json:"vcf_string"`
}

// NewEnsemblVEPResolver creates a new Ensembl VEP resolver
func NewEnsemblVEPResolver(config domain.EnsemblConfig) *EnsemblVEPResolver {
	if config.BaseURL == "" {
		config.BaseURL = "https://rest.ensembl.org"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 15 // Ensembl allows 15 requests per second
	}

	return &EnsemblVEPResolver{
		baseURL: strings.TrimSuffix(config.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		rateLimit: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
	}
}

// Resolve implements domain.LocusResolver.
func (e *EnsemblVEPResolver) Resolve(ctx context.Context, hgvs string) (*domain.Locus, error) {
	hgvs = strings.TrimSpace(hgvs)
	if hgvs == "" {
		return nil, fmt.Errorf("%w: empty HGVS", domain.ErrLocusUnresolved)
	}

	if err := e.rateLimit.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait failed: %w", err)
	}

	entries, err := e.queryVEP(ctx, hgvs)
	if err != nil {
		return nil, queryError("Ensembl VEP", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: VEP returned no mapping for %s", domain.ErrLocusUnresolved, hgvs)
	}

	locus, err := locusFromVEP(entries[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read VEP mapping for %s: %w", hgvs, err)
	}
	return locus, nil
}

func (e *EnsemblVEPResolver) queryVEP(ctx context.Context, hgvs string) ([]vepEntry, error) {
	body, err := json.Marshal(vepRequest{HGVSNotations: []string{hgvs}, RefSeq: 1, VCFString: 1})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal VEP request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/vep/human/hgvs", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create VEP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "VHL-ACMG-Classifier/1.0")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute VEP request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusNotFound:
		// VEP answers 400 for HGVS it cannot map onto the reference.
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: VEP status %d: %s", domain.ErrLocusUnresolved, resp.StatusCode, strings.TrimSpace(string(msg)))
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("Ensembl API returned status %d", resp.StatusCode)
	}

	var entries []vepEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to decode VEP response: %w", err)
	}
	return entries, nil
}

// locusFromVEP prefers the VCF-style string, which carries the anchor base indels need,
// and falls back to seq_region_name/start/allele_string for substitutions.
func locusFromVEP(e vepEntry) (*domain.Locus, error) {
	if e.VCFString != "" {
		if locus, err := ParseLocusID(e.VCFString); err == nil {
			return locus, nil
		}
	}

	ref, alt, ok := strings.Cut(e.AlleleString, "/")
	if !ok || strings.Contains(alt, "/") {
		return nil, fmt.Errorf("%w: allele string %q", domain.ErrLocusUnresolved, e.AlleleString)
	}
	if ref == "-" || alt == "-" {
		return nil, fmt.Errorf("%w: indel allele %q has no anchor base", domain.ErrLocusUnresolved, e.AlleleString)
	}
	locus := &domain.Locus{
		Chrom: strings.TrimPrefix(e.SeqRegionName, "chr"),
		Pos:   e.Start,
		Ref:   ref,
		Alt:   alt,
	}
	if !locus.Valid() {
		return nil, fmt.Errorf("%w: incomplete mapping %+v", domain.ErrLocusUnresolved, e)
	}
	return locus, nil
}

// ParseLocusID parses "chrom-pos-ref-alt" (an optional "chr" prefix is dropped).
func ParseLocusID(id string) (*domain.Locus, error) {
	parts := strings.Split(strings.TrimSpace(id), "-")
	if len(parts) != 4 {
		return nil, fmt.Errorf("%w: locus id %q must be chrom-pos-ref-alt", domain.ErrInvalidInput, id)
	}
	pos, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: locus position %q", domain.ErrInvalidInput, parts[1])
	}
	locus := &domain.Locus{
		Chrom: strings.TrimPrefix(parts[0], "chr"),
		Pos:   pos,
		Ref:   strings.ToUpper(parts[2]),
		Alt:   strings.ToUpper(parts[3]),
	}
	if !locus.Valid() {
		return nil, fmt.Errorf("%w: locus id %q", domain.ErrInvalidInput, id)
	}
	return locus, nil
}

var _ domain.LocusResolver = (*EnsemblVEPResolver)(nil)
