package external

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/vhl-acmg-classifier/internal/domain"
)

// GeneBeClient queries the GeneBe public variant endpoint for gnomAD frequencies.
type GeneBeClient struct {
	baseURL    string
	apiKey     string
	username   string
	httpClient *http.Client
	rateLimit  *rate.Limiter
}

// NewGeneBeClient creates a new GeneBe API client
func NewGeneBeClient(config domain.GeneBeConfig) *GeneBeClient {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.genebe.net"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 5
	}
	return &GeneBeClient{
		baseURL:  strings.TrimSuffix(config.BaseURL, "/"),
		apiKey:   config.APIKey,
		username: config.Username,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		rateLimit: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
	}
}

// flexFloat accepts a JSON number, a numeric string or null.
type flexFloat struct {
	Value *float64
}

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		f.Value = nil
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// Non-numeric values are treated as missing.
		f.Value = nil
		return nil
	}
	f.Value = &v
	return nil
}

// geneBeGnomAD is the gnomAD block of a GeneBe annotation.
type geneBeGnomAD struct {
	AF          flexFloat `json:"af"`
	AFExomes    flexFloat `json:"af_exomes"`
	AFGenomes   flexFloat `json:"af_genomes"`
	FAF         flexFloat `json:"faf"`
	FAF95       flexFloat `json:"faf95"`
	FAFPopmax   flexFloat `json:"faf_popmax"`
	FAF95Popmax flexFloat `json:"faf95_popmax"`
}

// GeneBeVariantResponse represents the JSON response from the GeneBe variant endpoint
type GeneBeVariantResponse struct {
	Annotation struct {
		GnomAD  *geneBeGnomAD `json:"gnomad"`
		GnomAD4 *geneBeGnomAD `json:"gnomad4"`
	} `json:"annotation"`
	Message string `json:"message"`
}

// Name implements domain.LocusSource.
func (c *GeneBeClient) Name() string {
	return "GeneBe (gnomAD v4)"
}

// Query implements domain.LocusSource.
func (c *GeneBeClient) Query(ctx context.Context, locus domain.Locus) (*domain.FrequencyResult, error) {
	if err := c.rateLimit.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait failed: %w", err)
	}

	params := url.Values{}
	params.Set("chr", strings.TrimPrefix(locus.Chrom, "chr"))
	params.Set("pos", strconv.Itoa(locus.Pos))
	params.Set("ref", locus.Ref)
	params.Set("alt", locus.Alt)
	params.Set("genome", "hg38")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/cloud/api-public/v1/variant?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create GeneBe request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.username != "" && c.apiKey != "" {
		req.SetBasicAuth(c.username, c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, queryError("GeneBe", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		r := domain.Absent(c.Name(), &locus)
		return &r, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GeneBe API returned status %d", resp.StatusCode)
	}

	var body GeneBeVariantResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode GeneBe response: %w", err)
	}

	r := c.convertToFrequency(body, locus)
	return &r, nil
}

// convertToFrequency reads presence from the allele frequencies. A FAF field, when
// GeneBe exposes one, is used directly; otherwise the largest AF stands in for it,
// which never understates the filtering allele frequency.
func (c *GeneBeClient) convertToFrequency(body GeneBeVariantResponse, locus domain.Locus) domain.FrequencyResult {
	block := body.Annotation.GnomAD
	if block == nil {
		block = body.Annotation.GnomAD4
	}
	if block == nil {
		return domain.Absent(c.Name(), &locus)
	}

	present := false
	var maxAF *float64
	for _, f := range []flexFloat{block.AF, block.AFExomes, block.AFGenomes} {
		if f.Value == nil {
			continue
		}
		if *f.Value > 0 {
			present = true
		}
		if maxAF == nil || *f.Value > *maxAF {
			v := *f.Value
			maxAF = &v
		}
	}
	if !present {
		return domain.Absent(c.Name(), &locus)
	}

	for _, f := range []flexFloat{block.FAF, block.FAF95, block.FAFPopmax, block.FAF95Popmax} {
		if f.Value != nil {
			return domain.Present(c.Name(), &locus, f.Value)
		}
	}
	r := domain.Present(c.Name(), &locus, maxAF)
	r.Detail = "FAF approximated by the largest gnomAD allele frequency"
	return r
}

var _ domain.LocusSource = (*GeneBeClient)(nil)
