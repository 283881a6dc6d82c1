package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/vhl-acmg-classifier/internal/domain"
)

// DefaultGnomADDataset is the gnomAD v4 browser dataset.
const DefaultGnomADDataset = "gnomad_r4"

// GnomADClient handles interactions with the gnomAD GraphQL API
type GnomADClient struct {
	baseURL    string
	dataset    string
	httpClient *http.Client
	rateLimit  *rate.Limiter
}

// NewGnomADClient creates a new gnomAD API client
func NewGnomADClient(config domain.GnomADConfig) *GnomADClient {
	if config.BaseURL == "" {
		config.BaseURL = "https://gnomad.broadinstitute.org/api"
	}
	if config.Dataset == "" {
		config.Dataset = DefaultGnomADDataset
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 2
	}
	return &GnomADClient{
		baseURL: strings.TrimSuffix(config.BaseURL, "/"),
		dataset: config.Dataset,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		rateLimit: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
	}
}

const gnomADVariantQuery = `
query VariantQuery($variantId: String!, $datasetId: DatasetId!) {
  variant(variantId: $variantId, dataset: $datasetId) {
    variantId
    exome {
      ac
      an
      faf95 {
        popmax
      }
    }
    genome {
      ac
      an
      faf95 {
        popmax
      }
    }
  }
}`

// gnomADSample is the exome or genome block of a variant.
type gnomADSample struct {
	AC    int `json:"ac"`
	AN    int `json:"an"`
	FAF95 *struct {
		Popmax *float64 `json:"popmax"`
	} `json:"faf95"`
}

// GnomADVariantResponse represents the JSON response from gnomAD API
type GnomADVariantResponse struct {
	Data struct {
		Variant *struct {
			VariantID string        `json:"variantId"`
			Exome     *gnomADSample `json:"exome"`
			Genome    *gnomADSample `json:"genome"`
		} `json:"variant"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Name implements domain.LocusSource.
func (g *GnomADClient) Name() string {
	return "gnomAD " + g.dataset
}

// Query implements domain.LocusSource. A variant gnomAD does not know is reported
// absent; transport and API errors are returned for the adapter to mark unresolved.
func (g *GnomADClient) Query(ctx context.Context, locus domain.Locus) (*domain.FrequencyResult, error) {
	if err := g.rateLimit.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait failed: %w", err)
	}

	response, err := g.queryGraphQL(ctx, locus.ID())
	if err != nil {
		return nil, queryError("gnomAD", err)
	}

	if len(response.Errors) > 0 {
		msg := response.Errors[0].Message
		if strings.Contains(strings.ToLower(msg), "variant not found") {
			r := domain.Absent(g.Name(), &locus)
			return &r, nil
		}
		return nil, fmt.Errorf("gnomAD API error: %s", msg)
	}

	r := g.convertToFrequency(response, locus)
	return &r, nil
}

func (g *GnomADClient) queryGraphQL(ctx context.Context, variantID string) (*GnomADVariantResponse, error) {
	requestBody := map[string]interface{}{
		"query": gnomADVariantQuery,
		"variables": map[string]interface{}{
			"variantId": variantID,
			"datasetId": g.dataset,
		},
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal GraphQL request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create GraphQL request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute GraphQL request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("gnomAD API returned status %d: %s", resp.StatusCode, string(body))
	}

	var response GnomADVariantResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to parse GraphQL response: %w", err)
	}
	return &response, nil
}

// convertToFrequency takes the larger faf95 popmax of exomes and genomes. The variant
// is present when either sample set observed an alternate allele.
func (g *GnomADClient) convertToFrequency(response *GnomADVariantResponse, locus domain.Locus) domain.FrequencyResult {
	v := response.Data.Variant
	if v == nil {
		return domain.Absent(g.Name(), &locus)
	}

	present := false
	var faf *float64
	for _, s := range []*gnomADSample{v.Exome, v.Genome} {
		if s == nil {
			continue
		}
		if s.AC > 0 {
			present = true
		}
		if s.FAF95 != nil && s.FAF95.Popmax != nil {
			if faf == nil || *s.FAF95.Popmax > *faf {
				val := *s.FAF95.Popmax
				faf = &val
			}
		}
	}

	if !present {
		return domain.Absent(g.Name(), &locus)
	}
	return domain.Present(g.Name(), &locus, faf)
}

var _ domain.LocusSource = (*GnomADClient)(nil)
