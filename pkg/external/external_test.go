package external

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vhl-acmg-classifier/internal/domain"
)

var testLocus = domain.Locus{Chrom: "3", Pos: 10142000, Ref: "C", Alt: "T"}

func TestEnsemblVEPResolver_Resolve(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		expected    *domain.Locus
		expectError bool
	}{
		{
			name:     "substitution from allele string",
			status:   http.StatusOK,
			body:     `[{"input":"NM_000551.4:c.191G>C","seq_region_name":"3","start":10142041,"end":10142041,"allele_string":"G/C"}]`,
			expected: &domain.Locus{Chrom: "3", Pos: 10142041, Ref: "G", Alt: "C"},
		},
		{
			name:     "deletion from vcf string",
			status:   http.StatusOK,
			body:     `[{"seq_region_name":"3","start":10142330,"allele_string":"C/-","vcf_string":"3-10142329-AC-A"}]`,
			expected: &domain.Locus{Chrom: "3", Pos: 10142329, Ref: "AC", Alt: "A"},
		},
		{
			name:        "deletion without anchor base",
			status:      http.StatusOK,
			body:        `[{"seq_region_name":"3","start":10142330,"allele_string":"C/-"}]`,
			expectError: true,
		},
		{
			name:        "empty response",
			status:      http.StatusOK,
			body:        `[]`,
			expectError: true,
		},
		{
			name:        "unmappable HGVS",
			status:      http.StatusBadRequest,
			body:        `{"error":"Unable to parse HGVS notation"}`,
			expectError: true,
		},
		{
			name:        "server error",
			status:      http.StatusInternalServerError,
			body:        `oops`,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/vep/human/hgvs", r.URL.Path)

				var req vepRequest
				require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Equal(t, []string{"NM_000551.4:c.191G>C"}, req.HGVSNotations)
				assert.Equal(t, 1, req.RefSeq)

				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			resolver := NewEnsemblVEPResolver(domain.EnsemblConfig{BaseURL: server.URL, Timeout: 5 * time.Second, RateLimit: 100})
			locus, err := resolver.Resolve(context.Background(), "NM_000551.4:c.191G>C")

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, locus)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, locus)
		})
	}
}

func TestEnsemblVEPResolver_UnmappableIsLocusUnresolved(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	resolver := NewEnsemblVEPResolver(domain.EnsemblConfig{BaseURL: server.URL, RateLimit: 100})
	_, err := resolver.Resolve(context.Background(), "NM_000551.4:c.9999A>G")
	assert.True(t, errors.Is(err, domain.ErrLocusUnresolved))
}

func TestParseLocusID(t *testing.T) {
	locus, err := ParseLocusID("chr3-10142041-g-c")
	require.NoError(t, err)
	assert.Equal(t, domain.Locus{Chrom: "3", Pos: 10142041, Ref: "G", Alt: "C"}, *locus)
	assert.Equal(t, "3-10142041-G-C", locus.ID())

	for _, bad := range []string{"", "3-10142041-G", "3-x-G-C", "3-0-G-C"} {
		_, err := ParseLocusID(bad)
		assert.Error(t, err, bad)
	}
}

func TestGnomADClient_Query(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		present  bool
		faf      *float64
		resolved bool
		wantErr  bool
	}{
		{
			name:     "present with popmax from both sample sets",
			body:     `{"data":{"variant":{"variantId":"3-10142000-C-T","exome":{"ac":4,"an":1000000,"faf95":{"popmax":1.2e-6}},"genome":{"ac":1,"an":150000,"faf95":{"popmax":3.4e-6}}}}}`,
			present:  true,
			faf:      ptr(3.4e-6),
			resolved: true,
		},
		{
			name:     "present without faf",
			body:     `{"data":{"variant":{"variantId":"3-10142000-C-T","exome":{"ac":1,"an":1000000,"faf95":{"popmax":null}},"genome":null}}}`,
			present:  true,
			resolved: true,
		},
		{
			name:     "zero allele count is absent",
			body:     `{"data":{"variant":{"variantId":"3-10142000-C-T","exome":{"ac":0,"an":1000000,"faf95":{"popmax":0}}}}}`,
			resolved: true,
		},
		{
			name:     "null variant is absent",
			body:     `{"data":{"variant":null}}`,
			resolved: true,
		},
		{
			name:     "variant not found error is absent",
			body:     `{"data":{"variant":null},"errors":[{"message":"Variant not found"}]}`,
			resolved: true,
		},
		{
			name:    "other API error",
			body:    `{"errors":[{"message":"Unknown dataset"}]}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				var body struct {
					Variables map[string]string `json:"variables"`
				}
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				assert.Equal(t, "3-10142000-C-T", body.Variables["variantId"])
				assert.Equal(t, DefaultGnomADDataset, body.Variables["datasetId"])
				fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			client := NewGnomADClient(domain.GnomADConfig{BaseURL: server.URL, RateLimit: 100})
			result, err := client.Query(context.Background(), testLocus)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.resolved, result.Resolved())
			assert.Equal(t, tt.present, result.Present)
			if tt.faf == nil {
				assert.Nil(t, result.FAF)
			} else {
				require.NotNil(t, result.FAF)
				assert.InDelta(t, *tt.faf, *result.FAF, 1e-12)
			}
			assert.Equal(t, &testLocus, result.Locus)
		})
	}
}

func TestGnomADClient_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewGnomADClient(domain.GnomADConfig{BaseURL: server.URL, RateLimit: 100})
	_, err := client.Query(context.Background(), testLocus)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestGeneBeClient_Query(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		present bool
		faf     *float64
	}{
		{
			name:    "faf exposed directly",
			status:  http.StatusOK,
			body:    `{"annotation":{"gnomad":{"af":2e-6,"af_exomes":"1.5e-6","faf95_popmax":8e-7}}}`,
			present: true,
			faf:     ptr(8e-7),
		},
		{
			name:    "faf approximated by max af",
			status:  http.StatusOK,
			body:    `{"annotation":{"gnomad4":{"af":2e-6,"af_genomes":5e-6}}}`,
			present: true,
			faf:     ptr(5e-6),
		},
		{
			name:   "zero frequency is absent",
			status: http.StatusOK,
			body:   `{"annotation":{"gnomad":{"af":0}}}`,
		},
		{
			name:   "no gnomad block is absent",
			status: http.StatusOK,
			body:   `{"annotation":{}}`,
		},
		{
			name:   "not found is absent",
			status: http.StatusNotFound,
			body:   `{"message":"not found"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/cloud/api-public/v1/variant", r.URL.Path)
				q := r.URL.Query()
				assert.Equal(t, "3", q.Get("chr"))
				assert.Equal(t, "10142000", q.Get("pos"))
				assert.Equal(t, "C", q.Get("ref"))
				assert.Equal(t, "T", q.Get("alt"))
				assert.Equal(t, "hg38", q.Get("genome"))
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			client := NewGeneBeClient(domain.GeneBeConfig{BaseURL: server.URL, RateLimit: 100})
			result, err := client.Query(context.Background(), testLocus)
			require.NoError(t, err)
			assert.True(t, result.Resolved())
			assert.Equal(t, tt.present, result.Present)
			if tt.faf == nil {
				assert.Nil(t, result.FAF)
			} else {
				require.NotNil(t, result.FAF)
				assert.InDelta(t, *tt.faf, *result.FAF, 1e-12)
			}
		})
	}
}

func TestGeneBeClient_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewGeneBeClient(domain.GeneBeConfig{BaseURL: server.URL, RateLimit: 100})
	_, err := client.Query(context.Background(), testLocus)
	assert.Error(t, err)
}

func TestClients_RespectContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	client := NewGnomADClient(domain.GnomADConfig{BaseURL: server.URL, RateLimit: 100})
	_, err := client.Query(ctx, testLocus)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func ptr(v float64) *float64 { return &v }
