package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vhl-acmg-classifier/internal/domain"
	"github.com/vhl-acmg-classifier/internal/feedback"
	"github.com/vhl-acmg-classifier/internal/genemodel"
	"github.com/vhl-acmg-classifier/internal/service"
	"github.com/vhl-acmg-classifier/pkg/external"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return logger
}

// newTestServer wires the API over the built-in tables, a fixed "absent"
// frequency answer and a temporary SQLite feedback store.
func newTestServer(t *testing.T, withFeedback bool) *Server {
	t.Helper()
	logger := quietLogger()
	classifier := service.NewClassifierService(logger, genemodel.VHL(), external.NewStaticAdapter(nil, true), time.Second)

	var store feedback.Store
	if withFeedback {
		sqlite, err := feedback.NewSQLiteStore(filepath.Join(t.TempDir(), "feedback.db"))
		require.NoError(t, err)
		t.Cleanup(func() { sqlite.Close() })
		store = sqlite
	}

	s := NewServer(domain.ServerConfig{RequestTimeout: 5 * time.Second}, domain.LoggingConfig{Level: "error"}, logger, classifier, store)
	gin.SetMode(gin.TestMode)
	return s
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

type errorBody struct {
	Error domain.APIError `json:"error"`
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, false)

	w := doJSON(t, s, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	decode(t, w, &body)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, genemodel.VHLVersion, body["tables_version"])
	assert.Equal(t, "static", body["frequency_source"])
	assert.Equal(t, false, body["feedback_enabled"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestClassify(t *testing.T) {
	s := newTestServer(t, false)

	w := doJSON(t, s, http.MethodPost, "/api/v1/classify", map[string]any{
		"variant": "NM_000551.4(VHL):c.263G>A (p.Trp88Ter)",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var report domain.ClassificationReport
	decode(t, w, &report)
	assert.Equal(t, domain.NONSENSE, report.Variant.Type)
	assert.Equal(t, domain.VUS, report.Verdict.Label)
	require.Len(t, report.Evidence, len(domain.AllEvidenceCodes))
	assert.Equal(t, domain.PVS1, report.Evidence[0].Code)
	assert.Equal(t, domain.VERY_STRONG, report.Evidence[0].Strength)
	assert.Equal(t, genemodel.VHLVersion, report.Tables)
}

func TestClassify_SelectedCodes(t *testing.T) {
	s := newTestServer(t, false)

	w := doJSON(t, s, http.MethodPost, "/api/v1/classify", map[string]any{
		"variant": "c.263G>A (p.Trp88Ter)",
		"codes":   []string{"pvs1", "PM2"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var report domain.ClassificationReport
	decode(t, w, &report)
	require.Len(t, report.Evidence, 2)
	assert.Equal(t, domain.PM2_SUPPORTING, report.Evidence[1].Code)
}

func TestClassify_BadRequests(t *testing.T) {
	s := newTestServer(t, false)

	tests := []struct {
		name string
		body any
		code string
	}{
		{"unknown code", map[string]any{"variant": "c.263G>A", "codes": []string{"PP3"}}, domain.CodeUnknownCode},
		{"invalid phenotype", map[string]any{"variant": "c.263G>A", "context": map[string]any{"phenotype": "vague"}}, domain.CodeInvalidInput},
		{"malformed body", "not an object", domain.CodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, s, http.MethodPost, "/api/v1/classify", tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code)

			var body errorBody
			decode(t, w, &body)
			assert.Equal(t, tt.code, body.Error.Code)
			assert.NotEmpty(t, body.Error.RequestID)
		})
	}
}

func TestEvaluateEvidence(t *testing.T) {
	s := newTestServer(t, false)

	tests := []struct {
		name     string
		code     string
		variant  string
		context  map[string]any
		strength any
		contains string
	}{
		{"canonical splice", "PVS1", "NM_000551.4(VHL):c.463+1G>A", nil, "VeryStrong", "canonical"},
		{"absent from gnomAD", "PM2_Supporting", "c.263G>A", nil, "Supporting", ""},
		{"missing c. segment", "PVS1", "NM_000551.4:263G>A", nil, nil, ""},
		{"unknown code", "PVS2", "c.263G>A", nil, nil, "Unknown evidence code"},
		{"invalid context", "PS2", "c.263G>A", map[string]any{"duplication_tandem": "maybe"}, nil, "Invalid evidence context"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, s, http.MethodPost, "/api/v1/evidence/"+tt.code, map[string]any{
				"variant": tt.variant,
				"context": tt.context,
			})
			require.Equal(t, http.StatusOK, w.Code, "every well-formed request gets a result")

			var body map[string]any
			decode(t, w, &body)
			assert.Contains(t, body, "strength")
			assert.Equal(t, tt.strength, body["strength"])
			assert.NotEmpty(t, body["context"])
			if tt.contains != "" {
				assert.Contains(t, strings.ToLower(body["context"].(string)), strings.ToLower(tt.contains))
			}
		})
	}
}

func TestCombine(t *testing.T) {
	s := newTestServer(t, false)

	w := doJSON(t, s, http.MethodPost, "/api/v1/combine", map[string]any{
		"evidence": []map[string]any{
			{"code": "PS1", "strength": "Strong", "justification": "matches p.Arg167Trp"},
			{"code": "PM1", "strength": "Moderate", "justification": "hotspot"},
			{"code": "PM4", "strength": "Moderate", "justification": "in-frame deletion in domain"},
			{"code": "BS1", "strength": nil, "justification": "below threshold"},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var verdict domain.ClassificationVerdict
	decode(t, w, &verdict)
	assert.Equal(t, domain.LIKELY_PATHOGENIC, verdict.Label)
	assert.Len(t, verdict.Contributing, 3)
}

func TestCombine_Invalid(t *testing.T) {
	s := newTestServer(t, false)

	w := doJSON(t, s, http.MethodPost, "/api/v1/combine", map[string]any{
		"evidence": []map[string]any{{"code": "PS1", "strength": "Enormous"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, s, http.MethodPost, "/api/v1/combine", map[string]any{
		"evidence": []map[string]any{{"strength": "Strong"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, s, http.MethodPost, "/api/v1/combine", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTables(t *testing.T) {
	s := newTestServer(t, false)

	w := doJSON(t, s, http.MethodGet, "/api/v1/tables", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	decode(t, w, &body)
	assert.Equal(t, genemodel.VHLVersion, body["version"])
	assert.Equal(t, "NM_000551.4", body["transcript"])
	assert.Contains(t, body, "thresholds")
}

func TestFeedback_SubmitAndGet(t *testing.T) {
	s := newTestServer(t, true)

	w := doJSON(t, s, http.MethodPost, "/api/v1/feedback", map[string]any{
		"variant":                "NM_000551.4(VHL):c.263G>A (p.Trp88Ter)",
		"curator_classification": "Likely Pathogenic",
		"notes":                  "segregates in two families",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var saved feedback.Feedback
	decode(t, w, &saved)
	assert.NotZero(t, saved.ID)
	assert.Equal(t, domain.VUS, saved.EngineClassification)
	assert.Equal(t, domain.LIKELY_PATHOGENIC, saved.CuratorClassification)
	assert.False(t, saved.Agreed)
	assert.Equal(t, []string{"PVS1", "PM2_Supporting"}, saved.AppliedCodes)

	// Lookup normalizes the variant, so the gene-prefixed spelling finds the same review.
	w = doJSON(t, s, http.MethodGet, "/api/v1/feedback?variant=VHL:c.263G%3EA", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var got feedback.Feedback
	decode(t, w, &got)
	assert.Equal(t, saved.ID, got.ID)
	assert.Equal(t, "segregates in two families", got.Notes)

	w = doJSON(t, s, http.MethodGet, "/api/v1/feedback", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list feedbackListResponse
	decode(t, w, &list)
	assert.Equal(t, int64(1), list.Total)
	assert.Len(t, list.Feedback, 1)
	assert.Equal(t, defaultFeedbackPageSize, list.Limit)
}

func TestFeedback_Errors(t *testing.T) {
	s := newTestServer(t, true)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"invalid curator label", http.MethodPost, "/api/v1/feedback", map[string]any{"variant": "c.263G>A", "curator_classification": "Maybe"}, http.StatusBadRequest},
		{"missing curator label", http.MethodPost, "/api/v1/feedback", map[string]any{"variant": "c.263G>A"}, http.StatusBadRequest},
		{"unparseable variant", http.MethodPost, "/api/v1/feedback", map[string]any{"variant": "VHL R167W", "curator_classification": "Pathogenic"}, http.StatusBadRequest},
		{"no review yet", http.MethodGet, "/api/v1/feedback?variant=c.499C%3ET", nil, http.StatusNotFound},
		{"unparseable lookup", http.MethodGet, "/api/v1/feedback?variant=R167W", nil, http.StatusBadRequest},
		{"limit too large", http.MethodGet, "/api/v1/feedback?limit=10000", nil, http.StatusBadRequest},
		{"negative offset", http.MethodGet, "/api/v1/feedback?offset=-1", nil, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, s, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestFeedback_Disabled(t *testing.T) {
	s := newTestServer(t, false)

	w := doJSON(t, s, http.MethodGet, "/api/v1/feedback", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = doJSON(t, s, http.MethodPost, "/api/v1/feedback", map[string]any{"variant": "c.263G>A", "curator_classification": "VUS"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
