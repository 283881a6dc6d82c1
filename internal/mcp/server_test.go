package mcp

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vhl-acmg-classifier/internal/domain"
	"github.com/vhl-acmg-classifier/internal/feedback"
	"github.com/vhl-acmg-classifier/internal/genemodel"
	"github.com/vhl-acmg-classifier/internal/service"
	"github.com/vhl-acmg-classifier/pkg/external"
)

func newTestServer(t *testing.T, withFeedback bool) *Server {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)

	classifier := service.NewClassifierService(logger, genemodel.VHL(), external.NewStaticAdapter(nil, true), time.Second)

	var store feedback.Store
	if withFeedback {
		sqlite, err := feedback.NewSQLiteStore(filepath.Join(t.TempDir(), "feedback.db"))
		require.NoError(t, err)
		t.Cleanup(func() { sqlite.Close() })
		store = sqlite
	}
	return NewServer(domain.MCPConfig{ServerName: "vhl-acmg-classifier", ServerVersion: "test"}, logger, classifier, store)
}

func TestClassifyVariant(t *testing.T) {
	s := newTestServer(t, false)
	ctx := context.Background()
	req := &mcp.CallToolRequest{}

	tests := []struct {
		name           string
		input          ClassifyVariantInput
		wantErr        bool
		validateOutput func(t *testing.T, out ClassifyVariantOutput)
	}{
		{
			name:    "empty variant returns error",
			input:   ClassifyVariantInput{},
			wantErr: true,
		},
		{
			name:    "unknown code returns error",
			input:   ClassifyVariantInput{Variant: "c.263G>A", Codes: []string{"PP3"}},
			wantErr: true,
		},
		{
			name:    "invalid context returns error",
			input:   ClassifyVariantInput{Variant: "c.263G>A", Context: &domain.EvidenceContext{Phenotype: "vague"}},
			wantErr: true,
		},
		{
			name:  "nonsense absent from gnomAD",
			input: ClassifyVariantInput{Variant: "NM_000551.4(VHL):c.263G>A (p.Trp88Ter)"},
			validateOutput: func(t *testing.T, out ClassifyVariantOutput) {
				assert.Equal(t, "Uncertain Significance", out.Classification)
				assert.Equal(t, "nonsense", out.VariantType)
				assert.Equal(t, "NM_000551.4:c.263G>A", out.HGVS)
				assert.Equal(t, []string{"PVS1", "PM2_Supporting"}, out.Contributing)
				require.Len(t, out.Evidence, len(domain.AllEvidenceCodes))
				require.NotNil(t, out.Evidence[0].Strength)
				assert.Equal(t, "VeryStrong", *out.Evidence[0].Strength)
				assert.Nil(t, out.Evidence[1].Strength, "PS1 does not apply to nonsense")
				require.NotNil(t, out.Frequency)
				assert.Equal(t, "resolved", out.Frequency.Status)
				assert.False(t, out.Frequency.Present)
				assert.Equal(t, genemodel.VHLVersion, out.TablesVersion)
			},
		},
		{
			name:  "subset without frequency codes skips the lookup",
			input: ClassifyVariantInput{Variant: "c.263G>A (p.Trp88Ter)", Codes: []string{"PVS1"}},
			validateOutput: func(t *testing.T, out ClassifyVariantOutput) {
				assert.Len(t, out.Evidence, 1)
				assert.Nil(t, out.Frequency)
			},
		},
		{
			name:  "unparseable variant is still classified",
			input: ClassifyVariantInput{Variant: "VHL R167W"},
			validateOutput: func(t *testing.T, out ClassifyVariantOutput) {
				assert.NotEmpty(t, out.ParseError)
				assert.Equal(t, "Uncertain Significance", out.Classification)
				for _, e := range out.Evidence {
					assert.Nil(t, e.Strength, e.Code)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, out, err := s.ClassifyVariant(ctx, req, tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.validateOutput(t, out)
		})
	}
}

func TestEvaluateEvidence(t *testing.T) {
	s := newTestServer(t, false)
	ctx := context.Background()

	_, out, err := s.EvaluateEvidence(ctx, &mcp.CallToolRequest{}, EvaluateEvidenceInput{Code: "PVS1", Variant: "c.463+1G>A"})
	require.NoError(t, err)
	require.NotNil(t, out.Strength)
	assert.Equal(t, "VeryStrong", *out.Strength)
	assert.Contains(t, out.Context, "anonical")

	_, out, err = s.EvaluateEvidence(ctx, &mcp.CallToolRequest{}, EvaluateEvidenceInput{Code: "XYZ", Variant: "c.463+1G>A"})
	require.NoError(t, err, "unknown codes yield a result, not an error")
	assert.Nil(t, out.Strength)
	assert.NotEmpty(t, out.Context)
}

func TestCombineEvidence(t *testing.T) {
	s := newTestServer(t, false)
	ctx := context.Background()

	_, out, err := s.CombineEvidence(ctx, &mcp.CallToolRequest{}, CombineEvidenceInput{Evidence: []EvidenceInput{
		{Code: "PS1", Strength: "Strong"},
		{Code: "PM1", Strength: "Moderate"},
		{Code: "PM4", Strength: "Moderate"},
		{Code: "BS1"},
	}})
	require.NoError(t, err)
	assert.Equal(t, "Likely Pathogenic", out.Classification)
	assert.Equal(t, []string{"PS1", "PM1", "PM4"}, out.Contributing)
	assert.Equal(t, 2, out.PathogenicCounts["Moderate"])

	_, out, err = s.CombineEvidence(ctx, &mcp.CallToolRequest{}, CombineEvidenceInput{Evidence: []EvidenceInput{
		{Code: "BA1", Strength: "StandAlone"},
	}})
	require.NoError(t, err)
	assert.Equal(t, "Benign", out.Classification)

	_, _, err = s.CombineEvidence(ctx, &mcp.CallToolRequest{}, CombineEvidenceInput{Evidence: []EvidenceInput{{Code: "PS1", Strength: "Huge"}}})
	assert.Error(t, err)

	_, _, err = s.CombineEvidence(ctx, &mcp.CallToolRequest{}, CombineEvidenceInput{Evidence: []EvidenceInput{{Strength: "Strong"}}})
	assert.Error(t, err)
}

func TestDescribeTables(t *testing.T) {
	s := newTestServer(t, false)

	_, out, err := s.DescribeTables(context.Background(), &mcp.CallToolRequest{}, DescribeTablesInput{})
	require.NoError(t, err)
	assert.Equal(t, genemodel.VHLVersion, out.Version)
	assert.Equal(t, "NM_000551.4", out.Transcript)
	assert.Len(t, out.Exons, 3)
	assert.Greater(t, out.ReferenceCount, 0)
	assert.InDelta(t, 1.56e-4, out.Thresholds.BA1, 1e-12)
}

func TestFeedbackTools(t *testing.T) {
	s := newTestServer(t, true)
	ctx := context.Background()
	req := &mcp.CallToolRequest{}

	_, got, err := s.GetFeedback(ctx, req, GetFeedbackInput{Variant: "c.263G>A"})
	require.NoError(t, err)
	assert.False(t, got.Found)
	assert.Equal(t, "NM_000551.4:c.263G>A", got.NormalizedHGVS)

	_, saved, err := s.SubmitFeedback(ctx, req, SubmitFeedbackInput{
		Variant:               "NM_000551.4(VHL):c.263G>A (p.Trp88Ter)",
		CuratorClassification: "LP",
		Notes:                 "PS4 met from published kindreds",
	})
	require.NoError(t, err)
	assert.True(t, saved.Found)
	assert.NotZero(t, saved.ID)
	assert.Equal(t, "Uncertain Significance", saved.EngineClassification)
	assert.Equal(t, "Likely Pathogenic", saved.CuratorClassification)
	assert.False(t, saved.Agreed)
	assert.NotEmpty(t, saved.UpdatedAt)

	_, got, err = s.GetFeedback(ctx, req, GetFeedbackInput{Variant: "VHL:c.263G>A"})
	require.NoError(t, err)
	assert.True(t, got.Found)
	assert.Equal(t, saved.ID, got.ID)
	assert.Equal(t, "PS4 met from published kindreds", got.Notes)

	_, _, err = s.SubmitFeedback(ctx, req, SubmitFeedbackInput{Variant: "c.263G>A", CuratorClassification: "Maybe"})
	assert.Error(t, err)

	_, _, err = s.GetFeedback(ctx, req, GetFeedbackInput{Variant: "R167W"})
	assert.Error(t, err)
}

func TestFeedbackTools_Disabled(t *testing.T) {
	s := newTestServer(t, false)

	_, _, err := s.SubmitFeedback(context.Background(), &mcp.CallToolRequest{}, SubmitFeedbackInput{Variant: "c.263G>A", CuratorClassification: "VUS"})
	assert.ErrorIs(t, err, errFeedbackDisabled)

	_, _, err = s.GetFeedback(context.Background(), &mcp.CallToolRequest{}, GetFeedbackInput{Variant: "c.263G>A"})
	assert.ErrorIs(t, err, errFeedbackDisabled)
}

func TestServer_InMemorySession(t *testing.T) {
	s := newTestServer(t, false)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	serverSession, err := s.MCPServer().Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	defer serverSession.Close()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	defer session.Close()

	tools, err := session.ListTools(ctx, nil)
	require.NoError(t, err)
	names := make([]string, 0, len(tools.Tools))
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		"classify_variant", "evaluate_evidence", "combine_evidence",
		"describe_tables", "submit_feedback", "get_feedback",
	}, names)

	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "evaluate_evidence",
		Arguments: map[string]any{"code": "PM2_Supporting", "variant": "c.263G>A"},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)

	data, err := json.Marshal(res.StructuredContent)
	require.NoError(t, err)
	var out EvidenceOutput
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "PM2_Supporting", out.Code)
	require.NotNil(t, out.Strength)
	assert.Equal(t, "Supporting", *out.Strength)
}
