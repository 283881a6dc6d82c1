package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vhl-acmg-classifier/internal/domain"
	"github.com/vhl-acmg-classifier/internal/genemodel"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, `
logging:
  level: error
frequency:
  backend: none
feedback:
  driver: sqlite
  dsn: `+filepath.Join(dir, "feedback.db")+`
`)

	a, err := Load(context.Background(), path)
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, genemodel.VHLVersion, a.Tables.Version)
	assert.Equal(t, "none", a.Classifier.FrequencySource())
	require.NotNil(t, a.Feedback)

	report, err := a.Classifier.Classify(context.Background(), "c.263G>A", domain.EvidenceContext{}, domain.PVS1)
	require.NoError(t, err)
	require.Len(t, report.Evidence, 1)
	assert.Equal(t, domain.VERY_STRONG, report.Evidence[0].Strength)

	count, err := a.Feedback.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestLoadFromEnv(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: error
frequency:
  backend: none
feedback:
  driver: none
`)
	t.Setenv(ConfigPathEnv, path)

	a, err := LoadFromEnv(context.Background())
	require.NoError(t, err)
	assert.Nil(t, a.Feedback)
	assert.NoError(t, a.Close())
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid backend", "frequency:\n  backend: clinvar\n"},
		{"invalid feedback driver", "frequency:\n  backend: none\nfeedback:\n  driver: mongo\n"},
		{"missing tables file", "frequency:\n  backend: none\nfeedback:\n  driver: none\ntables:\n  path: /nonexistent/vhl.yaml\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(context.Background(), writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}

	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
