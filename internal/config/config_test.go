package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, int64(10*1024*1024), cfg.MaxFileSize)
	assert.Equal(t, "http://localhost:8884", cfg.OCR.ServerURL)
	assert.Equal(t, "text-embedding-v3", cfg.Embedding.Model)

	assert.InDelta(t, 0.75, cfg.Scoring.SimilarityThresholds.RequiredHit, 1e-9)
	assert.InDelta(t, 0.65, cfg.Scoring.SimilarityThresholds.WeakSupport, 1e-9)
	assert.InDelta(t, 1.0, cfg.Scoring.Weights.Coverage+cfg.Scoring.Weights.Experience+cfg.Scoring.Weights.Education, 1e-9)
	assert.Equal(t, 2, cfg.Scoring.RecencyYearsBoost)

	require.NoError(t, cfg.Scoring.Validate())
}

func TestLoadConfigMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/config.yaml")

	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().OCR.ServerURL, cfg.OCR.ServerURL)
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `max_file_size: 1024
ocr:
  server_url: http://ocr:9999
scoring:
  similarity_thresholds:
    required_hit: 0.8
    preferred_hit: 0.7
    weak_support: 0.6
  weights:
    coverage: 0.5
    experience: 0.4
    education: 0.1
  recency_years_boost: 3
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, int64(1024), cfg.MaxFileSize)
	assert.Equal(t, "http://ocr:9999", cfg.OCR.ServerURL)
	assert.InDelta(t, 0.8, cfg.Scoring.SimilarityThresholds.RequiredHit, 1e-9)
	assert.Equal(t, 3, cfg.Scoring.RecencyYearsBoost)

	// 未覆盖的字段保持默认值
	assert.Equal(t, "text-embedding-v3", cfg.Embedding.Model)
	assert.InDelta(t, 1.0, cfg.Scoring.SectionWeights["experience"], 1e-9)
}

func TestLoadConfigEnvOverridesAPIKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("embedding:\n  api_key: from-file\n"), 0o644))
	t.Setenv("ALIYUN_API_KEY", "from-env")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Embedding.APIKey)
}

func TestLoadConfigRejectsInvalidScoring(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `scoring:
  similarity_thresholds:
    required_hit: 0.75
    preferred_hit: 0.75
    weak_support: 0.65
  weights:
    coverage: 0.5
    experience: 0.2
    education: 0.1
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := LoadConfig(path)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestScoringConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ScoringConfig)
	}{
		{
			name: "门限超出范围",
			mutate: func(s *ScoringConfig) {
				s.SimilarityThresholds.RequiredHit = 1.5
			},
		},
		{
			name: "弱支撑高于命中门限",
			mutate: func(s *ScoringConfig) {
				s.SimilarityThresholds.WeakSupport = 0.9
			},
		},
		{
			name: "权重为负",
			mutate: func(s *ScoringConfig) {
				s.Weights.Coverage = -0.1
				s.Weights.Experience = 1.0
				s.Weights.Education = 0.1
			},
		},
		{
			name: "权重之和不为一",
			mutate: func(s *ScoringConfig) {
				s.Weights.Coverage = 0.9
			},
		},
		{
			name: "近期窗口为负",
			mutate: func(s *ScoringConfig) {
				s.RecencyYearsBoost = -1
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scoring := DefaultConfig().Scoring
			tt.mutate(&scoring)

			err := scoring.Validate()

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrConfiguration)
		})
	}
}