package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesPipelineDefaults(t *testing.T) {
	path := writeConfig(t, `{"port": 9901, "ai": {"provider": "gemini", "model": "gemini-2.0-flash"}}`)
	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 1500, cfg.Pipeline.Chunking.ChunkSize)
	require.Equal(t, 400, cfg.Pipeline.Chunking.ChunkOverlap)
	require.Equal(t, 300, cfg.Pipeline.Chunking.MinChunkSize)
	require.Equal(t, 0.80, cfg.Pipeline.Retrieval.TierCritical)
	require.Equal(t, 0.70, cfg.Pipeline.Retrieval.TierHigh)
	require.Equal(t, 0.55, cfg.Pipeline.Retrieval.TierAcceptable)
	require.Equal(t, cfg.AI.Model, cfg.AI.EmbedModel)
	require.Equal(t, "local", cfg.FileStore.Type)
}

func TestLoadRejectsUnorderedTiers(t *testing.T) {
	path := writeConfig(t, `{
		"port": 9901,
		"ai": {"provider": "gemini", "model": "gemini-2.0-flash"},
		"pipeline": {"retrieval": {"tier_critical": 0.5, "tier_high": 0.7, "tier_acceptable": 0.55}}
	}`)
	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "strictly ordered")
}

func TestLoadRejectsOverlapNotSmallerThanChunkSize(t *testing.T) {
	path := writeConfig(t, `{
		"port": 9901,
		"ai": {"provider": "gemini", "model": "gemini-2.0-flash"},
		"pipeline": {"chunking": {"chunk_size": 400, "chunk_overlap": 400}}
	}`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRequiresPortAndProvider(t *testing.T) {
	_, err := Load(writeConfig(t, `{"ai": {"provider": "gemini", "model": "m"}}`))
	require.Error(t, err)

	_, err = Load(writeConfig(t, `{"port": 9901}`))
	require.Error(t, err)
}
