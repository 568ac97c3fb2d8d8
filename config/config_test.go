package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsInconsistentFastQuorum(t *testing.T) {
	cfg := Default()
	cfg.N = 3
	cfg.F = 2 // 2f+1 = 5 > n = 3
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsUnknownVariant(t *testing.T) {
	cfg := Default()
	cfg.Variant = "bogus"
	assert.Error(t, cfg.Validate())
}

func TestLoadParsesYAMLAndAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "epochd.yaml")
	contents := `
id: 1
shard_id: 0
variant: depset
n: 5
f: 2
peers:
  - id: 2
    shard_id: 0
    address: "127.0.0.1:9002"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, VariantDepSet, cfg.Variant)
	assert.Equal(t, 5, cfg.N)
	assert.Equal(t, 2, cfg.F)
	assert.Len(t, cfg.Peers, 1)
	assert.Equal(t, 1, cfg.ShardCount) // default preserved for a field absent from the file
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "epochd.yaml")
	require.NoError(t, os.WriteFile(path, []byte("n: 0\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	_, err := Load("/nonexistent/epochd.yaml")
	assert.Error(t, err)
}
