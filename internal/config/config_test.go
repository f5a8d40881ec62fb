package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMergesOverDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "pzworkshop.json")
	content := `{
  "data_dir": "/srv/pz/workshop",
  "scrape": {"timeout_seconds": 5},
  "s3": {"host": "minio.local:9000", "bucket": "pz-state", "force_path_style": true}
}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/pz/workshop", cfg.DataDir)
	assert.Equal(t, 5, cfg.Scrape.TimeoutSeconds)
	assert.Equal(t, 24, cfg.Scrape.CacheTTLHours, "untouched fields keep defaults")
	assert.Equal(t, "pz-state", cfg.S3.Bucket)
	assert.True(t, cfg.S3.ForcePathStyle)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"scrape": {"timeout_seconds": -1}}`), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadFirstSkipsMissingPaths(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	present := filepath.Join(dir, "present.json")
	require.NoError(t, os.WriteFile(present, []byte(`{"data_dir": "here"}`), 0o644))

	cfg, err := LoadFirst(filepath.Join(dir, "missing.json"), present)
	require.NoError(t, err)
	assert.Equal(t, "here", cfg.DataDir)
}

func TestLoadFirstAllMissing(t *testing.T) {
	t.Parallel()

	_, err := LoadFirst(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestCachePathDefaultsIntoDataDir(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.DataDir = "/srv/pz"
	assert.Equal(t, filepath.Join("/srv/pz", "PageCache.db"), cfg.CachePath())

	cfg.Scrape.CachePath = "/tmp/other.db"
	assert.Equal(t, "/tmp/other.db", cfg.CachePath())
}
