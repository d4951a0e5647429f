package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(configPathOverride, t.TempDir())
	v := New()
	v.SetConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))

	// an explicit missing file is an error, the implicit search is not
	_, err := Load(v)
	assert.Error(t, err)

	cfg, err := Load(New())
	require.NoError(t, err)
	assert.Equal(t, 0.3, cfg.Thresholds.Combine)
	assert.Equal(t, 0.6, cfg.Thresholds.Move)
	assert.Equal(t, 15*time.Second, cfg.Timeout)
	assert.Equal(t, filepath.Join(cfg.DataDir, "scrumlr.db"), cfg.Database)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".scrumlr.yaml"), []byte(`
server: https://retro.example.com/
data_dir: /tmp/scrumlr
mirror:
  addr: 127.0.0.1:9999
dnd:
  combine_threshold: 0.25
log:
  format: json
`), 0o600))
	t.Setenv(configPathOverride, dir)
	t.Setenv("SCRUMLR_DND_MOVE_THRESHOLD", "0.7")
	t.Setenv("SCRUMLR_MIRROR_SECRET", "s3cret")

	cfg, err := Load(New())
	require.NoError(t, err)
	assert.Equal(t, "https://retro.example.com", cfg.Server)
	assert.Equal(t, "/tmp/scrumlr/scrumlr.db", cfg.Database)
	assert.Equal(t, "127.0.0.1:9999", cfg.Mirror.Addr)
	assert.Equal(t, "s3cret", cfg.Mirror.Secret)
	assert.Equal(t, 0.25, cfg.Thresholds.Combine)
	assert.Equal(t, 0.7, cfg.Thresholds.Move)

	var buf bytes.Buffer
	cfg.Logger(&buf).WithField("board", "b1").Info("hello")
	assert.Contains(t, buf.String(), `"board":"b1"`)
}

func TestLoadRejectsBadThresholds(t *testing.T) {
	t.Setenv(configPathOverride, t.TempDir())
	t.Setenv("SCRUMLR_DND_COMBINE_THRESHOLD", "0.8")

	_, err := Load(New())
	assert.Error(t, err)
}

func TestLoadEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("SCRUMLR_TEST_SERVER=http://from-file\nSCRUMLR_TEST_KEEP=file\n"), 0o600))
	t.Setenv("SCRUMLR_TEST_KEEP", "env")
	t.Setenv("SCRUMLR_TEST_SERVER", "")
	os.Unsetenv("SCRUMLR_TEST_SERVER")

	require.NoError(t, LoadEnv(path))
	assert.Equal(t, "http://from-file", os.Getenv("SCRUMLR_TEST_SERVER"))
	assert.Equal(t, "env", os.Getenv("SCRUMLR_TEST_KEEP"))

	assert.NoError(t, LoadEnv(filepath.Join(t.TempDir(), "none.env")))
}
