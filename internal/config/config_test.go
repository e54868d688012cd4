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

	assert.Equal(t, "default", cfg.Secret)
	assert.Equal(t, 11235, cfg.Master.Port)
	assert.Equal(t, "line", cfg.Master.Reader)
	assert.Equal(t, "127.0.0.1", cfg.Worker.Address)
	assert.Equal(t, 11235, cfg.Worker.Port)
	assert.Equal(t, "identity", cfg.Worker.Mapper)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoader_NoFileUsesDefaults(t *testing.T) {
	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoader_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoader_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
secret: s3cret
master:
  port: 9000
worker:
  mapper: wordcount
logging:
  level: debug
`), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.Secret)
	assert.Equal(t, 9000, cfg.Master.Port)
	assert.Equal(t, "wordcount", cfg.Worker.Mapper)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Untouched fields keep their defaults.
	assert.Equal(t, "line", cfg.Master.Reader)
	assert.Equal(t, "identity", cfg.Worker.Reducer)
}

func TestLoader_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("secret: from-file\nmaster:\n  port: 9000\n"), 0o644))

	t.Setenv("MR_SECRET", "from-env")
	t.Setenv("MR_MASTER_PORT", "9001")
	t.Setenv("MR_WORKER_MAPPER", "wordcount")
	t.Setenv("MR_LOG_LEVEL", "warn")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Secret)
	assert.Equal(t, 9001, cfg.Master.Port)
	assert.Equal(t, "wordcount", cfg.Worker.Mapper)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoader_BadEnvInteger(t *testing.T) {
	t.Setenv("MR_MASTER_PORT", "not-a-port")

	_, err := NewLoader().Load()
	assert.ErrorContains(t, err, "MR_MASTER_PORT")
}

func TestLoader_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("secret: [unclosed"), 0o644))

	_, err := LoadFromFile(path)
	assert.ErrorContains(t, err, "load config file")
}
