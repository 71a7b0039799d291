package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/semitone-cli/internal/flat"
	"github.com/sells-group/semitone-cli/internal/model"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "semitone.db", cfg.Store.DatabaseURL)
	assert.Equal(t, int32(4), cfg.Store.Pool.MaxConns)
	assert.Equal(t, 3, cfg.Store.Retry.MaxAttempts)
	assert.Equal(t, 200*time.Millisecond, cfg.Store.Retry.InitialBackoff)
	assert.Equal(t, 5*time.Second, cfg.Store.Retry.MaxBackoff)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, flat.DefaultSchema(), cfg.Schema)
	assert.Equal(t, model.CategoryRooms, cfg.Filter.Category)
	assert.Equal(t, "ROM_Зона", cfg.Filter.Param)
	assert.Equal(t, "Квартира", cfg.Filter.Marker)
	assert.Equal(t, 4, cfg.Import.MaxConcurrentFiles)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/rooms
log:
  level: debug
  format: console
schema:
  semitone_suffix: .Half
filter:
  marker: apartment
schedule:
  delimiter: ";"
  encoding: windows-1251
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/rooms", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, ".Half", cfg.Schema.SemitoneSuffix)
	assert.Equal(t, "apartment", cfg.Filter.Marker)
	assert.Equal(t, ";", cfg.Schedule.Delimiter)
	assert.Equal(t, "windows-1251", cfg.Schedule.Encoding)
	// Defaults still apply for unset values
	assert.Equal(t, "ROM_Подзона_Index", cfg.Schema.SubZoneIDParam)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("SEMITONE_STORE_DRIVER", "memory")
	t.Setenv("SEMITONE_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("SEMITONE_FILTER_MARKER=flat\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("SEMITONE_FILTER_MARKER") }) //nolint:errcheck

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "flat", cfg.Filter.Marker)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: [unclosed"), 0644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func validDefaults() *Config {
	cfg := &Config{Schema: flat.DefaultSchema()}
	cfg.Store.Driver = "sqlite"
	cfg.Store.DatabaseURL = "rooms.db"
	cfg.Store.Retry.MaxAttempts = 3
	cfg.Import.MaxConcurrentFiles = 2
	return cfg
}

func TestValidate_OK(t *testing.T) {
	assert.NoError(t, validDefaults().Validate())

	cfg := validDefaults()
	cfg.Store.Driver = "memory"
	cfg.Store.DatabaseURL = ""
	assert.NoError(t, cfg.Validate())
}

func TestValidate_Errors(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "postgres"
	cfg.Store.DatabaseURL = ""
	cfg.Schema.SubZoneIDParam = ""
	cfg.Store.Retry.MaxAttempts = 0
	cfg.Import.MaxConcurrentFiles = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")
	assert.Contains(t, err.Error(), "schema.sub_zone_id_param is required")
	assert.Contains(t, err.Error(), "store.retry.max_attempts")
	assert.Contains(t, err.Error(), "import.max_concurrent_files")

	cfg = validDefaults()
	cfg.Store.Driver = "mysql"
	assert.ErrorContains(t, cfg.Validate(), "store.driver must be one of")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
