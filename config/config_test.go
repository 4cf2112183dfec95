package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, 10*time.Second, cfg.ProbeTimeout())
	assert.Equal(t, 5*time.Second, cfg.HeaderCheckTimeout())
	assert.Equal(t, 10*time.Minute, cfg.SchedulerInterval())
	assert.Equal(t, 587, cfg.SMTP.Port)
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9090"
store:
  driver: sqlite
  dsn: /tmp/uptime.db
probe:
  timeout_ms: 3000
scheduler:
  interval_minutes: 5
  recipients: [ops@example.com]
timezone: Asia/Seoul
`), 0o600))

	t.Setenv("UPTIME_PROBE_TIMEOUT_MS", "2500")
	t.Setenv("UPTIME_REPORT_RECIPIENTS", "a@example.com, b@example.com,")
	t.Setenv("SMTP_SERVER", "mail.internal")
	t.Setenv("SMTP_USERNAME", "bot")
	t.Setenv("SMTP_PASSWORD", "secret")
	t.Setenv("EMAIL_FROM", "bot@example.com")
	t.Setenv("UPTIME_SCHEDULER_ENABLED", "false")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "/tmp/uptime.db", cfg.Store.DSN)
	assert.Equal(t, 2500*time.Millisecond, cfg.ProbeTimeout())
	assert.Equal(t, 5000, cfg.Probe.HeaderCheckTimeoutMs, "untouched fields keep defaults")
	assert.Equal(t, 5*time.Minute, cfg.SchedulerInterval())
	assert.False(t, cfg.Scheduler.Enabled)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.Scheduler.Recipients)
	assert.Equal(t, "mail.internal", cfg.SMTP.Server)
	assert.Equal(t, "bot", cfg.SMTP.Username)
	assert.Equal(t, "bot@example.com", cfg.SMTP.From)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Seoul", loc.String())
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("probe: [not, a, map]"), 0o600))
	_, err = Load(bad)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.Store.Driver = "postgres"
	assert.ErrorContains(t, cfg.Validate(), "store.dsn")

	cfg = Default()
	cfg.Store.Driver = "mongo"
	cfg.Probe.TimeoutMs = 0
	cfg.Timezone = "Mars/Olympus"
	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, "store.driver")
	assert.ErrorContains(t, err, "probe.timeout_ms")
	assert.ErrorContains(t, err, "Mars/Olympus")
}

func TestGetenvIgnoresGarbage(t *testing.T) {
	t.Setenv("UPTIME_PROBE_WORKERS", "many")
	t.Setenv("UPTIME_SCHEDULER_ENABLED", "maybe")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Probe.Workers)
	assert.True(t, cfg.Scheduler.Enabled)
}
