package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadDefaults(t *testing.T) {
	conf, err := Load(env(nil))
	require.NoError(t, err)
	assert.Equal(t, "5000", conf.Server.Port)
	assert.Equal(t, "process", conf.Sandbox.Backend)
	assert.Equal(t, "tr", conf.Analysis.DefaultLocale)
	assert.False(t, conf.Db.Enabled())

	limits := conf.Sandbox.RunLimits()
	assert.Equal(t, 3*time.Second, limits.WallClock)
	assert.Equal(t, 2*time.Second, limits.CPUTime)
	assert.Equal(t, int64(256<<20), limits.AddressSpace)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kodanaliz.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "8080"
sandbox:
  backend: docker
  wall_clock_seconds: 5
analysis:
  workers: 2
  default_locale: en
  pylintrc: /etc/pylintrc
db:
  host: db.internal
`), 0o644))

	conf, err := Load(env(map[string]string{
		"KODANALIZ_CONFIG": path,
		"PORT":             "9090",
		"DB_PORT":          "6543",
		"REMOTE_LANGUAGES": "Java, cpp",
		"JUDGE0_BASE":      "http://judge0:2358",
	}))
	require.NoError(t, err)

	assert.Equal(t, "9090", conf.Server.Port, "env wins over file")
	assert.Equal(t, "docker", conf.Sandbox.Backend)
	assert.Equal(t, 5.0, conf.Sandbox.WallClockSeconds)
	assert.Equal(t, 2.0, conf.Sandbox.CPUSeconds, "unset keys keep defaults")
	assert.Equal(t, 2, conf.Analysis.Workers)
	assert.Equal(t, "en", conf.Analysis.DefaultLocale)
	assert.Equal(t, "/etc/pylintrc", conf.Analysis.PylintRC)
	assert.Equal(t, []string{"java", "cpp"}, conf.Analysis.RemoteLanguages)
	assert.True(t, conf.Db.Enabled())
	assert.Equal(t, 6543, conf.Db.Port)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(env(map[string]string{"KODANALIZ_CONFIG": filepath.Join(t.TempDir(), "missing.yaml")}))
	assert.Error(t, err, "an explicit config file must exist")

	_, err = Load(env(map[string]string{"DB_PORT": "five"}))
	assert.ErrorContains(t, err, "DB_PORT")

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("server: [\n"), 0o644))
	_, err = Load(env(map[string]string{"KODANALIZ_CONFIG": bad}))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad backend", func(c *Config) { c.Sandbox.Backend = "vm" }, "sandbox.backend"},
		{"zero timeout", func(c *Config) { c.Sandbox.WallClockSeconds = 0 }, "wall_clock_seconds"},
		{"no workers", func(c *Config) { c.Analysis.Workers = 0 }, "analysis.workers"},
		{"bad port", func(c *Config) { c.Server.Port = "http" }, "server.port"},
		{"remote without judge0", func(c *Config) { c.Analysis.RemoteLanguages = []string{"java"} }, "judge0.base_url"},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			assert.ErrorContains(t, c.Validate(), tt.want)
		})
	}
	assert.NoError(t, Default().Validate())
}
