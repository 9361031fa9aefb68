package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.Contact.SuccessDelay)
	assert.Equal(t, 4*time.Second, cfg.Contact.ErrorDelay)
	assert.Equal(t, "https://api.web3forms.com/submit", cfg.Relay.Endpoint)
	assert.InDelta(t, 0.20, cfg.Band.TopMargin, 1e-9)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Session, cfg.Session)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portfolio.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "9090"
log_level: debug
relay:
  access_key: from-file
  timeout: 3s
contact:
  success_delay: 2s
band:
  top: 0.1
  bottom: 0.4
`), 0o644))

	t.Setenv("PORTFOLIO_CONTACT__ERROR_DELAY", "1500ms")
	t.Setenv("PORTFOLIO_RATELIMIT__LIMIT", "9")
	t.Setenv("WEB3FORMS_ACCESS_KEY", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "from-env", cfg.Relay.AccessKey)
	assert.Equal(t, 3*time.Second, cfg.Relay.Timeout)
	assert.Equal(t, 2*time.Second, cfg.Contact.SuccessDelay)
	assert.Equal(t, 1500*time.Millisecond, cfg.Contact.ErrorDelay)
	assert.Equal(t, 9, cfg.RateLimit.Limit)
	assert.InDelta(t, 0.1, cfg.Band.TopMargin, 1e-9)
	assert.InDelta(t, 0.4, cfg.Band.BottomMargin, 1e-9)
	require.NoError(t, cfg.Validate())
}

func TestPortEnvWins(t *testing.T) {
	t.Setenv("PORT", "7000")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "7000", cfg.Port)
}

func TestValidateRequiresAccessKey(t *testing.T) {
	cfg := Default()
	err := cfg.Validate()
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.Contains(t, err.Error(), "WEB3FORMS_ACCESS_KEY")

	cfg.Relay.AccessKey = "k"
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]func(*Config){
		"band":       func(c *Config) { c.Band.TopMargin = 0.9 },
		"delay":      func(c *Config) { c.Contact.ErrorDelay = 0 },
		"sessions":   func(c *Config) { c.Session.Max = 0 },
		"rate limit": func(c *Config) { c.RateLimit.Window = 0 },
		"log level":  func(c *Config) { c.LogLevel = "loud" },
		"port":       func(c *Config) { c.Port = " " },
		"gin mode":   func(c *Config) { c.GinMode = "prod" },
		"proxy":      func(c *Config) { c.TrustedProxies = []string{"not-an-ip"} },
		"creation":   func(c *Config) { c.Session.CreateLimit = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			cfg.Relay.AccessKey = "k"
			mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrConfiguration)
		})
	}
}

func TestTrustedProxies(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Nil(t, cfg.TrustedProxies)

	t.Setenv("TRUSTED_PROXIES", "10.0.0.1, 172.16.0.0/12,")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.1", "172.16.0.0/12"}, cfg.TrustedProxies)

	cfg.Relay.AccessKey = "k"
	assert.NoError(t, cfg.Validate())
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, lvl)
}
