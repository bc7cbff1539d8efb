package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xdao.co/hermes/transport/web"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadYAML(t *testing.T) {
	p := writeFile(t, "hermes.yaml", `
binding: web
log_level: DEBUG
web:
  base_url: http://127.0.0.1:8080/rpc
  text: true
  max_msg_bytes: 1024
`)
	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "web", cfg.Binding)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "http://127.0.0.1:8080/rpc", cfg.Web.BaseURL)
	assert.True(t, cfg.Web.Text)
	assert.Equal(t, 1024, cfg.Web.MaxMsgBytes)
	assert.Equal(t, 5*time.Second, cfg.Native.DialTimeout)
}

func TestLoadJSON(t *testing.T) {
	p := writeFile(t, "hermes.json", `{"binding":"native","native":{"target":"127.0.0.1:7777","dial_timeout":"250ms"}}`)
	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "native", cfg.Binding)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "127.0.0.1:7777", cfg.Native.Target)
	assert.Equal(t, 250*time.Millisecond, cfg.Native.DialTimeout)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	p := writeFile(t, "hermes.yaml", "binding: native\nnative:\n  target: 127.0.0.1:1\n")
	t.Setenv("HERMES_BINDING", "web")
	t.Setenv("HERMES_WEB_BASE_URL", "https://ledger.example.com")

	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "web", cfg.Binding)
	assert.Equal(t, "https://ledger.example.com", cfg.Web.BaseURL)
	assert.Equal(t, "127.0.0.1:1", cfg.Native.Target)
}

func TestLoadEnvOnly(t *testing.T) {
	t.Setenv("HERMES_NATIVE_TARGET", "10.0.0.1:443")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "native", cfg.Binding)
	assert.Equal(t, "10.0.0.1:443", cfg.Native.Target)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		c := Default()
		c.Native.Target = "127.0.0.1:7777"
		return c
	}
	require.NoError(t, base().Validate())

	cases := map[string]func(*Config){
		"unknown binding":   func(c *Config) { c.Binding = "carrier-pigeon" },
		"unknown log level": func(c *Config) { c.LogLevel = "loud" },
		"negative timeout":  func(c *Config) { c.Native.DialTimeout = -time.Second },
		"negative max msg":  func(c *Config) { c.Web.MaxMsgBytes = -1 },
		"bad base url":      func(c *Config) { c.Web.BaseURL = "not a url" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := base()
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestValidateRequiresTargetForSelectedBinding(t *testing.T) {
	c := Default()
	assert.True(t, errors.Is(c.Validate(), ErrMissingTarget))

	c.Binding = web.Name
	c.Native.Target = "127.0.0.1:7777"
	assert.True(t, errors.Is(c.Validate(), ErrMissingTarget))

	c.Web.BaseURL = "http://127.0.0.1:8080"
	assert.NoError(t, c.Validate())
}

func TestOpenWeb(t *testing.T) {
	c := Default()
	c.Binding = web.Name
	c.Web.BaseURL = "http://127.0.0.1:8080/"

	b, err := c.Open()
	require.NoError(t, err)
	defer b.Close()
	assert.Equal(t, web.Name, b.Name())
	assert.Equal(t, "http://127.0.0.1:8080", b.Target())
}

func TestOpenNative(t *testing.T) {
	c := Default()
	c.Native.Target = "127.0.0.1:7777"
	c.Native.DialTimeout = 0

	b, err := c.Open()
	require.NoError(t, err)
	defer b.Close()
	assert.Equal(t, "native", b.Name())
	assert.Equal(t, "127.0.0.1:7777", b.Target())
}

func TestOpenInvalid(t *testing.T) {
	b, err := Default().Open()
	require.Error(t, err)
	assert.Nil(t, b)
}

func TestOpenNativeHonorsDialTimeout(t *testing.T) {
	c := Default()
	c.Native.Target = "127.0.0.1:1"
	c.Native.DialTimeout = 100 * time.Millisecond

	b, err := c.Open()
	require.Error(t, err)
	assert.Nil(t, b)
}
