package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithRequiredKey(t *testing.T) {
	cfg, err := Load([]string{"--auth-jwt-key", "secret"})
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, ":8081", cfg.Server.HealthAddr)
	assert.Equal(t, BackendFS, cfg.Storage.Backend)
	assert.Equal(t, 12*time.Hour, cfg.Auth.AccessTTL)
	assert.Equal(t, "gpt-4", cfg.LLM.Model)
	assert.Equal(t, 300, cfg.LLM.MaxTokens)
	assert.Equal(t, "Jan 2, 2006 3:04 PM", cfg.Signing.TimeFormat)
	assert.Nil(t, cfg.Storage.EncryptionKey)
	assert.False(t, cfg.SummariesEnabled())
}

func TestLoad_MissingJWTKey(t *testing.T) {
	_, err := Load(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth.jwt_key")
}

func TestLoad_EnvOverridesDefaults_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("SIGNATOR_AUTH_JWT_KEY", "from-env")
	t.Setenv("SIGNATOR_SERVER_ADDR", ":9000")
	t.Setenv("SIGNATOR_LLM_API_KEY", "sk-test")
	t.Setenv("SIGNATOR_STORAGE_ENCRYPTION_KEY", strings.Repeat("ab", 32))

	cfg, err := Load([]string{"--server-addr", ":9100"})
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Auth.JWTKey)
	assert.Equal(t, ":9100", cfg.Server.Addr)
	assert.True(t, cfg.SummariesEnabled())
	assert.Len(t, cfg.Storage.EncryptionKey, 32)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "signator.yaml")
	body := `
auth:
  jwt_key: file-key
storage:
  backend: s3
s3:
  bucket: docs
  endpoint: http://localhost:9000
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load([]string{"--config", path})
	require.NoError(t, err)
	assert.Equal(t, "file-key", cfg.Auth.JWTKey)
	assert.Equal(t, BackendS3, cfg.Storage.Backend)
	assert.Equal(t, "docs", cfg.S3.Bucket)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		c := &Config{}
		c.Auth.JWTKey = "k"
		c.Auth.AccessTTL = time.Hour
		c.DB.DSN = "postgres://x"
		c.Storage.Backend = BackendFS
		c.Storage.Dir = "d"
		c.Storage.MaxUploadBytes = 1
		c.Log.Format = "json"
		return c
	}
	require.NoError(t, base().Validate())

	cases := map[string]func(c *Config){
		"backend":    func(c *Config) { c.Storage.Backend = "ftp" },
		"s3 bucket":  func(c *Config) { c.Storage.Backend = BackendS3 },
		"key length": func(c *Config) { c.Storage.EncryptionKey = []byte("short") },
		"log format": func(c *Config) { c.Log.Format = "xml" },
		"ttl":        func(c *Config) { c.Auth.AccessTTL = 0 },
	}
	for name, mut := range cases {
		c := base()
		mut(c)
		assert.Error(t, c.Validate(), name)
	}
}
