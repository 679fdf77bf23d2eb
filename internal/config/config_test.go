package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir moves into an empty directory so no stray perevoice.yaml or .env
// from the working tree leaks into the test.
func chdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("HOME", dir)
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t)

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:8000", cfg.Server.Addr())
	assert.False(t, cfg.Server.SoftErrors)
	assert.True(t, cfg.CORS.AllowCredentials)
	assert.Empty(t, cfg.CORS.AllowedOrigins)
	assert.Equal(t, []string{"googleweb"}, cfg.Translation.Services)
	assert.Equal(t, "auto", cfg.Translation.SourceLang)
	assert.Equal(t, 30*time.Second, cfg.Translation.Timeout)
	assert.Equal(t, "googleweb", cfg.Speech.Provider)
	assert.Equal(t, 100, cfg.Speech.ChunkSize)
	assert.Equal(t, "com", cfg.Speech.TLD)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_EnvOverrides(t *testing.T) {
	chdir(t)
	t.Setenv("PEREVOICE_SERVER_PORT", "9090")
	t.Setenv("PEREVOICE_SERVER_SOFT_ERRORS", "true")
	t.Setenv("PEREVOICE_SPEECH_PROVIDER", "openai")
	t.Setenv("PEREVOICE_TRANSLATION_TIMEOUT", "5s")

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.True(t, cfg.Server.SoftErrors)
	assert.Equal(t, "openai", cfg.Speech.Provider)
	assert.Equal(t, 5*time.Second, cfg.Translation.Timeout)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := chdir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("PEREVOICE_LOG_LEVEL=debug\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("PEREVOICE_LOG_LEVEL") })

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_File(t *testing.T) {
	dir := chdir(t)
	path := filepath.Join(dir, "custom.yaml")
	content := `
server:
  port: 8080
cors:
  allowed_origins: ["http://localhost:3000"]
translation:
  services: [googleweb, mymemory]
  max_attempts: 3
cache:
  enabled: true
  db_path: /tmp/x.db
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, []string{"googleweb", "mymemory"}, cfg.Translation.Services)
	assert.Equal(t, 3, cfg.Translation.MaxAttempts)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, "/tmp/x.db", cfg.Cache.DBPath)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	dir := chdir(t)

	_, err := Load(viper.New(), filepath.Join(dir, "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Server:      ServerConfig{Port: 8000},
			Translation: TranslationConfig{Services: []string{"googleweb"}, Timeout: time.Second},
			Speech:      SpeechConfig{Provider: "googleweb", Timeout: time.Second},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "port zero", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: true},
		{name: "port too large", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: true},
		{name: "unknown service", mutate: func(c *Config) { c.Translation.Services = []string{"bing"} }, wantErr: true},
		{name: "no services", mutate: func(c *Config) { c.Translation.Services = nil }, wantErr: true},
		{name: "unknown provider", mutate: func(c *Config) { c.Speech.Provider = "espeak" }, wantErr: true},
		{name: "zero speech timeout", mutate: func(c *Config) { c.Speech.Timeout = 0 }, wantErr: true},
		{name: "fuzzy out of range", mutate: func(c *Config) { c.Cache.FuzzyThreshold = 1.5 }, wantErr: true},
		{name: "rate limit without window", mutate: func(c *Config) { c.RateLimit.Requests = 10 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
