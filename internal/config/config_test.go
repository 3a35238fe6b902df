package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func envLookup(vals map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vals[key]
		return v, ok
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(envLookup(map[string]string{"GEMINI_API_KEY": "g-key"}))
	require.NoError(t, err)
	require.Equal(t, ProviderGemini, cfg.Provider)
	require.Equal(t, "g-key", cfg.APIKey)
	require.Equal(t, CacheMemory, cfg.CacheBackend)
	require.Equal(t, 600*time.Second, cfg.CacheTTL())
	require.Equal(t, 3, cfg.RetryMaxAttempts)
	require.Equal(t, time.Second, cfg.RetryInitialDelay())
	require.Equal(t, 10*time.Second, cfg.RetryMaxDelay())
	require.Equal(t, "localhost:6379", cfg.RedisAddr)
	require.Equal(t, "info", cfg.LogLevel)
	require.False(t, cfg.LogJSON)
}

func TestLoad_EnvOverrides(t *testing.T) {
	cfg, err := Load(envLookup(map[string]string{
		"ASSIST_PROVIDER":               "OpenAI",
		"ASSIST_MODEL":                  "gpt-4o",
		"ASSIST_API_KEY":                "a-key",
		"GEMINI_API_KEY":                "g-key",
		"ASSIST_CACHE_BACKEND":          "redis",
		"ASSIST_CACHE_TTL_SECONDS":      "120",
		"ASSIST_RETRY_MAX_ATTEMPTS":     "5",
		"ASSIST_RETRY_INITIAL_DELAY_MS": "250",
		"ASSIST_RETRY_MAX_DELAY_MS":     "2000",
		"REDIS_HOST":                    "cache.internal",
		"DATABASE_URL":                  "postgres://u:p@db:5432/app",
		"LOG_LEVEL":                     "DEBUG",
		"LOG_JSON":                      "true",
	}))
	require.NoError(t, err)
	require.Equal(t, ProviderOpenAI, cfg.Provider)
	require.Equal(t, "gpt-4o", cfg.Model)
	require.Equal(t, "a-key", cfg.APIKey)
	require.Equal(t, CacheRedis, cfg.CacheBackend)
	require.Equal(t, 2*time.Minute, cfg.CacheTTL())
	require.Equal(t, 5, cfg.RetryMaxAttempts)
	require.Equal(t, 250*time.Millisecond, cfg.RetryInitialDelay())
	require.Equal(t, 2*time.Second, cfg.RetryMaxDelay())
	require.Equal(t, "cache.internal:6379", cfg.RedisAddr)
	require.Equal(t, "postgres://u:p@db:5432/app", cfg.DatabaseURL)
	require.Equal(t, "debug", cfg.LogLevel)
	require.True(t, cfg.LogJSON)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "assist.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
provider: gemini
apiKeyParam: /content-assist/gemini-token
cacheBackend: dynamodb
cacheTable: ${TABLE_NAME}
cacheTTLSeconds: 300
`), 0o600))

	cfg, err := Load(envLookup(map[string]string{
		FileEnv:                    path,
		"TABLE_NAME":               "assist-cache",
		"ASSIST_CACHE_TTL_SECONDS": "900",
	}))
	require.NoError(t, err)
	require.Equal(t, "/content-assist/gemini-token", cfg.APIKeyParam)
	require.Empty(t, cfg.APIKey)
	require.Equal(t, CacheDynamoDB, cfg.CacheBackend)
	require.Equal(t, "assist-cache", cfg.CacheTable)
	// environment wins over the file
	require.Equal(t, 900, cfg.CacheTTLSeconds)
}

func TestLoad_Errors(t *testing.T) {
	cases := map[string]map[string]string{
		"missing credential": {},
		"unknown provider":   {"GEMINI_API_KEY": "k", "ASSIST_PROVIDER": "claude"},
		"unknown backend":    {"GEMINI_API_KEY": "k", "ASSIST_CACHE_BACKEND": "memcached"},
		"bad ttl":            {"GEMINI_API_KEY": "k", "ASSIST_CACHE_TTL_SECONDS": "ten"},
		"zero ttl":           {"GEMINI_API_KEY": "k", "ASSIST_CACHE_TTL_SECONDS": "0"},
		"inverted delays":    {"GEMINI_API_KEY": "k", "ASSIST_RETRY_INITIAL_DELAY_MS": "5000", "ASSIST_RETRY_MAX_DELAY_MS": "100"},
		"dynamo no table":    {"GEMINI_API_KEY": "k", "ASSIST_CACHE_BACKEND": "dynamodb"},
		"bad log json":       {"GEMINI_API_KEY": "k", "LOG_JSON": "sometimes"},
		"missing file":       {"GEMINI_API_KEY": "k", FileEnv: "/nonexistent/assist.yaml"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(envLookup(env))
			require.Error(t, err)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("ASSIST_DOTENV_PROBE=from-file\n"), 0o600))
	t.Setenv("ASSIST_DOTENV_PROBE", "")
	require.NoError(t, os.Unsetenv("ASSIST_DOTENV_PROBE"))

	require.NoError(t, LoadDotEnv(path))
	require.Equal(t, "from-file", os.Getenv("ASSIST_DOTENV_PROBE"))
}
