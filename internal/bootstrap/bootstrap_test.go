package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/require"

	"content-assist/internal/config"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.APIKey = "test-key"
	cfg.DatabaseURL = "postgres://u:p@127.0.0.1:1/content_platform"
	return cfg
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew_MemoryBackend(t *testing.T) {
	app, err := New(context.Background(), testConfig(), discardLogger())
	require.NoError(t, err)
	t.Cleanup(app.Close)
	require.NotNil(t, app.Assist)
	require.Nil(t, app.SQLite)
}

func TestNew_SQLiteBackendOpenAI(t *testing.T) {
	cfg := testConfig()
	cfg.Provider = config.ProviderOpenAI
	cfg.CacheBackend = config.CacheSQLite
	cfg.SQLitePath = filepath.Join(t.TempDir(), "cache.db")

	app, err := New(context.Background(), cfg, discardLogger())
	require.NoError(t, err)
	t.Cleanup(app.Close)
	require.NotNil(t, app.SQLite)
}

func TestNew_RejectsUnknownSettings(t *testing.T) {
	cfg := testConfig()
	cfg.Provider = "claude"
	_, err := New(context.Background(), cfg, discardLogger())
	require.ErrorContains(t, err, "unknown provider")

	cfg = testConfig()
	cfg.CacheBackend = "memcached"
	_, err = New(context.Background(), cfg, discardLogger())
	require.ErrorContains(t, err, "unknown cache backend")
}

func TestResolveAPIKey(t *testing.T) {
	noAWS := func() (aws.Config, error) {
		t.Fatal("AWS config must not be loaded")
		return aws.Config{}, nil
	}

	key, err := resolveAPIKey(context.Background(), config.Config{APIKey: " k "}, noAWS)
	require.NoError(t, err)
	require.Equal(t, "k", key)

	_, err = resolveAPIKey(context.Background(), config.Config{}, noAWS)
	require.ErrorContains(t, err, "no API key")
}
