package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"content-assist/internal/cache/sqlite"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "none.env")}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func seedCache(t *testing.T, path string) {
	t.Helper()
	s, err := sqlite.New(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "ai:assist:a", []byte(`{"body":{}}`), time.Hour))
	require.NoError(t, s.Set(ctx, "ai:assist:b", []byte(`{"body":{}}`), time.Hour))
}

func TestCacheStats(t *testing.T) {
	db := filepath.Join(t.TempDir(), "cache.db")
	seedCache(t, db)

	out, err := runCmd(t, "cache", "stats", "--db", db)
	require.NoError(t, err)
	require.Contains(t, out, "Entries: 2")
}

func TestCacheClear(t *testing.T) {
	db := filepath.Join(t.TempDir(), "cache.db")
	seedCache(t, db)

	out, err := runCmd(t, "cache", "clear", "--expired", "--db", db)
	require.NoError(t, err)
	require.Contains(t, out, "Expired cache entries cleared: 0")

	out, err = runCmd(t, "cache", "clear", "--db", db)
	require.NoError(t, err)
	require.Contains(t, out, "All cache entries cleared: 2")

	out, err = runCmd(t, "cache", "stats", "--db", db)
	require.NoError(t, err)
	require.Contains(t, out, "Entries: 0")
}

func TestAssist_RequiresQuery(t *testing.T) {
	_, err := runCmd(t, "assist")
	require.Error(t, err)
}
