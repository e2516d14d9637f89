// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staranto/fragwiki/internal/cacheutil"
)

var ctx = context.Background()

func newFileCache(t *testing.T) (*Cache, string) {
	t.Helper()
	t.Setenv("FRAGWIKI_CACHE", "")
	dir := t.TempDir()
	return New(NewFileStore(dir), dir), dir
}

func TestGetOrCompute_ComputesOnce(t *testing.T) {
	c, _ := newFileCache(t)
	minValid := time.Now().Add(-time.Hour)

	calls := 0
	compute := func() (string, error) {
		calls++
		return "image/png", nil
	}

	for i := 0; i < 3; i++ {
		got, err := GetOrCompute(ctx, c, "mimetype:cat.png", minValid, compute)
		require.NoError(t, err)
		assert.Equal(t, "image/png", got)
	}
	assert.Equal(t, 1, calls)
}

func TestGetOrCompute_StaleRecomputes(t *testing.T) {
	c, dir := newFileCache(t)

	_, err := GetOrCompute(ctx, c, "k", time.Time{}, func() (int, error) { return 1, nil })
	require.NoError(t, err)

	// Age the entry so a newer source makes it stale.
	p := filepath.Join(dir, cacheutil.EncodeKey("k")+fileExt)
	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(p, past, past))

	got, err := GetOrCompute(ctx, c, "k", time.Now().Add(-time.Hour), func() (int, error) { return 2, nil })
	require.NoError(t, err)
	assert.Equal(t, 2, got)

	got, err = GetOrCompute(ctx, c, "k", time.Now().Add(-time.Hour), func() (int, error) { return 3, nil })
	require.NoError(t, err)
	assert.Equal(t, 2, got, "fresh entry is served")
}

func TestGetOrCompute_ErrorNotStored(t *testing.T) {
	c, _ := newFileCache(t)
	boom := errors.New("boom")

	_, err := GetOrCompute(ctx, c, "k", time.Time{}, func() (string, error) { return "", boom })
	assert.ErrorIs(t, err, boom)

	got, err := GetOrCompute(ctx, c, "k", time.Time{}, func() (string, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
}

func TestGetOrCompute_Struct(t *testing.T) {
	type dims struct {
		Width  int
		Height int
	}
	c, _ := newFileCache(t)

	_, err := GetOrCompute(ctx, c, "d", time.Time{}, func() (dims, error) { return dims{640, 480}, nil })
	require.NoError(t, err)

	got, err := GetOrCompute(ctx, c, "d", time.Time{}, func() (dims, error) {
		t.Fatal("should be cached")
		return dims{}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, dims{640, 480}, got)
}

func TestGetOrCompute_NilAndDisabled(t *testing.T) {
	calls := 0
	compute := func() (int, error) { calls++; return calls, nil }

	var nilCache *Cache
	_, _ = GetOrCompute(ctx, nilCache, "k", time.Time{}, compute)
	_, _ = GetOrCompute(ctx, nilCache, "k", time.Time{}, compute)
	assert.Equal(t, 2, calls)

	c, _ := newFileCache(t)
	t.Setenv("FRAGWIKI_CACHE", "0")
	_, _ = GetOrCompute(ctx, c, "k", time.Time{}, compute)
	_, _ = GetOrCompute(ctx, c, "k", time.Time{}, compute)
	assert.Equal(t, 4, calls)
}

func TestGetOrCompute_CorruptEntryRecomputes(t *testing.T) {
	c, dir := newFileCache(t)
	p := filepath.Join(dir, cacheutil.EncodeKey("k")+fileExt)
	require.NoError(t, os.WriteFile(p, []byte{9, 9, 9}, 0o600))

	got, err := GetOrCompute(ctx, c, "k", time.Time{}, func() (string, error) { return "fresh", nil })
	require.NoError(t, err)
	assert.Equal(t, "fresh", got)
}

func TestClear(t *testing.T) {
	c, dir := newFileCache(t)

	_, err := GetOrCompute(ctx, c, "k", time.Time{}, func() (string, error) { return "v", nil })
	require.NoError(t, err)

	artifact, err := c.ArtifactPath("scale:cat.png:10x10", ".png")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(artifact, []byte("png"), 0o600))
	lock := filepath.Join(dir, "git-repo.lock")
	require.NoError(t, os.WriteFile(lock, nil, 0o600))

	require.NoError(t, c.Clear(ctx))

	assert.NoFileExists(t, artifact)
	assert.FileExists(t, lock)
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), fileExt), e.Name())
	}

	calls := 0
	_, _ = GetOrCompute(ctx, c, "k", time.Time{}, func() (string, error) { calls++; return "v", nil })
	assert.Equal(t, 1, calls)
}

func TestClear_MissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "never-created")
	c := New(NewFileStore(dir), dir)
	assert.NoError(t, c.Clear(ctx))
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	c, err := Open(Options{Dir: dir})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, c.store)

	c, err = Open(Options{Backend: BackendSQLite, Dir: dir})
	require.NoError(t, err)
	if assert.IsType(t, &SQLiteStore{}, c.store) {
		assert.NoError(t, c.store.(*SQLiteStore).Close())
	}
	assert.FileExists(t, filepath.Join(dir, "cache.db"))

	_, err = Open(Options{Backend: BackendS3, Dir: dir})
	assert.ErrorIs(t, err, ErrS3NotConfigured)

	_, err = Open(Options{Backend: "redis", Dir: dir})
	assert.ErrorIs(t, err, ErrUnknownBackend)
}
