// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/apex/log"

	"github.com/staranto/fragwiki/internal/cacheutil"
)

var (
	// ErrUnknownBackend is returned by Open for an unrecognised backend name.
	ErrUnknownBackend = errors.New("unknown cache backend")

	// ErrS3NotConfigured is returned by Open when the s3 backend lacks a
	// client or bucket.
	ErrS3NotConfigured = errors.New("s3 cache backend requires a client and bucket")
)

// Entry is a stored value and the time it was stored.
type Entry struct {
	Data     []byte
	StoredAt time.Time
}

// Store is the backing storage for a Cache. Keys passed to a Store are
// already hashed.
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Put(ctx context.Context, key string, data []byte) error
	Clear(ctx context.Context) error
}

// Cache is a freshness cache over a Store. Derived files that must exist on
// disk (scaled images) live in the artifact directory and are removed by
// Clear along with the store's entries.
//
// A nil *Cache is valid and computes every value.
type Cache struct {
	store     Store
	artifacts string
}

// New returns a Cache over store with derived files kept in artifactDir.
func New(store Store, artifactDir string) *Cache {
	return &Cache{store: store, artifacts: artifactDir}
}

// ArtifactDir is where derived files belonging to cache entries are written.
func (c *Cache) ArtifactDir() string {
	if c == nil {
		return os.TempDir()
	}
	return c.artifacts
}

// ArtifactPath returns the path of the derived file for key with extension
// ext, creating the artifact directory if needed.
func (c *Cache) ArtifactPath(key string, ext string) (string, error) {
	dir := c.ArtifactDir()
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:mnd
		return "", fmt.Errorf("failed to create cache directory: %w", err)
	}
	p, _ := cacheutil.EntryPath(dir, key, ext)
	return p, nil
}

// Close releases the backing store when it holds resources.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	if closer, ok := c.store.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// Clear drops every entry and every derived file.
func (c *Cache) Clear(ctx context.Context) error {
	if c == nil {
		return nil
	}

	var errs []error
	if err := c.store.Clear(ctx); err != nil {
		errs = append(errs, err)
	}

	entries, err := os.ReadDir(c.artifacts)
	if err != nil && !os.IsNotExist(err) {
		errs = append(errs, fmt.Errorf("failed to list cache directory: %w", err))
	}
	for _, e := range entries {
		if e.IsDir() || !cacheutil.IsEntryName(e.Name()) {
			continue
		}
		if err := os.Remove(filepath.Join(c.artifacts, e.Name())); err != nil && !os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("failed to remove cache file: %w", err))
		}
	}

	log.Debug("cache cleared")
	return errors.Join(errs...)
}

// GetOrCompute returns the value cached under key if it was stored at or after
// minValid. Otherwise it calls compute, stores the result and returns it.
//
// Two callers missing on the same key both compute and the last write wins.
// compute must therefore be free of side effects beyond producing its value.
func GetOrCompute[V any](ctx context.Context, c *Cache, key string, minValid time.Time, compute func() (V, error)) (V, error) {
	if c == nil || !cacheutil.Enabled() {
		return compute()
	}

	encoded := cacheutil.EncodeKey(key)

	entry, ok, err := c.store.Get(ctx, encoded)
	if err != nil {
		log.WithError(err).Warnf("cache read failed for %s", key)
	}
	if ok && !entry.StoredAt.Before(minValid) {
		var v V
		derr := decode(entry.Data, &v)
		if derr == nil {
			log.Debugf("cache hit for %s", key)
			return v, nil
		}
		log.WithError(derr).Warnf("discarding cache entry for %s", key)
	}

	log.Debugf("cache miss for %s", key)
	v, err := compute()
	if err != nil {
		return v, err
	}

	data, err := encode(v)
	if err != nil {
		return v, err
	}
	if err := c.store.Put(ctx, encoded, data); err != nil {
		log.WithError(err).Warnf("cache write failed for %s", key)
	}

	return v, nil
}
