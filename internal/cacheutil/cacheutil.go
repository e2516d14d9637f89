// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cacheutil

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/zeebo/blake3"
)

// encodedKeyLen is the length of a hex encoded 256 bit blake3 digest.
const encodedKeyLen = 64

// Dir resolves the base cache directory.
// Precedence:
//  1. FRAGWIKI_CACHE_DIR, if set and non-empty
//  2. os.UserCacheDir()/fragwiki
//
// Returns ("", false) if a base cannot be resolved (treat as disabled).
func Dir() (string, bool) {
	if c, ok := os.LookupEnv("FRAGWIKI_CACHE_DIR"); ok && c != "" {
		return c, true
	}
	if dir, err := os.UserCacheDir(); err == nil && dir != "" {
		return filepath.Join(dir, "fragwiki"), true
	}
	return "", false
}

// Enabled returns true unless FRAGWIKI_CACHE explicitly disables it ("0"/"false").
func Enabled() bool {
	enabled, _ := os.LookupEnv("FRAGWIKI_CACHE")
	return enabled == "" || (enabled != "0" && enabled != "false")
}

// EnsureBaseDir creates the base cache directory if caching is enabled and
// a base path can be resolved. Returns the path, whether it is usable, and an
// error if creation failed.
func EnsureBaseDir() (string, bool, error) {
	if !Enabled() {
		return "", false, nil
	}
	base, ok := Dir()
	if !ok {
		return "", false, nil
	}
	if err := os.MkdirAll(base, 0o755); err != nil { //nolint:mnd
		return base, false, fmt.Errorf("failed to create cache base directory: %w", err)
	}
	return base, true, nil
}

// EncodeKey hashes k with blake3 and returns the hex string. The result names
// the cache slot for k in every backend.
func EncodeKey(k string) string {
	sum := blake3.Sum256([]byte(k))
	return hex.EncodeToString(sum[:])
}

// EntryPath returns the path where the entry for clearKey lives beneath base
// with the given extension, and whether a file currently exists there.
func EntryPath(base string, clearKey string, ext string) (string, bool) {
	p := filepath.Join(base, EncodeKey(clearKey)+ext)
	if _, err := os.Stat(p); err == nil {
		return p, true
	}
	return p, false
}

// IsEntryName reports whether name looks like a file written for a cache
// entry, that is, an encoded key optionally followed by an extension.
func IsEntryName(name string) bool {
	if len(name) < encodedKeyLen {
		return false
	}
	if _, err := hex.DecodeString(name[:encodedKeyLen]); err != nil {
		return false
	}
	rest := name[encodedKeyLen:]
	return rest == "" || (strings.HasPrefix(rest, ".") && !strings.ContainsAny(rest[1:], "./"))
}

// Purge removes cache entry files beneath base older than the provided number
// of hours and returns how many were removed. Files that are not cache
// entries, such as the lock file or a SQLite database, are left alone.
// If hours <= 0 it is a no-op.
func Purge(base string, hours int) (int, error) {
	if hours <= 0 {
		log.Debug("cache cleaning disabled")
		return 0, nil
	}
	if base == "" {
		return 0, nil
	}
	maxAge := time.Duration(hours) * time.Hour
	removed := 0
	err := filepath.WalkDir(base, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() || !IsEntryName(d.Name()) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if time.Since(info.ModTime()) > maxAge {
			if err := os.Remove(path); err == nil {
				removed++
				log.Debugf("removed cache file %s", path)
			} else {
				log.WithError(err).Warnf("failed to remove cache file %s", path)
			}
		}
		return nil
	})
	if err != nil {
		return removed, fmt.Errorf("failed to purge cache: %w", err)
	}
	return removed, nil
}
