// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
)

const fileExt = ".cache"

// FileStore keeps one file per entry in a directory. The file's mtime is the
// entry's stored time.
type FileStore struct {
	Dir string
}

// NewFileStore returns a FileStore rooted at dir. The directory is created on
// first write.
func NewFileStore(dir string) *FileStore {
	return &FileStore{Dir: dir}
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.Dir, key+fileExt)
}

// Get implements Store.
func (s *FileStore) Get(_ context.Context, key string) (Entry, bool, error) {
	p := s.path(key)
	info, err := os.Stat(p)
	if errors.Is(err, os.ErrNotExist) {
		return Entry{}, false, nil
	} else if err != nil {
		return Entry{}, false, fmt.Errorf("failed to stat cache entry: %w", err)
	}

	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return Entry{}, false, nil
	} else if err != nil {
		return Entry{}, false, fmt.Errorf("failed to read cache entry: %w", err)
	}

	return Entry{Data: data, StoredAt: info.ModTime()}, true, nil
}

// Put implements Store.
func (s *FileStore) Put(_ context.Context, key string, data []byte) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil { //nolint:mnd
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	if err := atomic.WriteFile(s.path(key), bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write to cache: %w", err)
	}
	return nil
}

// Clear implements Store. Only *.cache files are removed.
func (s *FileStore) Clear(_ context.Context) error {
	entries, err := os.ReadDir(s.Dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	} else if err != nil {
		return fmt.Errorf("failed to list cache directory: %w", err)
	}

	var errs []error
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileExt) {
			continue
		}
		if err := os.Remove(filepath.Join(s.Dir, e.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to clear cache: %w", errors.Join(errs...))
	}
	return nil
}
