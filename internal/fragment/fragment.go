// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package fragment is the directory of markdown files that make up the wiki.
// A fragment is addressed by its slug, which is also its file name.
package fragment

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/natefinch/atomic"

	"github.com/staranto/fragwiki/internal/natural"
)

// Ext is the file extension every fragment carries.
const Ext = ".md"

var (
	// ErrForbidden is returned for slugs that could escape the store or do
	// not name a fragment file.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound is returned when a slug does not resolve to a fragment.
	ErrNotFound = errors.New("fragment not found")
)

// Fragment is one markdown file.
type Fragment struct {
	Slug    string
	Body    string
	ModTime time.Time
	Size    int64
}

// Title returns the first line of the body with any leading heading marker
// removed. It is a cheap label for listings; slug derivation renders the line
// properly.
func (f Fragment) Title() string {
	line, _, _ := strings.Cut(f.Body, "\n")
	line = strings.TrimSpace(line)
	return strings.TrimSpace(strings.TrimLeft(line, "#"))
}

// ValidateSlug rejects slugs containing parent path segments or separators,
// and slugs lacking the fragment extension.
func ValidateSlug(slug string) error {
	if strings.Contains(slug, "..") || strings.ContainsAny(slug, `/\`) || !strings.HasSuffix(slug, Ext) {
		return fmt.Errorf("%w: %q", ErrForbidden, slug)
	}
	return nil
}

// Store is a directory of fragments.
type Store struct {
	Dir string
}

// NewStore returns a Store over dir.
func NewStore(dir string) *Store {
	return &Store{Dir: dir}
}

// Path returns the file path for slug.
func (s *Store) Path(slug string) string {
	return filepath.Join(s.Dir, filepath.FromSlash(slug))
}

// Slugs returns the slugs of every fragment in natural order.
func (s *Store) Slugs() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list fragments: %w", err)
	}

	var slugs []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, Ext) {
			continue
		}
		slugs = append(slugs, name)
	}
	natural.Sort(slugs)
	return slugs, nil
}

// List reads every fragment in natural slug order.
func (s *Store) List() ([]Fragment, error) {
	slugs, err := s.Slugs()
	if err != nil {
		return nil, err
	}

	frags := make([]Fragment, 0, len(slugs))
	for _, slug := range slugs {
		f, err := s.Read(slug)
		if errors.Is(err, ErrNotFound) {
			// Removed between listing and reading.
			continue
		} else if err != nil {
			return nil, err
		}
		frags = append(frags, f)
	}
	return frags, nil
}

// Exists reports whether slug names an existing fragment.
func (s *Store) Exists(slug string) bool {
	info, err := os.Stat(s.Path(slug))
	return err == nil && info.Mode().IsRegular()
}

// Stat returns the fragment's metadata without its body.
func (s *Store) Stat(slug string) (Fragment, error) {
	info, err := os.Stat(s.Path(slug))
	if errors.Is(err, os.ErrNotExist) {
		return Fragment{}, fmt.Errorf("%w: %s", ErrNotFound, slug)
	} else if err != nil {
		return Fragment{}, fmt.Errorf("failed to stat fragment %s: %w", slug, err)
	}
	if !info.Mode().IsRegular() {
		return Fragment{}, fmt.Errorf("%w: %s", ErrNotFound, slug)
	}
	return Fragment{Slug: slug, ModTime: info.ModTime(), Size: info.Size()}, nil
}

// Read returns the fragment for slug.
func (s *Store) Read(slug string) (Fragment, error) {
	f, err := s.Stat(slug)
	if err != nil {
		return Fragment{}, err
	}
	b, err := os.ReadFile(s.Path(slug))
	if errors.Is(err, os.ErrNotExist) {
		return Fragment{}, fmt.Errorf("%w: %s", ErrNotFound, slug)
	} else if err != nil {
		return Fragment{}, fmt.Errorf("failed to read fragment %s: %w", slug, err)
	}
	f.Body = string(b)
	return f, nil
}

// Write replaces the body of slug, creating it if needed.
func (s *Store) Write(slug string, body string) error {
	if err := atomic.WriteFile(s.Path(slug), strings.NewReader(body)); err != nil {
		return fmt.Errorf("failed to write fragment %s: %w", slug, err)
	}
	log.Debugf("wrote fragment %s", slug)
	return nil
}

// Remove deletes slug.
func (s *Store) Remove(slug string) error {
	err := os.Remove(s.Path(slug))
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, slug)
	} else if err != nil {
		return fmt.Errorf("failed to remove fragment %s: %w", slug, err)
	}
	log.Debugf("removed fragment %s", slug)
	return nil
}

// LatestModTime returns the newest mtime among the store's fragments and the
// directory itself, so deletions are noticed too.
func (s *Store) LatestModTime() (time.Time, error) {
	info, err := os.Stat(s.Dir)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to stat fragment dir: %w", err)
	}
	latest := info.ModTime()

	slugs, err := s.Slugs()
	if err != nil {
		return time.Time{}, err
	}
	for _, slug := range slugs {
		f, err := s.Stat(slug)
		if err != nil {
			continue
		}
		if f.ModTime.After(latest) {
			latest = f.ModTime
		}
	}
	return latest, nil
}
