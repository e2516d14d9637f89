// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package fragment

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, files map[string]string) *Store {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return NewStore(dir)
}

func TestValidateSlug(t *testing.T) {
	tests := []struct {
		slug    string
		wantErr bool
	}{
		{"a.md", false},
		{"page-10.md", false},
		{"../etc/passwd.md", true},
		{"a..md", true},
		{"sub/a.md", true},
		{`sub\a.md`, true},
		{"a.txt", true},
		{"a", true},
		{"", true},
	}
	for _, tt := range tests {
		t.Run(tt.slug, func(t *testing.T) {
			err := ValidateSlug(tt.slug)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrForbidden)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestList(t *testing.T) {
	s := newStore(t, map[string]string{
		"page10.md":     "# Ten",
		"page2.md":      "# Two",
		"Alpha.md":      "# Alpha",
		"settings.json": "{}",
		"cat.png":       "png",
		".hidden.md":    "# Hidden",
	})
	require.NoError(t, os.Mkdir(filepath.Join(s.Dir, ".git"), 0o755))

	frags, err := s.List()
	require.NoError(t, err)

	var slugs []string
	for _, f := range frags {
		slugs = append(slugs, f.Slug)
	}
	assert.Equal(t, []string{"Alpha.md", "page2.md", "page10.md"}, slugs)
	assert.Equal(t, "# Two", frags[1].Body)
	assert.Equal(t, int64(5), frags[1].Size)
}

func TestReadWriteRemove(t *testing.T) {
	s := newStore(t, nil)

	_, err := s.Read("a.md")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, s.Exists("a.md"))

	require.NoError(t, s.Write("a.md", "# A\n\ntext"))
	assert.True(t, s.Exists("a.md"))

	f, err := s.Read("a.md")
	require.NoError(t, err)
	assert.Equal(t, "# A\n\ntext", f.Body)
	assert.Equal(t, "A", f.Title())

	require.NoError(t, s.Write("a.md", "# A2"))
	f, err = s.Read("a.md")
	require.NoError(t, err)
	assert.Equal(t, "# A2", f.Body)

	require.NoError(t, s.Remove("a.md"))
	assert.ErrorIs(t, s.Remove("a.md"), ErrNotFound)
}

func TestTitle(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{"# Hello\nbody", "Hello"},
		{"  ## Sub  ", "Sub"},
		{"plain first line", "plain first line"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Fragment{Body: tt.body}.Title())
	}
}

func TestLatestModTime(t *testing.T) {
	s := newStore(t, map[string]string{"a.md": "# A", "b.md": "# B"})
	past := time.Now().Add(-time.Hour)
	for _, p := range []string{s.Path("a.md"), s.Path("b.md"), s.Dir} {
		require.NoError(t, os.Chtimes(p, past, past))
	}
	newer := time.Now().Add(-time.Minute).Truncate(time.Second)
	require.NoError(t, os.Chtimes(s.Path("b.md"), newer, newer))

	got, err := s.LatestModTime()
	require.NoError(t, err)
	assert.True(t, newer.Equal(got), "got %v", got)
}
