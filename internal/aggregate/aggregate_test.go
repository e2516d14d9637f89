// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package aggregate

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staranto/fragwiki/internal/fragment"
)

func TestBuild(t *testing.T) {
	dir := t.TempDir()
	for name, body := range map[string]string{
		"page10.md": "# Ten",
		"page2.md":  "# Two",
		"B.md":      "# Bee",
		"a.md":      "# A\n\ntext",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}

	doc, err := Build(fragment.NewStore(dir))
	require.NoError(t, err)

	assert.Equal(t, []string{"a.md", "B.md", "page2.md", "page10.md"}, doc.Slugs)
	assert.Equal(t,
		"# bogus heading"+
			"\n\n<!--a.md-->\n\n# A\n\ntext"+
			"\n\n<!--B.md-->\n\n# Bee"+
			"\n\n<!--page2.md-->\n\n# Two"+
			"\n\n<!--page10.md-->\n\n# Ten",
		doc.Source)
	assert.False(t, doc.ModTime.IsZero())
}

func TestJoin_Empty(t *testing.T) {
	doc := Join(nil)
	assert.Equal(t, BogusHeading, doc.Source)
	assert.Empty(t, doc.Slugs)
	assert.True(t, doc.ModTime.IsZero())
}

func TestJoin_ModTime(t *testing.T) {
	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)
	doc := Join([]fragment.Fragment{
		{Slug: "a.md", Body: "# A", ModTime: newer},
		{Slug: "b.md", Body: "# B", ModTime: older},
	})
	assert.Equal(t, newer, doc.ModTime)
}

func TestMarker_Escapes(t *testing.T) {
	assert.Equal(t, "\n\n<!--a&amp;b.md-->\n\n", Marker("a&b.md"))
	assert.False(t, strings.Contains(Marker(`x"<y>.md`), "<y>"))
}

type failingLister struct{}

func (failingLister) List() ([]fragment.Fragment, error) { return nil, errors.New("boom") }

func TestBuild_Error(t *testing.T) {
	_, err := Build(failingLister{})
	assert.Error(t, err)
}
