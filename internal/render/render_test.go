// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package render

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staranto/fragwiki/internal/aggregate"
	"github.com/staranto/fragwiki/internal/fragment"
)

var ctx = context.Background()

type fakeSizer struct {
	w, h  int
	err   error
	calls []string
}

func (f *fakeSizer) ImageSize(_ context.Context, path string) (int, int, error) {
	f.calls = append(f.calls, path)
	return f.w, f.h, f.err
}

func TestEncodeNonASCII(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"ascii", "plain <b>text</b>", "plain <b>text</b>"},
		{"two byte", "café", "caf&#233;"},
		{"three byte", "€5", "&#8364;5"},
		{"four byte", "hi 😀", "hi &#128512;"},
		{"stray byte", "a\xffb", "a&#255;b"},
		{"truncated", "x\xe2\x82", "x&#226;&#130;"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EncodeNonASCII(tt.in))
		})
	}
}

func TestRender_Headings(t *testing.T) {
	doc := aggregate.Join([]fragment.Fragment{
		{Slug: "a.md", Body: "# Alpha\n\nHello \"world\""},
		{Slug: "b.md", Body: "# Beta\n\n## Sub\n\ntext"},
	})

	r := New(t.TempDir(), nil)
	out, err := r.Render(ctx, doc.Source)
	require.NoError(t, err)

	assert.NotContains(t, out, "bogus")
	assert.Contains(t, out, `<h1 id="alpha">Alpha <a href="#alpha" class="heading-link" aria-hidden="true" title="Sharable Link">🔗</a> <a class="edit-link" href="/edit/a.md">📝</a></h1>`)
	assert.Contains(t, out, `<a class="edit-link" href="/edit/b.md">📝</a>`)
	assert.Contains(t, out, `<h2 id="sub">Sub</h2>`)
	assert.Contains(t, out, "Hello “world”")
	assert.NotContains(t, out, "<body>")
}

func TestRender_HeadingWithoutMarkerRemoved(t *testing.T) {
	r := New("", nil)
	out, err := r.Render(ctx, "# Orphan\n\nbody")
	require.NoError(t, err)
	assert.NotContains(t, out, "Orphan")
	assert.Contains(t, out, "<p>body</p>")
}

func TestRender_StrayCommentsDropped(t *testing.T) {
	r := New("", nil)
	out, err := r.Render(ctx, "<!-- not a marker -->\n\n# Title\n\ntext")
	require.NoError(t, err)
	assert.NotContains(t, out, "not a marker")
	assert.NotContains(t, out, "Title")
}

func TestRender_LocalImage(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "cat.png")
	require.NoError(t, os.WriteFile(p, []byte("png"), 0o600))
	stamp := time.Unix(1700000000, 0)
	require.NoError(t, os.Chtimes(p, stamp, stamp))

	sizer := &fakeSizer{w: 400, h: 300}
	r := New(dir, sizer)
	out, err := r.Render(ctx, "<!--a.md-->\n\n![cat](cat.png)")
	require.NoError(t, err)

	assert.Equal(t, []string{p}, sizer.calls)
	assert.Contains(t, out, `<a href="cat.png?t=1700000000"><img src="cat.png?width=500&amp;t=1700000000" alt="cat" class="float" width="200" loading="lazy" height="150"/></a>`)
}

func TestRender_ImageHeightRounds(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wide.png"), []byte("png"), 0o600))

	r := New(dir, &fakeSizer{w: 300, h: 100})
	out, err := r.Render(ctx, "![w](wide.png)")
	require.NoError(t, err)
	assert.Contains(t, out, `height="67"`)
}

func TestRender_SizerFailure(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.png"), []byte("nope"), 0o600))

	r := New(dir, &fakeSizer{err: errors.New("boom")})
	out, err := r.Render(ctx, "![b](bad.png)")
	require.NoError(t, err)
	assert.Contains(t, out, `src="bad.png"`)
	assert.Contains(t, out, `<a href="bad.png?t=`)
	assert.NotContains(t, out, "height=")
}

func TestRender_RemoteAndMissingImages(t *testing.T) {
	sizer := &fakeSizer{w: 10, h: 10}
	r := New(t.TempDir(), sizer)

	out, err := r.Render(ctx, "![r](https://example.com/r.png)\n\n![m](missing.png)\n\n![u](../up.png)")
	require.NoError(t, err)

	assert.Empty(t, sizer.calls)
	assert.Contains(t, out, `<a href="https://example.com/r.png"><img src="https://example.com/r.png" alt="r" class="float" width="200" loading="lazy"/></a>`)
	assert.Contains(t, out, `<a href="missing.png"><img src="missing.png"`)
	assert.Contains(t, out, `<a href="../up.png"><img src="../up.png"`)
}

func TestRender_LinkedImageNotWrapped(t *testing.T) {
	r := New("", nil)
	out, err := r.Render(ctx, "[![x](x.png)](https://example.com)")
	require.NoError(t, err)
	assert.Contains(t, out, `<a href="https://example.com"><img src="x.png"`)
	assert.NotContains(t, out, `<a href="x.png">`)
}

func TestImageRefs(t *testing.T) {
	refs, err := ImageRefs(`<p><a href="a.png?t=1"><img src="a.png?width=500&amp;t=1"></a><img src="b.jpg"><img alt="none"></p>`)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.png", "b.jpg"}, refs)
}

func TestMarkerSlug(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"<!--a.md-->", "a.md", true},
		{"<!--a&amp;b.md-->\n", "a&b.md", true},
		{"<!-- a.md -->", "", false},
		{"<!--../x.md-->", "", false},
		{"<!--notes-->", "", false},
		{"<div>a.md</div>", "", false},
	}
	for _, tt := range tests {
		got, ok := markerSlug(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
