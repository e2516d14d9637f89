// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"bytes"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staranto/fragwiki/internal/cache"
	"github.com/staranto/fragwiki/internal/config"
	"github.com/staranto/fragwiki/internal/fragment"
	"github.com/staranto/fragwiki/internal/gate"
	"github.com/staranto/fragwiki/internal/identity"
	"github.com/staranto/fragwiki/internal/media"
	"github.com/staranto/fragwiki/internal/proc"
	"github.com/staranto/fragwiki/internal/publish"
	"github.com/staranto/fragwiki/internal/render"
	"github.com/staranto/fragwiki/internal/vcs"
)

const settings = `{
	// test wiki
	"wikiName": "Test Wiki",
	"wikiIconPath": "icon.png",
	"viewers": ["*"],
	"editors": ["ed"],
}`

type fixture struct {
	srv     http.Handler
	dir     string
	convert *proc.Recorder
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func newFixture(t *testing.T, files map[string]string) *fixture {
	t.Helper()
	t.Setenv("FRAGWIKI_CACHE", "")

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.WikiSettingsFile), []byte(settings), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "icon.png"), pngBytes(t, 64, 64), 0o644))
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}

	cacheDir := t.TempDir()
	c := cache.New(cache.NewFileStore(cacheDir), cacheDir)
	g := gate.New(filepath.Join(cacheDir, "git-repo.lock"))

	git := vcs.New(dir, "")
	git.Runner = &proc.Recorder{Respond: func(call proc.Call) (string, error) {
		if len(call.Args) == 4 && call.Args[0] == "mv" {
			return "", os.Rename(filepath.Join(call.Dir, call.Args[2]), filepath.Join(call.Dir, call.Args[3]))
		}
		return "", nil
	}}

	convert := &proc.Recorder{}
	convert.Respond = func(call proc.Call) (string, error) {
		_, out, _ := strings.Cut(call.Args[len(call.Args)-1], ":")
		return "", os.WriteFile(out, pngBytes(t, 2, 2), 0o644)
	}
	m := media.New(c, "")
	m.Runner = convert

	store := fragment.NewStore(dir)
	r := render.New(dir, m)

	s := &Server{
		Store:    store,
		Gate:     g,
		Cache:    c,
		Media:    m,
		Renderer: r,
		Publisher: &publish.Publisher{
			Store:       store,
			Gate:        g,
			Git:         git,
			Images:      m,
			Cache:       c,
			Renderer:    r,
			IconPath:    "icon.png",
			EmailDomain: "example.org",
		},
		Identity: identity.HeaderResolver{},
		Wiki: func() (config.WikiSettings, error) {
			return config.LoadWikiSettings(dir)
		},
	}
	return &fixture{srv: s.Handler(), dir: dir, convert: convert}
}

func (f *fixture) do(t *testing.T, r *http.Request, user string) *httptest.ResponseRecorder {
	t.Helper()
	if user != "" {
		r.Header.Set(identity.DefaultIDHeader, user)
	}
	w := httptest.NewRecorder()
	f.srv.ServeHTTP(w, r)
	return w
}

func (f *fixture) get(t *testing.T, target string, user string) *httptest.ResponseRecorder {
	t.Helper()
	return f.do(t, httptest.NewRequest(http.MethodGet, target, nil), user)
}

func TestIndex(t *testing.T) {
	f := newFixture(t, map[string]string{
		"b.md":  "# Beta\n\ntwo",
		"a.md":  "# Alpha\n\none",
		"a2.md": "# Alpha two",
	})

	w := f.get(t, "/", "viewer")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()

	assert.Contains(t, body, "<title>Home - Test Wiki</title>")
	assert.Contains(t, body, `href="/edit/a.md"`)
	assert.Less(t, strings.Index(body, "Alpha two"), strings.Index(body, "Beta"))
	assert.Contains(t, body, `/icon.png?height=16&t=`)
	assert.NotContains(t, body, `href="/new"`)

	// Second request is served from the cache.
	w = f.get(t, "/", "viewer")
	assert.Equal(t, body, w.Body.String())
}

func TestIndex_Edited(t *testing.T) {
	f := newFixture(t, map[string]string{"a.md": "# Alpha"})
	require.Equal(t, http.StatusOK, f.get(t, "/", "viewer").Code)

	p := filepath.Join(f.dir, "a.md")
	require.NoError(t, os.WriteFile(p, []byte("# Changed"), 0o644))
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(p, future, future))

	assert.Contains(t, f.get(t, "/", "viewer").Body.String(), "Changed")
}

func TestAuth(t *testing.T) {
	f := newFixture(t, map[string]string{"a.md": "# Alpha"})

	w := f.get(t, "/", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "401 Unauthorized - Test Wiki")

	// The icon and the stylesheet need no identity.
	assert.Equal(t, http.StatusOK, f.get(t, "/icon.png", "").Code)
	assert.Equal(t, http.StatusOK, f.get(t, "/_assets/style.css", "").Code)

	assert.Equal(t, http.StatusForbidden, f.get(t, "/edit/a.md", "viewer").Code)
	assert.Equal(t, http.StatusForbidden, f.get(t, "/new", "viewer").Code)
}

func TestAuth_Viewers(t *testing.T) {
	f := newFixture(t, nil)
	restricted := strings.Replace(settings, `["*"]`, `["alice"]`, 1)
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, config.WikiSettingsFile), []byte(restricted), 0o644))

	assert.Equal(t, http.StatusForbidden, f.get(t, "/", "bob").Code)
	assert.Equal(t, http.StatusOK, f.get(t, "/", "alice").Code)
}

func TestEditForm(t *testing.T) {
	f := newFixture(t, map[string]string{"a.md": "# Alpha <b>"})

	w := f.get(t, "/edit/a.md", "ed")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `action="/edit/a.md"`)
	assert.Contains(t, body, "# Alpha &lt;b&gt;</textarea>")
	assert.Contains(t, body, `accept="image/bmp,image/gif,image/jpeg`)
	assert.Contains(t, body, `href="/new"`)

	assert.Equal(t, http.StatusNotFound, f.get(t, "/edit/missing.md", "ed").Code)
	assert.Equal(t, http.StatusForbidden, f.get(t, "/edit/a.txt", "ed").Code)
}

func multipartBody(t *testing.T, fields map[string]string, files map[string][]byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for name, data := range files {
		fw, err := mw.CreateFormFile("images", name)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func (f *fixture) post(t *testing.T, target string, user string, fields map[string]string, files map[string][]byte) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartBody(t, fields, files)
	r := httptest.NewRequest(http.MethodPost, target, body)
	r.Header.Set("Content-Type", ct)
	return f.do(t, r, user)
}

func TestSave(t *testing.T) {
	f := newFixture(t, map[string]string{"a.md": "# Alpha"})

	w := f.post(t, "/edit/a.md", "ed", map[string]string{
		"content":     "# Renamed\n\n![x](shot.png)",
		"description": "rename",
	}, map[string][]byte{"shot.png": pngBytes(t, 8, 8)})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	assert.NoFileExists(t, filepath.Join(f.dir, "a.md"))
	assert.FileExists(t, filepath.Join(f.dir, "renamed.md"))
	assert.FileExists(t, filepath.Join(f.dir, "shot.png"))
	require.Len(t, f.convert.Calls, 1)
	assert.Equal(t, "-auto-orient", f.convert.Calls[0].Args[1])
}

func TestSave_New(t *testing.T) {
	f := newFixture(t, nil)

	w := f.post(t, "/new", "ed", map[string]string{"content": "# Fresh", "description": "add"}, nil)
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.FileExists(t, filepath.Join(f.dir, "fresh.md"))

	w = f.post(t, "/new", "ed", map[string]string{"content": "  ", "description": "add"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.post(t, "/new", "viewer", map[string]string{"content": "# Nope"}, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestFiles(t *testing.T) {
	f := newFixture(t, map[string]string{
		"style.css":  "body{}",
		"notes.txt":  "secret",
		".hidden.js": "x",
	})

	w := f.get(t, "/style.css?t=1", "viewer")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/css", w.Header().Get("Content-Type"))
	assert.Equal(t, longCache, w.Header().Get("Cache-Control"))

	w = f.get(t, "/icon.png", "viewer")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Empty(t, w.Header().Get("Cache-Control"))

	assert.Equal(t, http.StatusForbidden, f.get(t, "/notes.txt", "viewer").Code)
	assert.Equal(t, http.StatusNotFound, f.get(t, "/.hidden.js", "viewer").Code)
	assert.Equal(t, http.StatusNotFound, f.get(t, "/missing.png", "viewer").Code)
	assert.NotEqual(t, http.StatusOK, f.get(t, "/a/..%2F..%2Fetc/passwd", "viewer").Code)
	assert.Equal(t, http.StatusUnauthorized, f.get(t, "/style.css", "").Code)
}

func TestFiles_Scaled(t *testing.T) {
	f := newFixture(t, nil)

	w := f.get(t, "/icon.png?height=16", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, f.convert.Calls, 1)
	assert.Equal(t, "16x16", f.convert.Calls[0].Args[2])

	// Never upscaled.
	w = f.get(t, "/icon.png?width=128", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, f.convert.Calls, 1)

	assert.Equal(t, http.StatusBadRequest, f.get(t, "/icon.png?width=abc", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.get(t, "/icon.png?width=10&height=10", "").Code)
}

func TestLocalPath(t *testing.T) {
	tests := map[string]string{
		"icon.png":      "icon.png",
		"/icon.png":     "icon.png",
		"img/a.png":     "img/a.png",
		"../etc/passwd": "",
		".git/config":   "",
		"a/.env":        "",
		"":              "",
	}
	for in, want := range tests {
		assert.Equal(t, want, localPath(in), in)
	}
}
