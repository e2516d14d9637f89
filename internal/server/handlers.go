// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"bytes"
	"errors"
	"html/template"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/apex/log"

	"github.com/staranto/fragwiki/internal/aggregate"
	"github.com/staranto/fragwiki/internal/cache"
	"github.com/staranto/fragwiki/internal/fragment"
	"github.com/staranto/fragwiki/internal/gate"
	"github.com/staranto/fragwiki/internal/media"
	"github.com/staranto/fragwiki/internal/publish"
)

// IndexKey is the cache key of the rendered home page.
const IndexKey = "render:index"

const longCache = "public, max-age=31536000, immutable"

func safeHTML(s string) template.HTML {
	return template.HTML(s) //nolint:gosec
}

func release(h *gate.Handle) {
	if err := h.Release(); err != nil {
		log.WithError(err).Warn("failed to release gate")
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	req, ok := s.begin(w, r, false)
	if !ok {
		return
	}

	h, err := s.Gate.Acquire(gate.Shared)
	if err != nil {
		s.fail(w, req, err)
		return
	}
	defer release(h)

	mtime, err := s.Store.LatestModTime()
	if err != nil {
		s.fail(w, req, err)
		return
	}

	ctx := r.Context()
	content, err := cache.GetOrCompute(ctx, s.Cache, IndexKey, mtime, func() (string, error) {
		doc, err := aggregate.Build(s.Store)
		if err != nil {
			return "", err
		}
		return s.Renderer.Render(ctx, doc.Source)
	})
	if err != nil {
		s.fail(w, req, err)
		return
	}

	s.respond(w, req, http.StatusOK, "Home", content)
}

func (s *Server) editorPage(w http.ResponseWriter, req *request, title string, data editorData) {
	data.Accept = strings.Join(media.AcceptableTypes(), ",")

	var buf bytes.Buffer
	if err := editor.Execute(&buf, data); err != nil {
		s.fail(w, req, err)
		return
	}
	s.respond(w, req, http.StatusOK, title, buf.String())
}

func (s *Server) mayEdit(w http.ResponseWriter, req *request) bool {
	if !req.access.CanEdit(req.id.ID) {
		s.respond(w, req, http.StatusForbidden, "403 Forbidden", "<h1>Forbidden</h1>")
		return false
	}
	return true
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	req, ok := s.begin(w, r, false)
	if !ok || !s.mayEdit(w, req) {
		return
	}

	slug := r.PathValue("slug")
	if err := fragment.ValidateSlug(slug); err != nil {
		s.fail(w, req, err)
		return
	}

	h, err := s.Gate.Acquire(gate.Shared)
	if err != nil {
		s.fail(w, req, err)
		return
	}
	defer release(h)

	frag, err := s.Store.Read(slug)
	if err != nil {
		s.fail(w, req, err)
		return
	}

	s.editorPage(w, req, slug, editorData{Action: "/edit/" + slug, Body: frag.Body})
}

func (s *Server) handleNew(w http.ResponseWriter, r *http.Request) {
	req, ok := s.begin(w, r, false)
	if !ok || !s.mayEdit(w, req) {
		return
	}
	s.editorPage(w, req, "New page", editorData{Action: "/new"})
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	req, ok := s.begin(w, r, false)
	if !ok || !s.mayEdit(w, req) {
		return
	}

	limit := s.MaxUpload
	if limit <= 0 {
		limit = DefaultMaxUpload
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}

	uploads, cleanup, err := saveUploads(r.MultipartForm)
	defer cleanup()
	if err != nil {
		s.fail(w, req, err)
		return
	}

	_, err = s.Publisher.Apply(r.Context(), publish.Edit{
		Slug:        r.PathValue("slug"),
		Body:        r.FormValue("content"),
		Description: r.FormValue("description"),
		Uploads:     uploads,
		Author:      req.id,
	})
	if err != nil {
		s.fail(w, req, err)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// saveUploads copies every uploaded file to a temporary file the publisher
// can hand to the converter.
func saveUploads(form *multipart.Form) ([]publish.Upload, func(), error) {
	var (
		uploads []publish.Upload
		paths   []string
	)
	cleanup := func() {
		for _, p := range paths {
			_ = os.Remove(p)
		}
	}
	if form == nil {
		return nil, cleanup, nil
	}

	for _, headers := range form.File {
		for _, fh := range headers {
			p, err := saveUpload(fh)
			if err != nil {
				return nil, cleanup, err
			}
			paths = append(paths, p)
			uploads = append(uploads, publish.Upload{Name: fh.Filename, Path: p})
		}
	}
	return uploads, cleanup, nil
}

func saveUpload(fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	dst, err := os.CreateTemp("", "fragwiki-upload-*")
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		_ = os.Remove(dst.Name())
		return "", err
	}
	return dst.Name(), nil
}

func (s *Server) handleAsset(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if r.URL.Query().Has("t") {
		w.Header().Set("Cache-Control", longCache)
	}
	http.ServeFileFS(w, r, assets, name)
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	name := localPath(r.PathValue("path"))

	wiki, err := s.Wiki()
	icon := err == nil && name != "" && name == localPath(wiki.IconPath)

	req, ok := s.begin(w, r, icon)
	if !ok {
		return
	}
	if name == "" {
		s.fail(w, req, media.ErrNotFound)
		return
	}

	ctx := r.Context()
	full := filepath.Join(s.Store.Dir, filepath.FromSlash(name))

	mt, err := s.Media.Mimetype(ctx, full)
	if err != nil {
		s.fail(w, req, err)
		return
	}

	switch {
	case media.IsImage(mt):
		q := r.URL.Query()
		if q.Has("width") || q.Has("height") {
			width, werr := queryInt(q.Get("width"))
			height, herr := queryInt(q.Get("height"))
			if err := errors.Join(werr, herr); err != nil {
				s.fail(w, req, err)
				return
			}
			if full, err = s.Media.Scale(ctx, full, width, height); err != nil {
				s.fail(w, req, err)
				return
			}
			if mt, err = s.Media.Mimetype(ctx, full); err != nil {
				s.fail(w, req, err)
				return
			}
		}
	case mt == "text/css", mt == "text/javascript":
	default:
		s.fail(w, req, fragment.ErrForbidden)
		return
	}

	f, err := os.Open(full)
	if err != nil {
		s.fail(w, req, media.ErrNotFound)
		return
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		s.fail(w, req, err)
		return
	}

	w.Header().Set("Content-Type", mt)
	if r.URL.Query().Has("t") {
		w.Header().Set("Cache-Control", longCache)
	}
	http.ServeContent(w, r, name, fi.ModTime(), f)
}

func queryInt(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.Join(media.ErrInvalidArgument, err)
	}
	return n, nil
}
