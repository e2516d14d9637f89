// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package server is the HTTP front end of the wiki: the rendered home page,
// the editor, and the assets stored next to the fragments.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/apex/log"

	"github.com/staranto/fragwiki/internal/cache"
	"github.com/staranto/fragwiki/internal/config"
	"github.com/staranto/fragwiki/internal/fragment"
	"github.com/staranto/fragwiki/internal/gate"
	"github.com/staranto/fragwiki/internal/identity"
	"github.com/staranto/fragwiki/internal/media"
	"github.com/staranto/fragwiki/internal/publish"
	"github.com/staranto/fragwiki/internal/render"
)

// DefaultMaxUpload bounds the size of an edit submission.
const DefaultMaxUpload = 32 << 20

// Server holds everything the handlers use.
type Server struct {
	Store     *fragment.Store
	Gate      *gate.Gate
	Cache     *cache.Cache
	Media     *media.Service
	Renderer  *render.Renderer
	Publisher *publish.Publisher
	Identity  identity.Resolver

	// Wiki returns the current wiki settings. It is called per request so
	// edits to settings.json take effect without a restart.
	Wiki func() (config.WikiSettings, error)

	MaxUpload int64
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /new", s.handleNew)
	mux.HandleFunc("POST /new", s.handleSave)
	mux.HandleFunc("GET /edit/{slug}", s.handleEdit)
	mux.HandleFunc("POST /edit/{slug}", s.handleSave)
	mux.HandleFunc("GET /_assets/{name}", s.handleAsset)
	mux.HandleFunc("GET /{path...}", s.handleFile)
	return logRequests(mux)
}

// Run serves on addr until ctx is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second, //nolint:mnd
	}

	errc := make(chan error, 1)
	go func() {
		log.Infof("listening on %s", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second) //nolint:mnd
		defer cancel()
		if err := srv.Shutdown(shutdown); err != nil {
			return err
		}
		if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		log.WithFields(log.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   sw.status,
			"duration": time.Since(start).Round(time.Microsecond),
		}).Debug("request")
	})
}

// request is the per-request view of the wiki.
type request struct {
	wiki   config.WikiSettings
	id     identity.Identity
	access identity.Access
}

// begin loads the wiki settings and resolves the caller. It writes the error
// response and returns false when the request cannot continue.
func (s *Server) begin(w http.ResponseWriter, r *http.Request, anonymous bool) (*request, bool) {
	wiki, err := s.Wiki()
	if err != nil {
		log.WithError(err).Error("wiki settings")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return nil, false
	}

	req := &request{
		wiki:   wiki,
		access: identity.Access{Viewers: wiki.Viewers, Editors: wiki.Editors},
	}
	if s.Identity != nil {
		req.id, _ = s.Identity.Resolve(r)
	}

	if anonymous {
		return req, true
	}
	if req.id.IsZero() {
		s.respond(w, req, http.StatusUnauthorized, "401 Unauthorized", "<h1>Unauthorized</h1>")
		return nil, false
	}
	if !req.access.CanView(req.id.ID) {
		s.respond(w, req, http.StatusForbidden, "403 Forbidden", "<h1>Forbidden</h1>")
		return nil, false
	}
	return req, true
}

// respond writes content inside the layout.
func (s *Server) respond(w http.ResponseWriter, req *request, status int, title string, content string) {
	p := page{
		Lang:       req.wiki.Language,
		Title:      title,
		WikiName:   req.wiki.Name,
		IconSizes:  iconSizes,
		StyleStamp: assetStamp("style.css"),
		CanEdit:    req.access.CanEdit(req.id.ID),
		User:       req.id.Name,
		Content:    safeHTML(content),
	}
	if p.User == "" {
		p.User = "anonymous"
	}

	if icon := localPath(req.wiki.IconPath); icon != "" {
		p.Icon = "/" + icon
		if fi, err := os.Stat(filepath.Join(s.Store.Dir, filepath.FromSlash(icon))); err == nil {
			p.IconStamp = fi.ModTime().Unix()
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pages.Execute(w, p); err != nil {
		log.WithError(err).Warn("layout")
	}
}

// fail maps err to a status and writes the error page.
func (s *Server) fail(w http.ResponseWriter, req *request, err error) {
	var (
		status  int
		heading string
	)
	switch {
	case errors.Is(err, fragment.ErrForbidden):
		status, heading = http.StatusForbidden, "Forbidden"
	case errors.Is(err, fragment.ErrNotFound), errors.Is(err, media.ErrNotFound):
		status, heading = http.StatusNotFound, "Not Found"
	case errors.Is(err, media.ErrInvalidArgument), errors.Is(err, publish.ErrEmptyPage):
		status, heading = http.StatusBadRequest, "Bad Request"
	default:
		log.WithError(err).Error("request failed")
		status, heading = http.StatusInternalServerError, "Internal Server Error"
	}

	title := fmt.Sprintf("%d %s", status, heading)
	s.respond(w, req, status, title, "<h1>"+heading+"</h1>")
}

// localPath cleans a wiki relative path, returning "" for paths that leave
// the wiki or point at hidden files.
func localPath(p string) string {
	if strings.Contains(p, "..") {
		return ""
	}
	clean := strings.Trim(filepath.ToSlash(filepath.Clean("/"+p)), "/")
	for _, seg := range strings.Split(clean, "/") {
		if strings.HasPrefix(seg, ".") {
			return ""
		}
	}
	return clean
}
