// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package publish is the write path of the wiki. An edit is applied to the
// fragment directory, unreferenced images are pruned, and the result is
// committed and pushed, all while holding the exclusive gate.
//
// Nothing is rolled back. Once the gate is held and the tree synced, a
// failure part way through leaves whatever was already done in place, and
// the next edit commits it.
package publish

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/apex/log"

	"github.com/staranto/fragwiki/internal/cache"
	"github.com/staranto/fragwiki/internal/config"
	"github.com/staranto/fragwiki/internal/fragment"
	"github.com/staranto/fragwiki/internal/gate"
	"github.com/staranto/fragwiki/internal/identity"
	"github.com/staranto/fragwiki/internal/media"
	"github.com/staranto/fragwiki/internal/render"
	"github.com/staranto/fragwiki/internal/slug"
	"github.com/staranto/fragwiki/internal/vcs"
)

// DefaultMessage is the commit message used when an edit has no description.
const DefaultMessage = "no description given"

var (
	// ErrNoAuthor is returned for an edit without an identified author.
	ErrNoAuthor = errors.New("edit has no author")

	// ErrEmptyPage is returned when a new fragment is submitted without
	// content.
	ErrEmptyPage = errors.New("new page has no content")
)

// Images is the subset of the media service the publisher needs.
type Images interface {
	Mimetype(ctx context.Context, path string) (string, error)
	Import(ctx context.Context, src string, dst string) error
}

// Upload is an image submitted with an edit. Path is where the uploaded
// bytes are, Name is the file name it is stored under.
type Upload struct {
	Name string
	Path string
}

// Edit is one submitted change to a fragment. An empty Slug creates a new
// fragment.
type Edit struct {
	Slug        string
	Body        string
	Description string
	Uploads     []Upload
	Author      identity.Identity
}

// Publisher applies edits to a fragment store kept in git.
type Publisher struct {
	Store    *fragment.Store
	Gate     *gate.Gate
	Git      *vcs.Git
	Images   Images
	Cache    *cache.Cache
	Renderer *render.Renderer

	// IconPath is the wiki icon, relative to the store. It is never pruned.
	IconPath string
	// EmailDomain is the domain of synthesized commit emails.
	EmailDomain string
}

// Apply applies e and returns the slug the fragment ended up under. A
// deleted fragment returns its old slug.
func (p *Publisher) Apply(ctx context.Context, e Edit) (string, error) {
	create := e.Slug == ""
	if !create {
		if err := fragment.ValidateSlug(e.Slug); err != nil {
			return "", err
		}
	}
	if e.Author.IsZero() {
		return "", ErrNoAuthor
	}

	remove := strings.TrimSpace(e.Body) == ""
	switch {
	case remove && create:
		return "", ErrEmptyPage
	case !create && !p.Store.Exists(e.Slug):
		return "", fmt.Errorf("%w: %s", fragment.ErrNotFound, e.Slug)
	}

	h, err := p.Gate.Acquire(gate.Exclusive)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := h.Release(); err != nil {
			log.WithError(err).Warn("failed to release gate")
		}
	}()

	if err := p.Git.Sync(ctx); err != nil {
		return "", err
	}

	if err := p.importUploads(ctx, e.Uploads); err != nil {
		return "", err
	}

	final := e.Slug
	if remove {
		if err := p.Store.Remove(e.Slug); err != nil {
			return "", err
		}
	} else {
		if final, err = p.write(ctx, e); err != nil {
			return "", err
		}
	}

	if err := p.Cache.Clear(ctx); err != nil {
		log.WithError(err).Warn("failed to clear cache")
	}

	if _, err := p.prune(ctx); err != nil {
		return "", err
	}

	if err := p.commit(ctx, e); err != nil {
		return "", err
	}

	log.Infof("published %s as %s", e.Slug, final)
	return final, nil
}

// write stores the body under its derived slug, renaming the fragment when
// its title changed.
func (p *Publisher) write(ctx context.Context, e Edit) (string, error) {
	self := e.Slug

	final := slug.Derive(slug.Title(e.Body), self, p.Store.Exists)
	if self != "" && final != self {
		log.Debugf("renaming %s to %s", self, final)
		if err := p.Git.Move(ctx, self, final); err != nil {
			return "", err
		}
	}

	if err := p.Store.Write(final, e.Body); err != nil {
		return "", err
	}
	return final, nil
}

func (p *Publisher) importUploads(ctx context.Context, uploads []Upload) error {
	for _, up := range uploads {
		if !validUploadName(up.Name) {
			log.Debugf("skipping upload %q: bad name", up.Name)
			continue
		}
		mt, err := media.Sniff(up.Path)
		if err != nil || !media.AcceptableImage(mt) {
			log.Debugf("skipping upload %q: type %q", up.Name, mt)
			continue
		}
		if err := p.Images.Import(ctx, up.Path, filepath.Join(p.Store.Dir, up.Name)); err != nil {
			return err
		}
	}
	return nil
}

// validUploadName keeps uploads to plain files that cannot shadow a
// fragment, the wiki settings or anything hidden.
func validUploadName(name string) bool {
	switch {
	case name == "", strings.HasPrefix(name, "."), strings.ContainsAny(name, `/\`):
		return false
	case strings.EqualFold(filepath.Ext(name), fragment.Ext), name == config.WikiSettingsFile:
		return false
	}
	return true
}

func (p *Publisher) commit(ctx context.Context, e Edit) error {
	if err := p.Git.AddAll(ctx); err != nil {
		return err
	}
	if err := p.Git.ConfigureAuthor(ctx, e.Author.Name, e.Author.Email(p.EmailDomain)); err != nil {
		return err
	}

	dirty, err := p.Git.Dirty(ctx)
	if err != nil {
		return err
	}
	if !dirty {
		log.Debug("nothing to commit")
		return nil
	}

	msg := strings.TrimSpace(e.Description)
	if msg == "" {
		msg = DefaultMessage
	}
	if err := p.Git.Commit(ctx, msg); err != nil {
		return err
	}
	return p.Git.Publish(ctx)
}
