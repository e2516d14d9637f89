// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package publish

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/apex/log"

	"github.com/staranto/fragwiki/internal/aggregate"
	"github.com/staranto/fragwiki/internal/gate"
	"github.com/staranto/fragwiki/internal/media"
	"github.com/staranto/fragwiki/internal/render"
)

var scheme = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*:`)

// Prune deletes every image in the store that the rendered wiki does not
// reference, except the icon, and returns the names removed.
func (p *Publisher) Prune(ctx context.Context) ([]string, error) {
	h, err := p.Gate.Acquire(gate.Exclusive)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := h.Release(); err != nil {
			log.WithError(err).Warn("failed to release gate")
		}
	}()
	return p.prune(ctx)
}

// Referenced returns the set of store-relative image names the wiki uses.
func (p *Publisher) Referenced(ctx context.Context) (map[string]bool, error) {
	doc, err := aggregate.Build(p.Store)
	if err != nil {
		return nil, err
	}
	out, err := p.Renderer.Render(ctx, doc.Source)
	if err != nil {
		return nil, err
	}
	refs, err := render.ImageRefs(out)
	if err != nil {
		return nil, err
	}

	keep := make(map[string]bool, len(refs)+1)
	for _, ref := range append(refs, p.IconPath) {
		if name := localName(ref); name != "" {
			keep[name] = true
		}
	}
	return keep, nil
}

func (p *Publisher) prune(ctx context.Context) ([]string, error) {
	keep, err := p.Referenced(ctx)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(p.Store.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", p.Store.Dir, err)
	}

	var removed []string
	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() || strings.HasPrefix(name, ".") || keep[name] {
			continue
		}

		full := filepath.Join(p.Store.Dir, name)
		mt, err := p.Images.Mimetype(ctx, full)
		if err != nil {
			log.WithError(err).Warnf("prune: cannot type %s", name)
			continue
		}
		if !media.IsImage(mt) {
			continue
		}

		if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("failed to remove %s: %w", name, err)
		}
		log.Infof("pruned unreferenced image %s", name)
		removed = append(removed, name)
	}

	if err := p.Cache.Clear(ctx); err != nil {
		log.WithError(err).Warn("failed to clear cache")
	}
	return removed, nil
}

// localName maps an image reference to a file name in the store, or "" when
// it points elsewhere.
func localName(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || scheme.MatchString(ref) || strings.HasPrefix(ref, "//") {
		return ""
	}
	if u, err := url.PathUnescape(ref); err == nil {
		ref = u
	}
	return strings.TrimPrefix(path.Clean("/"+ref), "/")
}
