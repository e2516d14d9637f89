// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/apex/log"
	"github.com/yuin/goldmark"
	"golang.org/x/net/html"
)

// ErrRender is returned when the markdown or the resulting HTML cannot be
// processed.
var ErrRender = errors.New("render failed")

// ImageSizer reports the pixel dimensions of an image file. A zero width
// means the size is unknown.
type ImageSizer interface {
	ImageSize(ctx context.Context, path string) (width, height int, err error)
}

// Renderer converts aggregated markdown to home page HTML.
type Renderer struct {
	// AssetDir is the directory image sources are resolved against.
	AssetDir string
	// Sizer, when set, supplies image dimensions for thumbnail rewriting.
	Sizer ImageSizer

	md goldmark.Markdown
}

// New returns a Renderer resolving images under assetDir.
func New(assetDir string, sizer ImageSizer) *Renderer {
	return &Renderer{
		AssetDir: assetDir,
		Sizer:    sizer,
		md:       newMarkdown(),
	}
}

// Markdown converts source to HTML without the image and heading pass.
func (r *Renderer) Markdown(source string) (string, error) {
	if r.md == nil {
		r.md = newMarkdown()
	}

	var buf bytes.Buffer
	if err := r.md.Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("%w: %w", ErrRender, err)
	}
	return buf.String(), nil
}

// Render converts source to the final HTML fragment for the page body.
func (r *Renderer) Render(ctx context.Context, source string) (string, error) {
	out, err := r.Markdown(source)
	if err != nil {
		return "", err
	}

	body, err := parseBody(EncodeNonASCII(out))
	if err != nil {
		return "", err
	}

	v := collect(body)
	log.Debugf("render: %d images, %d headings", len(v.images), len(v.permalinks))

	for _, img := range v.images {
		r.rewriteImage(ctx, img)
	}
	for _, a := range v.permalinks {
		attachEditLink(a)
	}

	var buf bytes.Buffer
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", fmt.Errorf("%w: %w", ErrRender, err)
		}
	}
	return buf.String(), nil
}

// ImageRefs returns the src of every image in fragment, query string removed.
func ImageRefs(fragment string) ([]string, error) {
	body, err := parseBody(fragment)
	if err != nil {
		return nil, err
	}

	var refs []string
	for _, img := range collect(body).images {
		src := attr(img, "src")
		if i := strings.IndexByte(src, '?'); i >= 0 {
			src = src[:i]
		}
		if src != "" {
			refs = append(refs, src)
		}
	}
	return refs, nil
}

func parseBody(s string) (*html.Node, error) {
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRender, err)
	}
	if body := findElement(doc, "body"); body != nil {
		return body, nil
	}
	return nil, fmt.Errorf("%w: no body element", ErrRender)
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}
