// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package aggregate concatenates every fragment into the single markdown
// document behind the home page. Each fragment is preceded by an HTML comment
// carrying its slug so edit links can be attached after rendering.
package aggregate

import (
	"html"
	"strings"
	"time"

	"github.com/staranto/fragwiki/internal/fragment"
)

// BogusHeading opens every document so that the first real heading, like
// every later one, has a marker comment before it. The renderer removes it.
const BogusHeading = "# bogus heading"

// Document is the synthetic source for the home page.
type Document struct {
	Source  string
	Slugs   []string
	ModTime time.Time
}

// Lister is the part of the fragment store Build needs.
type Lister interface {
	List() ([]fragment.Fragment, error)
}

// Build reads every fragment from store, in natural slug order, and joins
// them.
func Build(store Lister) (Document, error) {
	frags, err := store.List()
	if err != nil {
		return Document{}, err
	}
	return Join(frags), nil
}

// Join builds the document from frags in the order given.
func Join(frags []fragment.Fragment) Document {
	var b strings.Builder
	doc := Document{Slugs: make([]string, 0, len(frags))}

	b.WriteString(BogusHeading)
	for _, f := range frags {
		b.WriteString(Marker(f.Slug))
		b.WriteString(f.Body)

		doc.Slugs = append(doc.Slugs, f.Slug)
		if f.ModTime.After(doc.ModTime) {
			doc.ModTime = f.ModTime
		}
	}

	doc.Source = b.String()
	return doc
}

// Marker returns the separator emitted before a fragment's body.
func Marker(slug string) string {
	return "\n\n<!--" + html.EscapeString(slug) + "-->\n\n"
}
