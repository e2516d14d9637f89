// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package slug derives fragment file names from fragment titles.
package slug

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/gosimple/unidecode"
	"github.com/yuin/goldmark"
	"golang.org/x/net/html"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/staranto/fragwiki/internal/fragment"
)

// Fallback is used when a title has no characters that survive slugging.
const Fallback = "untitled"

var (
	md         = goldmark.New()
	nonAlnum   = regexp.MustCompile(`[^a-z0-9]+`)
	lower      = cases.Lower(language.Und)
	stripMarks = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// Title returns the plain text of the first line of body, rendered as
// markdown with the markup removed.
func Title(body string) string {
	line, _, _ := strings.Cut(body, "\n")
	line = strings.TrimSpace(line)
	if line == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := md.Convert([]byte(line), &buf); err != nil {
		return line
	}
	doc, err := html.Parse(&buf)
	if err != nil {
		return line
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return strings.TrimSpace(b.String())
}

// Transliterate lowercases s and maps it to ASCII. Accents are dropped first;
// other scripts are romanized ("Привет" becomes "privet", "日本" becomes
// "ri ben"). Characters with no ASCII form, such as emoji, are removed.
func Transliterate(s string) string {
	s = lower.String(s)
	if out, _, err := transform.String(stripMarks, s); err == nil {
		s = out
	}
	return strings.ToLower(unidecode.Unidecode(s))
}

// Slugify returns the fragment file name for title.
func Slugify(title string) string {
	s := strings.ToLower(Transliterate(title))
	s = strings.Trim(nonAlnum.ReplaceAllString(s, "-"), "-")
	if s == "" {
		s = Fallback
	}
	return s + fragment.Ext
}

// Derive returns the slug for a fragment titled title. self is the fragment's
// current slug, empty for a new fragment. Candidates are tried as base.md,
// base-2.md, base-3.md and so on. self is always acceptable, so a fragment
// whose title did not change keeps its slug.
func Derive(title string, self string, exists func(string) bool) string {
	base := strings.TrimSuffix(Slugify(title), fragment.Ext)
	for n := 1; ; n++ {
		candidate := base + fragment.Ext
		if n > 1 {
			candidate = fmt.Sprintf("%s-%d%s", base, n, fragment.Ext)
		}
		if candidate == self || !exists(candidate) {
			return candidate
		}
	}
}
