// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package render

import (
	"bytes"
	"html"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"github.com/staranto/fragwiki/internal/fragment"
)

// Permalink anchor appearance.
const (
	PermalinkClass  = "heading-link"
	PermalinkSymbol = "🔗"
	PermalinkTitle  = "Sharable Link"
)

// newMarkdown returns the goldmark instance used for page bodies.
func newMarkdown() goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Typographer,
			permalinks{},
			markerComments{},
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
	)
}

// KindPermalink is the node kind of a heading permalink.
var KindPermalink = ast.NewNodeKind("Permalink")

// permalinkNode is an inline anchor pointing at its heading's id.
type permalinkNode struct {
	ast.BaseInline
	ID string
}

func (n *permalinkNode) Kind() ast.NodeKind {
	return KindPermalink
}

func (n *permalinkNode) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"ID": n.ID}, nil)
}

// permalinks appends a permalink to every level one heading.
type permalinks struct{}

func (permalinks) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(parser.WithASTTransformers(
		util.Prioritized(permalinkTransformer{}, 999),
	))
	m.Renderer().AddOptions(renderer.WithNodeRenderers(
		util.Prioritized(permalinkRenderer{}, 500),
	))
}

type permalinkTransformer struct{}

func (permalinkTransformer) Transform(doc *ast.Document, _ text.Reader, _ parser.Context) {
	var headings []*ast.Heading
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if h, ok := n.(*ast.Heading); ok {
			if h.Level == 1 {
				headings = append(headings, h)
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	for _, h := range headings {
		var id string
		if v, ok := h.AttributeString("id"); ok {
			if b, ok := v.([]byte); ok {
				id = string(b)
			}
		}
		h.AppendChild(h, &permalinkNode{ID: id})
	}
}

type permalinkRenderer struct{}

func (permalinkRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindPermalink, renderPermalink)
}

func renderPermalink(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*permalinkNode)
	_, _ = w.WriteString(`<a href="#`)
	_, _ = w.WriteString(html.EscapeString(n.ID))
	_, _ = w.WriteString(`" class="` + PermalinkClass + `" aria-hidden="true" title="` + PermalinkTitle + `">`)
	_, _ = w.WriteString(PermalinkSymbol)
	_, _ = w.WriteString("</a>")
	return ast.WalkSkipChildren, nil
}

// markerComments lets fragment marker comments through as raw HTML. Every
// other raw HTML block is dropped.
type markerComments struct{}

func (markerComments) Extend(m goldmark.Markdown) {
	m.Renderer().AddOptions(renderer.WithNodeRenderers(
		util.Prioritized(markerRenderer{}, 100),
	))
}

var markerRe = regexp.MustCompile(`^<!--([^<>]*)-->$`)

// markerSlug returns the slug carried by a marker comment, if s is one.
func markerSlug(s string) (string, bool) {
	m := markerRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return "", false
	}
	slug := html.UnescapeString(m[1])
	if fragment.ValidateSlug(slug) != nil {
		return "", false
	}
	return slug, true
}

type markerRenderer struct{}

func (markerRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindHTMLBlock, renderHTMLBlock)
}

func renderHTMLBlock(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*ast.HTMLBlock)

	var raw bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		raw.Write(line.Value(source))
	}
	if n.HasClosure() {
		raw.Write(n.ClosureLine.Value(source))
	}

	if _, ok := markerSlug(raw.String()); ok {
		_, _ = w.WriteString(strings.TrimSpace(raw.String()))
		_ = w.WriteByte('\n')
	}
	return ast.WalkContinue, nil
}
