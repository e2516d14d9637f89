// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package render

import (
	"context"
	"fmt"
	"html"
	"math"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/apex/log"
	xhtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Thumbnail geometry for inline images.
const (
	thumbWidth = 200
	scaleWidth = 500
)

const (
	EditClass  = "edit-link"
	EditSymbol = "📝"
	EditPrefix = "/edit/"
)

var schemeRe = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*:`)

// visit holds the nodes found in one walk. Mutation happens after the walk
// so the tree is never changed while it is being traversed.
type visit struct {
	images     []*xhtml.Node
	permalinks []*xhtml.Node
}

func collect(root *xhtml.Node) *visit {
	v := &visit{}
	var walk func(*xhtml.Node)
	walk = func(n *xhtml.Node) {
		if n.Type == xhtml.ElementNode {
			switch n.DataAtom {
			case atom.Img:
				v.images = append(v.images, n)
			case atom.A:
				if hasClass(n, PermalinkClass) {
					v.permalinks = append(v.permalinks, n)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return v
}

func (r *Renderer) rewriteImage(ctx context.Context, img *xhtml.Node) {
	setAttr(img, "class", "float")
	setAttr(img, "width", strconv.Itoa(thumbWidth))
	setAttr(img, "loading", "lazy")

	src := attr(img, "src")
	href := src

	if p, ok := r.localImage(src); ok {
		var mtime int64
		if fi, err := os.Stat(p); err == nil {
			mtime = fi.ModTime().Unix()
		}

		var w, h int
		if r.Sizer != nil {
			var err error
			if w, h, err = r.Sizer.ImageSize(ctx, p); err != nil {
				log.WithError(err).Debugf("render: size of %s", p)
				w, h = 0, 0
			}
		}

		if w > 0 {
			setAttr(img, "src", fmt.Sprintf("%s?width=%d&t=%d", src, scaleWidth, mtime))
			height := math.Round(float64(thumbWidth) / float64(w) * float64(h))
			setAttr(img, "height", strconv.Itoa(int(height)))
		}
		if mtime > 0 {
			href = fmt.Sprintf("%s?t=%d", src, mtime)
		}
	}

	if insideLink(img) {
		return
	}

	a := &xhtml.Node{
		Type:     xhtml.ElementNode,
		Data:     "a",
		DataAtom: atom.A,
		Attr:     []xhtml.Attribute{{Key: "href", Val: href}},
	}
	img.Parent.InsertBefore(a, img)
	img.Parent.RemoveChild(img)
	a.AppendChild(img)
}

// localImage resolves src to a regular file under the asset dir.
func (r *Renderer) localImage(src string) (string, bool) {
	if src == "" || r.AssetDir == "" || schemeRe.MatchString(src) || strings.Contains(src, "..") {
		return "", false
	}
	if strings.ContainsAny(src, "?#") {
		return "", false
	}

	rel, err := url.PathUnescape(src)
	if err != nil {
		return "", false
	}
	p := filepath.Join(r.AssetDir, filepath.FromSlash(path.Clean("/" + rel)))
	fi, err := os.Stat(p)
	if err != nil || !fi.Mode().IsRegular() {
		return "", false
	}
	return p, true
}

// attachEditLink completes the permalink anchor a. The heading holding it
// gets an edit link to the fragment named by the nearest preceding marker
// comment. A heading with no marker before it is removed.
func attachEditLink(a *xhtml.Node) {
	heading := a.Parent
	if heading == nil || heading.Parent == nil {
		return
	}

	var marker *xhtml.Node
	for s := heading.PrevSibling; s != nil; s = s.PrevSibling {
		if s.Type == xhtml.CommentNode {
			marker = s
			break
		}
	}
	if marker == nil {
		heading.Parent.RemoveChild(heading)
		return
	}

	slug := html.UnescapeString(strings.TrimSpace(marker.Data))

	heading.InsertBefore(textNode(" "), a)
	heading.AppendChild(textNode(" "))
	edit := &xhtml.Node{
		Type:     xhtml.ElementNode,
		Data:     "a",
		DataAtom: atom.A,
		Attr: []xhtml.Attribute{
			{Key: "class", Val: EditClass},
			{Key: "href", Val: EditPrefix + url.PathEscape(slug)},
		},
	}
	edit.AppendChild(textNode(EditSymbol))
	heading.AppendChild(edit)
}

func textNode(s string) *xhtml.Node {
	return &xhtml.Node{Type: xhtml.TextNode, Data: s}
}

func insideLink(n *xhtml.Node) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == xhtml.ElementNode && p.DataAtom == atom.A {
			return true
		}
	}
	return false
}

func attr(n *xhtml.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *xhtml.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, xhtml.Attribute{Key: key, Val: val})
}

func hasClass(n *xhtml.Node, class string) bool {
	return slices.Contains(strings.Fields(attr(n, "class")), class)
}
