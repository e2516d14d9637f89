// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"embed"
	"encoding/hex"
	"html/template"
	"io/fs"

	"github.com/zeebo/blake3"
)

//go:embed assets
var assetFS embed.FS

var assets, _ = fs.Sub(assetFS, "assets")

// assetStamp returns a short content hash of an embedded asset for cache
// busting.
func assetStamp(name string) string {
	b, err := fs.ReadFile(assets, name)
	if err != nil {
		return "0"
	}
	sum := blake3.Sum256(b)
	return hex.EncodeToString(sum[:6])
}

var iconSizes = []int{16, 32, 64, 128, 256}

var pages = template.Must(template.New("layout").Parse(`<!DOCTYPE html>
<html lang="{{.Lang}}">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}} - {{.WikiName}}</title>
{{- if .Icon}}{{range .IconSizes}}
<link rel="icon" sizes="{{.}}x{{.}}" href="{{$.Icon}}?height={{.}}&t={{$.IconStamp}}">
{{- end}}{{end}}
<link rel="stylesheet" href="/_assets/style.css?t={{.StyleStamp}}">
</head>
<body>
<nav><a href="/">{{if .Icon}}<img src="{{.Icon}}?height=160&t={{.IconStamp}}" height="64" alt="{{.WikiName}}">{{else}}{{.WikiName}}{{end}}</a>
{{- if .CanEdit}} <a href="/new">New page</a>{{end}}</nav>
<main>{{.Content}}</main>
<footer><hr>{{.User}}</footer>
</body>
</html>
`))

var editor = template.Must(template.New("editor").Parse(`<form method="post" action="{{.Action}}" id="edit-form" enctype="multipart/form-data">
<textarea name="content">{{.Body}}</textarea>
<label>Description of changes: <input name="description" required></label><br>
<label>Add images: <input type="file" name="images" accept="{{.Accept}}" multiple></label><br>
<button type="submit">Save</button>
</form>
`))

// page is the data the layout is executed with.
type page struct {
	Lang       string
	Title      string
	WikiName   string
	Icon       string
	IconStamp  int64
	IconSizes  []int
	StyleStamp string
	CanEdit    bool
	User       string
	Content    template.HTML
}

type editorData struct {
	Action string
	Body   string
	Accept string
}
