// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/jsonc"
)

// WikiSettingsFile is the per-wiki settings file, kept in the wiki repository.
const WikiSettingsFile = "settings.json"

// WikiSettings are the settings stored with the wiki content.
type WikiSettings struct {
	Name     string   `json:"name"`
	Language string   `json:"language"`
	IconPath string   `json:"iconPath"`
	Viewers  []string `json:"viewers"`
	Editors  []string `json:"editors"`
}

// LoadWikiSettings reads settings.json from dir. Comments and trailing commas
// are allowed. name and iconPath are required. Every key may also be written
// with a "wiki" prefix (wikiName, wikiIconPath, ...), which wins.
func LoadWikiSettings(dir string) (WikiSettings, error) {
	p := filepath.Join(dir, WikiSettingsFile)
	raw, err := os.ReadFile(p)
	if err != nil {
		return WikiSettings{}, fmt.Errorf("failed to read wiki settings: %w", err)
	}
	return ParseWikiSettings(raw)
}

// ParseWikiSettings parses the content of a settings.json file.
func ParseWikiSettings(raw []byte) (WikiSettings, error) {
	doc := jsonc.ToJSON(raw)
	if !gjson.ValidBytes(doc) {
		return WikiSettings{}, fmt.Errorf("%w: %s is not valid JSON", ErrInvalidSetting, WikiSettingsFile)
	}
	root := gjson.ParseBytes(doc)

	ws := WikiSettings{
		Name:     field(root, "name").String(),
		Language: field(root, "language").String(),
		IconPath: field(root, "iconPath").String(),
		Viewers:  stringList(field(root, "viewers")),
		Editors:  stringList(field(root, "editors")),
	}

	if ws.Name == "" {
		return ws, Missing("wikiName")
	}
	if ws.IconPath == "" {
		return ws, Missing("wikiIconPath")
	}
	if ws.Language == "" {
		ws.Language = "en"
	}
	return ws, nil
}

// field returns wiki<Key>, else key.
func field(root gjson.Result, key string) gjson.Result {
	if r := root.Get("wiki" + strings.ToUpper(key[:1]) + key[1:]); r.Exists() {
		return r
	}
	return root.Get(key)
}

func stringList(r gjson.Result) []string {
	if !r.Exists() {
		return nil
	}
	if !r.IsArray() {
		return []string{r.String()}
	}
	var out []string
	for _, item := range r.Array() {
		out = append(out, item.String())
	}
	return out
}
