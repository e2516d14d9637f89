// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// docgen turns docs/commands/*.md into man pages and tldr pages.
//
//	docs/commands/<cmd>.md -> docs/man/share/man1/fragwiki-<cmd>.1
//	                       -> docs/tldr/fragwiki-<cmd>.md
package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	md2man "github.com/cpuguy83/go-md2man/v2/md2man"
)

const (
	program = "fragwiki"
	homeURL = "https://github.com/staranto/fragwiki"
)

func main() {
	var (
		root          string
		onlyIfChanged bool
	)
	flag.StringVar(&root, "root", ".", "repo root")
	flag.BoolVar(&onlyIfChanged, "only-if-changed", true, "only write files if content changed")
	flag.Parse()

	n, err := generate(root, onlyIfChanged)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Printf("generated docs for %d commands\n", n)
}

// generate writes the man and tldr page of every command doc under root and
// returns how many it processed.
func generate(root string, onlyIfChanged bool) (int, error) {
	commandsDir := filepath.Join(root, "docs", "commands")
	manDir := filepath.Join(root, "docs", "man", "share", "man1")
	tldrDir := filepath.Join(root, "docs", "tldr")

	for _, d := range []string{manDir, tldrDir} {
		if err := os.MkdirAll(d, 0o755); err != nil { //nolint:mnd
			return 0, fmt.Errorf("creating %s: %w", d, err)
		}
	}

	entries, err := os.ReadDir(commandsDir)
	if err != nil {
		return 0, fmt.Errorf("reading commands dir: %w", err)
	}

	n := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		cmd := strings.TrimSuffix(e.Name(), ".md")
		raw, err := os.ReadFile(filepath.Join(commandsDir, e.Name()))
		if err != nil {
			return n, err
		}

		manPath := filepath.Join(manDir, program+"-"+cmd+".1")
		if err := writeFileIfChanged(manPath, md2man.Render(raw), onlyIfChanged); err != nil {
			return n, fmt.Errorf("man page for %s: %w", cmd, err)
		}

		doc := parseDoc(string(raw))
		tldrPath := filepath.Join(tldrDir, program+"-"+cmd+".md")
		if err := writeFileIfChanged(tldrPath, []byte(doc.tldr(cmd)), onlyIfChanged); err != nil {
			return n, fmt.Errorf("tldr page for %s: %w", cmd, err)
		}
		n++
	}

	if n == 0 {
		return 0, fmt.Errorf("no command markdown found under %s", commandsDir)
	}
	return n, nil
}

func writeFileIfChanged(path string, content []byte, onlyIfChanged bool) error {
	if onlyIfChanged {
		old, err := os.ReadFile(path)
		switch {
		case err == nil && bytes.Equal(bytes.TrimSpace(old), bytes.TrimSpace(content)):
			return nil
		case err != nil && !errors.Is(err, fs.ErrNotExist):
			return err
		}
	}
	return os.WriteFile(path, content, 0o644) //nolint:mnd
}

type example struct {
	Desc string
	Cmd  string
}

// commandDoc is what the tldr page needs from a command doc.
type commandDoc struct {
	Title    string
	Short    string
	Examples []example
}

var (
	h1Re      = regexp.MustCompile(`(?m)^#\s+(.+)$`)
	sectionRe = regexp.MustCompile(`(?m)^##\s+(.+)$`)
)

// parseDoc reads the H1 title, the first paragraph of the "Short
// description" section and the commands of the first code block in the
// "Quick examples" section.
func parseDoc(md string) commandDoc {
	var doc commandDoc
	if m := h1Re.FindStringSubmatch(md); m != nil {
		doc.Title = strings.TrimSpace(m[1])
	}

	sections := splitSections(md)
	for _, ln := range strings.Split(strings.TrimSpace(sections["short description"]), "\n") {
		if strings.TrimSpace(ln) == "" {
			break
		}
		doc.Short = strings.TrimSpace(doc.Short + " " + strings.TrimSpace(ln))
	}
	if doc.Short == "" && doc.Title != "" {
		doc.Short = doc.Title + "."
	}

	doc.Examples = parseExamples(firstFence(sections["quick examples"]))
	return doc
}

// splitSections maps each lower-cased H2 heading to the text under it.
func splitSections(md string) map[string]string {
	out := map[string]string{}
	locs := sectionRe.FindAllStringSubmatchIndex(md, -1)
	for i, loc := range locs {
		end := len(md)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		name := strings.ToLower(strings.TrimSpace(md[loc[2]:loc[3]]))
		out[name] = md[loc[1]:end]
	}
	return out
}

func firstFence(s string) string {
	const fence = "```"
	start := strings.Index(s, fence)
	if start < 0 {
		return ""
	}
	s = s[start+len(fence):]
	// Drop the info string.
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	end := strings.Index(s, fence)
	if end < 0 {
		return ""
	}
	return s[:end]
}

// parseExamples pairs each "# description" comment with the command line
// that follows it.
func parseExamples(code string) []example {
	var (
		out  []example
		desc string
	)
	for _, ln := range strings.Split(code, "\n") {
		s := strings.TrimSpace(ln)
		switch {
		case s == "":
		case strings.HasPrefix(s, "#"):
			desc = strings.TrimSpace(strings.TrimPrefix(s, "#"))
		default:
			if desc == "" {
				desc = "Example"
			}
			out = append(out, example{Desc: desc, Cmd: strings.Join(strings.Fields(s), " ")})
			desc = ""
		}
	}
	return out
}

func (d commandDoc) tldr(cmd string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s-%s\n\n", program, cmd)
	switch {
	case d.Short != "":
		fmt.Fprintf(&b, "> %s\n", d.Short)
	default:
		fmt.Fprintf(&b, "> %s %s\n", program, cmd)
	}
	fmt.Fprintf(&b, "> More information: %s.\n\n", homeURL)

	exs := d.Examples
	if len(exs) == 0 {
		exs = []example{{Desc: "Show help for the command", Cmd: program + " " + cmd + " --help"}}
	}
	for i, ex := range exs {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "- %s:\n\n`%s`\n", ex.Desc, ex.Cmd)
	}
	return b.String()
}
