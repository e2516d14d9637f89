// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/staranto/fragwiki/internal/identity"
	"github.com/staranto/fragwiki/internal/meta"
	"github.com/staranto/fragwiki/internal/publish"
)

func readBody(path string) (string, error) {
	if path == "" || path == "-" {
		b, err := io.ReadAll(os.Stdin)
		return string(b), err
	}
	b, err := os.ReadFile(path)
	return string(b), err
}

// EditCommandAction publishes the body read from --file. An empty body
// deletes the fragment; no --slug creates a new one.
func EditCommandAction(ctx context.Context, cmd *cli.Command, st *Stack) error {
	body, err := readBody(cmd.String("file"))
	if err != nil {
		return err
	}

	var uploads []publish.Upload
	for _, p := range cmd.StringSlice("image") {
		uploads = append(uploads, publish.Upload{Name: filepath.Base(p), Path: p})
	}

	author := identity.Identity{ID: cmd.String("user-id"), Name: cmd.String("user-name")}
	if author.Name == "" {
		author.Name = author.ID
	}

	slug, err := st.Publisher.Apply(ctx, publish.Edit{
		Slug:        cmd.String("slug"),
		Body:        body,
		Description: cmd.String("message"),
		Uploads:     uploads,
		Author:      author,
	})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(os.Stdout, slug)
	return err
}

// EditCommandBuilder constructs the cli.Command for "edit".
func EditCommandBuilder(meta meta.Meta) *cli.Command {
	src := meta.Config.Source
	return (&WikiCommandBuilder{
		Name:      "edit",
		Usage:     "create, update or delete a fragment",
		UsageText: `fragwiki edit [--slug SLUG] --file FILE [--message MSG] [--image IMG]...`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "slug",
				Usage: "fragment to update; omit to create",
			},
			&cli.StringFlag{
				Name:  "file",
				Usage: "new body, - for stdin",
				Value: "-",
			},
			&cli.StringFlag{
				Name:    "message",
				Aliases: []string{"m"},
				Usage:   "commit message",
			},
			&cli.StringSliceFlag{
				Name:  "image",
				Usage: "image to import next to the fragments",
			},
			envFlag("edit", src, "user-id", "FRAGWIKI_USER_ID", "author id", os.Getenv("USER")),
			envFlag("edit", src, "user-name", "FRAGWIKI_USER_NAME", "author name", ""),
		},
		Action: EditCommandAction,
		Meta:   meta,
	}).Build()
}
