// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/fragwiki/internal/fragment"
	"github.com/staranto/fragwiki/internal/gate"
	"github.com/staranto/fragwiki/internal/meta"
	"github.com/staranto/fragwiki/internal/output"
	"github.com/staranto/fragwiki/internal/render"
)

var lsColumns = []output.Column{
	{Key: "slug"},
	{Key: "title"},
	{Key: "size", Format: output.Bytes},
	{Key: "modified", Format: output.Age},
	{Key: "images", Format: output.Count},
}

// fragmentRows builds one listing row per fragment. images are the image
// sources the fragment's markdown refers to.
func fragmentRows(r *render.Renderer, frags []fragment.Fragment) []map[string]any {
	rows := make([]map[string]any, 0, len(frags))
	for _, f := range frags {
		images := []string{}
		if html, err := r.Markdown(f.Body); err == nil {
			if refs, err := render.ImageRefs(html); err == nil && refs != nil {
				images = refs
			}
		} else {
			log.WithError(err).Warnf("failed to render %s", f.Slug)
		}

		rows = append(rows, map[string]any{
			"slug":     f.Slug,
			"title":    f.Title(),
			"size":     f.Size,
			"modified": f.ModTime,
			"images":   images,
		})
	}
	return rows
}

// LsCommandAction lists the fragments.
func LsCommandAction(ctx context.Context, cmd *cli.Command, st *Stack) error {
	var frags []fragment.Fragment
	err := st.Gate.With(gate.Shared, func() (err error) {
		frags, err = st.Store.List()
		return err
	})
	if err != nil {
		return err
	}
	rows := fragmentRows(st.Renderer, frags)

	if cmd.String("output") == "raw" {
		b, err := json.Marshal(rows)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(os.Stdout, string(b))
		return err
	}

	opts := output.OptionsFromConfig(output.Options{
		Format: cmd.String("output"),
		Filter: cmd.String("filter"),
		Sort:   cmd.String("sort"),
		Titles: cmd.Bool("titles"),
		Color:  cmd.Bool("color"),
	}, GetMeta(cmd).Config.WithNamespace("ls"))

	return output.SliceDiceSpit(rows, lsColumns, opts, os.Stdout)
}

// LsCommandBuilder constructs the cli.Command for "ls".
func LsCommandBuilder(meta meta.Meta) *cli.Command {
	return (&WikiCommandBuilder{
		Name:      "ls",
		Usage:     "list fragments",
		UsageText: `fragwiki ls [options]`,
		Flags:     NewOutputFlags("ls", meta.Config.Source),
		Action:    LsCommandAction,
		Meta:      meta,
	}).Build()
}
