// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/staranto/fragwiki/internal/meta"
)

// ScaleCommandAction prints the path of a scaled copy of an image in the wiki.
func ScaleCommandAction(ctx context.Context, cmd *cli.Command, st *Stack) error {
	if cmd.Args().Len() != 1 {
		return errors.New("expected one image path")
	}
	path := cmd.Args().First()
	if !filepath.IsAbs(path) {
		path = filepath.Join(st.Settings.WikiDir, path)
	}

	out, err := st.Media.Scale(ctx, path, cmd.Int("width"), cmd.Int("height"))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(os.Stdout, out)
	return err
}

// ScaleCommandBuilder constructs the cli.Command for "scale".
func ScaleCommandBuilder(meta meta.Meta) *cli.Command {
	return (&WikiCommandBuilder{
		Name:      "scale",
		Usage:     "print the path of a scaled image",
		UsageText: `fragwiki scale IMAGE (--width N | --height N)`,
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "width", Usage: "target width"},
			&cli.IntFlag{Name: "height", Usage: "target height"},
		},
		Action: ScaleCommandAction,
		Meta:   meta,
	}).Build()
}
