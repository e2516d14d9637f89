// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/apex/log"
	"github.com/natefinch/atomic"
	"github.com/urfave/cli/v3"

	"github.com/staranto/fragwiki/internal/aggregate"
	"github.com/staranto/fragwiki/internal/cache"
	"github.com/staranto/fragwiki/internal/gate"
	"github.com/staranto/fragwiki/internal/meta"
	"github.com/staranto/fragwiki/internal/server"
)

// RenderDocument renders the home page body the way the server does, cache
// included.
func RenderDocument(ctx context.Context, st *Stack) (string, error) {
	var out string
	err := st.Gate.With(gate.Shared, func() error {
		mtime, err := st.Store.LatestModTime()
		if err != nil {
			return err
		}
		out, err = cache.GetOrCompute(ctx, st.Cache, server.IndexKey, mtime, func() (string, error) {
			doc, err := aggregate.Build(st.Store)
			if err != nil {
				return "", err
			}
			log.Debugf("rendering %d fragments", len(doc.Slugs))
			return st.Renderer.Render(ctx, doc.Source)
		})
		return err
	})
	return out, err
}

// RenderCommandAction writes the rendered document to stdout or --out.
func RenderCommandAction(ctx context.Context, cmd *cli.Command, st *Stack) error {
	out, err := RenderDocument(ctx, st)
	if err != nil {
		return err
	}

	if path := cmd.String("out"); path != "" && path != "-" {
		return atomic.WriteFile(path, strings.NewReader(out))
	}
	_, err = fmt.Fprint(os.Stdout, out)
	return err
}

// RenderCommandBuilder constructs the cli.Command for "render".
func RenderCommandBuilder(meta meta.Meta) *cli.Command {
	return (&WikiCommandBuilder{
		Name:      "render",
		Usage:     "print the rendered wiki",
		UsageText: `fragwiki render [--out FILE]`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"O"},
				Usage:   "write to FILE instead of stdout",
				Validator: func(value string) error {
					return FlagValidators(value, JammedFlagValidator)
				},
			},
		},
		Action: RenderCommandAction,
		Meta:   meta,
	}).Build()
}
