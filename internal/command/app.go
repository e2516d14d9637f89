// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package command

import (
	"context"
	"errors"
	"os"
	"sort"
	"strings"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/fragwiki/internal/config"
	"github.com/staranto/fragwiki/internal/meta"
)

// InitApp builds the root command. A missing config file is not an error;
// every setting can come from flags or the environment.
func InitApp(ctx context.Context, args []string) (*cli.Command, error) {
	sd, _ := os.Getwd()

	cfg, err := config.Load()
	if err != nil && !errors.Is(err, config.ErrNoConfig) {
		return nil, err
	}

	// args[1] is the subcommand and also the namespace for config lookups.
	// It could be -h/--help, so ignore it if it looks like a flag.
	if len(args) > 1 && !strings.HasPrefix(args[1], "-") {
		cfg = cfg.WithNamespace(args[1])
	}
	log.Debugf("config: %q namespace %q", cfg.Source, cfg.Namespace)

	meta := meta.Meta{
		Args:        args,
		Config:      cfg,
		Context:     ctx,
		StartingDir: sd,
	}

	app := &cli.Command{
		Name:  "fragwiki",
		Usage: "markdown fragment wiki",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "version",
				Aliases:     []string{"v"},
				Usage:       "fragwiki version info",
				HideDefault: true,
			},
		},
	}

	app.Commands = append(app.Commands,
		ServeCommandBuilder(meta),
		RenderCommandBuilder(meta),
		EditCommandBuilder(meta),
		ScaleCommandBuilder(meta),
		LsCommandBuilder(meta),
		PruneCommandBuilder(meta),
		CacheCommandBuilder(meta),
		IdentityCommandBuilder(meta),
		CompletionCommandBuilder(meta),
	)

	// Make sure flags are sorted for the --help text.
	var sortFlags func(cmds []*cli.Command)
	sortFlags = func(cmds []*cli.Command) {
		for _, cmd := range cmds {
			sort.Slice(cmd.Flags, func(i, j int) bool {
				return cmd.Flags[i].Names()[0] < cmd.Flags[j].Names()[0]
			})
			sortFlags(cmd.Commands)
		}
	}
	sortFlags(app.Commands)

	return app, nil
}
