// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/staranto/fragwiki/internal/cacheutil"
	"github.com/staranto/fragwiki/internal/meta"
)

// CacheClearCommandAction drops every cache entry and derived file.
func CacheClearCommandAction(ctx context.Context, _ *cli.Command, st *Stack) error {
	return st.Cache.Clear(ctx)
}

// CachePurgeCommandAction removes file entries older than --hours. Other
// backends are left to their own retention.
func CachePurgeCommandAction(_ context.Context, cmd *cli.Command) error {
	dir := cmd.String("cache-dir")
	if dir == "" {
		return fmt.Errorf("cache-dir: %w", os.ErrNotExist)
	}
	n, err := cacheutil.Purge(dir, cmd.Int("hours"))
	fmt.Fprintf(os.Stdout, "removed %d\n", n)
	return err
}

// CacheCommandBuilder constructs "cache" and its subcommands.
func CacheCommandBuilder(meta meta.Meta) *cli.Command {
	cacheDir, _ := cacheutil.Dir()

	clearCmd := (&WikiCommandBuilder{
		Name:      "clear",
		Usage:     "drop every cache entry",
		UsageText: `fragwiki cache clear`,
		Action:    CacheClearCommandAction,
		Meta:      meta,
	}).Build()

	purgeCmd := &cli.Command{
		Name:      "purge",
		Usage:     "remove cache files older than --hours",
		UsageText: `fragwiki cache purge --hours N`,
		Metadata: map[string]any{
			"meta": meta,
		},
		Flags: []cli.Flag{
			envFlag("cache", meta.Config.Source, "cache-dir", "FRAGWIKI_CACHE_DIR", "cache directory", cacheDir),
			&cli.IntFlag{
				Name:  "hours",
				Usage: "age in hours",
				Value: 24 * 7, //nolint:mnd
				Validator: func(value int) error {
					return FlagValidators(value, PositiveValidator)
				},
			},
		},
		Action: CachePurgeCommandAction,
	}

	return &cli.Command{
		Name:     "cache",
		Usage:    "manage the derived artifact cache",
		Commands: []*cli.Command{clearCmd, purgeCmd},
	}
}
