// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/staranto/fragwiki/internal/meta"
)

// PruneCommandAction deletes images no fragment references.
func PruneCommandAction(ctx context.Context, _ *cli.Command, st *Stack) error {
	removed, err := st.Publisher.Prune(ctx)
	for _, name := range removed {
		fmt.Fprintln(os.Stdout, name)
	}
	return err
}

// PruneCommandBuilder constructs the cli.Command for "prune".
func PruneCommandBuilder(meta meta.Meta) *cli.Command {
	return (&WikiCommandBuilder{
		Name:      "prune",
		Usage:     "delete unreferenced images",
		UsageText: `fragwiki prune`,
		Action:    PruneCommandAction,
		Meta:      meta,
	}).Build()
}
