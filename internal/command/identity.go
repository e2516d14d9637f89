// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/staranto/fragwiki/internal/identity"
	"github.com/staranto/fragwiki/internal/meta"
)

// SignCommandAction prints a signed identity cookie value.
func SignCommandAction(_ context.Context, cmd *cli.Command) error {
	id := identity.Identity{ID: cmd.String("id"), Name: cmd.String("name")}
	if id.ID == "" {
		return errors.New("--id is required")
	}
	c, err := identity.NewCookieResolver(cmd.String("cookie-name"), cmd.String("cookie-key"))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(os.Stdout, "%s=%s\n", c.Name, c.Sign(id))
	return err
}

// IdentityCommandBuilder constructs "identity sign".
func IdentityCommandBuilder(meta meta.Meta) *cli.Command {
	sign := &cli.Command{
		Name:      "sign",
		Usage:     "print a signed identity cookie",
		UsageText: `fragwiki identity sign --id ID [--name NAME]`,
		Metadata: map[string]any{
			"meta": meta,
		},
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "id", Usage: "user id"},
			&cli.StringFlag{Name: "name", Usage: "display name"},
		}, NewIdentityFlags("identity", meta.Config.Source)...),
		Action: SignCommandAction,
	}

	return &cli.Command{
		Name:     "identity",
		Usage:    "identity cookie helpers",
		Commands: []*cli.Command{sign},
	}
}
