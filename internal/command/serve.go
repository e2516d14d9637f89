// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/fragwiki/internal/identity"
	"github.com/staranto/fragwiki/internal/meta"
	"github.com/staranto/fragwiki/internal/server"
	"github.com/staranto/fragwiki/internal/watch"
)

// resolver builds the identity chain: trusted headers, then the signed
// cookie when a key is configured.
func resolver(cmd *cli.Command) (identity.Resolver, error) {
	chain := identity.Chain{identity.HeaderResolver{
		IDHeader:   cmd.String("id-header"),
		NameHeader: cmd.String("name-header"),
	}}

	cookie, err := identity.NewCookieResolver(cmd.String("cookie-name"), cmd.String("cookie-key"))
	switch {
	case errors.Is(err, identity.ErrNoKey):
	case err != nil:
		return nil, err
	default:
		chain = append(chain, cookie)
	}
	return chain, nil
}

// ServeCommandAction runs the HTTP server until interrupted.
func ServeCommandAction(ctx context.Context, cmd *cli.Command, st *Stack) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	id, err := resolver(cmd)
	if err != nil {
		return err
	}

	if cmd.Bool("watch") {
		w := watch.New(st.Settings.WikiDir, func(ctx context.Context, names []string) error {
			log.Infof("wiki changed outside the server: %v", names)
			return st.Cache.Clear(ctx)
		})
		go func() {
			if err := w.Run(ctx, nil); err != nil {
				log.WithError(err).Error("watcher stopped")
			}
		}()
	}

	srv := &server.Server{
		Store:     st.Store,
		Gate:      st.Gate,
		Cache:     st.Cache,
		Media:     st.Media,
		Renderer:  st.Renderer,
		Publisher: st.Publisher,
		Identity:  id,
		Wiki:      st.Wiki,
		MaxUpload: int64(cmd.Int("max-upload")) << 20, //nolint:mnd
	}
	return srv.Run(ctx, st.Settings.Listen)
}

// ServeCommandBuilder constructs the cli.Command for "serve".
func ServeCommandBuilder(meta meta.Meta) *cli.Command {
	src := meta.Config.Source
	return (&WikiCommandBuilder{
		Name:      "serve",
		Usage:     "serve the wiki over http",
		UsageText: `fragwiki serve [options]`,
		Flags: append([]cli.Flag{
			envFlag("serve", src, "addr", "FRAGWIKI_LISTEN", "listen address", "127.0.0.1:8080"),
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "clear the cache when the wiki changes on disk",
			},
			&cli.IntFlag{
				Name:  "max-upload",
				Usage: "largest accepted edit submission in MiB",
				Value: server.DefaultMaxUpload >> 20, //nolint:mnd
				Validator: func(value int) error {
					return FlagValidators(value, PositiveValidator)
				},
			},
		}, NewIdentityFlags("serve", src)...),
		Action: ServeCommandAction,
		Meta:   meta,
	}).Build()
}
