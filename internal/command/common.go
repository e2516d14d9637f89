// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"os"
	"os/exec"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/fragwiki/internal/aws"
	"github.com/staranto/fragwiki/internal/cache"
	"github.com/staranto/fragwiki/internal/config"
	"github.com/staranto/fragwiki/internal/fragment"
	"github.com/staranto/fragwiki/internal/gate"
	"github.com/staranto/fragwiki/internal/media"
	"github.com/staranto/fragwiki/internal/meta"
	"github.com/staranto/fragwiki/internal/publish"
	"github.com/staranto/fragwiki/internal/render"
	"github.com/staranto/fragwiki/internal/vcs"
)

// ShortCircuitTLDR checks the --tldr flag and, if present and available,
// runs `tldr fragwiki-<subcmd>` and returns true so the caller can exit early.
func ShortCircuitTLDR(ctx context.Context, cmd *cli.Command, subcmd string) bool {
	if cmd.Bool("tldr") {
		if _, err := exec.LookPath("tldr"); err == nil {
			c := exec.CommandContext(ctx, "tldr", "fragwiki-"+subcmd)
			c.Stdout = os.Stdout
			c.Stderr = os.Stderr
			_ = c.Run()
		}
		return true
	}
	return false
}

// GetMeta returns the meta.Meta stored in the command's Metadata. If missing
// or of an unexpected type, it returns the zero value.
func GetMeta(cmd *cli.Command) meta.Meta {
	if cmd == nil || cmd.Metadata == nil {
		return meta.Meta{}
	}
	if m, ok := cmd.Metadata["meta"].(meta.Meta); ok {
		return m
	}
	return meta.Meta{}
}

// WikiCommandBuilder constructs the subcommands that operate on a wiki. It
// wires metadata, the tldr flag and the wiki flags, and hands the action an
// opened Stack.
type WikiCommandBuilder struct {
	Name      string
	Usage     string
	UsageText string
	Flags     []cli.Flag
	Action    func(context.Context, *cli.Command, *Stack) error
	Meta      meta.Meta
}

// Build returns a configured cli.Command from the builder.
func (b *WikiCommandBuilder) Build() *cli.Command {
	flags := append([]cli.Flag{tldrFlag}, b.Flags...)
	flags = append(flags, NewWikiFlags(b.Name, b.Meta.Config.Source)...)

	return &cli.Command{
		Name:      b.Name,
		Usage:     b.Usage,
		UsageText: b.UsageText,
		Metadata: map[string]any{
			"meta": b.Meta,
		},
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log.Debugf("Executing action for %v", GetMeta(cmd).Args)
			if ShortCircuitTLDR(ctx, cmd, b.Name) {
				return nil
			}

			settings, err := settingsFromCommand(cmd)
			if err != nil {
				return err
			}
			st, err := OpenStack(ctx, settings)
			if err != nil {
				return err
			}
			defer func() {
				if err := st.Close(); err != nil {
					log.WithError(err).Warn("close")
				}
			}()

			return b.Action(ctx, cmd, st)
		},
	}
}

// Stack is every component built from one set of settings.
type Stack struct {
	Settings  config.Settings
	WikiInfo  config.WikiSettings
	Store     *fragment.Store
	Gate      *gate.Gate
	Cache     *cache.Cache
	Media     *media.Service
	Renderer  *render.Renderer
	Git       *vcs.Git
	Publisher *publish.Publisher
}

// OpenStack builds the components. The wiki settings file must be present.
func OpenStack(ctx context.Context, s config.Settings) (*Stack, error) {
	wiki, err := config.LoadWikiSettings(s.WikiDir)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(s.CacheDir, 0o755); err != nil { //nolint:mnd
		return nil, err
	}

	opts := cache.Options{
		Backend:    s.CacheBackend,
		Dir:        s.CacheDir,
		SQLitePath: s.SQLitePath,
		S3Bucket:   s.S3Bucket,
		S3Prefix:   s.S3Prefix,
	}
	if s.CacheBackend == cache.BackendS3 {
		client, err := aws.NewS3(ctx,
			aws.WithRegion(s.S3Region),
			aws.WithProfile(s.S3Profile),
			aws.WithEndpoint(s.S3Endpoint))
		if err != nil {
			return nil, err
		}
		opts.S3 = client
	}
	c, err := cache.Open(opts)
	if err != nil {
		return nil, err
	}

	st := &Stack{
		Settings: s,
		WikiInfo: wiki,
		Store:    fragment.NewStore(s.WikiDir),
		Gate:     gate.New(s.LockFile),
		Cache:    c,
		Media:    media.New(c, s.Convert),
		Git:      vcs.New(s.WikiDir, s.Git),
	}
	st.Renderer = render.New(s.WikiDir, st.Media)
	st.Publisher = &publish.Publisher{
		Store:       st.Store,
		Gate:        st.Gate,
		Git:         st.Git,
		Images:      st.Media,
		Cache:       c,
		Renderer:    st.Renderer,
		IconPath:    wiki.IconPath,
		EmailDomain: s.EmailDomain,
	}
	return st, nil
}

// Wiki rereads the wiki settings file.
func (st *Stack) Wiki() (config.WikiSettings, error) {
	return config.LoadWikiSettings(st.Settings.WikiDir)
}

// Close releases the cache backend.
func (st *Stack) Close() error {
	return st.Cache.Close()
}
