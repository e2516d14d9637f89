// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package vcs drives the git working tree the fragments live in.
package vcs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/apex/log"

	"github.com/staranto/fragwiki/internal/proc"
)

// DefaultBinary is the git executable used when none is configured.
const DefaultBinary = "git"

// ErrGit is returned when a git invocation fails.
var ErrGit = errors.New("git failed")

// Git runs git commands in Dir.
type Git struct {
	Dir    string
	Binary string
	Runner proc.Runner
}

// New returns a Git for the working tree at dir.
func New(dir string, binary string) *Git {
	if binary == "" {
		binary = DefaultBinary
	}
	return &Git{Dir: dir, Binary: binary, Runner: proc.Exec{}}
}

func (g *Git) run(ctx context.Context, args ...string) (string, error) {
	bin := g.Binary
	if bin == "" {
		bin = DefaultBinary
	}
	runner := g.Runner
	if runner == nil {
		runner = proc.Exec{}
	}

	out, err := runner.Run(ctx, g.Dir, bin, args...)
	if err != nil {
		return out, fmt.Errorf("%w: %w", ErrGit, err)
	}
	return out, nil
}

// Remotes returns the names of the configured remotes.
func (g *Git) Remotes(ctx context.Context) ([]string, error) {
	out, err := g.run(ctx, "remote")
	if err != nil {
		return nil, err
	}
	return strings.Fields(out), nil
}

// Fetch runs git fetch.
func (g *Git) Fetch(ctx context.Context) error {
	_, err := g.run(ctx, "fetch")
	return err
}

// Pull runs git pull.
func (g *Git) Pull(ctx context.Context) error {
	_, err := g.run(ctx, "pull")
	return err
}

// Move renames a tracked file.
func (g *Git) Move(ctx context.Context, from string, to string) error {
	_, err := g.run(ctx, "mv", "--", from, to)
	return err
}

// AddAll stages every change in the working tree, deletions included.
func (g *Git) AddAll(ctx context.Context) error {
	_, err := g.run(ctx, "add", "--all", ".")
	return err
}

// ConfigureAuthor sets the repository-local committer identity.
func (g *Git) ConfigureAuthor(ctx context.Context, name string, email string) error {
	if _, err := g.run(ctx, "config", "user.name", name); err != nil {
		return err
	}
	_, err := g.run(ctx, "config", "user.email", email)
	return err
}

// Dirty reports whether the index or working tree has changes.
func (g *Git) Dirty(ctx context.Context) (bool, error) {
	out, err := g.run(ctx, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) != "", nil
}

// Commit records the staged changes with message.
func (g *Git) Commit(ctx context.Context, message string) error {
	_, err := g.run(ctx, "commit", "-m", message)
	return err
}

// Push runs git push.
func (g *Git) Push(ctx context.Context) error {
	_, err := g.run(ctx, "push")
	return err
}

// Sync fetches and pulls when the repository has a remote.
func (g *Git) Sync(ctx context.Context) error {
	remotes, err := g.Remotes(ctx)
	if err != nil {
		return err
	}
	if len(remotes) == 0 {
		log.Debugf("vcs: %s has no remote, skipping pull", g.Dir)
		return nil
	}
	if err := g.Fetch(ctx); err != nil {
		return err
	}
	return g.Pull(ctx)
}

// Publish pushes when the repository has a remote.
func (g *Git) Publish(ctx context.Context) error {
	remotes, err := g.Remotes(ctx)
	if err != nil {
		return err
	}
	if len(remotes) == 0 {
		log.Debugf("vcs: %s has no remote, skipping push", g.Dir)
		return nil
	}
	return g.Push(ctx)
}
