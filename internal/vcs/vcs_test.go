// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package vcs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staranto/fragwiki/internal/proc"
)

var ctx = context.Background()

func recorder(outputs map[string]string) *proc.Recorder {
	return &proc.Recorder{Respond: func(c proc.Call) (string, error) {
		return outputs[c.String()], nil
	}}
}

func TestCommands(t *testing.T) {
	rec := recorder(nil)
	g := New("/wiki", "")
	g.Runner = rec

	require.NoError(t, g.Fetch(ctx))
	require.NoError(t, g.Pull(ctx))
	require.NoError(t, g.Move(ctx, "old.md", "new.md"))
	require.NoError(t, g.AddAll(ctx))
	require.NoError(t, g.ConfigureAuthor(ctx, "Ada Lovelace", "user-7@example.org"))
	require.NoError(t, g.Commit(ctx, "fix typo"))
	require.NoError(t, g.Push(ctx))

	assert.Equal(t, []string{
		"git fetch",
		"git pull",
		"git mv -- old.md new.md",
		"git add --all .",
		"git config user.name Ada Lovelace",
		"git config user.email user-7@example.org",
		"git commit -m fix typo",
		"git push",
	}, rec.Lines())
	for _, c := range rec.Calls {
		assert.Equal(t, "/wiki", c.Dir)
	}
	// Arguments are passed through untouched, never re-split by a shell.
	assert.Equal(t, []string{"config", "user.name", "Ada Lovelace"}, rec.Calls[4].Args)
}

func TestDirty(t *testing.T) {
	g := New("/wiki", "")

	g.Runner = recorder(map[string]string{"git status --porcelain": " M a.md\n"})
	dirty, err := g.Dirty(ctx)
	require.NoError(t, err)
	assert.True(t, dirty)

	g.Runner = recorder(map[string]string{"git status --porcelain": "\n"})
	dirty, err = g.Dirty(ctx)
	require.NoError(t, err)
	assert.False(t, dirty)
}

func TestSyncAndPublish_NoRemote(t *testing.T) {
	rec := recorder(map[string]string{"git remote": ""})
	g := New("/wiki", "/usr/bin/git")
	g.Runner = rec

	require.NoError(t, g.Sync(ctx))
	require.NoError(t, g.Publish(ctx))
	assert.Equal(t, []string{"/usr/bin/git remote", "/usr/bin/git remote"}, rec.Lines())
}

func TestSyncAndPublish_WithRemote(t *testing.T) {
	rec := recorder(map[string]string{"git remote": "origin\n"})
	g := New("/wiki", "")
	g.Runner = rec

	require.NoError(t, g.Sync(ctx))
	require.NoError(t, g.Publish(ctx))
	assert.Equal(t, []string{"git remote", "git fetch", "git pull", "git remote", "git push"}, rec.Lines())
}

func TestErrorsWrapErrGit(t *testing.T) {
	boom := errors.New("exit status 1")
	g := New("/wiki", "")
	g.Runner = &proc.Recorder{Respond: func(proc.Call) (string, error) { return "", boom }}

	err := g.Push(ctx)
	assert.ErrorIs(t, err, ErrGit)
	assert.ErrorIs(t, err, boom)

	_, err = g.Dirty(ctx)
	assert.ErrorIs(t, err, ErrGit)
}
