// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package proc

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExec_Run(t *testing.T) {
	dir := t.TempDir()
	out, err := Exec{}.Run(context.Background(), dir, "pwd")
	require.NoError(t, err)
	assert.Contains(t, out, dir)
}

func TestExec_RunFailureIncludesStderr(t *testing.T) {
	_, err := Exec{}.Run(context.Background(), "", "sh", "-c", "echo broken >&2; exit 3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stderr: broken")
}

func TestRecorder(t *testing.T) {
	boom := errors.New("boom")
	r := &Recorder{Respond: func(c Call) (string, error) {
		if c.Name == "fail" {
			return "", boom
		}
		return "ok", nil
	}}

	out, err := r.Run(context.Background(), "/w", "git", "status", "--porcelain")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)

	_, err = r.Run(context.Background(), "/w", "fail")
	assert.ErrorIs(t, err, boom)

	assert.Equal(t, []string{"git status --porcelain", "fail"}, r.Lines())
	assert.Equal(t, "/w", r.Calls[0].Dir)
}
