// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package proc runs the external tools the wiki depends on (git and
// ImageMagick) behind an interface tests can replace.
package proc

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/apex/log"
)

// Runner runs name with args in dir and returns its standard output.
type Runner interface {
	Run(ctx context.Context, dir string, name string, args ...string) (string, error)
}

// Exec is the Runner backed by os/exec.
type Exec struct{}

// Run implements Runner. Standard error is folded into the returned error on
// failure.
func (Exec) Run(ctx context.Context, dir string, name string, args ...string) (string, error) {
	var stdout, stderr bytes.Buffer

	c := exec.CommandContext(ctx, name, args...)
	c.Dir = dir
	c.Stdout = &stdout
	c.Stderr = &stderr

	log.Debugf("exec: %s %s", name, strings.Join(args, " "))
	if err := c.Run(); err != nil {
		return stdout.String(), fmt.Errorf("%s %s: %w (stderr: %s)",
			name, strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// Call is one recorded invocation.
type Call struct {
	Dir  string
	Name string
	Args []string
}

// String renders the call as a command line.
func (c Call) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Recorder is a Runner that records calls instead of running them. Respond,
// when set, produces the output and error of each call.
type Recorder struct {
	Calls   []Call
	Respond func(Call) (string, error)
}

// Run implements Runner.
func (r *Recorder) Run(_ context.Context, dir string, name string, args ...string) (string, error) {
	c := Call{Dir: dir, Name: name, Args: append([]string(nil), args...)}
	r.Calls = append(r.Calls, c)
	if r.Respond != nil {
		return r.Respond(c)
	}
	return "", nil
}

// Lines returns every recorded call as a command line.
func (r *Recorder) Lines() []string {
	out := make([]string, 0, len(r.Calls))
	for _, c := range r.Calls {
		out = append(out, c.String())
	}
	return out
}
