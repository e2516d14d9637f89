// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package watch notices edits made to the wiki directory behind the server's
// back, for example a git pull run by hand, and reports them in batches.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/fsnotify/fsnotify"
)

// DefaultDelay is how long the directory must be quiet before a batch is
// reported.
const DefaultDelay = 250 * time.Millisecond

// Handler receives the distinct names that changed in one batch.
type Handler func(ctx context.Context, names []string) error

// Watcher reports changes to the files directly inside Dir. Hidden files are
// ignored, which keeps .git and editor swap files out.
type Watcher struct {
	Dir     string
	Delay   time.Duration
	Handler Handler
}

// New returns a Watcher for dir.
func New(dir string, h Handler) *Watcher {
	return &Watcher{Dir: dir, Delay: DefaultDelay, Handler: h}
}

// Relevant reports whether a change to name is worth reporting.
func Relevant(name string) bool {
	base := filepath.Base(name)
	return base != "" && !strings.HasPrefix(base, ".") && !strings.HasSuffix(base, "~")
}

// Run watches until ctx is done. started, when not nil, is closed once the
// watch is in place.
func (w *Watcher) Run(ctx context.Context, started chan<- struct{}) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.Dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.Dir, err)
	}
	log.Debugf("watching %s", w.Dir)
	if started != nil {
		close(started)
	}

	delay := w.Delay
	if delay <= 0 {
		delay = DefaultDelay
	}

	timer := time.NewTimer(delay)
	timer.Stop()
	defer timer.Stop()

	pending := map[string]struct{}{}

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Op == fsnotify.Chmod || !Relevant(ev.Name) {
				continue
			}
			pending[filepath.Base(ev.Name)] = struct{}{}
			timer.Reset(delay)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			log.WithError(err).Warn("watcher")

		case <-timer.C:
			names := make([]string, 0, len(pending))
			for name := range pending {
				names = append(names, name)
			}
			slices.Sort(names)
			clear(pending)

			log.WithField("names", names).Debug("wiki changed")
			if w.Handler != nil {
				if err := w.Handler(ctx, names); err != nil {
					log.WithError(err).Warn("change handler")
				}
			}
		}
	}
}
