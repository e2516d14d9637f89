// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package gate is the readers/writer lock around the wiki's git working
// tree. It is a flock(2) on a single well known file, so it excludes other
// processes as well as other goroutines.
package gate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/apex/log"
	"golang.org/x/sys/unix"
)

var (
	// ErrLockUnavailable is returned when the lock file cannot be opened or
	// locked. No operation may proceed without the lock.
	ErrLockUnavailable = errors.New("lock unavailable")

	// ErrWouldBlock is returned by TryAcquire when another holder conflicts.
	ErrWouldBlock = errors.New("lock would block")
)

// Mode is the kind of acquisition.
type Mode int

const (
	// Shared may be held by many readers at once.
	Shared Mode = iota
	// Exclusive excludes every other holder.
	Exclusive
)

func (m Mode) String() string {
	if m == Exclusive {
		return "exclusive"
	}
	return "shared"
}

func (m Mode) how() int {
	if m == Exclusive {
		return unix.LOCK_EX
	}
	return unix.LOCK_SH
}

// Gate guards one lock file.
type Gate struct {
	path  string
	flock func(fd int, how int) error
}

// New returns a Gate over the lock file at path. The file is created on first
// acquisition.
func New(path string) *Gate {
	return &Gate{path: path, flock: unix.Flock}
}

// Path returns the lock file path.
func (g *Gate) Path() string {
	return g.path
}

// Acquire blocks until the lock is held in mode. Every acquisition opens its
// own descriptor.
func (g *Gate) Acquire(mode Mode) (*Handle, error) {
	return g.acquire(mode, 0)
}

// TryAcquire is Acquire without waiting. It returns ErrWouldBlock if the lock
// is held in a conflicting mode.
func (g *Gate) TryAcquire(mode Mode) (*Handle, error) {
	return g.acquire(mode, unix.LOCK_NB)
}

// With runs fn while holding the lock in mode.
func (g *Gate) With(mode Mode, fn func() error) (err error) {
	h, err := g.Acquire(mode)
	if err != nil {
		return err
	}
	defer func() {
		if rerr := h.Release(); rerr != nil {
			log.WithError(rerr).Warn("failed to release lock")
			if err == nil {
				err = rerr
			}
		}
	}()
	return fn()
}

func (g *Gate) acquire(mode Mode, flags int) (*Handle, error) {
	if err := os.MkdirAll(filepath.Dir(g.path), 0o755); err != nil { //nolint:mnd
		return nil, fmt.Errorf("%w: %v", ErrLockUnavailable, err)
	}

	f, err := os.OpenFile(g.path, os.O_RDWR|os.O_CREATE, 0o644) //nolint:mnd
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLockUnavailable, err)
	}

	if err := flockRetryEINTR(g.flock, int(f.Fd()), mode.how()|flags); err != nil {
		_ = f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, ErrWouldBlock
		}
		return nil, fmt.Errorf("%w: %v", ErrLockUnavailable, err)
	}

	log.Debugf("acquired %s lock on %s", mode, g.path)
	return &Handle{file: f, mode: mode, flock: g.flock}, nil
}

// Handle is a held lock.
type Handle struct {
	mu    sync.Mutex
	file  *os.File
	mode  Mode
	flock func(fd int, how int) error
}

// Mode returns the mode the handle was acquired in.
func (h *Handle) Mode() Mode {
	return h.mode
}

// Release unlocks and closes the descriptor. It is safe to call more than
// once.
func (h *Handle) Release() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.file == nil {
		return nil
	}

	unlockErr := flockRetryEINTR(h.flock, int(h.file.Fd()), unix.LOCK_UN)
	closeErr := h.file.Close()
	h.file = nil

	if unlockErr != nil {
		unlockErr = fmt.Errorf("unlocking: %w", unlockErr)
	}
	if closeErr != nil {
		closeErr = fmt.Errorf("closing lock fd: %w", closeErr)
	}
	return errors.Join(unlockErr, closeErr)
}

// flockRetryEINTR retries flock when a signal interrupts it.
func flockRetryEINTR(flock func(fd int, how int) error, fd int, how int) error {
	const maxRetries = 10000

	var err error
	for range maxRetries {
		err = flock(fd, how)
		if err == nil || !errors.Is(err, unix.EINTR) {
			return err
		}
	}
	return err
}
