// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"fmt"
	"path/filepath"
)

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendS3     = "s3"
)

// Options selects and configures a backend.
type Options struct {
	Backend    string
	Dir        string
	SQLitePath string
	S3         S3API
	S3Bucket   string
	S3Prefix   string
}

// Open builds a Cache for the configured backend. Derived files always live
// in opts.Dir.
func Open(opts Options) (*Cache, error) {
	var store Store
	switch opts.Backend {
	case "", BackendFile:
		store = NewFileStore(opts.Dir)
	case BackendSQLite:
		path := opts.SQLitePath
		if path == "" {
			path = filepath.Join(opts.Dir, "cache.db")
		}
		s, err := OpenSQLite(path)
		if err != nil {
			return nil, err
		}
		store = s
	case BackendS3:
		if opts.S3 == nil || opts.S3Bucket == "" {
			return nil, ErrS3NotConfigured
		}
		store = NewS3Store(opts.S3, opts.S3Bucket, opts.S3Prefix)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
	return New(store, opts.Dir), nil
}
