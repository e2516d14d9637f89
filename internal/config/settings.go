// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
)

// ErrSettingMissing is matched by every SettingError.
var ErrSettingMissing = errors.New("setting missing")

// ErrInvalidSetting is returned for a setting with an unusable value.
var ErrInvalidSetting = errors.New("invalid setting")

// SettingError reports a required setting that has no value.
type SettingError struct {
	Name string
}

func (e *SettingError) Error() string {
	return fmt.Sprintf("Setting '%s' not set.", e.Name)
}

// Is makes errors.Is(err, ErrSettingMissing) hold.
func (e *SettingError) Is(target error) bool {
	return target == ErrSettingMissing
}

// Missing returns the error for the unset setting name.
func Missing(name string) error {
	return &SettingError{Name: name}
}

// CacheBackends are the accepted values of Settings.CacheBackend.
var CacheBackends = []string{"file", "sqlite", "s3"}

// Settings is everything the server and commands are constructed from.
type Settings struct {
	WikiDir string

	CacheDir     string
	CacheBackend string
	SQLitePath   string
	S3Bucket     string
	S3Prefix     string
	S3Region     string
	S3Profile    string
	S3Endpoint   string

	LockFile    string
	Convert     string
	Git         string
	EmailDomain string

	Listen     string
	IDHeader   string
	NameHeader string
	CookieName string
	CookieKey  string
}

// WithDefaults fills in derived values left empty.
func (s Settings) WithDefaults() Settings {
	if s.CacheBackend == "" {
		s.CacheBackend = "file"
	}
	if s.LockFile == "" && s.CacheDir != "" {
		s.LockFile = filepath.Join(s.CacheDir, "git-repo.lock")
	}
	if s.Listen == "" {
		s.Listen = "127.0.0.1:8080"
	}
	return s
}

// Validate checks the settings every command needs.
func (s Settings) Validate() error {
	if s.WikiDir == "" {
		return Missing("wiki")
	}
	fi, err := os.Stat(s.WikiDir)
	if err != nil {
		return fmt.Errorf("%w: wiki directory: %w", ErrInvalidSetting, err)
	}
	if !fi.IsDir() {
		return fmt.Errorf("%w: wiki %s is not a directory", ErrInvalidSetting, s.WikiDir)
	}

	return s.ValidateCache()
}

// ValidateCache checks only the cache settings.
func (s Settings) ValidateCache() error {
	if s.CacheDir == "" {
		return Missing("cache-dir")
	}
	if s.CacheBackend != "" && !slices.Contains(CacheBackends, s.CacheBackend) {
		return fmt.Errorf("%w: cache-backend must be one of %v", ErrInvalidSetting, CacheBackends)
	}
	if s.CacheBackend == "s3" && s.S3Bucket == "" {
		return Missing("s3-bucket")
	}
	return nil
}
