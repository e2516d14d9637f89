// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: Apache-2.0

// Package config loads the fragwiki.yaml configuration file and the typed
// settings the rest of the program is constructed from. Nothing here is
// package-level state: the command layer loads once and passes values down.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/apex/log"
	"gopkg.in/yaml.v3"
)

// FileName is the name of the configuration file in the standard locations.
const FileName = "fragwiki.yaml"

// EnvConfig names an explicit configuration file.
const EnvConfig = "FRAGWIKI_CFG"

var (
	// ErrNoConfig is returned when no configuration file can be found.
	ErrNoConfig = errors.New("config file not found")

	// ErrKeyNotFound is returned when a key is absent from the file.
	ErrKeyNotFound = errors.New("key not found")

	// ErrWrongType is returned when a key holds a value of another type.
	ErrWrongType = errors.New("wrong value type")
)

// Type is a loaded configuration file. Keys are dotted paths into the yaml
// document. When Namespace is set, lookups try Namespace.key before key.
type Type struct {
	Source    string
	Namespace string
	Data      map[string]any
}

// Load reads the configuration file. An explicit path wins, then
// FRAGWIKI_CFG, then fragwiki.yaml under XDG_CONFIG_HOME, APPDATA and HOME.
// A Type with an empty Source is returned alongside the error so callers can
// carry on without a file.
func Load(path ...string) (Type, error) {
	p, err := configPath(path...)
	if err != nil {
		return Type{}, err
	}

	bytes, err := os.ReadFile(p)
	if err != nil {
		return Type{}, fmt.Errorf("failed to read config file: %w", err)
	}

	var data map[string]any
	if err := yaml.Unmarshal(bytes, &data); err != nil {
		return Type{}, fmt.Errorf("failed to parse %s: %w", p, err)
	}

	log.Debugf("using config file: %s", p)
	return Type{Source: p, Data: data}, nil
}

func configPath(explicit ...string) (string, error) {
	want := ""
	if len(explicit) > 0 && explicit[0] != "" {
		want = explicit[0]
	} else if env := os.Getenv(EnvConfig); env != "" {
		want = env
	}

	if want != "" {
		fi, err := os.Stat(want)
		if err != nil {
			return "", fmt.Errorf("%w: %s", ErrNoConfig, want)
		}
		if fi.IsDir() {
			return "", fmt.Errorf("%w: %s points to a directory", ErrNoConfig, want)
		}
		return want, nil
	}

	for _, dir := range []string{
		os.Getenv("XDG_CONFIG_HOME"),
		os.Getenv("APPDATA"),
		os.Getenv("HOME"),
	} {
		if dir == "" {
			continue
		}
		file := filepath.Join(dir, FileName)
		if fi, err := os.Stat(file); err == nil && !fi.IsDir() {
			return file, nil
		}
	}
	return "", fmt.Errorf("%w in standard locations", ErrNoConfig)
}

// WithNamespace returns a copy of c that prefers keys under ns.
func (c Type) WithNamespace(ns string) Type {
	c.Namespace = ns
	return c
}

// Get returns the raw value at key.
func (c Type) Get(key string) (any, error) {
	candidates := []string{key}
	if c.Namespace != "" {
		candidates = []string{c.Namespace + "." + key, key}
	}

	for _, k := range candidates {
		if v, ok := lookup(c.Data, k); ok {
			return v, nil
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrKeyNotFound, candidates)
}

func lookup(data map[string]any, key string) (any, bool) {
	var current any = data
	for _, part := range strings.Split(key, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		if current, ok = m[part]; !ok {
			return nil, false
		}
	}
	return current, true
}

// GetString returns the string at key, or the default when the key is
// absent.
func (c Type) GetString(key string, defaultValue ...string) (string, error) {
	val, err := c.Get(key)
	if err != nil {
		if len(defaultValue) == 1 {
			return defaultValue[0], nil
		}
		return "", err
	}

	s, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s is not a string", ErrWrongType, key)
	}
	return s, nil
}

// GetInt returns the integer at key, or the default when the key is absent.
func (c Type) GetInt(key string, defaultValue ...int) (int, error) {
	val, err := c.Get(key)
	if err != nil {
		if len(defaultValue) == 1 {
			return defaultValue[0], nil
		}
		return 0, err
	}

	// YAML numbers may be unmarshaled as int/float64 depending on content.
	switch v := val.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("%w: %s is not an int", ErrWrongType, key)
	}
}

// GetBool returns the boolean at key, or the default when the key is absent.
func (c Type) GetBool(key string, defaultValue ...bool) (bool, error) {
	val, err := c.Get(key)
	if err != nil {
		if len(defaultValue) == 1 {
			return defaultValue[0], nil
		}
		return false, err
	}

	b, ok := val.(bool)
	if !ok {
		return false, fmt.Errorf("%w: %s is not a bool", ErrWrongType, key)
	}
	return b, nil
}

// GetStringSlice returns the list at key. A single string is returned as a
// one element list.
func (c Type) GetStringSlice(key string) ([]string, error) {
	val, err := c.Get(key)
	if err != nil {
		return nil, err
	}

	switch v := val.(type) {
	case string:
		return []string{v}, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s is not a list", ErrWrongType, key)
	}
}
