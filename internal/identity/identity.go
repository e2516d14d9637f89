// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package identity resolves who is making a request and what they may do.
// Authentication itself happens upstream; the wiki trusts either headers set
// by an authenticating proxy or a cookie signed with the wiki's key.
package identity

import (
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/zeebo/blake3"
)

// Everyone in a viewer or editor list grants access to any identified user.
const Everyone = "*"

// DefaultEmailDomain is used for commit emails when none is configured.
const DefaultEmailDomain = "noreply.localhost"

// Default header and cookie names.
const (
	DefaultIDHeader   = "X-Fragwiki-User-Id"
	DefaultNameHeader = "X-Fragwiki-User-Name"
	DefaultCookie     = "user"
)

// ErrNoKey is returned when signing without a key.
var ErrNoKey = errors.New("identity key not configured")

// Identity is an authenticated user.
type Identity struct {
	ID   string
	Name string
}

// IsZero reports whether no user is identified.
func (i Identity) IsZero() bool {
	return i.ID == ""
}

// Email is the synthetic commit email for the identity.
func (i Identity) Email(domain string) string {
	if domain == "" {
		domain = DefaultEmailDomain
	}
	return "user-" + i.ID + "@" + domain
}

// Access holds the viewer and editor lists of a wiki.
type Access struct {
	Viewers []string
	Editors []string
}

// CanView reports whether id may read the wiki.
func (a Access) CanView(id string) bool {
	return allowed(a.Viewers, id)
}

// CanEdit reports whether id may change the wiki.
func (a Access) CanEdit(id string) bool {
	return allowed(a.Editors, id)
}

func allowed(list []string, id string) bool {
	if id == "" {
		return false
	}
	return slices.Contains(list, Everyone) || slices.Contains(list, id)
}

// Resolver extracts the identity of a request.
type Resolver interface {
	Resolve(r *http.Request) (Identity, bool)
}

// HeaderResolver trusts identity headers set by a reverse proxy.
type HeaderResolver struct {
	IDHeader   string
	NameHeader string
}

// Resolve implements Resolver.
func (h HeaderResolver) Resolve(r *http.Request) (Identity, bool) {
	idHeader, nameHeader := h.IDHeader, h.NameHeader
	if idHeader == "" {
		idHeader = DefaultIDHeader
	}
	if nameHeader == "" {
		nameHeader = DefaultNameHeader
	}

	id := strings.TrimSpace(r.Header.Get(idHeader))
	if id == "" {
		return Identity{}, false
	}
	name := strings.TrimSpace(r.Header.Get(nameHeader))
	if name == "" {
		name = id
	}
	return Identity{ID: id, Name: name}, true
}

// CookieResolver trusts a cookie of the form "SIG:ID:NAME" where SIG is a
// keyed blake3 MAC of "ID:NAME".
type CookieResolver struct {
	Name string
	key  [32]byte
}

// NewCookieResolver derives the MAC key from secret.
func NewCookieResolver(name string, secret string) (*CookieResolver, error) {
	if secret == "" {
		return nil, ErrNoKey
	}
	if name == "" {
		name = DefaultCookie
	}
	c := &CookieResolver{Name: name}
	blake3.DeriveKey("fragwiki identity cookie v1", []byte(secret), c.key[:])
	return c, nil
}

func (c *CookieResolver) mac(payload string) string {
	h, _ := blake3.NewKeyed(c.key[:])
	_, _ = h.WriteString(payload)
	return hex.EncodeToString(h.Sum(nil))
}

// Sign returns the cookie value for id.
func (c *CookieResolver) Sign(id Identity) string {
	payload := id.ID + ":" + id.Name
	return c.mac(payload) + ":" + payload
}

// Resolve implements Resolver.
func (c *CookieResolver) Resolve(r *http.Request) (Identity, bool) {
	ck, err := r.Cookie(c.Name)
	if err != nil {
		return Identity{}, false
	}

	sig, payload, ok := strings.Cut(ck.Value, ":")
	if !ok || subtle.ConstantTimeCompare([]byte(sig), []byte(c.mac(payload))) != 1 {
		return Identity{}, false
	}

	id, name, _ := strings.Cut(payload, ":")
	if id == "" {
		return Identity{}, false
	}
	if name == "" {
		name = id
	}
	return Identity{ID: id, Name: name}, true
}

// Chain tries each resolver in order.
type Chain []Resolver

// Resolve implements Resolver.
func (c Chain) Resolve(r *http.Request) (Identity, bool) {
	for _, res := range c {
		if id, ok := res.Resolve(r); ok {
			return id, true
		}
	}
	return Identity{}, false
}
