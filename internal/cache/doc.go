// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package cache memoizes derived artifacts (rendered pages, mimetypes, image
// dimensions, scaled image paths) keyed by source freshness. An entry is
// valid while its stored time is not older than the minimum valid time the
// caller supplies, usually the mtime of the source it was derived from.
// Entries never expire by age; Clear drops everything.
package cache
