// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package media inspects and converts the image assets stored next to the
// fragments. Every probe result and every scaled derivative is memoized in
// the freshness cache, keyed by path and valid while the source file is
// unchanged.
package media
