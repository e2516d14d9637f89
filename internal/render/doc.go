// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package render turns the aggregated markdown document into the HTML of the
// home page. Rendering is goldmark with GFM and typographic punctuation,
// followed by a pass over the parsed HTML tree that rewrites images and turns
// every level one heading into a permalink plus an edit link for the
// fragment it came from.
package render
