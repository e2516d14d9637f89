// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package natural orders strings the way people expect file names to sort:
// case-insensitively, with runs of digits compared by numeric value, so that
// "page2.md" comes before "page10.md".
package natural

import (
	"cmp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Compare returns -1, 0 or +1. Strings that only differ in case or in leading
// zeros are ordered by their bytes so the order is total.
func Compare(a, b string) int {
	if c := compareFold(a, b); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

// Less reports whether a sorts before b.
func Less(a, b string) bool {
	return Compare(a, b) < 0
}

// Sort sorts s in place.
func Sort(s []string) {
	slices.SortFunc(s, Compare)
}

func compareFold(a, b string) int {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if isDigit(a[i]) && isDigit(b[j]) {
			si, sj := i, j
			for i < len(a) && isDigit(a[i]) {
				i++
			}
			for j < len(b) && isDigit(b[j]) {
				j++
			}
			if c := compareNumber(a[si:i], b[sj:j]); c != 0 {
				return c
			}
			continue
		}

		ra, wa := utf8.DecodeRuneInString(a[i:])
		rb, wb := utf8.DecodeRuneInString(b[j:])
		if c := cmp.Compare(unicode.ToLower(ra), unicode.ToLower(rb)); c != 0 {
			return c
		}
		i += wa
		j += wb
	}
	return cmp.Compare(len(a)-i, len(b)-j)
}

// compareNumber compares two digit runs of arbitrary length by value.
func compareNumber(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if c := cmp.Compare(len(a), len(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}
