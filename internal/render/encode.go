// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package render

import (
	"strconv"
	"strings"
)

// EncodeNonASCII replaces every byte sequence outside 7-bit ASCII with a
// numeric character reference. UTF-8 sequences of two, three and four bytes
// are decoded to their code point first. A byte that does not start a
// complete sequence is emitted as the reference for its own value.
func EncodeNonASCII(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); {
		c := s[i]
		if c < 0x80 {
			b.WriteByte(c)
			i++
			continue
		}

		var (
			n  int
			cp rune
		)
		switch {
		case c&0xE0 == 0xC0:
			n, cp = 2, rune(c&0x1F)
		case c&0xF0 == 0xE0:
			n, cp = 3, rune(c&0x0F)
		case c&0xF8 == 0xF0:
			n, cp = 4, rune(c&0x07)
		}

		if n == 0 || i+n > len(s) || !continuation(s[i+1:i+n]) {
			writeRef(&b, rune(c))
			i++
			continue
		}
		for _, cc := range []byte(s[i+1 : i+n]) {
			cp = cp<<6 | rune(cc&0x3F)
		}
		writeRef(&b, cp)
		i += n
	}
	return b.String()
}

func continuation(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i]&0xC0 != 0x80 {
			return false
		}
	}
	return true
}

func writeRef(b *strings.Builder, r rune) {
	b.WriteString("&#")
	b.WriteString(strconv.Itoa(int(r)))
	b.WriteByte(';')
}
