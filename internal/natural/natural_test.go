// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package natural

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestSort(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "numeric runs",
			in:   []string{"page10.md", "page2.md", "page1.md"},
			want: []string{"page1.md", "page2.md", "page10.md"},
		},
		{
			name: "case insensitive",
			in:   []string{"beta.md", "Alpha.md", "alpha-2.md", "Gamma.md"},
			want: []string{"alpha-2.md", "Alpha.md", "beta.md", "Gamma.md"},
		},
		{
			name: "leading zeros",
			in:   []string{"10.md", "009.md", "1.md"},
			want: []string{"1.md", "009.md", "10.md"},
		},
		{
			name: "huge numbers",
			in:   []string{"v123456789012345678901.md", "v99.md"},
			want: []string{"v99.md", "v123456789012345678901.md"},
		},
		{
			name: "prefix first",
			in:   []string{"foo-bar.md", "foo.md", "foo"},
			want: []string{"foo", "foo-bar.md", "foo.md"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := append([]string(nil), tt.in...)
			Sort(s)
			assert.Equal(t, tt.want, s)
		})
	}
}

func TestCompare_CaseOnlyDifference(t *testing.T) {
	assert.NotZero(t, Compare("A.md", "a.md"))
	assert.Equal(t, -Compare("A.md", "a.md"), Compare("a.md", "A.md"))
	assert.Zero(t, Compare("a.md", "a.md"))
}

func TestNaturalProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(4242)
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("numbered pages sort by number", prop.ForAll(
		func(a, b uint32) bool {
			x, y := fmt.Sprintf("page%d.md", a), fmt.Sprintf("page%d.md", b)
			return Less(x, y) == (a < b)
		},
		gen.UInt32(), gen.UInt32(),
	))

	properties.Property("antisymmetric", prop.ForAll(
		func(a, b string) bool {
			return Compare(a, b) == -Compare(b, a)
		},
		gen.AnyString(), gen.AnyString(),
	))

	properties.Property("zero only for equal strings", prop.ForAll(
		func(a, b string) bool {
			return (Compare(a, b) == 0) == (a == b)
		},
		gen.AlphaString(), gen.AlphaString(),
	))

	properties.TestingRun(t)
}
