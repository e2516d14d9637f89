// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package filters

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildFilters(t *testing.T) {
	tests := []struct {
		name  string
		spec  string
		delim string
		want  []Filter
	}{
		{name: "empty spec", spec: ""},
		{
			name: "exact",
			spec: "slug=a.md",
			want: []Filter{{Key: "slug", Operand: "=", Target: "a.md"}},
		},
		{
			name: "negated prefix",
			spec: "title!^Draft",
			want: []Filter{{Key: "title", Operand: "^", Target: "Draft", Negate: true}},
		},
		{
			name: "target keeps later operators",
			spec: "title/^a=b$",
			want: []Filter{{Key: "title", Operand: "/", Target: "^a=b$"}},
		},
		{
			name: "several",
			spec: "size>100,images@shot.png",
			want: []Filter{
				{Key: "size", Operand: ">", Target: "100"},
				{Key: "images", Operand: "@", Target: "shot.png"},
			},
		},
		{
			name:  "custom delimiter",
			spec:  "title@a,b;size<5",
			delim: ";",
			want: []Filter{
				{Key: "title", Operand: "@", Target: "a,b"},
				{Key: "size", Operand: "<", Target: "5"},
			},
		},
		{
			name: "malformed skipped",
			spec: "nooperator,=nokey,slug~A.MD",
			want: []Filter{{Key: "slug", Operand: "~", Target: "A.MD"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.delim != "" {
				t.Setenv(EnvDelim, tt.delim)
			}
			assert.Equal(t, tt.want, BuildFilters(tt.spec))
		})
	}
}

func TestCheckStringOperand(t *testing.T) {
	tests := []struct {
		value  string
		filter Filter
		want   bool
	}{
		{"intro.md", Filter{Operand: "=", Target: "intro.md"}, true},
		{"intro.md", Filter{Operand: "=", Target: "intro.md", Negate: true}, false},
		{"Intro", Filter{Operand: "~", Target: "intro"}, true},
		{"Intro", Filter{Operand: "^", Target: "In"}, true},
		{"Intro", Filter{Operand: "^", Target: "in"}, false},
		{"b", Filter{Operand: ">", Target: "a"}, true},
		{"b", Filter{Operand: "<", Target: "a"}, false},
		{"getting started", Filter{Operand: "@", Target: "start"}, true},
		{"getting started", Filter{Operand: "@", Target: "stop", Negate: true}, true},
		{"page-12.md", Filter{Operand: "/", Target: `-\d+\.md$`}, true},
		{"page.md", Filter{Operand: "/", Target: `-\d+\.md$`, Negate: true}, true},
		{"x", Filter{Operand: "/", Target: "[bad"}, false},
		{"x", Filter{Operand: "?", Target: "x"}, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, checkStringOperand(tt.value, tt.filter), "%q %+v", tt.value, tt.filter)
	}
}

func TestCheckNumericOperand(t *testing.T) {
	tests := []struct {
		value  float64
		filter Filter
		want   bool
	}{
		{42, Filter{Operand: "=", Target: "42"}, true},
		{42, Filter{Operand: "=", Target: "42", Negate: true}, false},
		{42.5, Filter{Operand: ">", Target: "42"}, true},
		{42, Filter{Operand: "<", Target: " 50 "}, true},
		{42, Filter{Operand: "=", Target: "many"}, false},
		{42, Filter{Operand: "^", Target: "4"}, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, checkNumericOperand(tt.value, tt.filter), "%v %+v", tt.value, tt.filter)
	}
}

func TestCheckTimeOperand(t *testing.T) {
	day := time.Date(2025, 3, 14, 12, 0, 0, 0, time.Local)

	assert.True(t, checkTimeOperand(day, Filter{Operand: ">", Target: "2025-03-14"}))
	assert.False(t, checkTimeOperand(day, Filter{Operand: "<", Target: "2025-03-14"}))
	assert.True(t, checkTimeOperand(day, Filter{Operand: "<", Target: "2025-03-14T13:00"}))
	assert.True(t, checkTimeOperand(time.Now(), Filter{Operand: ">", Target: "-1h"}))
	assert.False(t, checkTimeOperand(day, Filter{Operand: ">", Target: "yesterday"}))
	assert.False(t, checkTimeOperand(day, Filter{Operand: "@", Target: "2025"}))
}

func TestCheckContainsOperand(t *testing.T) {
	assert.True(t, checkContainsOperand([]string{"a.png", "b.png"}, Filter{Operand: "@", Target: "b.png"}))
	assert.False(t, checkContainsOperand([]string{"a.png"}, Filter{Operand: "@", Target: "b.png"}))
	assert.True(t, checkContainsOperand([]string{"a.png"}, Filter{Operand: "@", Target: "b.png", Negate: true}))
	assert.True(t, checkContainsOperand([]any{"x"}, Filter{Operand: "@", Target: "x"}))
	assert.True(t, checkContainsOperand(map[string]any{"k": 1}, Filter{Operand: "@", Target: "k"}))
	assert.False(t, checkContainsOperand(map[string]any{"k": 1}, Filter{Operand: "@", Target: "k", Negate: true}))
	assert.False(t, checkContainsOperand([]string{"x"}, Filter{Operand: "=", Target: "x"}))
	assert.False(t, checkContainsOperand(struct{}{}, Filter{Operand: "@", Target: "x"}))
}

func TestToFloat64(t *testing.T) {
	for _, v := range []any{int(3), int32(3), int64(3), uint(3), uint32(3), uint64(3), float32(3), 3.0} {
		got, ok := toFloat64(v)
		assert.True(t, ok, "%T", v)
		assert.InDelta(t, 3.0, got, 0.0001)
	}
	_, ok := toFloat64("3")
	assert.False(t, ok)
}

func TestApply(t *testing.T) {
	rows := []map[string]any{
		{"slug": "a.md", "size": int64(10), "images": []string{"a.png"}, "draft": false},
		{"slug": "b.md", "size": int64(200), "images": []string{}, "draft": true},
		{"slug": "c.md", "size": nil, "images": []string{"a.png"}, "draft": false},
	}

	slugs := func(rows []map[string]any) []string {
		var out []string
		for _, r := range rows {
			out = append(out, r["slug"].(string))
		}
		return out
	}

	assert.Equal(t, []string{"a.md", "b.md", "c.md"}, slugs(Apply(rows, "")))
	assert.Equal(t, []string{"b.md"}, slugs(Apply(rows, "size>100")))
	assert.Equal(t, []string{"a.md"}, slugs(Apply(rows, "size<100")))
	assert.Equal(t, []string{"a.md", "c.md"}, slugs(Apply(rows, "images@a.png")))
	assert.Equal(t, []string{"b.md"}, slugs(Apply(rows, "draft=true")))
	assert.Equal(t, []string{"a.md"}, slugs(Apply(rows, "images@a.png,slug!=c.md")))

	// Unknown keys are ignored.
	require.Len(t, Apply(rows, "nope=1"), 3)
}
