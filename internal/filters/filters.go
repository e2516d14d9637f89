// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package filters implements the --filter expressions of the listing
// commands. A row is a flat map of column name to value.
package filters

import (
	"cmp"
	"fmt"
	"os"
	"reflect"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/apex/log"
)

// EnvDelim overrides the "," separating filter expressions.
const EnvDelim = "FRAGWIKI_FILTER_DELIM"

// exprRegex splits an expression into key, operator and target.
// Operators are one of = ^ ~ < > @ or /, optionally prefixed with '!'.
var exprRegex = regexp.MustCompile(`^(.*?)(!?[=^~<>@/])(.*)$`)

// Filter is a single parsed --filter expression.
type Filter struct {
	Key     string
	Negate  bool
	Operand string
	Target  string
}

// holds applies the negation to the outcome of the operator.
func (f Filter) holds(ok bool) bool {
	return ok != f.Negate
}

// order evaluates =, < and > given the comparison of value to target.
func (f Filter) order(c int) (bool, error) {
	switch f.Operand {
	case "=":
		return f.holds(c == 0), nil
	case "<":
		return f.holds(c < 0), nil
	case ">":
		return f.holds(c > 0), nil
	}
	return false, fmt.Errorf("unsupported operand %q for an ordered value", f.Operand)
}

// BuildFilters parses a --filter value into a slice of Filter.
// Malformed expressions are logged and skipped.
func BuildFilters(spec string) []Filter {
	if spec == "" {
		return nil
	}

	delim := ","
	if d := os.Getenv(EnvDelim); d != "" {
		delim = d
	}

	//nolint:prealloc
	var out []Filter
	for _, expr := range strings.Split(spec, delim) {
		m := exprRegex.FindStringSubmatch(expr)
		if m == nil || m[1] == "" {
			log.Errorf("invalid filter: %s", expr)
			continue
		}
		out = append(out, Filter{
			Key:     m[1],
			Negate:  strings.HasPrefix(m[2], "!"),
			Operand: strings.TrimPrefix(m[2], "!"),
			Target:  m[3],
		})
	}
	return out
}

// Apply returns the rows matching every expression in spec, in their
// original order.
func Apply(rows []map[string]any, spec string) []map[string]any {
	filters := BuildFilters(spec)
	if len(filters) == 0 {
		return rows
	}
	return slices.DeleteFunc(slices.Clone(rows), func(row map[string]any) bool {
		return !Match(row, filters)
	})
}

// Match reports whether row satisfies all filters. A filter naming a column
// the row does not have is reported and ignored. A nil value matches
// nothing.
func Match(row map[string]any, filters []Filter) bool {
	for _, f := range filters {
		value, ok := row[f.Key]
		if !ok {
			log.Errorf("filter key not found: %s", f.Key)
			fmt.Fprintf(os.Stderr, "warning: filter key not found: %s\n", f.Key)
			continue
		}
		if value == nil || !matchValue(value, f) {
			return false
		}
	}
	return true
}

func matchValue(value any, f Filter) bool {
	switch v := value.(type) {
	case string:
		return checkStringOperand(v, f)
	case bool:
		return checkStringOperand(strconv.FormatBool(v), f)
	case time.Time:
		return checkTimeOperand(v, f)
	}
	if num, ok := toFloat64(value); ok {
		return checkNumericOperand(num, f)
	}
	return checkContainsOperand(value, f)
}

// checkContainsOperand evaluates '@' against slice or map values.
func checkContainsOperand(value any, f Filter) bool {
	if f.Operand != "@" {
		log.Errorf("unsupported operand for collection: %s", f.Operand)
		return false
	}

	switch v := value.(type) {
	case []string:
		return f.holds(slices.Contains(v, f.Target))
	case []any:
		return f.holds(slices.ContainsFunc(v, func(item any) bool { return item == f.Target }))
	case map[string]any:
		_, found := v[f.Target]
		return f.holds(found)
	}
	log.Errorf("unsupported type for contains filtering: %T", value)
	return false
}

// checkNumericOperand compares numerically. Supported operands are =, > and <.
func checkNumericOperand(value float64, f Filter) bool {
	tgt, err := strconv.ParseFloat(strings.TrimSpace(f.Target), 64)
	if err != nil {
		log.Errorf("invalid numeric target: %s", f.Target)
		return false
	}
	ok, err := f.order(cmp.Compare(value, tgt))
	if err != nil {
		log.Error(err.Error())
	}
	return ok
}

// timeLayouts are tried in order when parsing a time target.
var timeLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"}

// checkTimeOperand compares against a date or RFC 3339 target. A target of
// the form "-2h" is relative to now.
func checkTimeOperand(value time.Time, f Filter) bool {
	tgt, err := parseTime(strings.TrimSpace(f.Target), time.Now())
	if err != nil {
		log.Errorf("invalid time target: %s", f.Target)
		return false
	}
	ok, err := f.order(value.Compare(tgt))
	if err != nil {
		log.Error(err.Error())
	}
	return ok
}

func parseTime(s string, now time.Time) (time.Time, error) {
	if rel, ok := strings.CutPrefix(s, "-"); ok {
		d, err := time.ParseDuration(rel)
		if err != nil {
			return time.Time{}, err
		}
		return now.Add(-d), nil
	}

	var err error
	for _, layout := range timeLayouts {
		var t time.Time
		if t, err = time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}

// checkStringOperand evaluates a string comparison.
func checkStringOperand(value string, f Filter) bool {
	switch f.Operand {
	case "~":
		return f.holds(strings.EqualFold(value, f.Target))
	case "^":
		return f.holds(strings.HasPrefix(value, f.Target))
	case "@":
		return f.holds(strings.Contains(value, f.Target))
	case "/":
		re, err := regexp.Compile(f.Target)
		if err != nil {
			log.Errorf("invalid regex: %s", f.Target)
			return false
		}
		return f.holds(re.MatchString(value))
	}

	ok, err := f.order(strings.Compare(value, f.Target))
	if err != nil {
		log.Error(err.Error())
	}
	return ok
}

// toFloat64 normalizes the numeric kinds rows carry.
func toFloat64(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}
