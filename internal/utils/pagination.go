// Package utils provides small helpers with no domain knowledge.
package utils

import "strconv"

// AtoiDefault parses s as an int, returning def when s is empty or invalid.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// ParseLimit reads a page-size query value: def when absent or invalid,
// otherwise clamped to [1, max].
func ParseLimit(s string, def, max int) int {
	n := AtoiDefault(s, def)
	switch {
	case n < 1:
		return def
	case n > max:
		return max
	}
	return n
}
