// Package keys normalizes the contract identifiers used to join the mailing,
// dialer, and call-log tables.
package keys

import (
	"regexp"
	"strings"
)

var nonAlnum = regexp.MustCompile(`[^A-Z0-9]`)

// Normalize standardizes a key for comparison by:
//  1. Trimming whitespace
//  2. Dropping a trailing ".0" left by spreadsheet float coercion
//  3. Converting to uppercase
//  4. Stripping every non-alphanumeric character
func Normalize(raw string) string {
	s := TrimFloatSuffix(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}
	return nonAlnum.ReplaceAllString(strings.ToUpper(s), "")
}

// TrimFloatSuffix removes one trailing ".0" from a cell value.
func TrimFloatSuffix(s string) string {
	return strings.TrimSuffix(s, ".0")
}

// Set is a set of normalized keys.
type Set map[string]struct{}

// NewSet normalizes values into a Set, skipping keys that normalize to "".
func NewSet(values []string) Set {
	s := make(Set, len(values))
	for _, v := range values {
		if k := Normalize(v); k != "" {
			s[k] = struct{}{}
		}
	}
	return s
}

// Contains reports whether the normalized form of raw is in the set.
func (s Set) Contains(raw string) bool {
	k := Normalize(raw)
	if k == "" {
		return false
	}
	_, ok := s[k]
	return ok
}
