// Package priority turns free-text aging/priority labels into ordinal scores.
// Lower scores are more urgent.
package priority

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

const (
	// Backlog is the score of any label containing "BACKLOG". It exceeds every
	// parsed score, so backlog accounts are the first moved when re-leveling.
	Backlog = math.MaxInt32

	// Default is the score of a label with no digits.
	Default = 50

	// maxParsed caps parsed numbers so they always rank ahead of Backlog.
	maxParsed = Backlog - 1
)

var firstDigits = regexp.MustCompile(`\d+`)

// Score returns the ordinal weight of a raw priority label.
func Score(raw string) int {
	label := strings.ToUpper(raw)
	if strings.Contains(label, "BACKLOG") {
		return Backlog
	}

	m := firstDigits.FindString(label)
	if m == "" {
		return Default
	}
	n, err := strconv.ParseInt(m, 10, 64)
	if err != nil || n > maxParsed {
		return maxParsed
	}
	return int(n)
}

// Scores maps Score over a column of labels.
func Scores(labels []string) []int {
	out := make([]int, len(labels))
	for i, l := range labels {
		out[i] = Score(l)
	}
	return out
}
