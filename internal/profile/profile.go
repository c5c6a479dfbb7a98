// Package profile classifies customer accounts into operational segments
// from their tax ID.
package profile

import (
	"regexp"
	"strings"

	"github.com/sells-group/leadsplit/internal/keys"
	"github.com/sells-group/leadsplit/internal/model"
)

// FleetOwnerDigits is the digit count of a company tax ID (CNPJ).
const FleetOwnerDigits = 14

var nonDigit = regexp.MustCompile(`\D`)

// Digits returns the digit-only form of a tax ID cell, after dropping a
// trailing ".0" float artifact.
func Digits(raw string) string {
	return nonDigit.ReplaceAllString(keys.TrimFloatSuffix(strings.TrimSpace(raw)), "")
}

// Classify maps a raw tax ID to a segment. A 14-digit value is a fleet owner;
// anything else, including a blank cell, is independent. No checksum is verified.
func Classify(raw string) model.Segment {
	if len(Digits(raw)) == FleetOwnerDigits {
		return model.SegmentFleetOwner
	}
	return model.SegmentIndependent
}

// Annotate writes the segment of every row into column out, classifying the
// tax ID found in column taxID. It returns the number of rows with a blank
// tax ID.
func Annotate(t *model.Table, taxID, out string) int {
	blank := 0
	for i := range t.Rows {
		v := t.Get(i, taxID)
		if Digits(v) == "" {
			blank++
		}
		t.Set(i, out, string(Classify(v)))
	}
	return blank
}
