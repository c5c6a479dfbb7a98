// Package phone normalizes raw Brazilian phone cells into the dialable
// "+55" + DDD + number form consumed by the dialer.
package phone

import (
	"regexp"
	"strings"

	"github.com/sells-group/leadsplit/internal/keys"
)

// Kind classifies a raw phone value for reporting.
type Kind string

const (
	KindMobile          Kind = "MOBILE"
	KindMobileCorrected Kind = "MOBILE_CORRECTED"
	KindLandline        Kind = "LANDLINE"
	KindInvalid         Kind = "INVALID"
	KindEmpty           Kind = "EMPTY"
)

// Kinds lists every kind in report order.
var Kinds = []Kind{KindMobile, KindMobileCorrected, KindLandline, KindInvalid, KindEmpty}

var labels = map[Kind]string{
	KindMobile:          "Celular",
	KindMobileCorrected: "Celular (Corrigido)",
	KindLandline:        "Fixo",
	KindInvalid:         "Inválido",
	KindEmpty:           "Vazio",
}

// Label returns the operations-facing label written into output sheets.
func (k Kind) Label() string {
	return labels[k]
}

// Dialable reports whether the kind yields a canonical number.
func (k Kind) Dialable() bool {
	return k == KindMobile || k == KindMobileCorrected || k == KindLandline
}

// CountryCode is the prefix of every canonical number.
const CountryCode = "55"

var (
	nonDigit  = regexp.MustCompile(`\D`)
	canonical = regexp.MustCompile(`^\+55\d{10,11}$`)
)

// IsCanonical reports whether s is "+55" followed by 10 or 11 digits.
func IsCanonical(s string) bool {
	return canonical.MatchString(s)
}

// Normalize converts a raw cell to a canonical number. It returns "" with
// KindEmpty or KindInvalid when the value is not dialable.
//
// Rules, applied to the digits of the value:
//   - leading zeros (trunk/carrier prefixes) are dropped
//   - a value made only of "55" prefixes is empty
//   - "55" is stripped while more than 11 digits remain
//   - 11 digits with a 9 after the DDD is a mobile
//   - 10 digits with 6-9 after the DDD is a mobile missing its 9; the 9 is inserted
//   - 10 digits with 2-5 after the DDD is a landline
//   - anything else is invalid
func Normalize(raw string) (string, Kind) {
	s := keys.TrimFloatSuffix(strings.TrimSpace(raw))
	if s == "" {
		return "", KindEmpty
	}

	digits := strings.TrimLeft(nonDigit.ReplaceAllString(s, ""), "0")
	if digits == "" || onlyCountryCode(digits) {
		return "", KindEmpty
	}

	for strings.HasPrefix(digits, CountryCode) && len(digits) > 11 {
		digits = digits[len(CountryCode):]
	}

	switch {
	case len(digits) == 11 && digits[2] == '9':
		return "+" + CountryCode + digits, KindMobile
	case len(digits) == 10 && digits[2] >= '6':
		return "+" + CountryCode + digits[:2] + "9" + digits[2:], KindMobileCorrected
	case len(digits) == 10 && digits[2] >= '2' && digits[2] <= '5':
		return "+" + CountryCode + digits, KindLandline
	default:
		return "", KindInvalid
	}
}

func onlyCountryCode(digits string) bool {
	for strings.HasPrefix(digits, CountryCode) {
		digits = digits[len(CountryCode):]
	}
	return digits == ""
}
