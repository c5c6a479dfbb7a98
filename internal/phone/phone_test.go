package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize_Empty(t *testing.T) {
	for _, in := range []string{"", "   ", "55", "5555", "+55", "0", "--"} {
		got, kind := Normalize(in)
		assert.Equal(t, "", got, in)
		assert.Equal(t, KindEmpty, kind, in)
	}
}

func TestNormalize_Mobile(t *testing.T) {
	got, kind := Normalize("11987654321")
	assert.Equal(t, "+5511987654321", got)
	assert.Equal(t, KindMobile, kind)
}

func TestNormalize_MobileWithCountryCode(t *testing.T) {
	for _, in := range []string{"+55 (11) 98765-4321", "5511987654321", "555511987654321", "0055 11 98765 4321"} {
		got, kind := Normalize(in)
		assert.Equal(t, "+5511987654321", got, in)
		assert.Equal(t, KindMobile, kind, in)
	}
}

func TestNormalize_RoundTrip(t *testing.T) {
	for _, d := range []string{"11987654321", "21999990000", "55912345678", "48981112222"} {
		got, kind := Normalize("+55" + d)
		assert.Equal(t, "+55"+d, got, d)
		assert.Equal(t, KindMobile, kind, d)
	}
}

func TestNormalize_MobileCorrected(t *testing.T) {
	for in, want := range map[string]string{
		"1187654321": "+5511987654321",
		"2176543210": "+5521976543210",
		"3199998888": "+5531999998888",
		"4166665555": "+5541966665555",
	} {
		got, kind := Normalize(in)
		assert.Equal(t, want, got, in)
		assert.Equal(t, KindMobileCorrected, kind, in)
	}
}

func TestNormalize_Landline(t *testing.T) {
	for _, in := range []string{"1133334444", "(11) 2222-3333", "4155556666", "551133334444"} {
		got, kind := Normalize(in)
		assert.True(t, IsCanonical(got), in)
		assert.Equal(t, KindLandline, kind, in)
	}
	got, _ := Normalize("(11) 3333-4444")
	assert.Equal(t, "+551133334444", got)
}

func TestNormalize_LeadingZeros(t *testing.T) {
	got, kind := Normalize("011987654321")
	assert.Equal(t, "+5511987654321", got)
	assert.Equal(t, KindMobile, kind)
}

func TestNormalize_FloatArtifact(t *testing.T) {
	got, kind := Normalize("11987654321.0")
	assert.Equal(t, "+5511987654321", got)
	assert.Equal(t, KindMobile, kind)
}

func TestNormalize_Invalid(t *testing.T) {
	for _, in := range []string{
		"12345",
		"11887654321",  // 11 digits, no leading 9
		"1112345678",   // 10 digits, 3rd digit 1
		"1102345678",   // 10 digits, 3rd digit 0
		"123456789012", // 12 digits, no country code
		"abc",
		"555",
	} {
		got, kind := Normalize(in)
		assert.Equal(t, "", got, in)
		if in == "abc" {
			assert.Equal(t, KindEmpty, kind, in)
			continue
		}
		assert.Equal(t, KindInvalid, kind, in)
	}
}

func TestNormalize_CanonicalInvariant(t *testing.T) {
	inputs := []string{"11987654321", "1187654321", "1133334444", "+55 21 3333-4444", "5521999998888", "999", ""}
	for _, in := range inputs {
		got, kind := Normalize(in)
		if kind.Dialable() {
			assert.True(t, IsCanonical(got), in)
		} else {
			assert.Empty(t, got, in)
		}
	}
}

func TestKind_Label(t *testing.T) {
	assert.Equal(t, "Celular", KindMobile.Label())
	assert.Equal(t, "Celular (Corrigido)", KindMobileCorrected.Label())
	assert.Equal(t, "Fixo", KindLandline.Label())
	assert.Equal(t, "Inválido", KindInvalid.Label())
	assert.Equal(t, "Vazio", KindEmpty.Label())
}
