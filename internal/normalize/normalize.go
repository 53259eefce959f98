// Package normalize folds provider field values into comparable forms so
// observations from different sources can be checked for agreement. All
// comparisons are case-insensitive with whitespace and punctuation folded;
// names additionally tolerate initials, addresses fold common street and
// unit abbreviations, phones compare digits only.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/caretide/provdir/internal/model"
)

// foldTransformer strips diacritics: NFD decompose, drop combining marks,
// NFC recompose. "Muñoz" and "Munoz" are the same provider.
var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// honorifics and credential suffixes dropped from names before comparison.
var nameNoise = map[string]bool{
	"dr": true, "prof": true, "md": true, "do": true, "np": true,
	"pa": true, "phd": true, "dds": true, "dmd": true, "od": true,
	"jr": true, "sr": true, "ii": true, "iii": true,
}

// streetAbbrev folds common USPS street-suffix and unit variants.
var streetAbbrev = map[string]string{
	"street": "st", "avenue": "ave", "av": "ave", "boulevard": "blvd",
	"drive": "dr", "road": "rd", "lane": "ln", "court": "ct",
	"place": "pl", "parkway": "pkwy", "highway": "hwy", "square": "sq",
	"suite": "ste", "apartment": "apt", "floor": "fl", "unit": "ste",
	"north": "n", "south": "s", "east": "e", "west": "w",
}

// Fold lowercases, strips diacritics and punctuation, and collapses
// whitespace. This is the base normalization for all string fields.
func Fold(s string) string {
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	lastSpace := true
	for _, r := range strings.ToLower(folded) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case !lastSpace:
			b.WriteRune(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// Phone reduces a phone number to its digits, dropping a leading US
// country code so "+1 (555) 123-4567" equals "555.123.4567".
func Phone(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	return digits
}

// Name folds a person or practice name, dropping honorifics and
// credential suffixes.
func Name(s string) string {
	var kept []string
	for _, tok := range strings.Fields(Fold(s)) {
		if nameNoise[tok] {
			continue
		}
		kept = append(kept, tok)
	}
	return strings.Join(kept, " ")
}

// Address folds an address line, abbreviating street suffixes and unit
// designators so "123 Main Street, Suite 400" equals "123 Main St Ste 400".
func Address(s string) string {
	toks := strings.Fields(Fold(s))
	for i, tok := range toks {
		if abbr, ok := streetAbbrev[tok]; ok {
			toks[i] = abbr
		}
	}
	return strings.Join(toks, " ")
}

// Specialty folds a specialty label. "OB/GYN" and "ob gyn" agree.
func Specialty(s string) string {
	return Fold(s)
}

// Field normalizes a value according to its field key.
func Field(field, value string) string {
	switch field {
	case model.FieldPhone:
		return Phone(value)
	case model.FieldName:
		return Name(value)
	case model.FieldAddress:
		return Address(value)
	default:
		return Fold(value)
	}
}

// Equal reports whether two raw values agree for the given field.
func Equal(field, a, b string) bool {
	if field == model.FieldName {
		return namesMatch(Name(a), Name(b))
	}
	return Field(field, a) == Field(field, b)
}

// namesMatch compares normalized names token-by-token, treating a
// single-letter token as matching any token it abbreviates. "jane smith"
// and "j smith" agree; "jane smith" and "john smith" do not.
func namesMatch(a, b string) bool {
	if a == b {
		return true
	}
	at, bt := strings.Fields(a), strings.Fields(b)
	if len(at) != len(bt) {
		return false
	}
	for i := range at {
		if !tokenMatch(at[i], bt[i]) {
			return false
		}
	}
	return true
}

func tokenMatch(a, b string) bool {
	if a == b {
		return true
	}
	if len(a) == 1 {
		return strings.HasPrefix(b, a)
	}
	if len(b) == 1 {
		return strings.HasPrefix(a, b)
	}
	return false
}
