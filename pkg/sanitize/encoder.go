package sanitize

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// IsSafe reports whether value can be written to an XML 1.0 document
// without escaping.
func IsSafe(value string) bool {
	for i := 0; i < len(value); {
		r, size := utf8.DecodeRuneInString(value[i:])
		if r == utf8.RuneError && size == 1 {
			return false
		}
		if !isSafeRune(r) {
			return false
		}
		i += size
	}
	return true
}

// Encode returns value unchanged when it is safe. Otherwise ill-formed
// UTF-8 is replaced with U+FFFD and every rune outside the XML Char range
// is written as \uXXXX. Encode(Encode(s)) == Encode(s).
//
// The escape is not reversible: a literal backslash is never escaped, so
// input that already contains the text \u0001 encodes the same as U+0001.
func Encode(value string) string {
	if IsSafe(value) {
		return value
	}

	if !utf8.ValidString(value) {
		value, _, _ = transform.String(runes.ReplaceIllFormed(), value)
	}

	var b strings.Builder
	b.Grow(len(value) + 16)
	for _, r := range value {
		if isSafeRune(r) {
			b.WriteRune(r)
			continue
		}
		b.WriteString(`\u`)
		hex := strconv.FormatInt(int64(r), 16)
		for pad := len(hex); pad < 4; pad++ {
			b.WriteByte('0')
		}
		b.WriteString(strings.ToUpper(hex))
	}
	return b.String()
}

func isSafeRune(r rune) bool {
	switch {
	case r == '\t' || r == '\n' || r == '\r':
		return true
	case r >= 0x20 && r <= 0xD7FF:
		return true
	case r >= 0xE000 && r <= 0xFFFD:
		return true
	case r >= 0x10000 && r <= utf8.MaxRune:
		return true
	}
	return false
}
