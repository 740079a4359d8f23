package sanitize

import (
	"testing"
	"unicode"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestEncodeLeavesSafeValuesUntouched(t *testing.T) {
	for _, value := range []string{
		"",
		"www.example.com",
		"line one\nline two\r\n\tindented",
		"Zürich – 東京 🚀",
	} {
		assert.True(t, IsSafe(value), value)
		assert.Equal(t, value, Encode(value))
	}
}

func TestEncodeEscapesUnsafeRunes(t *testing.T) {
	assert.Equal(t, `bell\u0007`, Encode("bell\a"))
	assert.Equal(t, `\u0000null`, Encode("\x00null"))
	assert.Equal(t, `a\u001Bb`, Encode("a\x1bb"))
	assert.Equal(t, `\uFFFE`, Encode("\uFFFE"))
	assert.Equal(t, "bad\uFFFDbyte", Encode("bad\xffbyte"))
}

func TestEncodeDoesNotEscapeBackslash(t *testing.T) {
	assert.Equal(t, `\u0001`, Encode(`\u0001`))
	assert.Equal(t, Encode("\x01"), Encode(`\u0001`))
}

func TestEncodeIsIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		value := string(rapid.SliceOf(rapid.Byte()).Draw(t, "bytes"))

		once := Encode(value)
		if Encode(once) != once {
			t.Fatalf("Encode not idempotent for %q: %q then %q", value, once, Encode(once))
		}
		if !IsSafe(once) {
			t.Fatalf("Encode(%q) = %q is not safe", value, once)
		}
		if !utf8.ValidString(once) {
			t.Fatalf("Encode(%q) = %q is not valid UTF-8", value, once)
		}
	})
}

func TestEncodeIdentityOnSafeStrings(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		value := rapid.StringOf(rapid.RuneFrom(nil, unicode.L, unicode.N, unicode.P, unicode.Zs)).Draw(t, "value")

		if !IsSafe(value) {
			t.Fatalf("expected %q to be safe", value)
		}
		if Encode(value) != value {
			t.Fatalf("Encode changed safe value %q to %q", value, Encode(value))
		}
	})
}
