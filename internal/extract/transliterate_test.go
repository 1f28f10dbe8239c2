package extract

import (
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
)

func hasDevanagari(s string) bool {
	for _, r := range s {
		if unicode.In(r, unicode.Devanagari) {
			return true
		}
	}
	return false
}

func TestToLatin_Devanagari(t *testing.T) {
	out, rep := ToLatin("रूप वर्षा ज्वैलरी")
	assert.False(t, hasDevanagari(out))
	assert.True(t, rep.Transliterated)
	assert.Equal(t, "Roop Varsha Jvailari", out)
}

func TestToLatin_Words(t *testing.T) {
	cases := map[string]string{
		"राम":       "Ram",
		"क":         "Ka",
		"गंगा":      "Ganga",
		"फ़ैशन":     "Faishan",
		"शर्मा १२":  "Sharma 12",
		"ACME राम":  "ACME Ram",
		"  Acme  ":  "Acme",
		"Café Noir": "Café Noir",
	}
	for in, want := range cases {
		got, _ := ToLatin(in)
		assert.Equal(t, want, got, "input %q", in)
	}
}

func TestToLatin_OtherIndicScripts(t *testing.T) {
	cases := map[string]string{
		"રૂપ":     "Roop",     // Gujarati
		"কলকাতা":  "Kalakata", // Bengali
		"ਗੰਗਾ":    "Ganga",    // Gurmukhi
		"ರಾಮ":     "Ram",      // Kannada
	}
	for in, want := range cases {
		got, rep := ToLatin(in)
		assert.Equal(t, want, got, "input %q", in)
		assert.True(t, rep.Transliterated, "input %q", in)
		assert.Zero(t, rep.Dropped, "input %q", in)
	}
}

func TestToLatin_DropsOtherScripts(t *testing.T) {
	out, rep := ToLatin("Tanaka 田中 Trading")
	assert.Equal(t, "Tanaka Trading", out)
	assert.Equal(t, 2, rep.Dropped)
	assert.False(t, rep.Transliterated)
}
