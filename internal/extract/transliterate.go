package extract

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	devaNukta        = '़'
	devaVirama       = '्'
	devaAnusvara     = 'ं'
	devaChandrabindu = 'ँ'
	devaVisarga      = 'ः'
	devaAvagraha     = 'ऽ'
	devaDanda        = '।'
	devaDoubleDanda  = '॥'
)

var devaConsonants = map[rune]string{
	'क': "k", 'ख': "kh", 'ग': "g", 'घ': "gh", 'ङ': "n",
	'च': "ch", 'छ': "chh", 'ज': "j", 'झ': "jh", 'ञ': "n",
	'ट': "t", 'ठ': "th", 'ड': "d", 'ढ': "dh", 'ण': "n",
	'त': "t", 'थ': "th", 'द': "d", 'ध': "dh", 'न': "n",
	'प': "p", 'फ': "ph", 'ब': "b", 'भ': "bh", 'म': "m",
	'य': "y", 'र': "r", 'ल': "l", 'व': "v", 'ळ': "l",
	'श': "sh", 'ष': "sh", 'स': "s", 'ह': "h",
}

// consonant + nukta; NFC keeps these decomposed
var devaNuktaForms = map[rune]string{
	'क': "q", 'ख': "kh", 'ग': "g", 'ज': "z", 'ड': "r", 'ढ': "rh", 'फ': "f", 'य': "y",
}

var devaVowels = map[rune]string{
	'अ': "a", 'आ': "aa", 'इ': "i", 'ई': "ee", 'उ': "u", 'ऊ': "oo",
	'ऋ': "ri", 'ए': "e", 'ऐ': "ai", 'ओ': "o", 'औ': "au", 'ऍ': "e", 'ऑ': "o",
}

var devaMatras = map[rune]string{
	'ा': "a", 'ि': "i", 'ी': "i", 'ु': "u", 'ू': "oo", 'ृ': "ri",
	'े': "e", 'ै': "ai", 'ो': "o", 'ौ': "au", 'ॅ': "e", 'ॉ': "o",
}

// TransliterationReport describes what ToLatin changed.
type TransliterationReport struct {
	Transliterated bool // Devanagari was romanized
	Dropped        int  // letters of unsupported scripts removed
}

// ToLatin romanizes Devanagari text and removes letters of any other non-Latin
// script, so the result contains Latin script only. Latin input is returned
// trimmed and otherwise untouched.
func ToLatin(s string) (string, TransliterationReport) {
	var rep TransliterationReport
	s = norm.NFC.String(strings.TrimSpace(s))
	if s == "" || isLatinOnly(s) {
		return s, rep
	}

	rs := []rune(norm.NFC.String(mapIndicToDevanagari(s)))
	var b strings.Builder
	pending := false // a consonant was written and still carries its inherent "a"
	syllables := 0   // in the current Devanagari word

	flush := func() {
		if pending {
			b.WriteString("a")
			pending = false
		}
	}
	endWord := func() {
		// schwa deletion: a multi-syllable word drops its final inherent vowel
		if pending && syllables <= 1 {
			b.WriteString("a")
		}
		pending = false
		syllables = 0
	}

	for i := 0; i < len(rs); i++ {
		r := rs[i]
		if c, ok := devaConsonants[r]; ok {
			flush()
			if i+1 < len(rs) && rs[i+1] == devaNukta {
				if n, ok := devaNuktaForms[r]; ok {
					c = n
				}
				i++
			}
			b.WriteString(c)
			pending = true
			syllables++
			rep.Transliterated = true
			continue
		}
		if m, ok := devaMatras[r]; ok {
			pending = false
			b.WriteString(m)
			continue
		}
		if v, ok := devaVowels[r]; ok {
			flush()
			b.WriteString(v)
			syllables++
			rep.Transliterated = true
			continue
		}
		switch {
		case r == devaVirama:
			pending = false
		case r == devaAnusvara || r == devaChandrabindu:
			flush()
			b.WriteString("n")
		case r == devaVisarga:
			flush()
			b.WriteString("h")
		case r == devaNukta || r == devaAvagraha:
		case r >= '०' && r <= '९':
			endWord()
			b.WriteRune('0' + (r - '०'))
		case r == devaDanda || r == devaDoubleDanda:
			endWord()
			b.WriteString(".")
		case unicode.In(r, unicode.Devanagari):
			// vedic marks and the like carry no sound worth keeping
		case unicode.IsLetter(r) && !unicode.In(r, unicode.Latin):
			endWord()
			rep.Dropped++
		case unicode.IsMark(r):
		default:
			endWord()
			b.WriteRune(r)
		}
	}
	endWord()

	out := strings.Join(strings.Fields(b.String()), " ")
	if rep.Transliterated {
		out = titleWords(out)
	}
	return out, rep
}

// Indic blocks that share the Devanagari layout, 128 code points each.
var indicBlocks = []*unicode.RangeTable{
	unicode.Bengali, unicode.Gurmukhi, unicode.Gujarati, unicode.Oriya,
	unicode.Tamil, unicode.Telugu, unicode.Kannada, unicode.Malayalam,
}

const (
	devaBlockStart = 0x0900
	gurmukhiTippi  = '\u0A70' // nasal mark, sits where Devanagari has an abbreviation sign
)

// mapIndicToDevanagari moves letters of the other Brahmic blocks to the
// Devanagari code point at the same offset. The result is re-normalized by
// the caller since some mapped forms are composition exclusions.
func mapIndicToDevanagari(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x0980 || r > 0x0D7F {
			return r
		}
		if r == gurmukhiTippi {
			return devaAnusvara
		}
		for _, tbl := range indicBlocks {
			if unicode.Is(tbl, r) {
				mapped := devaBlockStart + (r & 0x7F)
				if unicode.Is(unicode.Devanagari, mapped) {
					return mapped
				}
				return r
			}
		}
		return r
	}, s)
}

func isLatinOnly(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) && !unicode.In(r, unicode.Latin) {
			return false
		}
		if unicode.IsMark(r) && !unicode.In(r, unicode.Inherited) {
			return false
		}
	}
	return true
}

// titleWords upper-cases the first letter of every lower-case word.
func titleWords(s string) string {
	words := strings.Split(s, " ")
	for i, w := range words {
		rs := []rune(w)
		if len(rs) > 0 && unicode.IsLower(rs[0]) {
			rs[0] = unicode.ToUpper(rs[0])
			words[i] = string(rs)
		}
	}
	return strings.Join(words, " ")
}
