package vcf

import (
	"fmt"
	"regexp"
	"strings"
)

// Address is a decomposed postal address. Every part is sanitized.
type Address struct {
	Street  string
	City    string
	State   string
	Postal  string
	Country string
}

// Combined joins the non-empty parts with ", ".
func (a Address) Combined() string {
	parts := make([]string, 0, 5)
	for _, p := range []string{a.Street, a.City, a.State, a.Postal, a.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

func (a Address) IsZero() bool { return a == Address{} }

var (
	rePostal      = regexp.MustCompile(`\b\d{5,6}(?:-\d{4})?\b`)
	reEdgeDash    = regexp.MustCompile(`^\s*-\s*|\s*-\s*$`)
	reDigit       = regexp.MustCompile(`\d`)
	reDigitRun    = regexp.MustCompile(`\d{3,}`)
	reStreetWord  = regexp.MustCompile(`(?i)nagar|road|street|avenue|lane`)
	reUnsafe      = regexp.MustCompile(`[;\\]`)
	reWhitespaces = regexp.MustCompile(`\s+`)
)

var knownCountries = map[string]struct{}{
	"india": {}, "bharat": {}, "usa": {}, "u.s.a.": {}, "us": {}, "united states": {},
	"united states of america": {}, "uk": {}, "u.k.": {}, "united kingdom": {},
	"canada": {}, "australia": {}, "uae": {}, "united arab emirates": {},
	"singapore": {}, "nepal": {}, "sri lanka": {}, "bangladesh": {}, "germany": {},
	"france": {}, "japan": {}, "china": {},
}

// DecomposeAddress splits a free-form address into its parts. A newline-separated
// address is read positionally; a single-line one goes through the comma
// heuristics. It returns an error instead of panicking.
func DecomposeAddress(s string) (addr Address, err error) {
	defer func() {
		if r := recover(); r != nil {
			addr, err = Address{}, fmt.Errorf("decompose address: %v", r)
		}
	}()

	s = strings.TrimSpace(s)
	if s == "" {
		return Address{}, nil
	}

	var raw Address
	if strings.Contains(s, "\n") {
		raw = byLines(s)
	} else {
		raw = byCommas(s)
	}
	return Address{
		Street:  clean(raw.Street),
		City:    clean(raw.City),
		State:   clean(raw.State),
		Postal:  strings.TrimSpace(reUnsafe.ReplaceAllString(raw.Postal, "")),
		Country: clean(raw.Country),
	}, nil
}

func byLines(s string) Address {
	lines := splitTrim(s, "\n")
	at := func(i int) string {
		if i < len(lines) {
			return lines[i]
		}
		return ""
	}
	return Address{Street: at(0), City: at(1), State: at(2), Postal: at(3), Country: at(4)}
}

func byCommas(s string) Address {
	segs := splitTrim(s, ",")
	// a single part cannot be told apart from a street
	switch len(segs) {
	case 0:
		return Address{Street: s}
	case 1:
		return Address{Street: segs[0]}
	}
	var a Address
	a.Postal = takePostal(&segs)
	a.Country = takeCountry(&segs)
	a.State = takeState(&segs)
	a.City = takeCity(&segs)
	a.Street = strings.Join(segs, ", ")
	return a
}

// takePostal removes the first postal code found in any segment, along with a
// dash joining it to the rest of that segment ("Kota - 324005").
func takePostal(segs *[]string) string {
	for i, seg := range *segs {
		code := rePostal.FindString(seg)
		if code == "" {
			continue
		}
		rest := strings.Replace(seg, code, "", 1)
		rest = strings.TrimSpace(reEdgeDash.ReplaceAllString(rest, ""))
		if rest == "" {
			*segs = append((*segs)[:i], (*segs)[i+1:]...)
		} else {
			(*segs)[i] = rest
		}
		return code
	}
	return ""
}

func takeCountry(segs *[]string) string {
	last, ok := peek(*segs)
	if !ok {
		return ""
	}
	if _, known := knownCountries[strings.ToLower(last)]; !known {
		return ""
	}
	pop(segs)
	return last
}

func takeState(segs *[]string) string {
	last, ok := peek(*segs)
	if !ok || reDigit.MatchString(last) {
		return ""
	}
	if n := len([]rune(last)); n < 2 || n >= 30 {
		return ""
	}
	pop(segs)
	return last
}

func takeCity(segs *[]string) string {
	last, ok := peek(*segs)
	if !ok || len([]rune(last)) >= 50 {
		return ""
	}
	if reDigitRun.MatchString(last) && !reStreetWord.MatchString(last) {
		return ""
	}
	pop(segs)
	return last
}

func peek(segs []string) (string, bool) {
	if len(segs) == 0 {
		return "", false
	}
	return segs[len(segs)-1], true
}

func pop(segs *[]string) {
	*segs = (*segs)[:len(*segs)-1]
}

func splitTrim(s, sep string) []string {
	var out []string
	for _, p := range strings.Split(s, sep) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func clean(s string) string {
	s = reUnsafe.ReplaceAllString(s, " ")
	return strings.TrimSpace(reWhitespaces.ReplaceAllString(s, " "))
}
