package contacts

import (
	"regexp"
	"strings"
)

var (
	reCountryPrefix = regexp.MustCompile(`^\+91[\s-]?`)
	reSeparators    = regexp.MustCompile(`[-\s]`)
)

// CleanPhone normalizes a phone for storage and duplicate checks: a leading
// +91 (with an optional space or dash) is dropped, then every dash and space.
func CleanPhone(p string) string {
	p = strings.TrimSpace(p)
	p = reCountryPrefix.ReplaceAllString(p, "")
	return reSeparators.ReplaceAllString(p, "")
}

// CleanPhones cleans ps, drops empties and repeats, and keeps at most three.
func CleanPhones(ps []string) []string {
	out := make([]string, 0, 3)
	seen := make(map[string]struct{}, len(ps))
	for _, p := range ps {
		c := CleanPhone(p)
		if c == "" {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
		if len(out) == 3 {
			break
		}
	}
	return out
}
