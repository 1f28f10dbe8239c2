package extract

import (
	"regexp"
	"strings"
)

var (
	reEmail = regexp.MustCompile(`(?i)[a-z0-9._%+-]+@[a-z0-9.-]+\.[a-z]{2,}`)

	// ordered from strict to loose
	phonePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\+\d{1,3}[\s.-]?\d{4,5}[\s.-]?\d{5,6}`), // +91 98295 50499
		regexp.MustCompile(`\+\d{1,3}\s?\d{10,12}`),                 // +919829550499
		regexp.MustCompile(`\d{3}[\s.-]\d{3}[\s.-]\d{4}`),           // 555-123-4567
		regexp.MustCompile(`\(?\d{3}\)?[\s.-]?\d{3}[\s.-]?\d{4}`),   // (555) 123 4567
		regexp.MustCompile(`\d{10,12}`),
	}

	reNonDigit = regexp.MustCompile(`\D`)
)

const (
	minPhoneDigits = 10
	maxPhoneDigits = 15
	maxPhones      = 3
)

// regexResult is what the last-resort pass can recover from raw text.
type regexResult struct {
	Email  string
	Phones []string
}

func regexPass(raw string) regexResult {
	return regexResult{Email: FindEmail(raw), Phones: FindPhones(raw)}
}

// FindEmail returns the first email-looking substring of s.
func FindEmail(s string) string {
	return reEmail.FindString(s)
}

// FindPhones applies the phone patterns in order and returns up to three
// candidates with 10-15 digits, de-duplicated by their digits in first-seen order.
func FindPhones(s string) []string {
	out := make([]string, 0, maxPhones)
	seen := map[string]struct{}{}
	for _, re := range phonePatterns {
		for _, m := range re.FindAllString(s, -1) {
			m = strings.TrimSpace(m)
			digits := Digits(m)
			if len(digits) < minPhoneDigits || len(digits) > maxPhoneDigits {
				continue
			}
			if _, dup := seen[digits]; dup {
				continue
			}
			seen[digits] = struct{}{}
			out = append(out, m)
			if len(out) == maxPhones {
				return out
			}
		}
	}
	return out
}

// Digits strips every non-digit character.
func Digits(s string) string {
	return reNonDigit.ReplaceAllString(s, "")
}

// mergePhones trims, drops empties and de-duplicates by digits, capped at three.
func mergePhones(lists ...[]string) []string {
	out := make([]string, 0, maxPhones)
	seen := map[string]struct{}{}
	for _, l := range lists {
		for _, p := range l {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			key := Digits(p)
			if key == "" {
				key = p
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, p)
			if len(out) == maxPhones {
				return out
			}
		}
	}
	return out
}
