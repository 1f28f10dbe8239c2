package ocr

import (
	"regexp"
	"strings"
)

var (
	reCRLF       = regexp.MustCompile(`\r\n?`)
	reTabs       = regexp.MustCompile(`\t+`)
	reMultiSpace = regexp.MustCompile(` {2,}`)
	reMultiBlank = regexp.MustCompile(`\n{3,}`)
	reBoxNoise   = regexp.MustCompile(`(?m)^\s*[_\-=|]{3,}\s*$`)
	// "Ph:" / "Mob." / "Tel -" prefixes glued to numbers by OCR
	reGluedLabel = regexp.MustCompile(`(?i)\b(ph|mob|tel|cell|m)[.:\-]+(\+?\d)`)
)

// Normalize collapses noisy whitespace and separates contact labels from the
// values OCR glued them to. Keeps line breaks; more than one blank line
// collapses into one.
func Normalize(s string) string {
	if s == "" {
		return s
	}
	s = reCRLF.ReplaceAllString(s, "\n")
	s = reTabs.ReplaceAllString(s, " ")
	s = reMultiSpace.ReplaceAllString(s, " ")
	s = reMultiBlank.ReplaceAllString(s, "\n\n")
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	s = strings.Join(lines, "\n")
	s = reGluedLabel.ReplaceAllString(s, "$1: $2")
	return strings.TrimSpace(s)
}
