package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"strings"
)

// keySynonyms maps lower-cased variants the models produce onto schema keys.
var keySynonyms = map[string]string{
	"company":       "company",
	"companyname":   "company",
	"company_name":  "company",
	"organization":  "company",
	"organisation":  "company",
	"name":          "name",
	"personname":    "name",
	"person_name":   "name",
	"contactname":   "name",
	"contact_name":  "name",
	"phones":        "phones",
	"phone":         "phones",
	"phonenumbers":  "phones",
	"phone_numbers": "phones",
	"mobile":        "phones",
	"email":         "email",
	"e-mail":        "email",
	"emailaddress":  "email",
	"website":       "website",
	"url":           "website",
	"web":           "website",
	"address":       "address",
	"rawtext":       "rawText",
	"raw_text":      "rawText",
	"text":          "rawText",
}

// StripCodeFences removes a ``` or ```json wrapper and any prose around the
// outermost JSON object.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.Contains(s[:nl], "{") {
			s = s[nl+1:]
		} else {
			s = strings.TrimPrefix(strings.TrimPrefix(s, "json"), "JSON")
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start >= 0 && end > start {
		s = s[start : end+1]
	}
	return s
}

// NormalizeAndSanitizeJSON
// - Renames case variants and synonyms (Company, company_name -> company)
// - Drops null values
// - Trims strings
// - Removes unknown keys
func NormalizeAndSanitizeJSON(raw []byte, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	dropped := make([]string, 0, 4)
	out := make(map[string]any, len(m))

	// exact canonical keys first so a variant never overwrites them
	for _, k := range canonicalKeys {
		if v, ok := m[k]; ok {
			out[k] = v
			delete(m, k)
		}
	}
	for k, v := range maps.Clone(m) {
		to, ok := keySynonyms[strings.ToLower(strings.TrimSpace(k))]
		if !ok {
			dropped = append(dropped, k+"(unknown)")
			continue
		}
		if _, exists := out[to]; exists {
			dropped = append(dropped, k+"(shadowed)")
			continue
		}
		out[to] = v
	}

	for k, v := range maps.Clone(out) {
		switch t := v.(type) {
		case nil:
			delete(out, k)
			dropped = append(dropped, k+"(null)")
		case string:
			out[k] = strings.TrimSpace(t)
		}
	}

	b, err := json.Marshal(out)
	if err != nil {
		return nil, dropped, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(dropped) > 0 {
		logger.Debug("llm.parse.normalize_sanitize", "dropped", dropped)
	}
	return b, dropped, nil
}
