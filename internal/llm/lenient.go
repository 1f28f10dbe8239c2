package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var rePhoneSplit = regexp.MustCompile(`\s*[,;/|]\s*|\n+`)

var stringFields = []string{"company", "name", "email", "website", "address", "rawText"}

// SanitizeOptionalFields coerces a normalized document into the card schema so it
// can still validate: numbers become strings, phones become a trimmed array of at
// most MaxPhones entries, and the required keys are present.
func SanitizeOptionalFields(doc []byte) ([]byte, []string, error) {
	var m map[string]any
	if err := json.Unmarshal(doc, &m); err != nil {
		return nil, nil, err
	}

	var changed []string

	for _, k := range stringFields {
		v, ok := m[k]
		if !ok {
			continue
		}
		switch t := v.(type) {
		case string:
		case float64:
			m[k] = trimFloat(t)
			changed = append(changed, k)
		case bool:
			delete(m, k)
			changed = append(changed, k)
		case []any:
			// multi-line addresses sometimes come back as arrays
			m[k] = strings.Join(toStrings(t), "\n")
			changed = append(changed, k)
		default:
			delete(m, k)
			changed = append(changed, k)
		}
	}
	if _, ok := m["company"]; !ok {
		m["company"] = ""
		changed = append(changed, "company(missing)")
	}

	phones, phonesChanged := coercePhones(m["phones"])
	m["phones"] = phones
	if phonesChanged {
		changed = append(changed, "phones")
	}

	b, err := json.Marshal(m)
	if err != nil {
		return nil, nil, err
	}
	return b, changed, nil
}

func coercePhones(v any) ([]string, bool) {
	var list []string
	changed := true
	switch t := v.(type) {
	case nil:
	case string:
		list = rePhoneSplit.Split(t, -1)
	case float64:
		list = []string{trimFloat(t)}
	case []any:
		list = toStrings(t)
		changed = false
	}

	out := make([]string, 0, MaxPhones)
	for _, p := range list {
		p = strings.TrimSpace(p)
		if p == "" {
			changed = true
			continue
		}
		if len(out) == MaxPhones {
			changed = true
			break
		}
		out = append(out, p)
	}
	return out, changed
}

func toStrings(in []any) []string {
	out := make([]string, 0, len(in))
	for _, e := range in {
		switch t := e.(type) {
		case string:
			out = append(out, t)
		case float64:
			out = append(out, trimFloat(t))
		}
	}
	return out
}

// phone numbers decoded as JSON numbers lose nothing below 2^53
func trimFloat(f float64) string {
	return fmt.Sprintf("%.0f", f)
}
