package llm

// BuildCardJSONSchema returns the JSON-Schema (draft 2020-12 subset) a normalized
// card document must satisfy, as a generic map.
func BuildCardJSONSchema() map[string]any {
	str := map[string]any{"type": "string"}
	props := map[string]any{
		"company": str,
		"name":    str,
		"phones": map[string]any{
			"type":     "array",
			"items":    map[string]any{"type": "string", "minLength": 1},
			"maxItems": MaxPhones,
		},
		"email":   str,
		"website": str,
		"address": str,
		"rawText": str,
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             []string{"company", "phones"},
	}
}
