package llm

import (
	"strconv"
	"strings"
)

const fieldsBlock = `{
  "company": "company name (this is the most important field - extract the business/company name)",
  "name": "person's name (if visible, otherwise empty string)",
  "phones": ["phone1", "phone2", "phone3"] (array of up to 3 phone numbers, can be empty),
  "email": "email address (if present, otherwise empty string)",
  "website": "website URL (if present, otherwise empty string)",
  "address": "full address including street, city, state, zip code (if present, otherwise empty string)",
  "rawText": "%RAW%"
}`

// BuildVisionPrompt is sent together with the card image.
func BuildVisionPrompt() string {
	rules := []string{
		"Extract the COMPANY NAME as the primary field.",
		"If the company name or person's name is in Hindi (Devanagari script) or any other non-Latin script, TRANSLITERATE it to English using standard Romanization (e.g., \"रूप वर्षा ज्वैलरी\" -> \"Roop Varsha Jewellery\").",
		"Use common English transliteration patterns for Indian names.",
		"Extract up to 3 phone numbers in the phones array.",
		"Phone numbers can be in formats like: +91 98295 50499, 9829550499, +919829550499.",
		"If the card has multiple people, extract the company name and all phone numbers.",
		"Preserve the raw text for reference (keep original script in rawText).",
		"Return ONLY valid JSON, no markdown, no code blocks.",
	}

	var b strings.Builder
	b.WriteString("Extract contact information from this visiting card image. ")
	b.WriteString("The card may contain text in English, Hindi (Devanagari script), or both languages.\n\n")
	b.WriteString("Return a JSON object with the following structure:\n")
	b.WriteString(strings.Replace(fieldsBlock, "%RAW%", "all text extracted from the card in original format", 1))
	b.WriteString("\n\nImportant rules:\n")
	writeNumbered(&b, rules)
	b.WriteString("\nReturn the JSON object now:")
	return b.String()
}

// BuildTextParsePrompt structures text that came from a plain OCR pass.
func BuildTextParsePrompt(extracted string) string {
	rules := []string{
		"Extract the COMPANY NAME as the primary field.",
		"If the company name or person's name is in Hindi (Devanagari script), TRANSLITERATE it to English.",
		"Extract up to 3 phone numbers in the phones array.",
		"Return ONLY valid JSON, no markdown, no code blocks.",
	}

	var b strings.Builder
	b.WriteString("Parse the following text extracted from a visiting card and extract contact information.\n\n")
	b.WriteString("Extracted text:\n")
	b.WriteString(strings.TrimSpace(extracted))
	b.WriteString("\n\nReturn a JSON object with the following structure:\n")
	b.WriteString(strings.Replace(fieldsBlock, "%RAW%", "the original extracted text", 1))
	b.WriteString("\n\nImportant rules:\n")
	writeNumbered(&b, rules)
	b.WriteString("\nReturn the JSON object now:")
	return b.String()
}

func writeNumbered(b *strings.Builder, lines []string) {
	for i, l := range lines {
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(". ")
		b.WriteString(l)
		b.WriteString("\n")
	}
}
