package vcf

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerialize_Empty(t *testing.T) {
	assert.Equal(t, "", Serialize(nil))
	assert.Equal(t, "", Serialize([]Contact{}))
}

func TestSerialize_OneRecordPerContact(t *testing.T) {
	in := []Contact{
		{Name: "Roop Varsha", Company: "Roop Varsha Jewellers"},
		{Company: "Acme Traders"},
		{Name: "Globex", Company: "Globex"},
	}
	out := Serialize(in)

	assert.Equal(t, 3, strings.Count(out, "BEGIN:VCARD"))
	assert.Equal(t, 3, strings.Count(out, "END:VCARD"))

	records := strings.SplitAfter(out, "END:VCARD")
	require.Len(t, records, 4)
	for i, c := range in {
		assert.Contains(t, records[i], "ORG:"+c.Company)
		assert.Contains(t, records[i], "VERSION:3.0")
	}
	assert.Contains(t, records[1], "FN:Unknown")
}

func TestSerialize_Fields(t *testing.T) {
	out := Serialize([]Contact{{
		Name:    "R. Sharma",
		Company: "Acme",
		Phones:  []string{"9829550499", "01412370000", "", "ignored"},
		Email:   "sales@acme.in",
		Address: "12 MG Road, Pune, Maharashtra, 411001, India",
		Note:    "met at expo",
	}})

	assert.Contains(t, out, "FN:R. Sharma")
	assert.Contains(t, out, "TEL;TYPE=cell:9829550499")
	assert.Contains(t, out, "TEL;TYPE=work:01412370000")
	assert.NotContains(t, out, "ignored")
	assert.Contains(t, out, "EMAIL;TYPE=INTERNET:sales@acme.in")
	assert.Contains(t, out, "ADR;TYPE=work:")
	assert.Contains(t, out, ";Pune;Maharashtra;411001;India")
	assert.Contains(t, out, "NOTE:met at expo")
	assert.NotContains(t, out, "Address:")
}

func TestSerialize_UnsafeAddressNeverFails(t *testing.T) {
	var out string
	require.NotPanics(t, func() {
		out = Serialize([]Contact{{Company: "X", Address: ";;;\\\\"}})
	})
	assert.Contains(t, out, "BEGIN:VCARD")
	assert.NotContains(t, out, "ADR")
}

func TestSerialize_DecompositionFailureMovesAddressToNote(t *testing.T) {
	orig := decompose
	t.Cleanup(func() { decompose = orig })
	decompose = func(string) (Address, error) { return Address{}, errors.New("boom") }

	out := Serialize([]Contact{
		{Company: "A", Address: "Jaipur"},
		{Company: "B", Address: "Kota", Note: "VIP"},
	})
	records := strings.SplitAfter(out, "END:VCARD")
	require.Len(t, records, 3)

	assert.NotContains(t, out, "ADR")
	assert.Contains(t, records[0], "NOTE:Address: Jaipur")
	assert.Contains(t, records[1], "NOTE:VIP")
	assert.Contains(t, records[1], "Address: Kota")
}
