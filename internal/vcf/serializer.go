// Package vcf renders stored contacts as vCard 3.0 text.
package vcf

import (
	"strings"

	"github.com/emersion/go-vcard"
)

// Contact is the serializer's view of a stored contact.
type Contact struct {
	Name    string
	Company string
	Phones  []string
	Email   string
	Address string
	Note    string
}

var phoneTypes = []string{vcard.TypeCell, vcard.TypeWork, vcard.TypeHome}

var decompose = DecomposeAddress

// Serialize encodes every contact as one vCard, joined by "\n" in input order.
// It never fails; an address that cannot be decomposed is moved into the note.
func Serialize(contacts []Contact) string {
	records := make([]string, 0, len(contacts))
	for _, c := range contacts {
		records = append(records, encode(c))
	}
	return strings.Join(records, "\n")
}

func encode(c Contact) string {
	card := vcard.Card{}
	card.SetValue(vcard.FieldVersion, "3.0")

	name := strings.TrimSpace(c.Name)
	if name == "" {
		name = "Unknown"
	}
	card.SetValue(vcard.FieldFormattedName, name)
	card.AddName(&vcard.Name{GivenName: name})
	card.SetValue(vcard.FieldOrganization, c.Company)

	for i, p := range c.Phones {
		if i == len(phoneTypes) {
			break
		}
		if p = strings.TrimSpace(p); p == "" {
			continue
		}
		card.Add(vcard.FieldTelephone, &vcard.Field{
			Value:  p,
			Params: vcard.Params{vcard.ParamType: {phoneTypes[i]}},
		})
	}
	if c.Email != "" {
		card.Add(vcard.FieldEmail, &vcard.Field{
			Value:  c.Email,
			Params: vcard.Params{vcard.ParamType: {"INTERNET"}},
		})
	}

	note := c.Note
	if strings.TrimSpace(c.Address) != "" {
		addr, err := decompose(c.Address)
		switch {
		case err != nil:
			note = appendAddressNote(note, c.Address)
		case !addr.IsZero():
			card.AddAddress(&vcard.Address{
				Field:         &vcard.Field{Params: vcard.Params{vcard.ParamType: {vcard.TypeWork}}},
				StreetAddress: addr.Combined(),
				Locality:      addr.City,
				Region:        addr.State,
				PostalCode:    addr.Postal,
				Country:       addr.Country,
			})
		}
	}
	if note != "" {
		card.SetValue(vcard.FieldNote, note)
	}

	var b strings.Builder
	// the encoder only fails on a missing VERSION or a failing writer
	_ = vcard.NewEncoder(&b).Encode(card)
	return b.String()
}

func appendAddressNote(note, address string) string {
	if note == "" {
		return "Address: " + address
	}
	return note + "\n\nAddress: " + address
}
