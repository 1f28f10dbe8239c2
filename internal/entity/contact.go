package entity

import (
	"time"

	"github.com/google/uuid"
)

// Contact represents a stored card contact for data transfer between layers.
type Contact struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	Company   string     `json:"company"`
	Name      string     `json:"name"`
	Phone1    string     `json:"phone1"`
	Phone2    string     `json:"phone2"`
	Phone3    string     `json:"phone3"`
	Email     string     `json:"email"`
	Website   string     `json:"website"`
	Address   string     `json:"address"`
	Note      string     `json:"note"`
	RawText   string     `json:"raw_text"`
	Sent      bool       `json:"sent"`
	SentAt    *time.Time `json:"sent_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Phones returns the non-empty phone slots in order.
func (c *Contact) Phones() []string {
	out := make([]string, 0, 3)
	for _, p := range []string{c.Phone1, c.Phone2, c.Phone3} {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// SetPhones fills phone1..3 from ps, clearing unused slots.
func (c *Contact) SetPhones(ps []string) {
	slots := []*string{&c.Phone1, &c.Phone2, &c.Phone3}
	for i, s := range slots {
		if i < len(ps) {
			*s = ps[i]
		} else {
			*s = ""
		}
	}
}

// ContactFilter narrows a contact listing.
type ContactFilter struct {
	Search string
	Sent   *bool
	Limit  int
	Offset int
}

// Stats is the per-user dashboard summary.
type Stats struct {
	Total  int `json:"total"`
	Sent   int `json:"sent"`
	Unsent int `json:"unsent"`
	Today  int `json:"today"`
}
