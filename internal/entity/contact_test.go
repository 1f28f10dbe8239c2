package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContactPhones(t *testing.T) {
	c := Contact{Phone1: "9829550499", Phone3: "01412345678"}
	assert.Equal(t, []string{"9829550499", "01412345678"}, c.Phones())

	c.SetPhones([]string{"1111111111"})
	assert.Equal(t, "1111111111", c.Phone1)
	assert.Empty(t, c.Phone2)
	assert.Empty(t, c.Phone3)
}
