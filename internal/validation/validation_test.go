package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestName(t *testing.T) {
	assert.Error(t, Name("Short Name"))
	assert.Error(t, Name(strings.Repeat("a", 61)))
	assert.NoError(t, Name("Johnathan Storefront Example"))
	assert.NoError(t, Name(strings.Repeat("a", 20)))
	assert.NoError(t, Name(strings.Repeat("a", 60)))
}

func TestEmail(t *testing.T) {
	assert.NoError(t, Email("user@example.com"))
	assert.Error(t, Email("not-an-email"))
	assert.Error(t, Email("missing@domain"))
	assert.Error(t, Email("spaces in@example.com"))
	assert.Error(t, Email(""))
}

func TestPassword(t *testing.T) {
	cases := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"valid", "Password1!", false},
		{"valid at min length", "Abcdef!1", false},
		{"valid at max length", "Abcdefghijklmn!1", false},
		{"too short", "Abc!567", true},
		{"too long", "Abcdefghijklmno!1", true},
		{"no uppercase", "password1!", true},
		{"no symbol", "Password12", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Password(tc.password)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAddress(t *testing.T) {
	assert.NoError(t, Address(""))
	assert.NoError(t, Address(strings.Repeat("a", 400)))
	assert.Error(t, Address(strings.Repeat("a", 401)))
}

func TestRatingValue(t *testing.T) {
	for r := 1; r <= 5; r++ {
		assert.NoError(t, RatingValue(r))
	}
	assert.Error(t, RatingValue(0))
	assert.Error(t, RatingValue(6))
	assert.Error(t, RatingValue(-1))
}
