// Package validation holds the field rules shared by registration, password
// change and the admin user/store forms.
package validation

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const passwordSymbols = `!@#$%^&*()_+-=[]{};':"\|,.<>/?`

// Name requires 20 to 60 characters.
func Name(name string) error {
	if l := len(strings.TrimSpace(name)); l < 20 || l > 60 {
		return errors.New("name must be between 20 and 60 characters")
	}
	return nil
}

// Email requires a plausible address format.
func Email(email string) error {
	if !emailPattern.MatchString(email) {
		return errors.New("email must be a valid email address")
	}
	return nil
}

// Password requires 8 to 16 characters with at least one uppercase letter
// and one symbol.
func Password(password string) error {
	if l := len(password); l < 8 || l > 16 {
		return errors.New("password must be between 8 and 16 characters")
	}
	var upper, symbol bool
	for _, r := range password {
		if unicode.IsUpper(r) {
			upper = true
		}
		if strings.ContainsRune(passwordSymbols, r) {
			symbol = true
		}
	}
	if !upper {
		return errors.New("password must contain at least one uppercase letter")
	}
	if !symbol {
		return errors.New("password must contain at least one special character")
	}
	return nil
}

// Address allows at most 400 characters.
func Address(address string) error {
	if len(address) > 400 {
		return errors.New("address must not exceed 400 characters")
	}
	return nil
}

// RatingValue requires a whole number between 1 and 5.
func RatingValue(rating int) error {
	if rating < 1 || rating > 5 {
		return errors.New("rating must be between 1 and 5")
	}
	return nil
}
