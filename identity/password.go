package identity

import (
	"strings"
	"unicode"

	"github.com/pongarena/server/errcode"
	"golang.org/x/crypto/bcrypt"
)

// Password strength policy. The symbol set is fixed: clients localize the
// violation message from the error code, so the set is part of the API
// contract.
const (
	passwordMinLength = 8
	passwordSymbols   = `!@#$%^&*(),.?":{}|<>`

	bcryptCost = 12
)

// ValidatePassword checks the strength policy and returns the first
// violation, each as its own stable code.
func ValidatePassword(password string) error {
	if len(password) < passwordMinLength {
		return errcode.ErrPasswordTooShort
	}
	var hasDigit, hasLower, hasUpper bool
	for _, r := range password {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		}
	}
	if !hasDigit {
		return errcode.ErrPasswordNoDigit
	}
	if !hasLower {
		return errcode.ErrPasswordNoLower
	}
	if !hasUpper {
		return errcode.ErrPasswordNoUpper
	}
	if !strings.ContainsAny(password, passwordSymbols) {
		return errcode.ErrPasswordNoSymbol
	}
	return nil
}

// HashPassword returns the bcrypt hash to store for a password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the stored hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
