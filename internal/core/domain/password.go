package domain

import (
	"fmt"
	"unicode"
)

const minPasswordLength = 8

// CheckPassword validates a candidate password against the strength policy:
// at least 8 characters with an upper-case letter, a lower-case letter, a
// digit and a symbol. Returns nil when the password is acceptable, otherwise
// an error wrapping ErrWeakPassword with a client-facing message.
func CheckPassword(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("%w: must be at least %d characters", ErrWeakPassword, minPasswordLength)
	}

	var upper, lower, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		default:
			symbol = true
		}
	}

	switch {
	case !upper:
		return fmt.Errorf("%w: must contain an upper-case letter", ErrWeakPassword)
	case !lower:
		return fmt.Errorf("%w: must contain a lower-case letter", ErrWeakPassword)
	case !digit:
		return fmt.Errorf("%w: must contain a digit", ErrWeakPassword)
	case !symbol:
		return fmt.Errorf("%w: must contain a symbol", ErrWeakPassword)
	}
	return nil
}
