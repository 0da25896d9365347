package gosms

import (
	"errors"

	"github.com/nyaruka/phonenumbers"
)

var (
	ErrMissingNumber = errors.New("missing number")
	ErrInvalidNumber = errors.New("invalid phone number")
)

// Normalize returns the E.164 form of num. Numbers without a leading "+"
// are parsed against defaultRegion (ISO 3166 code, e.g. "SN").
func Normalize(num, defaultRegion string) (string, error) {
	if num == "" {
		return "", ErrMissingNumber
	}
	if num[0] == '+' {
		defaultRegion = ""
	}
	parsed, err := phonenumbers.Parse(num, defaultRegion)
	if err != nil || !phonenumbers.IsValidNumber(parsed) {
		return "", ErrInvalidNumber
	}
	return phonenumbers.Format(parsed, phonenumbers.E164), nil
}
