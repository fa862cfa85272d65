// Package phone normalizes Kenyan MSISDNs for M-Pesa. Daraja expects the
// 2547XXXXXXXX / 2541XXXXXXXX form with no plus sign.
package phone

import (
	"errors"
	"regexp"
	"strings"
)

var msisdnPattern = regexp.MustCompile(`^254[17][0-9]{8}$`)

var ErrInvalid = errors.New("invalid Kenyan phone number")

// Normalize converts common input shapes (07XX..., +2547XX..., 2547XX...)
// to the canonical 254 form, or returns ErrInvalid.
func Normalize(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "-", "")
	s = strings.TrimPrefix(s, "+")
	if len(s) == 10 && s[0] == '0' {
		s = "254" + s[1:]
	}
	if !msisdnPattern.MatchString(s) {
		return "", ErrInvalid
	}
	return s, nil
}

// Valid reports whether raw is an acceptable M-Pesa number in any of the
// shapes Normalize accepts.
func Valid(raw string) bool {
	_, err := Normalize(raw)
	return err == nil
}
