package codegen

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/mr-tron/base58"
)

const ReferralCodeLength = 8

// random returns n base58 characters drawn from crypto/rand.
func random(n int) (string, error) {
	var out strings.Builder
	buf := make([]byte, n)
	for out.Len() < n {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		out.WriteString(base58.Encode(buf))
	}
	return out.String()[:n], nil
}

// ReferralCode returns an 8 character upper case code.
func ReferralCode() (string, error) {
	s, err := random(ReferralCodeLength)
	if err != nil {
		return "", err
	}
	return strings.ToUpper(s), nil
}

// EnrollmentNumber returns a human readable donor number such as ENR-2026-7HQ2KX9A.
func EnrollmentNumber(at time.Time) (string, error) {
	s, err := random(8)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ENR-%d-%s", at.Year(), strings.ToUpper(s)), nil
}
