// Package credential maps a WhatsApp number and PIN onto the login id and
// secret understood by the account service.
package credential

import "strings"

// LoginDomain is appended to the normalized number to form a login id.
const LoginDomain = "cnb.app"

type Credential struct {
	LoginID string
	Secret  string
}

// Normalize keeps only the ASCII digits of a phone number.
func Normalize(phone string) string {
	var b strings.Builder
	b.Grow(len(phone))
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ToCredential is deterministic: the same inputs always give the same
// credential, so it is used both to create and to re-authenticate an
// identity. The secret keeps the number exactly as typed.
func ToCredential(phone, pin string) Credential {
	return Credential{
		LoginID: Normalize(phone) + "@" + LoginDomain,
		Secret:  phone + pin,
	}
}
