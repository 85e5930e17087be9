package transport

import (
	"fmt"
	"strings"
)

const userServer = "s.whatsapp.net"

// NormalizeRecipient turns a free-form phone number into a canonical
// recipient identity. Everything but digits is stripped before the user
// server suffix is appended.
func NormalizeRecipient(raw string) (string, error) {
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return "", fmt.Errorf("recipient %q contains no digits", raw)
	}
	return digits.String() + "@" + userServer, nil
}

// PhoneFromIdentity extracts the bare phone number from a full device
// identity of the form "<phone>:<device>@<server>".
func PhoneFromIdentity(identity string) string {
	phone := identity
	if idx := strings.IndexByte(phone, '@'); idx >= 0 {
		phone = phone[:idx]
	}
	if idx := strings.IndexByte(phone, ':'); idx >= 0 {
		phone = phone[:idx]
	}
	return phone
}
