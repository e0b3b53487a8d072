// Package email derives human-facing values from addresses.
package email

import (
	"strings"
	"unicode"
)

// DisplayName builds a name from the local part of an address, e.g.
// "ops.team+alerts@example.com" becomes "Ops Alerts". Used when an account is
// created without a name.
func DisplayName(email string) string {
	localPart := email
	if at := strings.IndexByte(email, '@'); at > 0 {
		localPart = email[:at]
	}

	parts := strings.FieldsFunc(localPart, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})

	if len(parts) == 0 {
		return "User"
	}
	if len(parts) == 1 {
		return capitalize(parts[0])
	}
	return capitalize(parts[0]) + " " + capitalize(parts[len(parts)-1])
}

func capitalize(s string) string {
	if s == "" {
		return s
	}

	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
