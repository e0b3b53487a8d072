package models

import "strings"

// SanitizeKeySegment escapes the key delimiter so a segment cannot spill into
// its neighbour. IPv6 addresses are the common case: "::1" becomes "__1".
func SanitizeKeySegment(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}
