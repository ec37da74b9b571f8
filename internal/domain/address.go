package domain

import "strings"

// Addresses are wallet-style identifiers: "0x" followed by 40 hex characters.
const addressLength = 42

// ValidateAddress checks the syntactic shape of a participant address.
func ValidateAddress(addr string) error {
	if len(addr) != addressLength || addr[0] != '0' || (addr[1] != 'x' && addr[1] != 'X') {
		return ErrInvalidAddress
	}
	for i := 2; i < len(addr); i++ {
		c := addr[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return ErrInvalidAddress
		}
	}
	return nil
}

// NormalizeAddress lowercases an address so lookups are case-insensitive.
func NormalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}
