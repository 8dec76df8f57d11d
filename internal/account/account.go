// Package account validates and normalizes ledger account identifiers.
// An account is a 20-byte address rendered as "0x" followed by 40 hex
// digits. Accounts are supplied by the caller already authenticated; this
// package only checks the format.
package account

import (
	"fmt"
	"strings"
)

// hexLen is the number of hex digits in an address (20 bytes).
const hexLen = 40

// Normalize validates raw as an account identifier and returns its
// canonical form (lowercase hex). Addresses differing only in case refer
// to the same account.
func Normalize(raw string) (string, error) {
	if err := Validate(raw); err != nil {
		return "", err
	}
	return strings.ToLower(raw), nil
}

// Validate reports whether raw is a well-formed account identifier:
// "0x" followed by exactly 40 hex digits.
func Validate(raw string) error {
	if len(raw) != 2+hexLen {
		return fmt.Errorf("account %q: want %d characters, got %d", raw, 2+hexLen, len(raw))
	}
	if raw[0] != '0' || (raw[1] != 'x' && raw[1] != 'X') {
		return fmt.Errorf("account %q: missing 0x prefix", raw)
	}
	for i := 2; i < len(raw); i++ {
		if !isHexDigit(raw[i]) {
			return fmt.Errorf("account %q: invalid hex digit %q at position %d", raw, raw[i], i)
		}
	}
	return nil
}

func isHexDigit(c byte) bool {
	switch {
	case c >= '0' && c <= '9':
		return true
	case c >= 'a' && c <= 'f':
		return true
	case c >= 'A' && c <= 'F':
		return true
	}
	return false
}
