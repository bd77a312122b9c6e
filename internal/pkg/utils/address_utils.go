package utils

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// IsValidAddress reports whether s is a 0x-prefixed 20-byte hex address.
// All-lowercase and all-uppercase forms are accepted as is; mixed case must match EIP-55.
func IsValidAddress(s string) bool {
	if !strings.HasPrefix(s, "0x") || !common.IsHexAddress(s) {
		return false
	}
	body := s[2:]
	if body == strings.ToLower(body) || body == strings.ToUpper(body) {
		return true
	}
	return common.HexToAddress(s).Hex() == s
}

// NormalizeAddress returns the checksummed form of a valid address.
func NormalizeAddress(s string) (string, bool) {
	if !IsValidAddress(s) {
		return "", false
	}
	return common.HexToAddress(s).Hex(), true
}
