package utils

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// FormatBigInt converts a big.Int value to a human-readable string,
// considering the given number of decimals. Trailing zeros are trimmed.
// Example: amount=1234500000000000000, decimals=18 => "1.2345"
func FormatBigInt(amount *big.Int, decimals uint8) string {
	if amount == nil {
		return "0"
	}
	if decimals == 0 {
		return amount.String()
	}

	value := new(big.Rat).SetFrac(amount, pow10(decimals))
	formatted := value.FloatString(int(decimals))
	if strings.Contains(formatted, ".") {
		formatted = strings.TrimRight(formatted, "0")
		formatted = strings.TrimRight(formatted, ".")
	}
	return formatted
}

// FormatFixed renders amount/10^decimals with exactly places fractional digits, rounded half away from zero.
// Example: amount=1234567890000000000, decimals=18, places=6 => "1.234568"
func FormatFixed(amount *big.Int, decimals uint8, places int) string {
	if amount == nil {
		amount = new(big.Int)
	}
	if places < 0 {
		places = 0
	}
	return new(big.Rat).SetFrac(amount, pow10(decimals)).FloatString(places)
}

// ParseUnits converts a positive decimal amount into base units for the given decimals.
// "1.5" with 18 decimals => 1500000000000000000. Exponent notation is accepted as long
// as the result is a whole number of base units.
func ParseUnits(amount string, decimals uint8) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return nil, errors.New("empty amount")
	}
	r, ok := new(big.Rat).SetString(amount)
	if !ok || strings.Contains(amount, "/") {
		return nil, fmt.Errorf("invalid amount %q", amount)
	}
	if r.Sign() <= 0 {
		return nil, fmt.Errorf("amount %q must be greater than zero", amount)
	}
	r.Mul(r, new(big.Rat).SetInt(pow10(decimals)))
	if !r.IsInt() {
		return nil, fmt.Errorf("amount %q has more than %d fractional digits", amount, decimals)
	}
	return new(big.Int).Set(r.Num()), nil
}

// IsPositiveAmount reports whether s parses as a finite decimal greater than zero.
func IsPositiveAmount(s string) bool {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) || f <= 0 {
		return false
	}
	if strings.HasPrefix(strings.ToLower(strings.TrimLeft(s, "+")), "0x") {
		return false
	}
	_, ok := new(big.Rat).SetString(s)
	return ok
}

// SumDecimals adds decimal strings exactly. Unparsable values are skipped.
func SumDecimals(values []string, places int) string {
	total := new(big.Rat)
	for _, v := range values {
		r, ok := new(big.Rat).SetString(strings.TrimSpace(v))
		if !ok {
			continue
		}
		total.Add(total, r)
	}
	formatted := total.FloatString(places)
	if strings.Contains(formatted, ".") {
		formatted = strings.TrimRight(strings.TrimRight(formatted, "0"), ".")
	}
	return formatted
}

func pow10(decimals uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
}
