package units

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"
)

var decimalPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)

// ParseDecimal converts a decimal string like "0.0001" into base units.
func ParseDecimal(decimal string, decimals int) (*big.Int, error) {
	clean := strings.TrimSpace(decimal)
	if decimals < 0 {
		return nil, fmt.Errorf("decimals must be >= 0")
	}
	if !decimalPattern.MatchString(clean) {
		return nil, fmt.Errorf("amount %q must be in decimal form like 1.23", decimal)
	}
	parts := strings.SplitN(clean, ".", 2)
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if len(fracPart) > decimals {
		return nil, fmt.Errorf("decimal precision exceeds token decimals (%d)", decimals)
	}

	fracPart = fracPart + strings.Repeat("0", decimals-len(fracPart))
	combined := strings.TrimLeft(intPart+fracPart, "0")
	if combined == "" {
		return new(big.Int), nil
	}
	out, ok := new(big.Int).SetString(combined, 10)
	if !ok {
		return nil, fmt.Errorf("invalid decimal amount %q", decimal)
	}
	return out, nil
}

// FormatUnits renders base units as a decimal string with trailing zeros
// trimmed.
func FormatUnits(amount *big.Int, decimals int) string {
	if amount == nil {
		return "0"
	}
	s := new(big.Int).Abs(amount).String()
	sign := ""
	if amount.Sign() < 0 {
		sign = "-"
	}
	if decimals <= 0 {
		return sign + s
	}
	if len(s) <= decimals {
		s = strings.Repeat("0", decimals-len(s)+1) + s
	}
	intPart := s[:len(s)-decimals]
	fracPart := strings.TrimRight(s[len(s)-decimals:], "0")
	if fracPart == "" {
		return sign + intPart
	}
	return sign + intPart + "." + fracPart
}

// FormatEther renders wei with 18 decimals.
func FormatEther(wei *big.Int) string {
	return FormatUnits(wei, 18)
}

// Ether converts a whole-or-fractional ether string into wei and panics on
// malformed input. Intended for constants and tests.
func Ether(v string) *big.Int {
	out, err := ParseDecimal(v, 18)
	if err != nil {
		panic(err)
	}
	return out
}
