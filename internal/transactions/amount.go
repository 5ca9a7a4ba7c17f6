// amount.go - Decimal amount conversion to token base units.
//
// Rounding policy: the amount is scaled by 10^decimals and any remaining fractional
// digits are dropped, rounding half-up on the first dropped digit ("0.0000005" with
// 6 decimals becomes 1, "0.0000004" becomes 0). This is the only lossy step in a build.

package transactions

import (
	"strings"

	"github.com/holiman/uint256"
)

// ParseAmount converts a non-negative decimal string into base units.
func ParseAmount(s string, decimals uint8) (*uint256.Int, error) {
	in := strings.TrimSpace(s)
	if in == "" {
		return nil, &AmountParseError{Input: s, Reason: "empty amount"}
	}

	intPart, fracPart, hasDot := strings.Cut(in, ".")
	if hasDot && strings.Contains(fracPart, ".") {
		return nil, &AmountParseError{Input: s, Reason: "more than one decimal point"}
	}
	if intPart == "" && fracPart == "" {
		return nil, &AmountParseError{Input: s, Reason: "no digits"}
	}
	if !allDigits(intPart) || !allDigits(fracPart) {
		return nil, &AmountParseError{Input: s, Reason: "only unsigned decimal digits are allowed"}
	}

	d := int(decimals)
	roundUp := false
	if len(fracPart) > d {
		roundUp = fracPart[d] >= '5'
		fracPart = fracPart[:d]
	} else {
		fracPart += strings.Repeat("0", d-len(fracPart))
	}

	digits := strings.TrimLeft(intPart+fracPart, "0")
	if digits == "" {
		digits = "0"
	}
	v, err := uint256.FromDecimal(digits)
	if err != nil {
		return nil, &AmountParseError{Input: s, Reason: "exceeds 256 bits"}
	}
	if roundUp {
		if _, overflow := v.AddOverflow(v, uint256.NewInt(1)); overflow {
			return nil, &AmountParseError{Input: s, Reason: "exceeds 256 bits"}
		}
	}
	return v, nil
}

// FormatAmount renders base units as a decimal string with trailing zeros trimmed.
func FormatAmount(v *uint256.Int, decimals uint8) string {
	digits := v.Dec()
	d := int(decimals)
	if d == 0 {
		return digits
	}
	if len(digits) <= d {
		digits = strings.Repeat("0", d-len(digits)+1) + digits
	}
	intPart, frac := digits[:len(digits)-d], strings.TrimRight(digits[len(digits)-d:], "0")
	if frac == "" {
		return intPart
	}
	return intPart + "." + frac
}

func allDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
