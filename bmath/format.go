// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bmath

import (
	"errors"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

var ErrInvalidDecimal = errors.New("invalid decimal")

// Parse converts a decimal string such as "9.0909" into a fixed-point value.
// At most Decimals fractional digits are accepted.
func Parse(s string) (*uint256.Int, error) {
	s = strings.TrimSpace(s)
	intPart, fracPart, hasDot := strings.Cut(s, ".")
	if intPart == "" && (!hasDot || fracPart == "") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDecimal, s)
	}
	if len(fracPart) > Decimals {
		return nil, fmt.Errorf("%w: %q has more than %d fractional digits", ErrInvalidDecimal, s, Decimals)
	}
	if intPart == "" {
		intPart = "0"
	}

	whole, err := uint256.FromDecimal(intPart)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidDecimal, s, err)
	}
	scaled, overflow := new(uint256.Int).MulOverflow(whole, BONE)
	if overflow {
		return nil, fmt.Errorf("%w: %q", ErrMulOverflow, s)
	}
	if fracPart == "" {
		return scaled, nil
	}

	frac, err := uint256.FromDecimal(fracPart + strings.Repeat("0", Decimals-len(fracPart)))
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidDecimal, s, err)
	}
	return Add(scaled, frac)
}

// MustParse is like Parse but panics on error.
func MustParse(s string) *uint256.Int {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// Format renders a fixed-point value as a decimal string without trailing
// fractional zeros.
func Format(v *uint256.Int) string {
	if v == nil {
		return "<nil>"
	}
	whole, frac := new(uint256.Int).DivMod(v, BONE, new(uint256.Int))
	if frac.IsZero() {
		return whole.Dec()
	}
	digits := frac.Dec()
	digits = strings.Repeat("0", Decimals-len(digits)) + digits
	return whole.Dec() + "." + strings.TrimRight(digits, "0")
}
