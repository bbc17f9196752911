// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bmath

import "github.com/holiman/uint256"

// Pow raises base to a fixed-point exponent. The whole part of the exponent
// is computed exactly with Powi and the fractional remainder with PowApprox.
// base must lie in [MinPowBase, MaxPowBase].
func Pow(base, exp *uint256.Int) (*uint256.Int, error) {
	if base.Lt(MinPowBase) {
		return nil, ErrPowBaseTooLow
	}
	if base.Gt(MaxPowBase) {
		return nil, ErrPowBaseTooHigh
	}

	whole := Floor(exp)
	remain := new(uint256.Int).Sub(exp, whole)

	wholePow, err := Powi(base, ToI(whole))
	if err != nil {
		return nil, err
	}
	if remain.IsZero() {
		return wholePow, nil
	}

	partialResult, err := PowApprox(base, remain, PowPrecision)
	if err != nil {
		return nil, err
	}
	return Mul(wholePow, partialResult)
}

// PowApprox evaluates base^exp for a fractional exp with the binomial series
//
//	(1 + x)^a = 1 + a*x/1! + a(a-1)*x^2/2! + ...
//
// where x = base - 1, summing terms until one drops below precision.
func PowApprox(base, exp, precision *uint256.Int) (*uint256.Int, error) {
	var (
		x, xneg  = SubSign(base, BONE)
		term     = One()
		sum      = One()
		negative bool
	)

	for i := uint64(1); term.Cmp(precision) >= 0; i++ {
		bigK := new(uint256.Int).Mul(uint256.NewInt(i), BONE)
		prevK := new(uint256.Int).Sub(bigK, BONE)
		c, cneg := SubSign(exp, prevK)

		cx, err := Mul(c, x)
		if err != nil {
			return nil, err
		}
		if term, err = Mul(term, cx); err != nil {
			return nil, err
		}
		if term, err = Div(term, bigK); err != nil {
			return nil, err
		}
		if term.IsZero() {
			break
		}

		if xneg {
			negative = !negative
		}
		if cneg {
			negative = !negative
		}
		if negative {
			if sum, err = Sub(sum, term); err != nil {
				return nil, err
			}
		} else {
			if sum, err = Add(sum, term); err != nil {
				return nil, err
			}
		}
	}
	return sum, nil
}
