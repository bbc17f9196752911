// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package bmath implements the deterministic fixed-point arithmetic used by
// weighted pools. Values are unsigned 256-bit integers scaled by BONE (1e10).
// Every operation returns a fresh value and traps on overflow, underflow,
// division by zero and out-of-domain exponentiation instead of wrapping.
package bmath

import (
	"errors"

	"github.com/holiman/uint256"
)

// ErrArithmetic is the kind shared by every trap raised in this package.
var ErrArithmetic = errors.New("arithmetic error")

var (
	ErrAddOverflow    = &mathError{"add overflow"}
	ErrSubUnderflow   = &mathError{"sub underflow"}
	ErrMulOverflow    = &mathError{"mul overflow"}
	ErrDivZero        = &mathError{"div by zero"}
	ErrDivInternal    = &mathError{"div internal overflow"}
	ErrPowBaseTooLow  = &mathError{"pow base too low"}
	ErrPowBaseTooHigh = &mathError{"pow base too high"}
)

type mathError struct {
	msg string
}

func (e *mathError) Error() string { return e.msg }

func (e *mathError) Unwrap() error { return ErrArithmetic }

// ToI truncates a to its integer part, unscaled.
func ToI(a *uint256.Int) *uint256.Int {
	return new(uint256.Int).Div(a, BONE)
}

// Floor truncates a to its integer part, keeping the scale.
func Floor(a *uint256.Int) *uint256.Int {
	return new(uint256.Int).Mul(ToI(a), BONE)
}

// Add returns a + b.
func Add(a, b *uint256.Int) (*uint256.Int, error) {
	c, overflow := new(uint256.Int).AddOverflow(a, b)
	if overflow {
		return nil, ErrAddOverflow
	}
	return c, nil
}

// Sub returns a - b and fails when b > a.
func Sub(a, b *uint256.Int) (*uint256.Int, error) {
	c, negative := SubSign(a, b)
	if negative {
		return nil, ErrSubUnderflow
	}
	return c, nil
}

// SubSign returns |a - b| and whether the difference is negative.
func SubSign(a, b *uint256.Int) (*uint256.Int, bool) {
	if a.Cmp(b) >= 0 {
		return new(uint256.Int).Sub(a, b), false
	}
	return new(uint256.Int).Sub(b, a), true
}

// Mul returns a * b rounded to the nearest unit.
func Mul(a, b *uint256.Int) (*uint256.Int, error) {
	c0, overflow := new(uint256.Int).MulOverflow(a, b)
	if overflow {
		return nil, ErrMulOverflow
	}
	c1, overflow := c0.AddOverflow(c0, halfBONE)
	if overflow {
		return nil, ErrMulOverflow
	}
	return c1.Div(c1, BONE), nil
}

// Div returns a / b rounded to the nearest unit.
func Div(a, b *uint256.Int) (*uint256.Int, error) {
	if b.IsZero() {
		return nil, ErrDivZero
	}
	c0, overflow := new(uint256.Int).MulOverflow(a, BONE)
	if overflow {
		return nil, ErrDivInternal
	}
	half := new(uint256.Int).Rsh(b, 1)
	c1, overflow := c0.AddOverflow(c0, half)
	if overflow {
		return nil, ErrDivInternal
	}
	return c1.Div(c1, b), nil
}

// Powi raises a to the unscaled integer power n by repeated squaring.
func Powi(a, n *uint256.Int) (*uint256.Int, error) {
	var (
		err error
		z   *uint256.Int
		x   = new(uint256.Int).Set(a)
		e   = new(uint256.Int).Set(n)
	)
	if isOdd(e) {
		z = new(uint256.Int).Set(a)
	} else {
		z = One()
	}
	for e.Rsh(e, 1); !e.IsZero(); e.Rsh(e, 1) {
		if x, err = Mul(x, x); err != nil {
			return nil, err
		}
		if isOdd(e) {
			if z, err = Mul(z, x); err != nil {
				return nil, err
			}
		}
	}
	return z, nil
}

func isOdd(n *uint256.Int) bool {
	return n.Uint64()&1 == 1
}
