// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package pricing holds the weighted constant-product formulas. Every
// function is pure: it reads its fixed-point arguments and returns a new
// value or the first arithmetic trap raised by bmath.
package pricing

import (
	"github.com/holiman/uint256"

	"github.com/luxfi/weighted/bmath"
)

// calc threads the first arithmetic error through a formula so each step
// reads like the formula itself.
type calc struct {
	err error
}

func (c *calc) op(f func(a, b *uint256.Int) (*uint256.Int, error), a, b *uint256.Int) *uint256.Int {
	if c.err != nil {
		return nil
	}
	v, err := f(a, b)
	if err != nil {
		c.err = err
		return nil
	}
	return v
}

func (c *calc) add(a, b *uint256.Int) *uint256.Int { return c.op(bmath.Add, a, b) }
func (c *calc) sub(a, b *uint256.Int) *uint256.Int { return c.op(bmath.Sub, a, b) }
func (c *calc) mul(a, b *uint256.Int) *uint256.Int { return c.op(bmath.Mul, a, b) }
func (c *calc) div(a, b *uint256.Int) *uint256.Int { return c.op(bmath.Div, a, b) }
func (c *calc) pow(a, b *uint256.Int) *uint256.Int { return c.op(bmath.Pow, a, b) }

func (c *calc) result(v *uint256.Int) (*uint256.Int, error) {
	if c.err != nil {
		return nil, c.err
	}
	return v, nil
}

// SpotPrice returns the price of the out token in units of the in token,
// including the swap fee.
//
//	sP = (bI / wI) / (bO / wO) * 1 / (1 - sF)
func SpotPrice(balanceIn, weightIn, balanceOut, weightOut, swapFee *uint256.Int) (*uint256.Int, error) {
	var c calc
	numer := c.div(balanceIn, weightIn)
	denom := c.div(balanceOut, weightOut)
	ratio := c.div(numer, denom)
	scale := c.div(bmath.BONE, c.sub(bmath.BONE, swapFee))
	return c.result(c.mul(ratio, scale))
}

// OutGivenIn returns the amount of the out token received for amountIn.
//
//	aO = bO * (1 - (bI / (bI + aI * (1 - sF))) ^ (wI / wO))
func OutGivenIn(balanceIn, weightIn, balanceOut, weightOut, amountIn, swapFee *uint256.Int) (*uint256.Int, error) {
	var c calc
	weightRatio := c.div(weightIn, weightOut)
	adjustedIn := c.mul(amountIn, c.sub(bmath.BONE, swapFee))
	y := c.div(balanceIn, c.add(balanceIn, adjustedIn))
	foo := c.pow(y, weightRatio)
	bar := c.sub(bmath.BONE, foo)
	return c.result(c.mul(balanceOut, bar))
}

// InGivenOut returns the amount of the in token required to receive amountOut.
//
//	aI = bI * ((bO / (bO - aO)) ^ (wO / wI) - 1) / (1 - sF)
func InGivenOut(balanceIn, weightIn, balanceOut, weightOut, amountOut, swapFee *uint256.Int) (*uint256.Int, error) {
	var c calc
	weightRatio := c.div(weightOut, weightIn)
	diff := c.sub(balanceOut, amountOut)
	y := c.div(balanceOut, diff)
	foo := c.sub(c.pow(y, weightRatio), bmath.BONE)
	amountIn := c.mul(balanceIn, foo)
	return c.result(c.div(amountIn, c.sub(bmath.BONE, swapFee)))
}
