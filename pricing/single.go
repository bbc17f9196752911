// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pricing

import (
	"github.com/holiman/uint256"

	"github.com/luxfi/weighted/bmath"
)

// Single-asset joins and exits charge the swap fee only on the share of the
// trade that is implicitly swapped into the other tokens, i.e. scaled by
// (1 - normalized weight). Exits additionally charge exitFee on pool shares.
// The join fee is taken before the share delta is computed and the exit fee
// after, so the join and exit formulas are not exact inverses.

// PoolOutGivenSingleIn returns the pool shares minted for depositing
// tokenAmountIn of a single token.
func PoolOutGivenSingleIn(balanceIn, weightIn, poolSupply, totalWeight, tokenAmountIn, swapFee *uint256.Int) (*uint256.Int, error) {
	var c calc
	normalizedWeight := c.div(weightIn, totalWeight)
	zaz := c.mul(c.sub(bmath.BONE, normalizedWeight), swapFee)
	tokenAmountInAfterFee := c.mul(tokenAmountIn, c.sub(bmath.BONE, zaz))

	newTokenBalanceIn := c.add(balanceIn, tokenAmountInAfterFee)
	tokenInRatio := c.div(newTokenBalanceIn, balanceIn)

	poolRatio := c.pow(tokenInRatio, normalizedWeight)
	newPoolSupply := c.mul(poolRatio, poolSupply)
	return c.result(c.sub(newPoolSupply, poolSupply))
}

// SingleInGivenPoolOut returns the amount of a single token required to mint
// poolAmountOut shares.
func SingleInGivenPoolOut(balanceIn, weightIn, poolSupply, totalWeight, poolAmountOut, swapFee *uint256.Int) (*uint256.Int, error) {
	var c calc
	normalizedWeight := c.div(weightIn, totalWeight)
	newPoolSupply := c.add(poolSupply, poolAmountOut)
	poolRatio := c.div(newPoolSupply, poolSupply)

	boo := c.div(bmath.BONE, normalizedWeight)
	tokenInRatio := c.pow(poolRatio, boo)
	newTokenBalanceIn := c.mul(tokenInRatio, balanceIn)
	tokenAmountInAfterFee := c.sub(newTokenBalanceIn, balanceIn)

	zar := c.mul(c.sub(bmath.BONE, normalizedWeight), swapFee)
	return c.result(c.div(tokenAmountInAfterFee, c.sub(bmath.BONE, zar)))
}

// SingleOutGivenPoolIn returns the amount of a single token paid out for
// redeeming poolAmountIn shares.
func SingleOutGivenPoolIn(balanceOut, weightOut, poolSupply, totalWeight, poolAmountIn, swapFee, exitFee *uint256.Int) (*uint256.Int, error) {
	var c calc
	normalizedWeight := c.div(weightOut, totalWeight)

	poolAmountInAfterExitFee := c.mul(poolAmountIn, c.sub(bmath.BONE, exitFee))
	newPoolSupply := c.sub(poolSupply, poolAmountInAfterExitFee)
	poolRatio := c.div(newPoolSupply, poolSupply)

	tokenOutRatio := c.pow(poolRatio, c.div(bmath.BONE, normalizedWeight))
	newTokenBalanceOut := c.mul(tokenOutRatio, balanceOut)
	tokenAmountOutBeforeSwapFee := c.sub(balanceOut, newTokenBalanceOut)

	zaz := c.mul(c.sub(bmath.BONE, normalizedWeight), swapFee)
	return c.result(c.mul(tokenAmountOutBeforeSwapFee, c.sub(bmath.BONE, zaz)))
}

// PoolInGivenSingleOut returns the pool shares that must be redeemed to
// withdraw tokenAmountOut of a single token.
func PoolInGivenSingleOut(balanceOut, weightOut, poolSupply, totalWeight, tokenAmountOut, swapFee, exitFee *uint256.Int) (*uint256.Int, error) {
	var c calc
	normalizedWeight := c.div(weightOut, totalWeight)
	zoo := c.sub(bmath.BONE, normalizedWeight)
	zar := c.mul(zoo, swapFee)
	tokenAmountOutBeforeSwapFee := c.div(tokenAmountOut, c.sub(bmath.BONE, zar))

	newTokenBalanceOut := c.sub(balanceOut, tokenAmountOutBeforeSwapFee)
	tokenOutRatio := c.div(newTokenBalanceOut, balanceOut)

	poolRatio := c.pow(tokenOutRatio, normalizedWeight)
	newPoolSupply := c.mul(poolRatio, poolSupply)
	poolAmountInAfterExitFee := c.sub(poolSupply, newPoolSupply)

	return c.result(c.div(poolAmountInAfterExitFee, c.sub(bmath.BONE, exitFee)))
}
