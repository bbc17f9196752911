// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"go.uber.org/zap"

	"github.com/luxfi/weighted/bmath"
	"github.com/luxfi/weighted/pricing"
)

// =========================================================================
// Swaps
// =========================================================================

// swapRecords loads the records of a swap pair once both are known bound
// and swapping is enabled.
func (p *Pool) swapRecords(tokenIn, tokenOut common.Address) (Record, Record, error) {
	if tokenIn == tokenOut {
		return Record{}, Record{}, ErrSameToken
	}
	in, err := p.boundRecord(tokenIn)
	if err != nil {
		return Record{}, Record{}, err
	}
	out, err := p.boundRecord(tokenOut)
	if err != nil {
		return Record{}, Record{}, err
	}
	if !p.publicSwap() {
		return Record{}, Record{}, ErrSwapNotPublic
	}
	return in, out, nil
}

// checkPriceMove enforces that a swap moved the spot price against the
// trader, stayed within maxPrice and that the average price paid is no
// better than the price before the swap.
func checkPriceMove(spotBefore, spotAfter, maxPrice, amountIn, amountOut *uint256.Int) error {
	if spotAfter.Lt(spotBefore) {
		return fmt.Errorf("%w: spot price fell from %s to %s", ErrMathApprox, spotBefore.Dec(), spotAfter.Dec())
	}
	if spotAfter.Gt(maxPrice) {
		return ErrLimitPrice
	}
	effective, err := bmath.Div(amountIn, amountOut)
	if err != nil {
		return err
	}
	if spotBefore.Gt(effective) {
		return fmt.Errorf("%w: spot price %s above effective price %s", ErrMathApprox, spotBefore.Dec(), effective.Dec())
	}
	return nil
}

// SwapExactAmountIn trades exactly tokenAmountIn of tokenIn for at least
// minAmountOut of tokenOut. It returns the amount received and the spot
// price after the trade.
func (p *Pool) SwapExactAmountIn(
	caller common.Address,
	tokenIn common.Address,
	tokenAmountIn *uint256.Int,
	tokenOut common.Address,
	minAmountOut *uint256.Int,
	maxPrice *uint256.Int,
) (tokenAmountOut, spotPriceAfter *uint256.Int, err error) {
	err = p.guarded("swapExactAmountIn", func() error {
		in, out, err := p.swapRecords(tokenIn, tokenOut)
		if err != nil {
			return err
		}

		maxIn, err := bmath.Mul(in.Balance, bmath.MaxInRatio)
		if err != nil {
			return err
		}
		if tokenAmountIn.Gt(maxIn) {
			return ErrMaxInRatio
		}

		swapFee := p.swapFee()
		spotBefore, err := pricing.SpotPrice(in.Balance, in.Denorm, out.Balance, out.Denorm, swapFee)
		if err != nil {
			return err
		}
		if spotBefore.Gt(maxPrice) {
			return ErrBadLimitPrice
		}

		amountOut, err := pricing.OutGivenIn(in.Balance, in.Denorm, out.Balance, out.Denorm, tokenAmountIn, swapFee)
		if err != nil {
			return err
		}
		if amountOut.Lt(minAmountOut) {
			return ErrLimitOut
		}
		if amountOut.IsZero() {
			return fmt.Errorf("%w: amount out rounds to zero", ErrMathApprox)
		}

		if in.Balance, err = bmath.Add(in.Balance, tokenAmountIn); err != nil {
			return err
		}
		if out.Balance, err = bmath.Sub(out.Balance, amountOut); err != nil {
			return err
		}

		spotAfter, err := pricing.SpotPrice(in.Balance, in.Denorm, out.Balance, out.Denorm, swapFee)
		if err != nil {
			return err
		}
		if err := checkPriceMove(spotBefore, spotAfter, maxPrice, tokenAmountIn, amountOut); err != nil {
			return err
		}

		p.setBalance(tokenIn, in.Balance)
		p.setBalance(tokenOut, out.Balance)
		p.emitSwap(caller, tokenIn, tokenOut, tokenAmountIn, amountOut)

		if err := p.pullUnderlying(tokenIn, caller, tokenAmountIn); err != nil {
			return err
		}
		if err := p.pushUnderlying(tokenOut, caller, amountOut); err != nil {
			return err
		}

		p.log.Debug("swap exact in",
			zap.Stringer("caller", caller),
			zap.String("amountIn", tokenAmountIn.Dec()),
			zap.String("amountOut", amountOut.Dec()),
			zap.String("spotPriceAfter", spotAfter.Dec()),
		)
		tokenAmountOut, spotPriceAfter = amountOut, spotAfter
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return tokenAmountOut, spotPriceAfter, nil
}

// SwapExactAmountOut trades at most maxAmountIn of tokenIn for exactly
// tokenAmountOut of tokenOut. It returns the amount paid and the spot price
// after the trade.
func (p *Pool) SwapExactAmountOut(
	caller common.Address,
	tokenIn common.Address,
	maxAmountIn *uint256.Int,
	tokenOut common.Address,
	tokenAmountOut *uint256.Int,
	maxPrice *uint256.Int,
) (tokenAmountIn, spotPriceAfter *uint256.Int, err error) {
	err = p.guarded("swapExactAmountOut", func() error {
		in, out, err := p.swapRecords(tokenIn, tokenOut)
		if err != nil {
			return err
		}
		if tokenAmountOut.IsZero() {
			return ErrZeroAmount
		}

		maxOut, err := bmath.Mul(out.Balance, bmath.MaxOutRatio)
		if err != nil {
			return err
		}
		if tokenAmountOut.Gt(maxOut) {
			return ErrMaxOutRatio
		}

		swapFee := p.swapFee()
		spotBefore, err := pricing.SpotPrice(in.Balance, in.Denorm, out.Balance, out.Denorm, swapFee)
		if err != nil {
			return err
		}
		if spotBefore.Gt(maxPrice) {
			return ErrBadLimitPrice
		}

		amountIn, err := pricing.InGivenOut(in.Balance, in.Denorm, out.Balance, out.Denorm, tokenAmountOut, swapFee)
		if err != nil {
			return err
		}
		if amountIn.Gt(maxAmountIn) {
			return ErrLimitIn
		}

		if in.Balance, err = bmath.Add(in.Balance, amountIn); err != nil {
			return err
		}
		if out.Balance, err = bmath.Sub(out.Balance, tokenAmountOut); err != nil {
			return err
		}

		spotAfter, err := pricing.SpotPrice(in.Balance, in.Denorm, out.Balance, out.Denorm, swapFee)
		if err != nil {
			return err
		}
		if err := checkPriceMove(spotBefore, spotAfter, maxPrice, amountIn, tokenAmountOut); err != nil {
			return err
		}

		p.setBalance(tokenIn, in.Balance)
		p.setBalance(tokenOut, out.Balance)
		p.emitSwap(caller, tokenIn, tokenOut, amountIn, tokenAmountOut)

		if err := p.pullUnderlying(tokenIn, caller, amountIn); err != nil {
			return err
		}
		if err := p.pushUnderlying(tokenOut, caller, tokenAmountOut); err != nil {
			return err
		}

		p.log.Debug("swap exact out",
			zap.Stringer("caller", caller),
			zap.String("amountIn", amountIn.Dec()),
			zap.String("amountOut", tokenAmountOut.Dec()),
			zap.String("spotPriceAfter", spotAfter.Dec()),
		)
		tokenAmountIn, spotPriceAfter = amountIn, spotAfter
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return tokenAmountIn, spotPriceAfter, nil
}
