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
// Proportional joins and exits
// =========================================================================

// JoinPool mints poolAmountOut shares to caller in exchange for each bound
// token in proportion to the pool's balances. maxAmountsIn caps the amount
// of each token, in GetCurrentTokens order.
func (p *Pool) JoinPool(caller common.Address, poolAmountOut *uint256.Int, maxAmountsIn []*uint256.Int) (amountsIn []*uint256.Int, err error) {
	err = p.guarded("joinPool", func() error {
		if !p.finalized() {
			return ErrNotFinalized
		}
		tokens := p.tokens()
		if len(maxAmountsIn) != len(tokens) {
			return ErrArgLength
		}

		ratio, err := bmath.Div(poolAmountOut, p.shares.TotalSupply())
		if err != nil {
			return err
		}
		if ratio.IsZero() {
			return fmt.Errorf("%w: join ratio rounds to zero", ErrMathApprox)
		}

		amounts := make([]*uint256.Int, len(tokens))
		for i, t := range tokens {
			rec := p.record(t)
			amountIn, err := bmath.Mul(ratio, rec.Balance)
			if err != nil {
				return err
			}
			if amountIn.IsZero() {
				return fmt.Errorf("%w: amount in of %s rounds to zero", ErrMathApprox, t)
			}
			if amountIn.Gt(maxAmountsIn[i]) {
				return ErrLimitIn
			}
			balance, err := bmath.Add(rec.Balance, amountIn)
			if err != nil {
				return err
			}
			p.setBalance(t, balance)
			p.emitJoin(caller, t, amountIn)
			if err := p.pullUnderlying(t, caller, amountIn); err != nil {
				return err
			}
			amounts[i] = amountIn
		}

		if err := p.mintShares(poolAmountOut); err != nil {
			return err
		}
		if err := p.pushShares(caller, poolAmountOut); err != nil {
			return err
		}
		p.log.Debug("joined", zap.Stringer("caller", caller), zap.String("poolAmountOut", poolAmountOut.Dec()))
		amountsIn = amounts
		return nil
	})
	if err != nil {
		return nil, err
	}
	return amountsIn, nil
}

// ExitPool redeems poolAmountIn shares from caller for each bound token in
// proportion to the pool's balances. The exit fee is taken in shares and
// sent to the fee collector; the rest is burned.
func (p *Pool) ExitPool(caller common.Address, poolAmountIn *uint256.Int, minAmountsOut []*uint256.Int) (amountsOut []*uint256.Int, err error) {
	err = p.guarded("exitPool", func() error {
		if !p.finalized() {
			return ErrNotFinalized
		}
		tokens := p.tokens()
		if len(minAmountsOut) != len(tokens) {
			return ErrArgLength
		}

		poolTotal := p.shares.TotalSupply()
		exitFee, err := bmath.Mul(poolAmountIn, p.exitFee())
		if err != nil {
			return err
		}
		poolAmountInAfterExitFee, err := bmath.Sub(poolAmountIn, exitFee)
		if err != nil {
			return err
		}
		ratio, err := bmath.Div(poolAmountInAfterExitFee, poolTotal)
		if err != nil {
			return err
		}
		if ratio.IsZero() {
			return fmt.Errorf("%w: exit ratio rounds to zero", ErrMathApprox)
		}

		if err := p.pullShares(caller, poolAmountIn); err != nil {
			return err
		}
		if err := p.pushShares(p.feeCollector(), exitFee); err != nil {
			return err
		}
		if err := p.burnShares(poolAmountInAfterExitFee); err != nil {
			return err
		}

		amounts := make([]*uint256.Int, len(tokens))
		for i, t := range tokens {
			rec := p.record(t)
			amountOut, err := bmath.Mul(ratio, rec.Balance)
			if err != nil {
				return err
			}
			if amountOut.IsZero() {
				return fmt.Errorf("%w: amount out of %s rounds to zero", ErrMathApprox, t)
			}
			if amountOut.Lt(minAmountsOut[i]) {
				return ErrLimitOut
			}
			balance, err := bmath.Sub(rec.Balance, amountOut)
			if err != nil {
				return err
			}
			p.setBalance(t, balance)
			p.emitExit(caller, t, amountOut)
			if err := p.pushUnderlying(t, caller, amountOut); err != nil {
				return err
			}
			amounts[i] = amountOut
		}

		p.log.Debug("exited", zap.Stringer("caller", caller), zap.String("poolAmountIn", poolAmountIn.Dec()))
		amountsOut = amounts
		return nil
	})
	if err != nil {
		return nil, err
	}
	return amountsOut, nil
}

// =========================================================================
// Single-token joins and exits
// =========================================================================

// singleRecord loads the record of t for a single-token join or exit.
func (p *Pool) singleRecord(t common.Address) (Record, error) {
	if !p.finalized() {
		return Record{}, ErrNotFinalized
	}
	return p.boundRecord(t)
}

func (p *Pool) requireMaxIn(balance, amountIn *uint256.Int) error {
	maxIn, err := bmath.Mul(balance, bmath.MaxInRatio)
	if err != nil {
		return err
	}
	if amountIn.Gt(maxIn) {
		return ErrMaxInRatio
	}
	return nil
}

func (p *Pool) requireMaxOut(balance, amountOut *uint256.Int) error {
	maxOut, err := bmath.Mul(balance, bmath.MaxOutRatio)
	if err != nil {
		return err
	}
	if amountOut.Gt(maxOut) {
		return ErrMaxOutRatio
	}
	return nil
}

// singleJoin credits amountIn of t, then mints and pushes poolAmountOut
// shares before pulling the tokens.
func (p *Pool) singleJoin(caller, t common.Address, rec Record, amountIn, poolAmountOut *uint256.Int) error {
	balance, err := bmath.Add(rec.Balance, amountIn)
	if err != nil {
		return err
	}
	p.setBalance(t, balance)
	p.emitJoin(caller, t, amountIn)

	if err := p.mintShares(poolAmountOut); err != nil {
		return err
	}
	if err := p.pushShares(caller, poolAmountOut); err != nil {
		return err
	}
	if err := p.pullUnderlying(t, caller, amountIn); err != nil {
		return err
	}
	p.log.Debug("single joined",
		zap.Stringer("caller", caller),
		zap.Stringer("token", t),
		zap.String("amountIn", amountIn.Dec()),
		zap.String("poolAmountOut", poolAmountOut.Dec()),
	)
	return nil
}

// singleExit debits amountOut of t, redeems poolAmountIn shares from caller
// and pushes the tokens.
func (p *Pool) singleExit(caller, t common.Address, rec Record, amountOut, poolAmountIn *uint256.Int) error {
	balance, err := bmath.Sub(rec.Balance, amountOut)
	if err != nil {
		return err
	}
	p.setBalance(t, balance)

	exitFee, err := bmath.Mul(poolAmountIn, p.exitFee())
	if err != nil {
		return err
	}
	p.emitExit(caller, t, amountOut)

	if err := p.pullShares(caller, poolAmountIn); err != nil {
		return err
	}
	if err := p.burnShares(new(uint256.Int).Sub(poolAmountIn, exitFee)); err != nil {
		return err
	}
	if err := p.pushShares(p.feeCollector(), exitFee); err != nil {
		return err
	}
	if err := p.pushUnderlying(t, caller, amountOut); err != nil {
		return err
	}
	p.log.Debug("single exited",
		zap.Stringer("caller", caller),
		zap.Stringer("token", t),
		zap.String("amountOut", amountOut.Dec()),
		zap.String("poolAmountIn", poolAmountIn.Dec()),
	)
	return nil
}

// JoinswapExternAmountIn deposits exactly tokenAmountIn of tokenIn and mints
// at least minPoolAmountOut shares.
func (p *Pool) JoinswapExternAmountIn(caller, tokenIn common.Address, tokenAmountIn, minPoolAmountOut *uint256.Int) (poolAmountOut *uint256.Int, err error) {
	err = p.guarded("joinswapExternAmountIn", func() error {
		rec, err := p.singleRecord(tokenIn)
		if err != nil {
			return err
		}
		if err := p.requireMaxIn(rec.Balance, tokenAmountIn); err != nil {
			return err
		}

		out, err := pricing.PoolOutGivenSingleIn(rec.Balance, rec.Denorm, p.shares.TotalSupply(), p.totalWeight(), tokenAmountIn, p.swapFee())
		if err != nil {
			return err
		}
		if out.Lt(minPoolAmountOut) {
			return ErrLimitOut
		}
		if out.IsZero() {
			return fmt.Errorf("%w: pool amount out rounds to zero", ErrMathApprox)
		}
		if err := p.singleJoin(caller, tokenIn, rec, tokenAmountIn, out); err != nil {
			return err
		}
		poolAmountOut = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return poolAmountOut, nil
}

// JoinswapPoolAmountOut mints exactly poolAmountOut shares for at most
// maxAmountIn of tokenIn.
func (p *Pool) JoinswapPoolAmountOut(caller, tokenIn common.Address, poolAmountOut, maxAmountIn *uint256.Int) (tokenAmountIn *uint256.Int, err error) {
	err = p.guarded("joinswapPoolAmountOut", func() error {
		rec, err := p.singleRecord(tokenIn)
		if err != nil {
			return err
		}

		in, err := pricing.SingleInGivenPoolOut(rec.Balance, rec.Denorm, p.shares.TotalSupply(), p.totalWeight(), poolAmountOut, p.swapFee())
		if err != nil {
			return err
		}
		if in.IsZero() {
			return fmt.Errorf("%w: token amount in rounds to zero", ErrMathApprox)
		}
		if in.Gt(maxAmountIn) {
			return ErrLimitIn
		}
		if err := p.requireMaxIn(rec.Balance, in); err != nil {
			return err
		}
		if err := p.singleJoin(caller, tokenIn, rec, in, poolAmountOut); err != nil {
			return err
		}
		tokenAmountIn = in
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tokenAmountIn, nil
}

// ExitswapPoolAmountIn redeems exactly poolAmountIn shares for at least
// minAmountOut of tokenOut.
func (p *Pool) ExitswapPoolAmountIn(caller, tokenOut common.Address, poolAmountIn, minAmountOut *uint256.Int) (tokenAmountOut *uint256.Int, err error) {
	err = p.guarded("exitswapPoolAmountIn", func() error {
		rec, err := p.singleRecord(tokenOut)
		if err != nil {
			return err
		}

		out, err := pricing.SingleOutGivenPoolIn(rec.Balance, rec.Denorm, p.shares.TotalSupply(), p.totalWeight(), poolAmountIn, p.swapFee(), p.exitFee())
		if err != nil {
			return err
		}
		if out.Lt(minAmountOut) {
			return ErrLimitOut
		}
		if out.IsZero() {
			return fmt.Errorf("%w: token amount out rounds to zero", ErrMathApprox)
		}
		if err := p.requireMaxOut(rec.Balance, out); err != nil {
			return err
		}
		if err := p.singleExit(caller, tokenOut, rec, out, poolAmountIn); err != nil {
			return err
		}
		tokenAmountOut = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tokenAmountOut, nil
}

// ExitswapExternAmountOut withdraws exactly tokenAmountOut of tokenOut by
// redeeming at most maxPoolAmountIn shares.
func (p *Pool) ExitswapExternAmountOut(caller, tokenOut common.Address, tokenAmountOut, maxPoolAmountIn *uint256.Int) (poolAmountIn *uint256.Int, err error) {
	err = p.guarded("exitswapExternAmountOut", func() error {
		rec, err := p.singleRecord(tokenOut)
		if err != nil {
			return err
		}
		if err := p.requireMaxOut(rec.Balance, tokenAmountOut); err != nil {
			return err
		}

		in, err := pricing.PoolInGivenSingleOut(rec.Balance, rec.Denorm, p.shares.TotalSupply(), p.totalWeight(), tokenAmountOut, p.swapFee(), p.exitFee())
		if err != nil {
			return err
		}
		if in.IsZero() {
			return fmt.Errorf("%w: pool amount in rounds to zero", ErrMathApprox)
		}
		if in.Gt(maxPoolAmountIn) {
			return ErrLimitIn
		}
		if err := p.singleExit(caller, tokenOut, rec, tokenAmountOut, in); err != nil {
			return err
		}
		poolAmountIn = in
		return nil
	})
	if err != nil {
		return nil, err
	}
	return poolAmountIn, nil
}
