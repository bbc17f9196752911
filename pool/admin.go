// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"go.uber.org/zap"

	"github.com/luxfi/weighted/bmath"
	"github.com/luxfi/weighted/state"
)

// =========================================================================
// Controller operations
// =========================================================================

// SetSwapFee sets the swap fee of an open pool.
func (p *Pool) SetSwapFee(caller common.Address, swapFee *uint256.Int) error {
	return p.guarded("setSwapFee", func() error {
		if err := p.requireController(caller); err != nil {
			return err
		}
		if p.finalized() {
			return ErrIsFinalized
		}
		if swapFee.Lt(bmath.MinFee) {
			return ErrMinFee
		}
		if swapFee.Gt(bmath.MaxFee) {
			return ErrMaxFee
		}
		p.emitCall("setSwapFee", caller, state.UintToHash(swapFee))
		p.setUint(swapFeePrefix, swapFee)
		return nil
	})
}

// SetController hands control of the pool to manager.
func (p *Pool) SetController(caller, manager common.Address) error {
	return p.guarded("setController", func() error {
		if err := p.requireController(caller); err != nil {
			return err
		}
		if manager == (common.Address{}) {
			return ErrZeroAddress
		}
		p.emitCall("setController", caller, state.AddressToHash(manager))
		p.setAddress(controllerPrefix, manager)
		p.log.Debug("controller changed", zap.Stringer("from", caller), zap.Stringer("to", manager))
		return nil
	})
}

// SetPublicSwap enables or disables swaps on an open pool.
func (p *Pool) SetPublicSwap(caller common.Address, public bool) error {
	return p.guarded("setPublicSwap", func() error {
		if err := p.requireController(caller); err != nil {
			return err
		}
		if p.finalized() {
			return ErrIsFinalized
		}
		p.emitCall("setPublicSwap", caller, state.BoolToHash(public))
		p.setBool(publicSwapPrefix, public)
		return nil
	})
}

// Finalize freezes the token set, enables public swap and mints the initial
// share supply to the controller.
func (p *Pool) Finalize(caller common.Address) error {
	return p.guarded("finalize", func() error {
		if err := p.requireController(caller); err != nil {
			return err
		}
		if p.finalized() {
			return ErrIsFinalized
		}
		if p.numTokens() < uint64(bmath.MinBoundTokens) {
			return ErrMinTokens
		}

		p.emitCall("finalize", caller)
		p.setBool(finalizedPrefix, true)
		p.setBool(publicSwapPrefix, true)

		if err := p.mintShares(bmath.InitPoolSupply); err != nil {
			return err
		}
		if err := p.pushShares(caller, bmath.InitPoolSupply); err != nil {
			return err
		}
		p.log.Debug("pool finalized", zap.Uint64("tokens", p.numTokens()))
		return nil
	})
}

// Bind adds token t to an open pool, pulling balance from the controller.
func (p *Pool) Bind(caller, t common.Address, balance, denorm *uint256.Int) error {
	return p.guarded("bind", func() error {
		if err := p.requireController(caller); err != nil {
			return err
		}
		if p.record(t).Bound {
			return ErrIsBound
		}
		if p.finalized() {
			return ErrIsFinalized
		}
		n := p.numTokens()
		if n >= uint64(bmath.MaxBoundTokens) {
			return ErrMaxTokens
		}
		if _, err := p.ledger(t); err != nil {
			return err
		}

		p.emitCall("bind", caller, state.AddressToHash(t), state.UintToHash(balance), state.UintToHash(denorm))
		p.setRecord(t, Record{Bound: true, Index: n})
		p.setTokenAt(n, t)
		p.setNumTokens(n + 1)

		return p.rebind(caller, t, balance, denorm)
	})
}

// Rebind changes the balance and weight of bound token t. A higher balance
// is pulled from the controller; a lower one is returned to it less the exit
// fee, which goes to the fee collector.
func (p *Pool) Rebind(caller, t common.Address, balance, denorm *uint256.Int) error {
	return p.guarded("rebind", func() error {
		if err := p.requireController(caller); err != nil {
			return err
		}
		p.emitCall("rebind", caller, state.AddressToHash(t), state.UintToHash(balance), state.UintToHash(denorm))
		return p.rebind(caller, t, balance, denorm)
	})
}

func (p *Pool) rebind(caller, t common.Address, balance, denorm *uint256.Int) error {
	rec := p.record(t)
	if !rec.Bound {
		return ErrNotBound
	}
	if p.finalized() {
		return ErrIsFinalized
	}
	if denorm.Lt(bmath.MinWeight) {
		return ErrMinWeight
	}
	if denorm.Gt(bmath.MaxWeight) {
		return ErrMaxWeight
	}
	if balance.Lt(bmath.MinBalance) {
		return ErrMinBalance
	}

	totalWeight := p.totalWeight()
	delta, lighter := bmath.SubSign(denorm, rec.Denorm)
	var err error
	if lighter {
		if totalWeight, err = bmath.Sub(totalWeight, delta); err != nil {
			return err
		}
	} else {
		if totalWeight, err = bmath.Add(totalWeight, delta); err != nil {
			return err
		}
		if totalWeight.Gt(bmath.MaxTotalWeight) {
			return ErrMaxTotalWeight
		}
	}
	p.setUint(totalWeightPrefix, totalWeight)

	oldBalance := rec.Balance
	rec.Denorm = denorm
	rec.Balance = balance
	p.setRecord(t, rec)

	diff, withdrawn := bmath.SubSign(balance, oldBalance)
	switch {
	case diff.IsZero():
	case !withdrawn:
		if err := p.pullUnderlying(t, caller, diff); err != nil {
			return err
		}
	default:
		fee, err := bmath.Mul(diff, p.exitFee())
		if err != nil {
			return err
		}
		if err := p.pushUnderlying(t, caller, new(uint256.Int).Sub(diff, fee)); err != nil {
			return err
		}
		if err := p.pushUnderlying(t, p.feeCollector(), fee); err != nil {
			return err
		}
	}

	p.log.Debug("token rebound",
		zap.Stringer("token", t),
		zap.String("balance", balance.Dec()),
		zap.String("denorm", denorm.Dec()),
		zap.String("totalWeight", totalWeight.Dec()),
	)
	return nil
}

// Unbind removes token t from an open pool and returns its balance to the
// controller less the exit fee. The last token in the list takes t's slot.
func (p *Pool) Unbind(caller, t common.Address) error {
	return p.guarded("unbind", func() error {
		if err := p.requireController(caller); err != nil {
			return err
		}
		rec := p.record(t)
		if !rec.Bound {
			return ErrNotBound
		}
		if p.finalized() {
			return ErrIsFinalized
		}

		p.emitCall("unbind", caller, state.AddressToHash(t))

		fee, err := bmath.Mul(rec.Balance, p.exitFee())
		if err != nil {
			return err
		}
		totalWeight, err := bmath.Sub(p.totalWeight(), rec.Denorm)
		if err != nil {
			return err
		}
		p.setUint(totalWeightPrefix, totalWeight)

		last := p.numTokens() - 1
		lastToken := p.tokenAt(last)
		p.setTokenAt(rec.Index, lastToken)
		lastRec := p.record(lastToken)
		lastRec.Index = rec.Index
		p.setRecord(lastToken, lastRec)
		p.setTokenAt(last, common.Address{})
		p.setNumTokens(last)
		p.setRecord(t, Record{})

		if err := p.pushUnderlying(t, caller, new(uint256.Int).Sub(rec.Balance, fee)); err != nil {
			return err
		}
		if err := p.pushUnderlying(t, p.feeCollector(), fee); err != nil {
			return err
		}
		p.log.Debug("token unbound", zap.Stringer("token", t), zap.String("balance", rec.Balance.Dec()))
		return nil
	})
}

// Gulp sets the recorded balance of bound token t to the pool's balance on
// t's ledger, absorbing tokens sent to the pool directly.
func (p *Pool) Gulp(caller, t common.Address) error {
	return p.guarded("gulp", func() error {
		if _, err := p.boundRecord(t); err != nil {
			return err
		}
		l, err := p.ledger(t)
		if err != nil {
			return err
		}
		balance := l.BalanceOf(p.address)

		p.emitCall("gulp", caller, state.AddressToHash(t))
		p.setBalance(t, balance)
		p.log.Debug("gulped", zap.Stringer("token", t), zap.String("balance", balance.Dec()))
		return nil
	})
}
