// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/weighted/token"
)

func (p *Pool) ledger(t common.Address) (token.Ledger, error) {
	l, err := p.assets.Ledger(t)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return l, nil
}

// pullUnderlying moves amount of t from from into the pool. from must have
// approved the pool.
func (p *Pool) pullUnderlying(t, from common.Address, amount *uint256.Int) error {
	l, err := p.ledger(t)
	if err != nil {
		return err
	}
	if err := l.TransferFrom(p.address, from, p.address, amount); err != nil {
		return fmt.Errorf("%w: pull %s of %s from %s: %w", ErrTransferFailed, amount.Dec(), t, from, err)
	}
	return nil
}

func (p *Pool) pushUnderlying(t, to common.Address, amount *uint256.Int) error {
	if amount.IsZero() {
		return nil
	}
	l, err := p.ledger(t)
	if err != nil {
		return err
	}
	if err := l.Transfer(p.address, to, amount); err != nil {
		return fmt.Errorf("%w: push %s of %s to %s: %w", ErrTransferFailed, amount.Dec(), t, to, err)
	}
	return nil
}

func (p *Pool) mintShares(amount *uint256.Int) error {
	if err := p.shares.Mint(p.address, amount); err != nil {
		return fmt.Errorf("%w: mint shares: %w", ErrTransferFailed, err)
	}
	return nil
}

func (p *Pool) burnShares(amount *uint256.Int) error {
	if err := p.shares.Burn(p.address, amount); err != nil {
		return fmt.Errorf("%w: burn shares: %w", ErrTransferFailed, err)
	}
	return nil
}

func (p *Pool) pushShares(to common.Address, amount *uint256.Int) error {
	if amount.IsZero() {
		return nil
	}
	if err := p.shares.Transfer(p.address, to, amount); err != nil {
		return fmt.Errorf("%w: push shares to %s: %w", ErrTransferFailed, to, err)
	}
	return nil
}

func (p *Pool) pullShares(from common.Address, amount *uint256.Int) error {
	if err := p.shares.Transfer(from, p.address, amount); err != nil {
		return fmt.Errorf("%w: pull shares from %s: %w", ErrTransferFailed, from, err)
	}
	return nil
}
