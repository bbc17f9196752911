// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/weighted/token"
)

// Shares returns the pool's share ledger.
func (p *Pool) Shares() token.Ledger {
	return p.shares
}

func (p *Pool) Name() string    { return p.shares.Name() }
func (p *Pool) Symbol() string  { return p.shares.Symbol() }
func (p *Pool) Decimals() uint8 { return p.shares.Decimals() }

func (p *Pool) TotalSupply() *uint256.Int {
	return p.shares.TotalSupply()
}

func (p *Pool) BalanceOf(owner common.Address) *uint256.Int {
	return p.shares.BalanceOf(owner)
}

func (p *Pool) Allowance(owner, spender common.Address) *uint256.Int {
	return p.shares.Allowance(owner, spender)
}

func (p *Pool) Approve(caller, spender common.Address, amount *uint256.Int) error {
	return p.shares.Approve(caller, spender, amount)
}

func (p *Pool) IncreaseApproval(caller, spender common.Address, amount *uint256.Int) error {
	return p.shares.IncreaseApproval(caller, spender, amount)
}

func (p *Pool) DecreaseApproval(caller, spender common.Address, amount *uint256.Int) error {
	return p.shares.DecreaseApproval(caller, spender, amount)
}

func (p *Pool) Transfer(caller, to common.Address, amount *uint256.Int) error {
	return p.shares.Transfer(caller, to, amount)
}

func (p *Pool) TransferFrom(caller, from, to common.Address, amount *uint256.Int) error {
	return p.shares.TransferFrom(caller, from, to, amount)
}
