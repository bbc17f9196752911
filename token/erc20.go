// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package token

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/types"

	"github.com/luxfi/weighted/state"
)

var _ Ledger = (*ERC20)(nil)

// Storage key prefixes
var (
	balancePrefix   = []byte("bal")
	allowancePrefix = []byte("alw")
	supplyPrefix    = []byte("sup")
)

// maxAllowance is never decremented by TransferFrom.
var maxAllowance = new(uint256.Int).SetAllOne()

// TransferHook runs after a transfer has moved balances. Returning an error
// fails the transfer.
type TransferHook func(from, to common.Address, amount *uint256.Int) error

// ERC20 is a fungible ledger whose balances live in a StateDB under the
// ledger's own address.
type ERC20 struct {
	db       state.StateDB
	address  common.Address
	name     string
	symbol   string
	decimals uint8

	hook TransferHook
}

func NewERC20(db state.StateDB, address common.Address, name, symbol string, decimals uint8) *ERC20 {
	return &ERC20{
		db:       db,
		address:  address,
		name:     name,
		symbol:   symbol,
		decimals: decimals,
	}
}

func (t *ERC20) Address() common.Address { return t.address }
func (t *ERC20) Name() string            { return t.name }
func (t *ERC20) Symbol() string          { return t.symbol }
func (t *ERC20) Decimals() uint8         { return t.decimals }

// SetTransferHook installs h, replacing any previous hook. nil removes it.
func (t *ERC20) SetTransferHook(h TransferHook) {
	t.hook = h
}

func (t *ERC20) TotalSupply() *uint256.Int {
	return state.Uint(t.db, t.address, state.Key(supplyPrefix))
}

func (t *ERC20) BalanceOf(owner common.Address) *uint256.Int {
	return state.Uint(t.db, t.address, balanceKey(owner))
}

func (t *ERC20) Allowance(owner, spender common.Address) *uint256.Int {
	return state.Uint(t.db, t.address, allowanceKey(owner, spender))
}

func (t *ERC20) Approve(owner, spender common.Address, amount *uint256.Int) error {
	t.setAllowance(owner, spender, amount)
	return nil
}

// IncreaseApproval adds amount to the allowance of spender, saturating at the
// maximum.
func (t *ERC20) IncreaseApproval(owner, spender common.Address, amount *uint256.Int) error {
	next, overflow := new(uint256.Int).AddOverflow(t.Allowance(owner, spender), amount)
	if overflow {
		next = maxAllowance
	}
	t.setAllowance(owner, spender, next)
	return nil
}

// DecreaseApproval subtracts amount from the allowance of spender, stopping
// at zero.
func (t *ERC20) DecreaseApproval(owner, spender common.Address, amount *uint256.Int) error {
	current := t.Allowance(owner, spender)
	next := new(uint256.Int)
	if current.Gt(amount) {
		next.Sub(current, amount)
	}
	t.setAllowance(owner, spender, next)
	return nil
}

func (t *ERC20) Transfer(from, to common.Address, amount *uint256.Int) error {
	if err := t.move(from, to, amount); err != nil {
		return err
	}
	return t.runHook(from, to, amount)
}

// TransferFrom moves amount from from to to on behalf of spender. A spender
// moving its own balance needs no allowance.
func (t *ERC20) TransferFrom(spender, from, to common.Address, amount *uint256.Int) error {
	allowance := t.Allowance(from, spender)
	if spender != from && allowance.Lt(amount) {
		return fmt.Errorf("%w: %s allowed %s, needs %s", ErrInsufficientAllowance, spender, allowance.Dec(), amount.Dec())
	}
	if err := t.move(from, to, amount); err != nil {
		return err
	}
	if spender != from && !allowance.Eq(maxAllowance) {
		t.setAllowance(from, spender, new(uint256.Int).Sub(allowance, amount))
	}
	return t.runHook(from, to, amount)
}

// Mint creates amount new units owned by to.
func (t *ERC20) Mint(to common.Address, amount *uint256.Int) error {
	supply, overflow := new(uint256.Int).AddOverflow(t.TotalSupply(), amount)
	if overflow {
		return fmt.Errorf("mint %s: supply overflow", amount.Dec())
	}
	state.SetUint(t.db, t.address, state.Key(supplyPrefix), supply)
	state.SetUint(t.db, t.address, balanceKey(to), new(uint256.Int).Add(t.BalanceOf(to), amount))
	t.emitTransfer(common.Address{}, to, amount)
	return nil
}

// Burn destroys amount units owned by from.
func (t *ERC20) Burn(from common.Address, amount *uint256.Int) error {
	balance := t.BalanceOf(from)
	if balance.Lt(amount) {
		return fmt.Errorf("%w: burn %s from %s holding %s", ErrInsufficientBalance, amount.Dec(), from, balance.Dec())
	}
	state.SetUint(t.db, t.address, balanceKey(from), new(uint256.Int).Sub(balance, amount))
	state.SetUint(t.db, t.address, state.Key(supplyPrefix), new(uint256.Int).Sub(t.TotalSupply(), amount))
	t.emitTransfer(from, common.Address{}, amount)
	return nil
}

func (t *ERC20) move(from, to common.Address, amount *uint256.Int) error {
	balance := t.BalanceOf(from)
	if balance.Lt(amount) {
		return fmt.Errorf("%w: %s holds %s, needs %s", ErrInsufficientBalance, from, balance.Dec(), amount.Dec())
	}
	state.SetUint(t.db, t.address, balanceKey(from), new(uint256.Int).Sub(balance, amount))
	state.SetUint(t.db, t.address, balanceKey(to), new(uint256.Int).Add(t.BalanceOf(to), amount))
	t.emitTransfer(from, to, amount)
	return nil
}

func (t *ERC20) runHook(from, to common.Address, amount *uint256.Int) error {
	if t.hook == nil {
		return nil
	}
	return t.hook(from, to, amount)
}

func (t *ERC20) setAllowance(owner, spender common.Address, amount *uint256.Int) {
	state.SetUint(t.db, t.address, allowanceKey(owner, spender), amount)
	t.db.AddLog(&types.Log{
		Address: t.address,
		Topics:  []common.Hash{ApprovalTopic, state.AddressToHash(owner), state.AddressToHash(spender)},
		Data:    state.UintToHash(amount).Bytes(),
	})
}

func (t *ERC20) emitTransfer(from, to common.Address, amount *uint256.Int) {
	t.db.AddLog(&types.Log{
		Address: t.address,
		Topics:  []common.Hash{TransferTopic, state.AddressToHash(from), state.AddressToHash(to)},
		Data:    state.UintToHash(amount).Bytes(),
	})
}

func balanceKey(owner common.Address) common.Hash {
	return state.Key(balancePrefix, owner.Bytes())
}

func allowanceKey(owner, spender common.Address) common.Hash {
	return state.Key(allowancePrefix, owner.Bytes(), spender.Bytes())
}

func topic(signature string) common.Hash {
	return state.Topic(signature)
}
