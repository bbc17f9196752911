// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package token implements the balance and allowance ledgers pools move
// assets through, both for external assets and for pool shares.
package token

import (
	"errors"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
)

// Ledger is the transfer capability a pool consumes. Calls are made on
// behalf of an explicit caller; a non-nil error means nothing moved.
type Ledger interface {
	BalanceOf(owner common.Address) *uint256.Int
	Allowance(owner, spender common.Address) *uint256.Int
	Approve(owner, spender common.Address, amount *uint256.Int) error
	Transfer(from, to common.Address, amount *uint256.Int) error
	TransferFrom(spender, from, to common.Address, amount *uint256.Int) error
}

// Directory resolves an asset identity to its ledger.
type Directory interface {
	Ledger(asset common.Address) (Ledger, error)
}

var (
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrUnknownAsset          = errors.New("unknown asset")
	ErrAssetRegistered       = errors.New("asset already registered")
)

// Event topics
var (
	TransferTopic = topic("Transfer(address,address,uint256)")
	ApprovalTopic = topic("Approval(address,address,uint256)")
)
