// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bmath

import "github.com/holiman/uint256"

// Decimals is the number of decimal digits carried by a fixed-point value.
const Decimals = 10

// Pool limits. Amounts and weights are fixed-point values scaled by BONE
// unless noted otherwise.
var (
	// BONE represents 1.0
	BONE = uint256.NewInt(10_000_000_000)

	MinBoundTokens = 2
	MaxBoundTokens = 8

	MinFee  = uint256.NewInt(10_000)        // 0.0001%
	MaxFee  = uint256.NewInt(1_000_000_000) // 10%
	ExitFee = uint256.NewInt(0)

	MinWeight      = uint256.NewInt(10_000_000_000)
	MaxWeight      = uint256.NewInt(500_000_000_000)
	MaxTotalWeight = uint256.NewInt(500_000_000_000)

	// MinBalance is in raw units, not scaled.
	MinBalance = uint256.NewInt(10_000)

	InitPoolSupply = uint256.NewInt(1_000_000_000_000)

	MinPowBase   = uint256.NewInt(1)
	MaxPowBase   = uint256.NewInt(19_999_999_999)
	PowPrecision = uint256.NewInt(100_000_000)

	MaxInRatio  = uint256.NewInt(5_000_000_000)
	MaxOutRatio = uint256.NewInt(3_333_333_334)
)

// halfBONE is the rounding term added by Mul.
var halfBONE = uint256.NewInt(5_000_000_000)

// One returns a fresh copy of BONE.
func One() *uint256.Int {
	return new(uint256.Int).Set(BONE)
}

// Units returns n whole units as a fixed-point value.
func Units(n uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(n), BONE)
}
