// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"errors"

	"github.com/luxfi/weighted/bmath"
)

// Error kinds. Every error returned by a pool operation matches exactly one
// of these (arithmetic traps match bmath.ErrArithmetic) with errors.Is.
var (
	ErrValidation     = errors.New("validation error")
	ErrAuthorization  = errors.New("authorization error")
	ErrState          = errors.New("state error")
	ErrArithmetic     = bmath.ErrArithmetic
	ErrMathApprox     = errors.New("math approximation error")
	ErrReentry        = errors.New("reentry")
	ErrTransferFailed = errors.New("transfer failed")
)

// Errors - Validation
var (
	ErrMinWeight      = newError(ErrValidation, "weight below minimum")
	ErrMaxWeight      = newError(ErrValidation, "weight above maximum")
	ErrMaxTotalWeight = newError(ErrValidation, "total weight above maximum")
	ErrMinBalance     = newError(ErrValidation, "balance below minimum")
	ErrMinFee         = newError(ErrValidation, "swap fee below minimum")
	ErrMaxFee         = newError(ErrValidation, "swap fee above maximum")
	ErrMaxInRatio     = newError(ErrValidation, "amount in exceeds max in ratio")
	ErrMaxOutRatio    = newError(ErrValidation, "amount out exceeds max out ratio")
	ErrBadLimitPrice  = newError(ErrValidation, "spot price above limit before swap")
	ErrLimitPrice     = newError(ErrValidation, "spot price above limit after swap")
	ErrLimitIn        = newError(ErrValidation, "amount in above limit")
	ErrLimitOut       = newError(ErrValidation, "amount out below limit")
	ErrArgLength      = newError(ErrValidation, "argument length mismatch")
	ErrSameToken      = newError(ErrValidation, "token in and token out are the same")
	ErrZeroAmount     = newError(ErrValidation, "amount is zero")
	ErrZeroAddress    = newError(ErrValidation, "zero address")
	ErrInvalidExitFee = newError(ErrValidation, "exit fee must be below one")
)

// Errors - Authorization
var (
	ErrNotController = newError(ErrAuthorization, "caller is not the controller")
)

// Errors - State
var (
	ErrIsFinalized   = newError(ErrState, "pool is finalized")
	ErrNotFinalized  = newError(ErrState, "pool is not finalized")
	ErrIsBound       = newError(ErrState, "token is bound")
	ErrNotBound      = newError(ErrState, "token is not bound")
	ErrMaxTokens     = newError(ErrState, "too many tokens bound")
	ErrMinTokens     = newError(ErrState, "too few tokens bound")
	ErrSwapNotPublic = newError(ErrState, "public swap is disabled")
	ErrPoolExists    = newError(ErrState, "pool already created")
	ErrNoPool        = newError(ErrState, "no pool at address")
)

type poolError struct {
	kind error
	msg  string
}

func newError(kind error, msg string) error {
	return &poolError{kind: kind, msg: msg}
}

func (e *poolError) Error() string { return e.msg }

func (e *poolError) Unwrap() error { return e.kind }
