// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package pool implements a weighted constant-product pool holding two to
// eight tokens. Pool state lives in a StateDB under the pool's address, and
// the pool is itself the ledger of its shares.
//
// Every mutating operation runs inside a scoped guard: it fails with
// ErrReentry when another operation on the same pool is in flight, and any
// error reverts all state written since the operation began, including
// token transfers and emitted logs.
package pool

import (
	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"go.uber.org/zap"

	"github.com/luxfi/weighted/bmath"
	"github.com/luxfi/weighted/state"
	"github.com/luxfi/weighted/token"
)

// Share ledger metadata
const (
	ShareName   = "Weighted Pool Share"
	ShareSymbol = "WPS"
)

// Storage key prefixes for pool state
var (
	controllerPrefix   = []byte("ctrl")
	feeCollectorPrefix = []byte("fcol")
	swapFeePrefix      = []byte("swfe")
	exitFeePrefix      = []byte("exfe")
	finalizedPrefix    = []byte("fnlz")
	publicSwapPrefix   = []byte("pubs")
	mutexPrefix        = []byte("mutx")
	totalWeightPrefix  = []byte("totw")
	numTokensPrefix    = []byte("ntok")
	tokenPrefix        = []byte("tokn")
	recordPrefix       = []byte("recd")
)

// Record is the per-token state of a bound token.
type Record struct {
	Bound   bool
	Index   uint64
	Denorm  *uint256.Int
	Balance *uint256.Int
}

// Params configure a new pool.
type Params struct {
	Controller   common.Address
	FeeCollector common.Address
	// ExitFee is charged on pool shares redeemed; nil means bmath.ExitFee.
	ExitFee *uint256.Int
}

// Pool is a handle on pool state stored in a StateDB. Handles are cheap and
// hold no state of their own.
type Pool struct {
	db      state.StateDB
	address common.Address
	assets  token.Directory
	shares  *token.ERC20
	log     *zap.Logger
}

// Create initializes a pool at address and returns a handle on it. The pool
// starts open with the minimum swap fee and public swap disabled.
func Create(db state.StateDB, address common.Address, assets token.Directory, params Params, log *zap.Logger) (*Pool, error) {
	if params.Controller == (common.Address{}) || params.FeeCollector == (common.Address{}) {
		return nil, ErrZeroAddress
	}
	exitFee := params.ExitFee
	if exitFee == nil {
		exitFee = bmath.ExitFee
	}
	if !exitFee.Lt(bmath.BONE) {
		return nil, ErrInvalidExitFee
	}

	p := newPool(db, address, assets, log)
	if p.controller() != (common.Address{}) {
		return nil, ErrPoolExists
	}
	p.setAddress(controllerPrefix, params.Controller)
	p.setAddress(feeCollectorPrefix, params.FeeCollector)
	p.setUint(swapFeePrefix, bmath.MinFee)
	p.setUint(exitFeePrefix, exitFee)

	p.log.Debug("pool created",
		zap.Stringer("controller", params.Controller),
		zap.Stringer("feeCollector", params.FeeCollector),
		zap.String("exitFee", exitFee.Dec()),
	)
	return p, nil
}

// Load returns a handle on a pool previously created at address.
func Load(db state.StateDB, address common.Address, assets token.Directory, log *zap.Logger) (*Pool, error) {
	p := newPool(db, address, assets, log)
	if p.controller() == (common.Address{}) {
		return nil, ErrNoPool
	}
	return p, nil
}

func newPool(db state.StateDB, address common.Address, assets token.Directory, log *zap.Logger) *Pool {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pool{
		db:      db,
		address: address,
		assets:  assets,
		shares:  token.NewERC20(db, address, ShareName, ShareSymbol, bmath.Decimals),
		log:     log.Named("pool").With(zap.Stringer("pool", address)),
	}
}

// Address returns the pool's address, which is also its share ledger.
func (p *Pool) Address() common.Address {
	return p.address
}

// =========================================================================
// Storage
// =========================================================================

func (p *Pool) uintAt(prefix []byte) *uint256.Int {
	return state.Uint(p.db, p.address, state.Key(prefix))
}

func (p *Pool) setUint(prefix []byte, v *uint256.Int) {
	state.SetUint(p.db, p.address, state.Key(prefix), v)
}

func (p *Pool) boolAt(prefix []byte) bool {
	return state.HashToBool(p.db.GetState(p.address, state.Key(prefix)))
}

func (p *Pool) setBool(prefix []byte, v bool) {
	p.db.SetState(p.address, state.Key(prefix), state.BoolToHash(v))
}

func (p *Pool) addressAt(prefix []byte) common.Address {
	return state.HashToAddress(p.db.GetState(p.address, state.Key(prefix)))
}

func (p *Pool) setAddress(prefix []byte, addr common.Address) {
	p.db.SetState(p.address, state.Key(prefix), state.AddressToHash(addr))
}

func (p *Pool) controller() common.Address   { return p.addressAt(controllerPrefix) }
func (p *Pool) feeCollector() common.Address { return p.addressAt(feeCollectorPrefix) }
func (p *Pool) swapFee() *uint256.Int        { return p.uintAt(swapFeePrefix) }
func (p *Pool) exitFee() *uint256.Int        { return p.uintAt(exitFeePrefix) }
func (p *Pool) finalized() bool              { return p.boolAt(finalizedPrefix) }
func (p *Pool) publicSwap() bool             { return p.boolAt(publicSwapPrefix) }
func (p *Pool) totalWeight() *uint256.Int    { return p.uintAt(totalWeightPrefix) }
func (p *Pool) locked() bool                 { return p.boolAt(mutexPrefix) }

func (p *Pool) numTokens() uint64 {
	return p.uintAt(numTokensPrefix).Uint64()
}

func (p *Pool) setNumTokens(n uint64) {
	p.setUint(numTokensPrefix, uint256.NewInt(n))
}

func (p *Pool) tokenAt(i uint64) common.Address {
	return state.HashToAddress(p.db.GetState(p.address, state.Key(tokenPrefix, state.Uint64Bytes(i))))
}

func (p *Pool) setTokenAt(i uint64, t common.Address) {
	p.db.SetState(p.address, state.Key(tokenPrefix, state.Uint64Bytes(i)), state.AddressToHash(t))
}

// tokens returns the bound tokens in list order.
func (p *Pool) tokens() []common.Address {
	n := p.numTokens()
	out := make([]common.Address, n)
	for i := uint64(0); i < n; i++ {
		out[i] = p.tokenAt(i)
	}
	return out
}

func recordKey(t common.Address, field string) common.Hash {
	return state.Key(recordPrefix, t.Bytes(), []byte(field))
}

func (p *Pool) record(t common.Address) Record {
	return Record{
		Bound:   state.HashToBool(p.db.GetState(p.address, recordKey(t, "bound"))),
		Index:   state.Uint(p.db, p.address, recordKey(t, "index")).Uint64(),
		Denorm:  state.Uint(p.db, p.address, recordKey(t, "denorm")),
		Balance: state.Uint(p.db, p.address, recordKey(t, "balance")),
	}
}

func (p *Pool) setRecord(t common.Address, r Record) {
	denorm, balance := r.Denorm, r.Balance
	if denorm == nil {
		denorm = new(uint256.Int)
	}
	if balance == nil {
		balance = new(uint256.Int)
	}
	p.db.SetState(p.address, recordKey(t, "bound"), state.BoolToHash(r.Bound))
	state.SetUint(p.db, p.address, recordKey(t, "index"), uint256.NewInt(r.Index))
	state.SetUint(p.db, p.address, recordKey(t, "denorm"), denorm)
	state.SetUint(p.db, p.address, recordKey(t, "balance"), balance)
}

func (p *Pool) setBalance(t common.Address, balance *uint256.Int) {
	state.SetUint(p.db, p.address, recordKey(t, "balance"), balance)
}

// boundRecord returns the record of t, failing when t is not bound.
func (p *Pool) boundRecord(t common.Address) (Record, error) {
	r := p.record(t)
	if !r.Bound {
		return Record{}, ErrNotBound
	}
	return r, nil
}
