// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package factory hosts weighted pools on a shared StateDB. It derives pool
// addresses, keeps the pool registry and serializes every call that touches
// the state, and it collects the exit fees pools pay to it.
package factory

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/types"
	"go.uber.org/zap"

	"github.com/luxfi/weighted/pool"
	"github.com/luxfi/weighted/state"
	"github.com/luxfi/weighted/token"
)

var (
	ErrInvalidConfig = errors.New("invalid factory config")
	ErrNotAdmin      = errors.New("caller is not the factory admin")
	ErrNotPool       = errors.New("address is not a pool of this factory")
	ErrMaxPools      = errors.New("pool limit reached")
)

// Storage key prefixes for factory state
var (
	adminPrefix     = []byte("admn")
	isPoolPrefix    = []byte("ispl")
	poolCountPrefix = []byte("npls")
	poolListPrefix  = []byte("plst")
	poolAddrPrefix  = []byte("padr")
)

// NewPoolTopic is emitted for every pool created.
var NewPoolTopic = state.Topic("LOG_NEW_POOL(address,address)")

// Factory creates pools and runs calls against them. All pools of a factory
// share one StateDB, so calls are serialized across pools, not per pool.
// Each method of Factory runs as its own Frame.
type Factory struct {
	mu sync.Mutex

	db       state.StateDB
	address  common.Address
	assets   token.Directory
	exitFee  *uint256.Int
	maxPools uint64
	log      *zap.Logger
}

// New returns a factory at address. The admin from cfg is stored on first
// use; an existing admin is kept.
func New(db state.StateDB, address common.Address, assets token.Directory, cfg *Config, log *zap.Logger) (*Factory, error) {
	if err := cfg.Verify(); err != nil {
		return nil, err
	}
	exitFee, err := cfg.ExitFeeValue()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	f := &Factory{
		db:       db,
		address:  address,
		assets:   assets,
		exitFee:  exitFee,
		maxPools: cfg.MaxPools,
		log:      log.Named("factory"),
	}
	if f.admin() == (common.Address{}) {
		f.db.SetState(f.address, state.Key(adminPrefix), state.AddressToHash(cfg.Admin))
	}
	return f, nil
}

func (f *Factory) Address() common.Address {
	return f.address
}

func (f *Factory) admin() common.Address {
	return state.HashToAddress(f.db.GetState(f.address, state.Key(adminPrefix)))
}

func (f *Factory) poolCount() uint64 {
	return state.Uint(f.db, f.address, state.Key(poolCountPrefix)).Uint64()
}

func (f *Factory) isPool(addr common.Address) bool {
	return state.HashToBool(f.db.GetState(f.address, state.Key(isPoolPrefix, addr.Bytes())))
}

// Frame is one top-level call into the factory together with every call it
// makes back into the factory before returning, such as from a ledger
// transfer hook. The outermost call through a frame takes the factory lock
// and nested calls run under it, so a call back into a busy pool reaches the
// pool guard and fails with pool.ErrReentry. Calls from other goroutines
// wait for the lock. A Frame belongs to one goroutine.
type Frame struct {
	f     *Factory
	depth int
}

// Frame starts a new top-level call.
func (f *Factory) Frame() *Frame {
	return &Frame{f: f}
}

func (fr *Frame) enter() {
	if fr.depth == 0 {
		fr.f.mu.Lock()
	}
	fr.depth++
}

func (fr *Frame) exit() {
	fr.depth--
	if fr.depth == 0 {
		fr.f.mu.Unlock()
	}
}

// NewPool creates an open pool controlled by caller whose exit fees are
// paid to the factory.
func (f *Factory) NewPool(caller common.Address) (*pool.Pool, error) {
	return f.Frame().NewPool(caller)
}

func (f *Factory) IsPool(addr common.Address) bool {
	return f.Frame().IsPool(addr)
}

// Pools returns the addresses of all pools in ascending order.
func (f *Factory) Pools() []common.Address {
	return f.Frame().Pools()
}

// Pool loads the pool at addr. The returned pool is not serialized against
// other callers; use Exec for calls that may run concurrently.
func (f *Factory) Pool(addr common.Address) (*pool.Pool, error) {
	fr := f.Frame()
	fr.enter()
	defer fr.exit()
	return f.load(addr)
}

// Exec runs fn against the pool at addr with the factory lock held.
func (f *Factory) Exec(addr common.Address, fn func(p *pool.Pool) error) error {
	return f.Frame().Exec(addr, fn)
}

func (f *Factory) Admin() common.Address {
	return f.Frame().Admin()
}

// SetAdmin hands the admin role to admin.
func (f *Factory) SetAdmin(caller, admin common.Address) error {
	return f.Frame().SetAdmin(caller, admin)
}

// Collect transfers the factory's shares of the pool at addr to the admin
// and returns the amount moved.
func (f *Factory) Collect(caller, addr common.Address) (*uint256.Int, error) {
	return f.Frame().Collect(caller, addr)
}

func (fr *Frame) NewPool(caller common.Address) (*pool.Pool, error) {
	fr.enter()
	defer fr.exit()

	f := fr.f
	n := f.poolCount()
	if f.maxPools != 0 && n >= f.maxPools {
		return nil, ErrMaxPools
	}

	addr := f.poolAddress(n)
	p, err := pool.Create(f.db, addr, f.assets, pool.Params{
		Controller:   caller,
		FeeCollector: f.address,
		ExitFee:      f.exitFee,
	}, f.log)
	if err != nil {
		return nil, fmt.Errorf("create pool %d: %w", n, err)
	}

	f.db.SetState(f.address, state.Key(isPoolPrefix, addr.Bytes()), state.BoolToHash(true))
	f.db.SetState(f.address, state.Key(poolListPrefix, state.Uint64Bytes(n)), state.AddressToHash(addr))
	state.SetUint(f.db, f.address, state.Key(poolCountPrefix), uint256.NewInt(n+1))
	f.db.AddLog(&types.Log{
		Address: f.address,
		Topics:  []common.Hash{NewPoolTopic, state.AddressToHash(caller), state.AddressToHash(addr)},
	})

	f.log.Debug("pool created", zap.Stringer("pool", addr), zap.Stringer("controller", caller))
	return p, nil
}

// poolAddress derives the address of the n-th pool.
func (f *Factory) poolAddress(n uint64) common.Address {
	key := state.Key(poolAddrPrefix, f.address.Bytes(), state.Uint64Bytes(n))
	return common.BytesToAddress(key[common.HashLength-common.AddressLength:])
}

func (fr *Frame) IsPool(addr common.Address) bool {
	fr.enter()
	defer fr.exit()
	return fr.f.isPool(addr)
}

func (fr *Frame) Pools() []common.Address {
	fr.enter()
	defer fr.exit()

	f := fr.f
	n := f.poolCount()
	out := make([]common.Address, n)
	for i := uint64(0); i < n; i++ {
		out[i] = state.HashToAddress(f.db.GetState(f.address, state.Key(poolListPrefix, state.Uint64Bytes(i))))
	}
	// sort by address to ensure deterministic iteration
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Bytes(), out[j].Bytes()) < 0
	})
	return out
}

// Exec runs fn against the pool at addr. fn may call back into the factory
// through fr.
func (fr *Frame) Exec(addr common.Address, fn func(p *pool.Pool) error) error {
	fr.enter()
	defer fr.exit()

	p, err := fr.f.load(addr)
	if err != nil {
		return err
	}
	return fn(p)
}

func (f *Factory) load(addr common.Address) (*pool.Pool, error) {
	if !f.isPool(addr) {
		return nil, fmt.Errorf("%w: %s", ErrNotPool, addr)
	}
	return pool.Load(f.db, addr, f.assets, f.log)
}

func (fr *Frame) Admin() common.Address {
	fr.enter()
	defer fr.exit()
	return fr.f.admin()
}

func (fr *Frame) SetAdmin(caller, admin common.Address) error {
	fr.enter()
	defer fr.exit()

	f := fr.f
	if caller != f.admin() {
		return ErrNotAdmin
	}
	if admin == (common.Address{}) {
		return fmt.Errorf("%w: zero admin", ErrInvalidConfig)
	}
	f.db.SetState(f.address, state.Key(adminPrefix), state.AddressToHash(admin))
	f.log.Debug("admin changed", zap.Stringer("from", caller), zap.Stringer("to", admin))
	return nil
}

func (fr *Frame) Collect(caller, addr common.Address) (*uint256.Int, error) {
	fr.enter()
	defer fr.exit()

	f := fr.f
	if caller != f.admin() {
		return nil, ErrNotAdmin
	}
	p, err := f.load(addr)
	if err != nil {
		return nil, err
	}
	collected := p.BalanceOf(f.address)
	if err := p.Transfer(f.address, caller, collected); err != nil {
		return nil, err
	}
	f.log.Debug("collected exit fees", zap.Stringer("pool", addr), zap.String("shares", collected.Dec()))
	return collected, nil
}
