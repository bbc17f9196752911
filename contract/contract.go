// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package contract exposes a factory and its pools as a binary call
// interface. Input is a 4-byte big-endian selector followed by 32-byte
// argument words; output is a sequence of 32-byte words.
package contract

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"go.uber.org/zap"

	"github.com/luxfi/weighted/factory"
	"github.com/luxfi/weighted/pool"
)

var (
	ErrInputTooShort   = errors.New("input too short")
	ErrOutOfGas        = errors.New("out of gas")
	ErrWriteProtection = errors.New("cannot write in read-only mode")
	ErrUnknownSelector = errors.New("unknown method selector")
)

// Gas costs
const (
	GasNewPool    uint64 = 50_000
	GasCollect    uint64 = 20_000
	GasAdmin      uint64 = 5_000
	GasControl    uint64 = 5_000
	GasBind       uint64 = 30_000
	GasSwap       uint64 = 40_000
	GasJoinExit   uint64 = 60_000
	GasSingle     uint64 = 40_000
	GasShareWrite uint64 = 10_000
	GasRead       uint64 = 2_000
)

// Factory selectors
const (
	SelectorNewPool  uint32 = 0x01000000 // newPool()
	SelectorIsPool   uint32 = 0x02000000 // isPool(address)
	SelectorPools    uint32 = 0x03000000 // pools()
	SelectorCollect  uint32 = 0x04000000 // collect(address)
	SelectorSetAdmin uint32 = 0x05000000 // setAdmin(address)
	SelectorGetAdmin uint32 = 0x06000000 // getAdmin()
)

// Pool controller selectors
const (
	SelectorSetSwapFee    uint32 = 0x10000000 // setSwapFee(uint256)
	SelectorSetController uint32 = 0x11000000 // setController(address)
	SelectorSetPublicSwap uint32 = 0x12000000 // setPublicSwap(bool)
	SelectorFinalize      uint32 = 0x13000000 // finalize()
	SelectorBind          uint32 = 0x14000000 // bind(address,uint256,uint256)
	SelectorRebind        uint32 = 0x15000000 // rebind(address,uint256,uint256)
	SelectorUnbind        uint32 = 0x16000000 // unbind(address)
	SelectorGulp          uint32 = 0x17000000 // gulp(address)
)

// Trading selectors
const (
	SelectorSwapExactAmountIn       uint32 = 0x20000000 // swapExactAmountIn(address,uint256,address,uint256,uint256)
	SelectorSwapExactAmountOut      uint32 = 0x21000000 // swapExactAmountOut(address,uint256,address,uint256,uint256)
	SelectorJoinPool                uint32 = 0x22000000 // joinPool(uint256,uint256[])
	SelectorExitPool                uint32 = 0x23000000 // exitPool(uint256,uint256[])
	SelectorJoinswapExternAmountIn  uint32 = 0x24000000 // joinswapExternAmountIn(address,uint256,uint256)
	SelectorJoinswapPoolAmountOut   uint32 = 0x25000000 // joinswapPoolAmountOut(address,uint256,uint256)
	SelectorExitswapPoolAmountIn    uint32 = 0x26000000 // exitswapPoolAmountIn(address,uint256,uint256)
	SelectorExitswapExternAmountOut uint32 = 0x27000000 // exitswapExternAmountOut(address,uint256,uint256)
)

// Pool view selectors
const (
	SelectorIsPublicSwap               uint32 = 0x30000000 // isPublicSwap()
	SelectorIsFinalized                uint32 = 0x31000000 // isFinalized()
	SelectorIsBound                    uint32 = 0x32000000 // isBound(address)
	SelectorGetNumTokens               uint32 = 0x33000000 // getNumTokens()
	SelectorGetCurrentTokens           uint32 = 0x34000000 // getCurrentTokens()
	SelectorGetFinalTokens             uint32 = 0x35000000 // getFinalTokens()
	SelectorGetDenormalizedWeight      uint32 = 0x36000000 // getDenormalizedWeight(address)
	SelectorGetTotalDenormalizedWeight uint32 = 0x37000000 // getTotalDenormalizedWeight()
	SelectorGetNormalizedWeight        uint32 = 0x38000000 // getNormalizedWeight(address)
	SelectorGetBalance                 uint32 = 0x39000000 // getBalance(address)
	SelectorGetSwapFee                 uint32 = 0x3a000000 // getSwapFee()
	SelectorGetController              uint32 = 0x3b000000 // getController()
	SelectorGetSpotPrice               uint32 = 0x3c000000 // getSpotPrice(address,address)
	SelectorGetSpotPriceSansFee        uint32 = 0x3d000000 // getSpotPriceSansFee(address,address)
	SelectorGetExitFee                 uint32 = 0x3e000000 // getExitFee()
)

// Pool share selectors
const (
	SelectorTotalSupply      uint32 = 0x40000000 // totalSupply()
	SelectorBalanceOf        uint32 = 0x41000000 // balanceOf(address)
	SelectorAllowance        uint32 = 0x42000000 // allowance(address,address)
	SelectorApprove          uint32 = 0x43000000 // approve(address,uint256)
	SelectorTransfer         uint32 = 0x44000000 // transfer(address,uint256)
	SelectorTransferFrom     uint32 = 0x45000000 // transferFrom(address,address,uint256)
	SelectorIncreaseApproval uint32 = 0x46000000 // increaseApproval(address,uint256)
	SelectorDecreaseApproval uint32 = 0x47000000 // decreaseApproval(address,uint256)
)

// runFunc executes one method. addr is the called address: the pool for
// pool methods, ignored by factory methods.
type runFunc func(fr *Frame, caller, addr common.Address, in *reader) ([]byte, error)

type method struct {
	gas    uint64
	writes bool
	run    runFunc
}

// Contract dispatches binary calls to a factory and its pools.
type Contract struct {
	factory *factory.Factory
	log     *zap.Logger
}

func New(f *factory.Factory, log *zap.Logger) *Contract {
	if log == nil {
		log = zap.NewNop()
	}
	return &Contract{factory: f, log: log.Named("contract")}
}

// Frame is one top-level call and every call it makes back into the
// contract before returning. A call re-entering from inside a running call,
// such as from a ledger transfer hook, must go through the same Frame: it
// then runs under the outer call and a busy pool rejects it with
// pool.ErrReentry. A Frame belongs to one goroutine.
type Frame struct {
	c    *Contract
	host *factory.Frame
}

// Frame starts a new top-level call.
func (c *Contract) Frame() *Frame {
	return &Frame{c: c, host: c.factory.Frame()}
}

// Run executes input on behalf of caller against addr as a new top-level
// call.
func (c *Contract) Run(
	caller common.Address,
	addr common.Address,
	input []byte,
	suppliedGas uint64,
	readOnly bool,
) (ret []byte, remainingGas uint64, err error) {
	return c.Frame().Run(caller, addr, input, suppliedGas, readOnly)
}

// Run executes input on behalf of caller against addr within fr.
func (fr *Frame) Run(
	caller common.Address,
	addr common.Address,
	input []byte,
	suppliedGas uint64,
	readOnly bool,
) (ret []byte, remainingGas uint64, err error) {
	if len(input) < 4 {
		return nil, suppliedGas, ErrInputTooShort
	}

	selector := binary.BigEndian.Uint32(input[:4])
	m, ok := methods[selector]
	if !ok {
		return nil, suppliedGas, fmt.Errorf("%w: %x", ErrUnknownSelector, selector)
	}
	if m.writes && readOnly {
		return nil, suppliedGas, ErrWriteProtection
	}
	if suppliedGas < m.gas {
		return nil, 0, ErrOutOfGas
	}
	remainingGas = suppliedGas - m.gas

	ret, err = m.run(fr, caller, addr, newReader(input[4:]))
	if err != nil {
		fr.c.log.Debug("call failed",
			zap.Stringer("caller", caller),
			zap.Stringer("addr", addr),
			zap.String("selector", fmt.Sprintf("%08x", selector)),
			zap.Error(err),
		)
		return nil, remainingGas, err
	}
	return ret, remainingGas, nil
}

// exec runs fn against the pool at addr and returns its output.
func (fr *Frame) exec(addr common.Address, fn func(p *pool.Pool) ([]byte, error)) ([]byte, error) {
	var ret []byte
	err := fr.host.Exec(addr, func(p *pool.Pool) error {
		var err error
		ret, err = fn(p)
		return err
	})
	return ret, err
}

// Selector returns the 4-byte prefix for selector.
func Selector(selector uint32) []byte {
	out := make([]byte, 4)
	binary.BigEndian.PutUint32(out, selector)
	return out
}

// Call builds call input for selector with the given arguments.
func Call(selector uint32, args ...any) []byte {
	return append(Selector(selector), pack(args...)...)
}

// Unpack splits output into its 32-byte words.
func Unpack(ret []byte) []*uint256.Int {
	in := newReader(ret)
	out := make([]*uint256.Int, 0, len(ret)/wordSize)
	for len(in.data) >= wordSize {
		out = append(out, in.uint())
	}
	return out
}
