// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/types"

	"github.com/luxfi/weighted/state"
)

// Event topics. Indexed arguments follow the topic; amounts are 32-byte
// big-endian words in Data.
var (
	SwapTopic = state.Topic("LOG_SWAP(address,address,address,uint256,uint256)")
	JoinTopic = state.Topic("LOG_JOIN(address,address,uint256)")
	ExitTopic = state.Topic("LOG_EXIT(address,address,uint256)")
	CallTopic = state.Topic("LOG_CALL(bytes32,address,bytes)")
)

// CallSelector identifies a controller call in LOG_CALL.
func CallSelector(op string) common.Hash {
	return state.Topic(op)
}

func (p *Pool) emit(topics []common.Hash, words ...common.Hash) {
	data := make([]byte, 0, len(words)*common.HashLength)
	for _, w := range words {
		data = append(data, w.Bytes()...)
	}
	p.db.AddLog(&types.Log{
		Address: p.address,
		Topics:  topics,
		Data:    data,
	})
}

func (p *Pool) emitSwap(caller, tokenIn, tokenOut common.Address, amountIn, amountOut *uint256.Int) {
	p.emit(
		[]common.Hash{SwapTopic, state.AddressToHash(caller), state.AddressToHash(tokenIn), state.AddressToHash(tokenOut)},
		state.UintToHash(amountIn), state.UintToHash(amountOut),
	)
}

func (p *Pool) emitJoin(caller, tokenIn common.Address, amountIn *uint256.Int) {
	p.emit(
		[]common.Hash{JoinTopic, state.AddressToHash(caller), state.AddressToHash(tokenIn)},
		state.UintToHash(amountIn),
	)
}

func (p *Pool) emitExit(caller, tokenOut common.Address, amountOut *uint256.Int) {
	p.emit(
		[]common.Hash{ExitTopic, state.AddressToHash(caller), state.AddressToHash(tokenOut)},
		state.UintToHash(amountOut),
	)
}

func (p *Pool) emitCall(op string, caller common.Address, args ...common.Hash) {
	p.emit([]common.Hash{CallTopic, CallSelector(op), state.AddressToHash(caller)}, args...)
}
