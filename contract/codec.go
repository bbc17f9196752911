// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package contract

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
)

const wordSize = 32

// reader decodes call arguments. The first failure sticks; later reads
// return zero values.
type reader struct {
	data []byte
	err  error
}

func newReader(data []byte) *reader {
	return &reader{data: data}
}

func (r *reader) word() []byte {
	if r.err != nil {
		return make([]byte, wordSize)
	}
	if len(r.data) < wordSize {
		r.err = fmt.Errorf("%w: need %d bytes, have %d", ErrInputTooShort, wordSize, len(r.data))
		return make([]byte, wordSize)
	}
	w := r.data[:wordSize]
	r.data = r.data[wordSize:]
	return w
}

func (r *reader) address() common.Address {
	return common.BytesToAddress(r.word())
}

func (r *reader) uint() *uint256.Int {
	return new(uint256.Int).SetBytes32(r.word())
}

func (r *reader) bool() bool {
	return !r.uint().IsZero()
}

// uints reads a length word followed by that many values.
func (r *reader) uints() []*uint256.Int {
	n := r.uint()
	if r.err != nil {
		return nil
	}
	if !n.IsUint64() || n.Uint64() > uint64(len(r.data)/wordSize) {
		r.err = fmt.Errorf("%w: array length %s exceeds input", ErrInputTooShort, n.Dec())
		return nil
	}
	out := make([]*uint256.Int, n.Uint64())
	for i := range out {
		out[i] = r.uint()
	}
	return out
}

// pack encodes values as consecutive 32-byte words. Slices are encoded as a
// length word followed by their elements.
func pack(values ...any) []byte {
	out := make([]byte, 0, len(values)*wordSize)
	for _, v := range values {
		switch v := v.(type) {
		case *uint256.Int:
			w := v.Bytes32()
			out = append(out, w[:]...)
		case common.Address:
			out = append(out, common.LeftPadBytes(v.Bytes(), wordSize)...)
		case bool:
			if v {
				out = append(out, pack(uint256.NewInt(1))...)
			} else {
				out = append(out, pack(uint256.NewInt(0))...)
			}
		case int:
			out = append(out, pack(uint256.NewInt(uint64(v)))...)
		case []*uint256.Int:
			out = append(out, pack(len(v))...)
			for _, x := range v {
				out = append(out, pack(x)...)
			}
		case []common.Address:
			out = append(out, pack(len(v))...)
			for _, x := range v {
				out = append(out, pack(x)...)
			}
		default:
			panic(fmt.Sprintf("contract: cannot pack %T", v))
		}
	}
	return out
}
