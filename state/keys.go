// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"encoding/binary"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/zeebo/blake3"
)

// Key derives a storage slot from a prefix and identifiers.
func Key(prefix []byte, ids ...[]byte) common.Hash {
	h := blake3.New()
	h.Write(prefix)
	for _, id := range ids {
		h.Write(id)
	}
	var key common.Hash
	h.Digest().Read(key[:])
	return key
}

// Topic hashes an event signature.
func Topic(signature string) common.Hash {
	return Key([]byte(signature))
}

// Uint64Bytes encodes n big-endian for use as a Key identifier.
func Uint64Bytes(n uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], n)
	return b[:]
}

func HashToUint(h common.Hash) *uint256.Int {
	return new(uint256.Int).SetBytes32(h[:])
}

func UintToHash(v *uint256.Int) common.Hash {
	return common.Hash(v.Bytes32())
}

func HashToBool(h common.Hash) bool {
	return h != (common.Hash{})
}

func BoolToHash(b bool) common.Hash {
	var h common.Hash
	if b {
		h[common.HashLength-1] = 1
	}
	return h
}

func HashToAddress(h common.Hash) common.Address {
	return common.BytesToAddress(h[:])
}

func AddressToHash(addr common.Address) common.Hash {
	return common.BytesToHash(addr.Bytes())
}

// Uint reads slot key of addr as an unsigned integer.
func Uint(db StateDB, addr common.Address, key common.Hash) *uint256.Int {
	return HashToUint(db.GetState(addr, key))
}

// SetUint writes v to slot key of addr.
func SetUint(db StateDB, addr common.Address, key common.Hash, v *uint256.Int) {
	db.SetState(addr, key, UintToHash(v))
}
