// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package token

import (
	"bytes"
	"fmt"
	"sort"
	"sync"

	"github.com/luxfi/geth/common"
)

var _ Directory = (*Registry)(nil)

// Registry is a Directory of ledgers keyed by asset address.
type Registry struct {
	mu      sync.RWMutex
	ledgers map[common.Address]Ledger
	assets  []common.Address // sorted by address
}

func NewRegistry() *Registry {
	return &Registry{ledgers: make(map[common.Address]Ledger)}
}

// Register makes ledger resolvable as asset.
func (r *Registry) Register(asset common.Address, ledger Ledger) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.ledgers[asset]; ok {
		return fmt.Errorf("%w: %s", ErrAssetRegistered, asset)
	}
	r.ledgers[asset] = ledger

	// keep sorted for deterministic iteration
	i := sort.Search(len(r.assets), func(i int) bool {
		return bytes.Compare(r.assets[i].Bytes(), asset.Bytes()) > 0
	})
	r.assets = append(r.assets, common.Address{})
	copy(r.assets[i+1:], r.assets[i:])
	r.assets[i] = asset
	return nil
}

func (r *Registry) Ledger(asset common.Address) (Ledger, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ledger, ok := r.ledgers[asset]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAsset, asset)
	}
	return ledger, nil
}

// Assets returns the registered asset addresses in ascending order.
func (r *Registry) Assets() []common.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]common.Address, len(r.assets))
	copy(out, r.assets)
	return out
}
