// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package state provides the storage that pools and ledgers run against: a
// slot store keyed by (account, 32-byte key) with snapshots, reverts and
// event logs, optionally backed by a durable database.
package state

import (
	"errors"

	"github.com/luxfi/database"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/types"
)

// StateDB is the storage capability consumed by ledgers and pools.
type StateDB interface {
	GetState(addr common.Address, key common.Hash) common.Hash
	SetState(addr common.Address, key common.Hash, value common.Hash)
	AddLog(log *types.Log)
	Snapshot() int
	RevertToSnapshot(id int)
	DiscardSnapshot(id int)
}

var _ StateDB = (*Memory)(nil)

type change struct {
	addr    common.Address
	key     common.Hash
	prev    common.Hash
	existed bool
}

type revision struct {
	changes int
	logs    int
}

// Memory is a journaled StateDB. Writes are kept in memory until Commit
// flushes them to the backing database; reads of untouched slots fall
// through to it. A Memory is not safe for concurrent use.
type Memory struct {
	db database.Database

	dirty     map[common.Address]map[common.Hash]common.Hash
	journal   []change
	revisions []revision
	logs      []*types.Log

	// first backend read error, reported by Err and Commit
	dbErr error
}

// NewMemory returns a StateDB over db. A nil db keeps all state in memory.
func NewMemory(db database.Database) *Memory {
	return &Memory{
		db:    db,
		dirty: make(map[common.Address]map[common.Hash]common.Hash),
	}
}

func (m *Memory) GetState(addr common.Address, key common.Hash) common.Hash {
	if slots, ok := m.dirty[addr]; ok {
		if v, ok := slots[key]; ok {
			return v
		}
	}
	if m.db == nil {
		return common.Hash{}
	}
	v, err := m.db.Get(dbKey(addr, key))
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) && m.dbErr == nil {
			m.dbErr = err
		}
		return common.Hash{}
	}
	return common.BytesToHash(v)
}

func (m *Memory) SetState(addr common.Address, key common.Hash, value common.Hash) {
	slots, ok := m.dirty[addr]
	if !ok {
		slots = make(map[common.Hash]common.Hash)
		m.dirty[addr] = slots
	}
	prev, existed := slots[key]
	m.journal = append(m.journal, change{addr: addr, key: key, prev: prev, existed: existed})
	slots[key] = value
}

func (m *Memory) AddLog(log *types.Log) {
	log.Index = uint(len(m.logs))
	m.logs = append(m.logs, log)
}

// Logs returns the logs emitted since the StateDB was created.
func (m *Memory) Logs() []*types.Log {
	return m.logs
}

// Snapshot marks the current state and returns an id for RevertToSnapshot.
func (m *Memory) Snapshot() int {
	m.revisions = append(m.revisions, revision{changes: len(m.journal), logs: len(m.logs)})
	return len(m.revisions) - 1
}

// RevertToSnapshot undoes every write and log made after snapshot id was
// taken. Snapshots taken after id are discarded.
func (m *Memory) RevertToSnapshot(id int) {
	if id < 0 || id >= len(m.revisions) {
		return
	}
	rev := m.revisions[id]
	for i := len(m.journal) - 1; i >= rev.changes; i-- {
		c := m.journal[i]
		if c.existed {
			m.dirty[c.addr][c.key] = c.prev
		} else {
			delete(m.dirty[c.addr], c.key)
		}
	}
	m.journal = m.journal[:rev.changes]
	m.logs = m.logs[:rev.logs]
	m.revisions = m.revisions[:id]
}

// DiscardSnapshot drops snapshot id and every snapshot taken after it,
// keeping their writes. Once no snapshot is left the journal is released.
func (m *Memory) DiscardSnapshot(id int) {
	if id < 0 || id >= len(m.revisions) {
		return
	}
	m.revisions = m.revisions[:id]
	if len(m.revisions) == 0 {
		m.journal = m.journal[:0]
	}
}

// Err returns the first error met while reading the backing database.
func (m *Memory) Err() error {
	return m.dbErr
}

// Commit writes dirty slots to the backing database and clears the journal.
// Zero values delete their slot.
func (m *Memory) Commit() error {
	if m.dbErr != nil {
		return m.dbErr
	}
	if m.db == nil {
		m.journal = m.journal[:0]
		m.revisions = m.revisions[:0]
		return nil
	}
	for addr, slots := range m.dirty {
		for key, value := range slots {
			var err error
			if value == (common.Hash{}) {
				err = m.db.Delete(dbKey(addr, key))
			} else {
				err = m.db.Put(dbKey(addr, key), value.Bytes())
			}
			if err != nil {
				return err
			}
		}
	}
	m.dirty = make(map[common.Address]map[common.Hash]common.Hash)
	m.journal = m.journal[:0]
	m.revisions = m.revisions[:0]
	return nil
}

func dbKey(addr common.Address, key common.Hash) []byte {
	k := make([]byte, 0, common.AddressLength+common.HashLength)
	k = append(k, addr.Bytes()...)
	return append(k, key.Bytes()...)
}
