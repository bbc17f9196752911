// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"github.com/luxfi/geth/common"
	"go.uber.org/zap"
)

// guarded runs fn as one atomic operation. The pool mutex is taken after the
// snapshot, so reverting on error also releases it. On success the snapshot
// is discarded.
func (p *Pool) guarded(op string, fn func() error) (err error) {
	if p.locked() {
		return ErrReentry
	}

	snap := p.db.Snapshot()
	p.setBool(mutexPrefix, true)

	defer func() {
		if r := recover(); r != nil {
			p.db.RevertToSnapshot(snap)
			panic(r)
		}
		if err != nil {
			p.db.RevertToSnapshot(snap)
			p.log.Debug("operation reverted", zap.String("op", op), zap.Error(err))
			return
		}
		p.setBool(mutexPrefix, false)
		p.db.DiscardSnapshot(snap)
	}()

	return fn()
}

// viewable fails while an operation is in flight so reads never observe
// partially applied state.
func (p *Pool) viewable() error {
	if p.locked() {
		return ErrReentry
	}
	return nil
}

func (p *Pool) requireController(caller common.Address) error {
	if caller != p.controller() {
		return ErrNotController
	}
	return nil
}
