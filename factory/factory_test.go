// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package factory

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/sync/errgroup"

	"github.com/luxfi/weighted/bmath"
	"github.com/luxfi/weighted/pool"
	"github.com/luxfi/weighted/state"
	"github.com/luxfi/weighted/token"
)

var (
	factoryAddr = common.HexToAddress("0x0000000000000000000000000000000000009000")
	admin       = common.HexToAddress("0xad00000000000000000000000000000000000001")
	controller  = common.HexToAddress("0xc000000000000000000000000000000000000001")
	trader      = common.HexToAddress("0x7000000000000000000000000000000000000001")

	tokenA = common.HexToAddress("0x000000000000000000000000000000000000000a")
	tokenB = common.HexToAddress("0x000000000000000000000000000000000000000b")

	unlimited = new(uint256.Int).SetAllOne()
)

type testEnv struct {
	db      *state.Memory
	assets  *token.Registry
	tokens  map[common.Address]*token.ERC20
	factory *Factory
}

func newTestEnv(t *testing.T, cfg *Config) *testEnv {
	t.Helper()
	e := &testEnv{
		db:     state.NewMemory(memdb.New()),
		assets: token.NewRegistry(),
		tokens: make(map[common.Address]*token.ERC20),
	}
	for _, addr := range []common.Address{tokenA, tokenB} {
		tok := token.NewERC20(e.db, addr, addr.Hex(), addr.Hex()[38:], bmath.Decimals)
		require.NoError(t, e.assets.Register(addr, tok))
		for _, owner := range []common.Address{controller, trader} {
			require.NoError(t, tok.Mint(owner, bmath.Units(1_000_000)))
		}
		e.tokens[addr] = tok
	}
	f, err := New(e.db, factoryAddr, e.assets, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	e.factory = f
	return e
}

// approve lets p pull both tokens from the controller and trader.
func (e *testEnv) approve(t *testing.T, p common.Address) {
	t.Helper()
	for _, tok := range e.tokens {
		for _, owner := range []common.Address{controller, trader} {
			require.NoError(t, tok.Approve(owner, p, unlimited))
		}
	}
}

// finalizedPool creates a 50/50 pool of 100 A and 100 B.
func (e *testEnv) finalizedPool(t *testing.T) common.Address {
	t.Helper()
	p, err := e.factory.NewPool(controller)
	require.NoError(t, err)
	addr := p.Address()
	e.approve(t, addr)
	err = e.factory.Exec(addr, func(p *pool.Pool) error {
		for _, tok := range []common.Address{tokenA, tokenB} {
			if err := p.Bind(controller, tok, bmath.Units(100), bmath.Units(5)); err != nil {
				return err
			}
		}
		return p.Finalize(controller)
	})
	require.NoError(t, err)
	return addr
}

func TestConfigVerify(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "valid", cfg: Config{Admin: admin, ExitFee: "0.001", MaxPools: 4}},
		{name: "no exit fee", cfg: Config{Admin: admin}},
		{name: "zero admin", cfg: Config{ExitFee: "0.001"}, wantErr: true},
		{name: "bad exit fee", cfg: Config{Admin: admin, ExitFee: "abc"}, wantErr: true},
		{name: "exit fee of one", cfg: Config{Admin: admin, ExitFee: "1"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Verify()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestConfigEqual(t *testing.T) {
	a := &Config{Admin: admin, ExitFee: "0.001"}
	require.True(t, a.Equal(&Config{Admin: admin, ExitFee: "0.001"}))
	require.False(t, a.Equal(&Config{Admin: admin}))
	require.False(t, a.Equal(nil))
	require.Equal(t, ConfigKey, a.Key())
}

func TestNewPool(t *testing.T) {
	e := newTestEnv(t, &Config{Admin: admin})
	require.Equal(t, admin, e.factory.Admin())

	p1, err := e.factory.NewPool(controller)
	require.NoError(t, err)
	p2, err := e.factory.NewPool(trader)
	require.NoError(t, err)
	require.NotEqual(t, p1.Address(), p2.Address())

	require.True(t, e.factory.IsPool(p1.Address()))
	require.True(t, e.factory.IsPool(p2.Address()))
	require.False(t, e.factory.IsPool(controller))
	require.ElementsMatch(t, []common.Address{p1.Address(), p2.Address()}, e.factory.Pools())

	ctrl, err := p2.GetController()
	require.NoError(t, err)
	require.Equal(t, trader, ctrl)
	collector, err := p1.GetFeeCollector()
	require.NoError(t, err)
	require.Equal(t, factoryAddr, collector)

	logs := e.db.Logs()
	require.Equal(t, NewPoolTopic, logs[len(logs)-1].Topics[0])
}

func TestPoolAddressesAreStable(t *testing.T) {
	e1 := newTestEnv(t, &Config{Admin: admin})
	e2 := newTestEnv(t, &Config{Admin: admin})
	p1, err := e1.factory.NewPool(controller)
	require.NoError(t, err)
	p2, err := e2.factory.NewPool(trader)
	require.NoError(t, err)
	require.Equal(t, p1.Address(), p2.Address())
}

func TestMaxPools(t *testing.T) {
	e := newTestEnv(t, &Config{Admin: admin, MaxPools: 1})
	_, err := e.factory.NewPool(controller)
	require.NoError(t, err)
	_, err = e.factory.NewPool(controller)
	require.ErrorIs(t, err, ErrMaxPools)
}

func TestPoolLookup(t *testing.T) {
	e := newTestEnv(t, &Config{Admin: admin})
	created, err := e.factory.NewPool(controller)
	require.NoError(t, err)

	p, err := e.factory.Pool(created.Address())
	require.NoError(t, err)
	require.Equal(t, created.Address(), p.Address())

	_, err = e.factory.Pool(trader)
	require.ErrorIs(t, err, ErrNotPool)
}

func TestExecUnknownPool(t *testing.T) {
	e := newTestEnv(t, &Config{Admin: admin})
	called := false
	err := e.factory.Exec(trader, func(*pool.Pool) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, ErrNotPool)
	require.False(t, called)
}

func TestSetAdmin(t *testing.T) {
	e := newTestEnv(t, &Config{Admin: admin})
	require.ErrorIs(t, e.factory.SetAdmin(trader, trader), ErrNotAdmin)
	require.ErrorIs(t, e.factory.SetAdmin(admin, common.Address{}), ErrInvalidConfig)
	require.NoError(t, e.factory.SetAdmin(admin, trader))
	require.Equal(t, trader, e.factory.Admin())
}

func TestAdminSurvivesReload(t *testing.T) {
	e := newTestEnv(t, &Config{Admin: admin})
	require.NoError(t, e.factory.SetAdmin(admin, trader))

	f, err := New(e.db, factoryAddr, e.assets, &Config{Admin: admin}, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.Equal(t, trader, f.Admin())
}

func TestCollectExitFees(t *testing.T) {
	e := newTestEnv(t, &Config{Admin: admin, ExitFee: "0.01"})
	addr := e.finalizedPool(t)

	err := e.factory.Exec(addr, func(p *pool.Pool) error {
		_, err := p.ExitPool(controller, bmath.Units(10), []*uint256.Int{uint256.NewInt(0), uint256.NewInt(0)})
		return err
	})
	require.NoError(t, err)

	_, err = e.factory.Collect(trader, addr)
	require.ErrorIs(t, err, ErrNotAdmin)

	collected, err := e.factory.Collect(admin, addr)
	require.NoError(t, err)
	require.Equal(t, bmath.MustParse("0.1"), collected)

	err = e.factory.Exec(addr, func(p *pool.Pool) error {
		require.True(t, p.BalanceOf(factoryAddr).IsZero())
		require.Equal(t, collected, p.BalanceOf(admin))
		return nil
	})
	require.NoError(t, err)
}

func TestConcurrentExec(t *testing.T) {
	e := newTestEnv(t, &Config{Admin: admin})
	addr := e.finalizedPool(t)

	const swaps = 16
	var g errgroup.Group
	for i := 0; i < swaps; i++ {
		g.Go(func() error {
			return e.factory.Exec(addr, func(p *pool.Pool) error {
				_, _, err := p.SwapExactAmountIn(trader, tokenA, bmath.One(), tokenB, uint256.NewInt(0), unlimited)
				return err
			})
		})
		g.Go(func() error {
			_, err := e.factory.NewPool(controller)
			return err
		})
	}
	require.NoError(t, g.Wait())

	require.Len(t, e.factory.Pools(), swaps+1)
	err := e.factory.Exec(addr, func(p *pool.Pool) error {
		bal, err := p.GetBalance(tokenA)
		require.NoError(t, err)
		require.Equal(t, bmath.Units(100+swaps), bal)
		return nil
	})
	require.NoError(t, err)
}

func TestStatePersistsThroughCommit(t *testing.T) {
	backend := memdb.New()
	db := state.NewMemory(backend)
	assets := token.NewRegistry()
	f, err := New(db, factoryAddr, assets, &Config{Admin: admin}, zaptest.NewLogger(t))
	require.NoError(t, err)
	p, err := f.NewPool(controller)
	require.NoError(t, err)
	require.NoError(t, db.Commit())

	reloaded, err := New(state.NewMemory(backend), factoryAddr, assets, &Config{Admin: trader}, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.Equal(t, admin, reloaded.Admin())
	require.True(t, reloaded.IsPool(p.Address()))
}

func TestFrameNestedExec(t *testing.T) {
	e := newTestEnv(t, &Config{Admin: admin})
	first := e.finalizedPool(t)
	second := e.finalizedPool(t)

	swap := func(p *pool.Pool) error {
		_, _, err := p.SwapExactAmountIn(trader, tokenA, bmath.One(), tokenB, uint256.NewInt(0), unlimited)
		return err
	}

	fr := e.factory.Frame()
	var sameErr, otherErr error
	e.tokens[tokenB].SetTransferHook(func(from, _ common.Address, _ *uint256.Int) error {
		if from != first {
			return nil
		}
		sameErr = fr.Exec(first, swap)
		otherErr = fr.Exec(second, swap)
		require.True(t, fr.IsPool(second))
		return nil
	})

	require.NoError(t, fr.Exec(first, swap))
	require.ErrorIs(t, sameErr, pool.ErrReentry)
	require.NoError(t, otherErr)

	// a fresh frame takes the lock again
	e.tokens[tokenB].SetTransferHook(nil)
	require.NoError(t, e.factory.Exec(second, func(p *pool.Pool) error {
		bal, err := p.GetBalance(tokenA)
		require.NoError(t, err)
		require.Equal(t, bmath.Units(101), bal)
		return nil
	}))
}
