// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"fmt"
	"testing"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/luxfi/weighted/bmath"
	"github.com/luxfi/weighted/state"
	"github.com/luxfi/weighted/token"
)

// Test helpers
var (
	testPool       = common.HexToAddress("0x0000000000000000000000000000000000009100")
	testController = common.HexToAddress("0xc000000000000000000000000000000000000001")
	testCollector  = common.HexToAddress("0xfee0000000000000000000000000000000000001")
	testTrader     = common.HexToAddress("0x7000000000000000000000000000000000000001")
	testStranger   = common.HexToAddress("0x5000000000000000000000000000000000000001")

	tokenA = common.HexToAddress("0x000000000000000000000000000000000000000a")
	tokenB = common.HexToAddress("0x000000000000000000000000000000000000000b")
	tokenC = common.HexToAddress("0x000000000000000000000000000000000000000c")

	maxPrice = new(uint256.Int).SetAllOne()
	zero     = uint256.NewInt(0)
)

type testEnv struct {
	db     *state.Memory
	assets *token.Registry
	tokens map[common.Address]*token.ERC20
	pool   *Pool
}

func newTestEnv(t *testing.T, params Params) *testEnv {
	t.Helper()
	e := &testEnv{
		db:     state.NewMemory(nil),
		assets: token.NewRegistry(),
		tokens: make(map[common.Address]*token.ERC20),
	}
	for _, addr := range []common.Address{tokenA, tokenB, tokenC} {
		e.addToken(t, addr)
	}

	if params.Controller == (common.Address{}) {
		params.Controller = testController
	}
	if params.FeeCollector == (common.Address{}) {
		params.FeeCollector = testCollector
	}
	p, err := Create(e.db, testPool, e.assets, params, zaptest.NewLogger(t))
	require.NoError(t, err)
	e.pool = p
	return e
}

// addToken registers a ledger for addr and funds the controller and trader
// with approvals to the pool.
func (e *testEnv) addToken(t *testing.T, addr common.Address) *token.ERC20 {
	t.Helper()
	tok := token.NewERC20(e.db, addr, addr.Hex(), addr.Hex()[38:], bmath.Decimals)
	require.NoError(t, e.assets.Register(addr, tok))
	for _, owner := range []common.Address{testController, testTrader} {
		require.NoError(t, tok.Mint(owner, bmath.Units(1_000_000)))
		require.NoError(t, tok.Approve(owner, testPool, maxPrice))
	}
	e.tokens[addr] = tok
	return tok
}

func (e *testEnv) balance(t common.Address, owner common.Address) *uint256.Int {
	return e.tokens[t].BalanceOf(owner)
}

// bindTwo binds A and B with 100 units each at weight 1.
func (e *testEnv) bindTwo(t *testing.T) {
	t.Helper()
	require.NoError(t, e.pool.Bind(testController, tokenA, bmath.Units(100), bmath.Units(1)))
	require.NoError(t, e.pool.Bind(testController, tokenB, bmath.Units(100), bmath.Units(1)))
}

// finalizedTwo returns an environment with a finalized A/B pool.
func finalizedTwo(t *testing.T) *testEnv {
	t.Helper()
	e := newTestEnv(t, Params{})
	e.bindTwo(t)
	require.NoError(t, e.pool.Finalize(testController))
	return e
}

func units(n uint64) *uint256.Int { return bmath.Units(n) }

// =========================================================================
// Creation
// =========================================================================

func TestCreate(t *testing.T) {
	e := newTestEnv(t, Params{})

	fee, err := e.pool.GetSwapFee()
	require.NoError(t, err)
	require.Equal(t, bmath.MinFee, fee)

	public, err := e.pool.IsPublicSwap()
	require.NoError(t, err)
	require.False(t, public)

	finalized, err := e.pool.IsFinalized()
	require.NoError(t, err)
	require.False(t, finalized)

	controller, err := e.pool.GetController()
	require.NoError(t, err)
	require.Equal(t, testController, controller)

	exitFee, err := e.pool.GetExitFee()
	require.NoError(t, err)
	require.True(t, exitFee.IsZero())

	_, err = Create(e.db, testPool, e.assets, Params{Controller: testController, FeeCollector: testCollector}, nil)
	require.ErrorIs(t, err, ErrPoolExists)

	loaded, err := Load(e.db, testPool, e.assets, nil)
	require.NoError(t, err)
	require.Equal(t, testPool, loaded.Address())

	_, err = Load(e.db, testStranger, e.assets, nil)
	require.ErrorIs(t, err, ErrNoPool)

	_, err = Create(e.db, testStranger, e.assets, Params{FeeCollector: testCollector}, nil)
	require.ErrorIs(t, err, ErrZeroAddress)

	_, err = Create(e.db, testStranger, e.assets, Params{Controller: testController, FeeCollector: testCollector, ExitFee: bmath.One()}, nil)
	require.ErrorIs(t, err, ErrInvalidExitFee)
}

// =========================================================================
// Binding
// =========================================================================

func TestBind(t *testing.T) {
	e := newTestEnv(t, Params{})
	e.bindTwo(t)

	n, err := e.pool.GetNumTokens()
	require.NoError(t, err)
	require.Equal(t, 2, n)

	tokens, err := e.pool.GetCurrentTokens()
	require.NoError(t, err)
	require.Equal(t, []common.Address{tokenA, tokenB}, tokens)

	bal, err := e.pool.GetBalance(tokenA)
	require.NoError(t, err)
	require.Equal(t, units(100), bal)
	require.Equal(t, units(100), e.balance(tokenA, testPool))
	require.Equal(t, units(999_900), e.balance(tokenA, testController))

	total, err := e.pool.GetTotalDenormalizedWeight()
	require.NoError(t, err)
	require.Equal(t, units(2), total)

	norm, err := e.pool.GetNormalizedWeight(tokenA)
	require.NoError(t, err)
	require.Equal(t, bmath.MustParse("0.5"), norm)

	bound, err := e.pool.IsBound(tokenC)
	require.NoError(t, err)
	require.False(t, bound)

	_, err = e.pool.GetBalance(tokenC)
	require.ErrorIs(t, err, ErrNotBound)
}

func TestBindValidation(t *testing.T) {
	unknown := common.HexToAddress("0x00000000000000000000000000000000000000ff")

	tests := []struct {
		name    string
		caller  common.Address
		token   common.Address
		balance *uint256.Int
		denorm  *uint256.Int
		wantErr error
		kind    error
	}{
		{"weight below minimum", testController, tokenC, units(10), bmath.MustParse("0.5"), ErrMinWeight, ErrValidation},
		{"weight above maximum", testController, tokenC, units(10), units(51), ErrMaxWeight, ErrValidation},
		{"balance below minimum", testController, tokenC, uint256.NewInt(9_999), units(1), ErrMinBalance, ErrValidation},
		{"total weight above maximum", testController, tokenC, units(10), units(49), ErrMaxTotalWeight, ErrValidation},
		{"not controller", testStranger, tokenC, units(10), units(1), ErrNotController, ErrAuthorization},
		{"already bound", testController, tokenA, units(10), units(1), ErrIsBound, ErrState},
		{"unknown asset", testController, unknown, units(10), units(1), token.ErrUnknownAsset, ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t, Params{})
			e.bindTwo(t)
			logs := len(e.db.Logs())

			err := e.pool.Bind(tt.caller, tt.token, tt.balance, tt.denorm)
			require.ErrorIs(t, err, tt.wantErr)
			require.ErrorIs(t, err, tt.kind)

			// nothing from the failed bind survives
			n, err := e.pool.GetNumTokens()
			require.NoError(t, err)
			require.Equal(t, 2, n)
			total, err := e.pool.GetTotalDenormalizedWeight()
			require.NoError(t, err)
			require.Equal(t, units(2), total)
			require.Len(t, e.db.Logs(), logs)
		})
	}
}

func TestBindPullFailureReverts(t *testing.T) {
	e := newTestEnv(t, Params{})
	require.NoError(t, e.tokens[tokenA].Approve(testController, testPool, units(50)))

	err := e.pool.Bind(testController, tokenA, units(100), units(1))
	require.ErrorIs(t, err, ErrTransferFailed)
	require.ErrorIs(t, err, token.ErrInsufficientAllowance)

	bound, err := e.pool.IsBound(tokenA)
	require.NoError(t, err)
	require.False(t, bound)
	require.Equal(t, units(1_000_000), e.balance(tokenA, testController))
}

func TestMaxTokens(t *testing.T) {
	e := newTestEnv(t, Params{})
	for i := 0; i < bmath.MaxBoundTokens; i++ {
		addr := common.Address{byte(0x10 + i), 1}
		e.addToken(t, addr)
		require.NoError(t, e.pool.Bind(testController, addr, units(10), units(1)), fmt.Sprintf("token %d", i))
	}
	err := e.pool.Bind(testController, tokenA, units(10), units(1))
	require.ErrorIs(t, err, ErrMaxTokens)
	require.ErrorIs(t, err, ErrState)
}

func TestBindRebindUnbindRestoresWeight(t *testing.T) {
	e := newTestEnv(t, Params{})
	require.NoError(t, e.pool.Bind(testController, tokenB, units(100), units(1)))
	before, err := e.pool.GetTotalDenormalizedWeight()
	require.NoError(t, err)

	require.NoError(t, e.pool.Bind(testController, tokenA, units(100), units(2)))
	require.NoError(t, e.pool.Rebind(testController, tokenA, units(50), units(7)))

	total, err := e.pool.GetTotalDenormalizedWeight()
	require.NoError(t, err)
	require.Equal(t, units(8), total)
	require.Equal(t, units(999_950), e.balance(tokenA, testController))

	require.NoError(t, e.pool.Rebind(testController, tokenA, units(80), units(3)))
	require.Equal(t, units(999_920), e.balance(tokenA, testController))

	require.NoError(t, e.pool.Unbind(testController, tokenA))
	after, err := e.pool.GetTotalDenormalizedWeight()
	require.NoError(t, err)
	require.Equal(t, before, after)
	require.Equal(t, units(1_000_000), e.balance(tokenA, testController))
	require.True(t, e.balance(tokenA, testPool).IsZero())
}

func TestRebindExitFee(t *testing.T) {
	e := newTestEnv(t, Params{ExitFee: bmath.MustParse("0.01")})
	require.NoError(t, e.pool.Bind(testController, tokenA, units(100), units(1)))

	require.NoError(t, e.pool.Rebind(testController, tokenA, units(50), units(1)))
	require.Equal(t, bmath.MustParse("999949.5"), e.balance(tokenA, testController))
	require.Equal(t, bmath.MustParse("0.5"), e.balance(tokenA, testCollector))

	require.NoError(t, e.pool.Unbind(testController, tokenA))
	require.Equal(t, bmath.MustParse("999999"), e.balance(tokenA, testController))
	require.Equal(t, units(1), e.balance(tokenA, testCollector))
}

func TestRebindNotBound(t *testing.T) {
	e := newTestEnv(t, Params{})
	err := e.pool.Rebind(testController, tokenA, units(10), units(1))
	require.ErrorIs(t, err, ErrNotBound)

	err = e.pool.Unbind(testController, tokenA)
	require.ErrorIs(t, err, ErrNotBound)
}

func TestUnbindSwapsLastIntoSlot(t *testing.T) {
	e := newTestEnv(t, Params{})
	e.bindTwo(t)
	require.NoError(t, e.pool.Bind(testController, tokenC, units(100), units(1)))

	require.NoError(t, e.pool.Unbind(testController, tokenA))

	tokens, err := e.pool.GetCurrentTokens()
	require.NoError(t, err)
	require.Equal(t, []common.Address{tokenC, tokenB}, tokens)
	require.Equal(t, uint64(0), e.pool.record(tokenC).Index)
	require.Equal(t, uint64(1), e.pool.record(tokenB).Index)
	require.Equal(t, Record{Denorm: zero, Balance: zero}, e.pool.record(tokenA))

	// the slot can be bound again
	require.NoError(t, e.pool.Bind(testController, tokenA, units(100), units(1)))
	tokens, err = e.pool.GetCurrentTokens()
	require.NoError(t, err)
	require.Equal(t, []common.Address{tokenC, tokenB, tokenA}, tokens)
}

// =========================================================================
// Lifecycle
// =========================================================================

func TestFinalize(t *testing.T) {
	e := newTestEnv(t, Params{})
	require.NoError(t, e.pool.Bind(testController, tokenA, units(100), units(1)))

	err := e.pool.Finalize(testController)
	require.ErrorIs(t, err, ErrMinTokens)
	require.ErrorIs(t, err, ErrState)

	_, err = e.pool.GetFinalTokens()
	require.ErrorIs(t, err, ErrNotFinalized)

	require.NoError(t, e.pool.Bind(testController, tokenB, units(100), units(1)))
	require.ErrorIs(t, e.pool.Finalize(testStranger), ErrNotController)
	require.NoError(t, e.pool.Finalize(testController))

	require.Equal(t, bmath.InitPoolSupply, e.pool.BalanceOf(testController))
	require.Equal(t, bmath.InitPoolSupply, e.pool.TotalSupply())

	public, err := e.pool.IsPublicSwap()
	require.NoError(t, err)
	require.True(t, public)

	tokens, err := e.pool.GetFinalTokens()
	require.NoError(t, err)
	require.Len(t, tokens, 2)

	err = e.pool.Finalize(testController)
	require.ErrorIs(t, err, ErrIsFinalized)
	require.ErrorIs(t, err, ErrState)

	require.ErrorIs(t, e.pool.Bind(testController, tokenC, units(10), units(1)), ErrIsFinalized)
	require.ErrorIs(t, e.pool.Rebind(testController, tokenA, units(10), units(1)), ErrIsFinalized)
	require.ErrorIs(t, e.pool.Unbind(testController, tokenA), ErrIsFinalized)
	require.ErrorIs(t, e.pool.SetSwapFee(testController, bmath.MaxFee), ErrIsFinalized)
	require.ErrorIs(t, e.pool.SetPublicSwap(testController, false), ErrIsFinalized)

	// control can still be handed over
	require.NoError(t, e.pool.SetController(testController, testStranger))
}

func TestSetters(t *testing.T) {
	e := newTestEnv(t, Params{})

	tests := []struct {
		name    string
		caller  common.Address
		fee     *uint256.Int
		wantErr error
	}{
		{"below minimum", testController, uint256.NewInt(9_999), ErrMinFee},
		{"above maximum", testController, new(uint256.Int).AddUint64(bmath.MaxFee, 1), ErrMaxFee},
		{"not controller", testStranger, bmath.MaxFee, ErrNotController},
		{"maximum", testController, bmath.MaxFee, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := e.pool.SetSwapFee(tt.caller, tt.fee)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			fee, err := e.pool.GetSwapFee()
			require.NoError(t, err)
			require.Equal(t, tt.fee, fee)
		})
	}

	require.ErrorIs(t, e.pool.SetPublicSwap(testStranger, true), ErrNotController)
	require.NoError(t, e.pool.SetPublicSwap(testController, true))
	public, err := e.pool.IsPublicSwap()
	require.NoError(t, err)
	require.True(t, public)

	require.ErrorIs(t, e.pool.SetController(testController, common.Address{}), ErrZeroAddress)
	require.NoError(t, e.pool.SetController(testController, testStranger))
	require.ErrorIs(t, e.pool.SetSwapFee(testController, bmath.MaxFee), ErrNotController)
	require.NoError(t, e.pool.SetSwapFee(testStranger, bmath.MinFee))
}

func TestGulp(t *testing.T) {
	e := newTestEnv(t, Params{})
	e.bindTwo(t)

	require.NoError(t, e.tokens[tokenA].Transfer(testTrader, testPool, units(5)))
	bal, err := e.pool.GetBalance(tokenA)
	require.NoError(t, err)
	require.Equal(t, units(100), bal)

	require.NoError(t, e.pool.Gulp(testStranger, tokenA))
	bal, err = e.pool.GetBalance(tokenA)
	require.NoError(t, err)
	require.Equal(t, units(105), bal)

	require.ErrorIs(t, e.pool.Gulp(testStranger, tokenC), ErrNotBound)
}

func TestControllerCallLogs(t *testing.T) {
	e := newTestEnv(t, Params{})
	require.NoError(t, e.pool.Bind(testController, tokenA, units(100), units(1)))

	var calls int
	for _, log := range e.db.Logs() {
		if log.Address != testPool || log.Topics[0] != CallTopic {
			continue
		}
		calls++
		require.Equal(t, CallSelector("bind"), log.Topics[1])
		require.Equal(t, state.AddressToHash(testController), log.Topics[2])
		require.Len(t, log.Data, 3*common.HashLength)
		require.Equal(t, state.AddressToHash(tokenA).Bytes(), log.Data[:32])
	}
	require.Equal(t, 1, calls)
}

// =========================================================================
// Share ledger
// =========================================================================

func TestShareLedger(t *testing.T) {
	e := finalizedTwo(t)

	require.Equal(t, ShareName, e.pool.Name())
	require.Equal(t, ShareSymbol, e.pool.Symbol())
	require.Equal(t, uint8(bmath.Decimals), e.pool.Decimals())

	require.NoError(t, e.pool.Transfer(testController, testTrader, units(10)))
	require.Equal(t, units(10), e.pool.BalanceOf(testTrader))

	require.NoError(t, e.pool.Approve(testTrader, testStranger, units(4)))
	require.NoError(t, e.pool.IncreaseApproval(testTrader, testStranger, units(1)))
	require.NoError(t, e.pool.DecreaseApproval(testTrader, testStranger, units(2)))
	require.Equal(t, units(3), e.pool.Allowance(testTrader, testStranger))

	err := e.pool.TransferFrom(testStranger, testTrader, testStranger, units(4))
	require.ErrorIs(t, err, token.ErrInsufficientAllowance)
	require.NoError(t, e.pool.TransferFrom(testStranger, testTrader, testStranger, units(3)))
	require.Equal(t, units(3), e.pool.BalanceOf(testStranger))
	require.Equal(t, units(3), e.pool.Shares().BalanceOf(testStranger))
}
