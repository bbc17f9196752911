// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package contract

import (
	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/weighted/pool"
)

var methods = map[uint32]method{
	SelectorNewPool:  {gas: GasNewPool, writes: true, run: runNewPool},
	SelectorIsPool:   {gas: GasRead, run: runIsPool},
	SelectorPools:    {gas: GasRead, run: runPools},
	SelectorCollect:  {gas: GasCollect, writes: true, run: runCollect},
	SelectorSetAdmin: {gas: GasAdmin, writes: true, run: runSetAdmin},
	SelectorGetAdmin: {gas: GasRead, run: runGetAdmin},

	SelectorSetSwapFee:    {gas: GasControl, writes: true, run: runSetSwapFee},
	SelectorSetController: {gas: GasControl, writes: true, run: runSetController},
	SelectorSetPublicSwap: {gas: GasControl, writes: true, run: runSetPublicSwap},
	SelectorFinalize:      {gas: GasControl, writes: true, run: runFinalize},
	SelectorBind:          {gas: GasBind, writes: true, run: runBind},
	SelectorRebind:        {gas: GasBind, writes: true, run: runRebind},
	SelectorUnbind:        {gas: GasBind, writes: true, run: runUnbind},
	SelectorGulp:          {gas: GasControl, writes: true, run: runGulp},

	SelectorSwapExactAmountIn:       {gas: GasSwap, writes: true, run: runSwapExactAmountIn},
	SelectorSwapExactAmountOut:      {gas: GasSwap, writes: true, run: runSwapExactAmountOut},
	SelectorJoinPool:                {gas: GasJoinExit, writes: true, run: runJoinPool},
	SelectorExitPool:                {gas: GasJoinExit, writes: true, run: runExitPool},
	SelectorJoinswapExternAmountIn:  {gas: GasSingle, writes: true, run: singleAsset((*pool.Pool).JoinswapExternAmountIn)},
	SelectorJoinswapPoolAmountOut:   {gas: GasSingle, writes: true, run: singleAsset((*pool.Pool).JoinswapPoolAmountOut)},
	SelectorExitswapPoolAmountIn:    {gas: GasSingle, writes: true, run: singleAsset((*pool.Pool).ExitswapPoolAmountIn)},
	SelectorExitswapExternAmountOut: {gas: GasSingle, writes: true, run: singleAsset((*pool.Pool).ExitswapExternAmountOut)},

	SelectorIsPublicSwap:               {gas: GasRead, run: poolView((*pool.Pool).IsPublicSwap)},
	SelectorIsFinalized:                {gas: GasRead, run: poolView((*pool.Pool).IsFinalized)},
	SelectorIsBound:                    {gas: GasRead, run: tokenView((*pool.Pool).IsBound)},
	SelectorGetNumTokens:               {gas: GasRead, run: poolView((*pool.Pool).GetNumTokens)},
	SelectorGetCurrentTokens:           {gas: GasRead, run: poolView((*pool.Pool).GetCurrentTokens)},
	SelectorGetFinalTokens:             {gas: GasRead, run: poolView((*pool.Pool).GetFinalTokens)},
	SelectorGetDenormalizedWeight:      {gas: GasRead, run: tokenView((*pool.Pool).GetDenormalizedWeight)},
	SelectorGetTotalDenormalizedWeight: {gas: GasRead, run: poolView((*pool.Pool).GetTotalDenormalizedWeight)},
	SelectorGetNormalizedWeight:        {gas: GasRead, run: tokenView((*pool.Pool).GetNormalizedWeight)},
	SelectorGetBalance:                 {gas: GasRead, run: tokenView((*pool.Pool).GetBalance)},
	SelectorGetSwapFee:                 {gas: GasRead, run: poolView((*pool.Pool).GetSwapFee)},
	SelectorGetController:              {gas: GasRead, run: poolView((*pool.Pool).GetController)},
	SelectorGetSpotPrice:               {gas: GasRead, run: pairView((*pool.Pool).GetSpotPrice)},
	SelectorGetSpotPriceSansFee:        {gas: GasRead, run: pairView((*pool.Pool).GetSpotPriceSansFee)},
	SelectorGetExitFee:                 {gas: GasRead, run: poolView((*pool.Pool).GetExitFee)},

	SelectorTotalSupply:      {gas: GasRead, run: runTotalSupply},
	SelectorBalanceOf:        {gas: GasRead, run: runBalanceOf},
	SelectorAllowance:        {gas: GasRead, run: runAllowance},
	SelectorApprove:          {gas: GasShareWrite, writes: true, run: shareWrite((*pool.Pool).Approve)},
	SelectorTransfer:         {gas: GasShareWrite, writes: true, run: shareWrite((*pool.Pool).Transfer)},
	SelectorTransferFrom:     {gas: GasShareWrite, writes: true, run: runTransferFrom},
	SelectorIncreaseApproval: {gas: GasShareWrite, writes: true, run: shareWrite((*pool.Pool).IncreaseApproval)},
	SelectorDecreaseApproval: {gas: GasShareWrite, writes: true, run: shareWrite((*pool.Pool).DecreaseApproval)},
}

func runNewPool(fr *Frame, caller, _ common.Address, _ *reader) ([]byte, error) {
	p, err := fr.host.NewPool(caller)
	if err != nil {
		return nil, err
	}
	return pack(p.Address()), nil
}

func runIsPool(fr *Frame, _, _ common.Address, in *reader) ([]byte, error) {
	addr := in.address()
	if in.err != nil {
		return nil, in.err
	}
	return pack(fr.host.IsPool(addr)), nil
}

func runPools(fr *Frame, _, _ common.Address, _ *reader) ([]byte, error) {
	return pack(fr.host.Pools()), nil
}

func runCollect(fr *Frame, caller, _ common.Address, in *reader) ([]byte, error) {
	addr := in.address()
	if in.err != nil {
		return nil, in.err
	}
	collected, err := fr.host.Collect(caller, addr)
	if err != nil {
		return nil, err
	}
	return pack(collected), nil
}

func runSetAdmin(fr *Frame, caller, _ common.Address, in *reader) ([]byte, error) {
	admin := in.address()
	if in.err != nil {
		return nil, in.err
	}
	return nil, fr.host.SetAdmin(caller, admin)
}

func runGetAdmin(fr *Frame, _, _ common.Address, _ *reader) ([]byte, error) {
	return pack(fr.host.Admin()), nil
}

func runSetSwapFee(fr *Frame, caller, addr common.Address, in *reader) ([]byte, error) {
	fee := in.uint()
	if in.err != nil {
		return nil, in.err
	}
	return fr.exec(addr, func(p *pool.Pool) ([]byte, error) {
		return nil, p.SetSwapFee(caller, fee)
	})
}

func runSetController(fr *Frame, caller, addr common.Address, in *reader) ([]byte, error) {
	manager := in.address()
	if in.err != nil {
		return nil, in.err
	}
	return fr.exec(addr, func(p *pool.Pool) ([]byte, error) {
		return nil, p.SetController(caller, manager)
	})
}

func runSetPublicSwap(fr *Frame, caller, addr common.Address, in *reader) ([]byte, error) {
	public := in.bool()
	if in.err != nil {
		return nil, in.err
	}
	return fr.exec(addr, func(p *pool.Pool) ([]byte, error) {
		return nil, p.SetPublicSwap(caller, public)
	})
}

func runFinalize(fr *Frame, caller, addr common.Address, _ *reader) ([]byte, error) {
	return fr.exec(addr, func(p *pool.Pool) ([]byte, error) {
		return nil, p.Finalize(caller)
	})
}

func runBind(fr *Frame, caller, addr common.Address, in *reader) ([]byte, error) {
	t, balance, denorm := in.address(), in.uint(), in.uint()
	if in.err != nil {
		return nil, in.err
	}
	return fr.exec(addr, func(p *pool.Pool) ([]byte, error) {
		return nil, p.Bind(caller, t, balance, denorm)
	})
}

func runRebind(fr *Frame, caller, addr common.Address, in *reader) ([]byte, error) {
	t, balance, denorm := in.address(), in.uint(), in.uint()
	if in.err != nil {
		return nil, in.err
	}
	return fr.exec(addr, func(p *pool.Pool) ([]byte, error) {
		return nil, p.Rebind(caller, t, balance, denorm)
	})
}

func runUnbind(fr *Frame, caller, addr common.Address, in *reader) ([]byte, error) {
	t := in.address()
	if in.err != nil {
		return nil, in.err
	}
	return fr.exec(addr, func(p *pool.Pool) ([]byte, error) {
		return nil, p.Unbind(caller, t)
	})
}

func runGulp(fr *Frame, caller, addr common.Address, in *reader) ([]byte, error) {
	t := in.address()
	if in.err != nil {
		return nil, in.err
	}
	return fr.exec(addr, func(p *pool.Pool) ([]byte, error) {
		return nil, p.Gulp(caller, t)
	})
}

func runSwapExactAmountIn(fr *Frame, caller, addr common.Address, in *reader) ([]byte, error) {
	tokenIn, amountIn, tokenOut, minAmountOut, maxPrice := in.address(), in.uint(), in.address(), in.uint(), in.uint()
	if in.err != nil {
		return nil, in.err
	}
	return fr.exec(addr, func(p *pool.Pool) ([]byte, error) {
		amountOut, spotPriceAfter, err := p.SwapExactAmountIn(caller, tokenIn, amountIn, tokenOut, minAmountOut, maxPrice)
		if err != nil {
			return nil, err
		}
		return pack(amountOut, spotPriceAfter), nil
	})
}

func runSwapExactAmountOut(fr *Frame, caller, addr common.Address, in *reader) ([]byte, error) {
	tokenIn, maxAmountIn, tokenOut, amountOut, maxPrice := in.address(), in.uint(), in.address(), in.uint(), in.uint()
	if in.err != nil {
		return nil, in.err
	}
	return fr.exec(addr, func(p *pool.Pool) ([]byte, error) {
		amountIn, spotPriceAfter, err := p.SwapExactAmountOut(caller, tokenIn, maxAmountIn, tokenOut, amountOut, maxPrice)
		if err != nil {
			return nil, err
		}
		return pack(amountIn, spotPriceAfter), nil
	})
}

func runJoinPool(fr *Frame, caller, addr common.Address, in *reader) ([]byte, error) {
	poolAmountOut, maxAmountsIn := in.uint(), in.uints()
	if in.err != nil {
		return nil, in.err
	}
	return fr.exec(addr, func(p *pool.Pool) ([]byte, error) {
		amountsIn, err := p.JoinPool(caller, poolAmountOut, maxAmountsIn)
		if err != nil {
			return nil, err
		}
		return pack(amountsIn), nil
	})
}

func runExitPool(fr *Frame, caller, addr common.Address, in *reader) ([]byte, error) {
	poolAmountIn, minAmountsOut := in.uint(), in.uints()
	if in.err != nil {
		return nil, in.err
	}
	return fr.exec(addr, func(p *pool.Pool) ([]byte, error) {
		amountsOut, err := p.ExitPool(caller, poolAmountIn, minAmountsOut)
		if err != nil {
			return nil, err
		}
		return pack(amountsOut), nil
	})
}

// singleAsset adapts the single-asset join and exit operations, which share
// the (token, amount, limit) argument shape.
func singleAsset(op func(p *pool.Pool, caller, t common.Address, amount, limit *uint256.Int) (*uint256.Int, error)) runFunc {
	return func(fr *Frame, caller, addr common.Address, in *reader) ([]byte, error) {
		t, amount, limit := in.address(), in.uint(), in.uint()
		if in.err != nil {
			return nil, in.err
		}
		return fr.exec(addr, func(p *pool.Pool) ([]byte, error) {
			out, err := op(p, caller, t, amount, limit)
			if err != nil {
				return nil, err
			}
			return pack(out), nil
		})
	}
}

func poolView[T any](get func(p *pool.Pool) (T, error)) runFunc {
	return func(fr *Frame, _, addr common.Address, _ *reader) ([]byte, error) {
		return fr.exec(addr, func(p *pool.Pool) ([]byte, error) {
			v, err := get(p)
			if err != nil {
				return nil, err
			}
			return pack(v), nil
		})
	}
}

func tokenView[T any](get func(p *pool.Pool, t common.Address) (T, error)) runFunc {
	return func(fr *Frame, _, addr common.Address, in *reader) ([]byte, error) {
		t := in.address()
		if in.err != nil {
			return nil, in.err
		}
		return poolView(func(p *pool.Pool) (T, error) { return get(p, t) })(fr, common.Address{}, addr, in)
	}
}

func pairView(get func(p *pool.Pool, tokenIn, tokenOut common.Address) (*uint256.Int, error)) runFunc {
	return func(fr *Frame, _, addr common.Address, in *reader) ([]byte, error) {
		tokenIn, tokenOut := in.address(), in.address()
		if in.err != nil {
			return nil, in.err
		}
		return poolView(func(p *pool.Pool) (*uint256.Int, error) { return get(p, tokenIn, tokenOut) })(fr, common.Address{}, addr, in)
	}
}

func runTotalSupply(fr *Frame, _, addr common.Address, _ *reader) ([]byte, error) {
	return fr.exec(addr, func(p *pool.Pool) ([]byte, error) {
		return pack(p.TotalSupply()), nil
	})
}

func runBalanceOf(fr *Frame, _, addr common.Address, in *reader) ([]byte, error) {
	owner := in.address()
	if in.err != nil {
		return nil, in.err
	}
	return fr.exec(addr, func(p *pool.Pool) ([]byte, error) {
		return pack(p.BalanceOf(owner)), nil
	})
}

func runAllowance(fr *Frame, _, addr common.Address, in *reader) ([]byte, error) {
	owner, spender := in.address(), in.address()
	if in.err != nil {
		return nil, in.err
	}
	return fr.exec(addr, func(p *pool.Pool) ([]byte, error) {
		return pack(p.Allowance(owner, spender)), nil
	})
}

// shareWrite adapts share ledger mutations taking (counterparty, amount).
func shareWrite(op func(p *pool.Pool, caller, other common.Address, amount *uint256.Int) error) runFunc {
	return func(fr *Frame, caller, addr common.Address, in *reader) ([]byte, error) {
		other, amount := in.address(), in.uint()
		if in.err != nil {
			return nil, in.err
		}
		return fr.exec(addr, func(p *pool.Pool) ([]byte, error) {
			if err := op(p, caller, other, amount); err != nil {
				return nil, err
			}
			return pack(true), nil
		})
	}
}

func runTransferFrom(fr *Frame, caller, addr common.Address, in *reader) ([]byte, error) {
	from, to, amount := in.address(), in.address(), in.uint()
	if in.err != nil {
		return nil, in.err
	}
	return fr.exec(addr, func(p *pool.Pool) ([]byte, error) {
		if err := p.TransferFrom(caller, from, to, amount); err != nil {
			return nil, err
		}
		return pack(true), nil
	})
}
