// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/weighted/bmath"
	"github.com/luxfi/weighted/pricing"
)

// =========================================================================
// Accessors
// =========================================================================
//
// Accessors fail with ErrReentry while an operation on the pool is in
// flight.

func (p *Pool) IsPublicSwap() (bool, error) {
	if err := p.viewable(); err != nil {
		return false, err
	}
	return p.publicSwap(), nil
}

func (p *Pool) IsFinalized() (bool, error) {
	if err := p.viewable(); err != nil {
		return false, err
	}
	return p.finalized(), nil
}

func (p *Pool) IsBound(t common.Address) (bool, error) {
	if err := p.viewable(); err != nil {
		return false, err
	}
	return p.record(t).Bound, nil
}

func (p *Pool) GetNumTokens() (int, error) {
	if err := p.viewable(); err != nil {
		return 0, err
	}
	return int(p.numTokens()), nil
}

// GetCurrentTokens returns the bound tokens. The order changes when a token
// is unbound.
func (p *Pool) GetCurrentTokens() ([]common.Address, error) {
	if err := p.viewable(); err != nil {
		return nil, err
	}
	return p.tokens(), nil
}

// GetFinalTokens returns the bound tokens of a finalized pool.
func (p *Pool) GetFinalTokens() ([]common.Address, error) {
	if err := p.viewable(); err != nil {
		return nil, err
	}
	if !p.finalized() {
		return nil, ErrNotFinalized
	}
	return p.tokens(), nil
}

func (p *Pool) GetDenormalizedWeight(t common.Address) (*uint256.Int, error) {
	if err := p.viewable(); err != nil {
		return nil, err
	}
	rec, err := p.boundRecord(t)
	if err != nil {
		return nil, err
	}
	return rec.Denorm, nil
}

func (p *Pool) GetTotalDenormalizedWeight() (*uint256.Int, error) {
	if err := p.viewable(); err != nil {
		return nil, err
	}
	return p.totalWeight(), nil
}

// GetNormalizedWeight returns the weight of t as a fraction of the total.
func (p *Pool) GetNormalizedWeight(t common.Address) (*uint256.Int, error) {
	if err := p.viewable(); err != nil {
		return nil, err
	}
	rec, err := p.boundRecord(t)
	if err != nil {
		return nil, err
	}
	return bmath.Div(rec.Denorm, p.totalWeight())
}

func (p *Pool) GetBalance(t common.Address) (*uint256.Int, error) {
	if err := p.viewable(); err != nil {
		return nil, err
	}
	rec, err := p.boundRecord(t)
	if err != nil {
		return nil, err
	}
	return rec.Balance, nil
}

func (p *Pool) GetSwapFee() (*uint256.Int, error) {
	if err := p.viewable(); err != nil {
		return nil, err
	}
	return p.swapFee(), nil
}

func (p *Pool) GetExitFee() (*uint256.Int, error) {
	if err := p.viewable(); err != nil {
		return nil, err
	}
	return p.exitFee(), nil
}

func (p *Pool) GetController() (common.Address, error) {
	if err := p.viewable(); err != nil {
		return common.Address{}, err
	}
	return p.controller(), nil
}

func (p *Pool) GetFeeCollector() (common.Address, error) {
	if err := p.viewable(); err != nil {
		return common.Address{}, err
	}
	return p.feeCollector(), nil
}

// GetSpotPrice returns the price of tokenOut in tokenIn, including the swap
// fee.
func (p *Pool) GetSpotPrice(tokenIn, tokenOut common.Address) (*uint256.Int, error) {
	return p.spotPrice(tokenIn, tokenOut, p.swapFee())
}

// GetSpotPriceSansFee returns the price of tokenOut in tokenIn without the
// swap fee.
func (p *Pool) GetSpotPriceSansFee(tokenIn, tokenOut common.Address) (*uint256.Int, error) {
	return p.spotPrice(tokenIn, tokenOut, new(uint256.Int))
}

func (p *Pool) spotPrice(tokenIn, tokenOut common.Address, swapFee *uint256.Int) (*uint256.Int, error) {
	if err := p.viewable(); err != nil {
		return nil, err
	}
	in, err := p.boundRecord(tokenIn)
	if err != nil {
		return nil, err
	}
	out, err := p.boundRecord(tokenOut)
	if err != nil {
		return nil, err
	}
	return pricing.SpotPrice(in.Balance, in.Denorm, out.Balance, out.Denorm, swapFee)
}
