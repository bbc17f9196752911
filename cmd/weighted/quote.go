// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/holiman/uint256"
	"github.com/spf13/cobra"

	"github.com/luxfi/weighted/bmath"
	"github.com/luxfi/weighted/pool"
	"github.com/luxfi/weighted/pricing"
)

var errAmountFlags = errors.New("exactly one of --amount-in and --amount-out is required")

type quote struct {
	balanceIn, weightIn   *uint256.Int
	balanceOut, weightOut *uint256.Int
	fee                   *uint256.Int
	amountIn, amountOut   *uint256.Int
}

type quoteResult struct {
	spotBefore, spotAfter *uint256.Int
	amountIn, amountOut   *uint256.Int
	effective             *uint256.Int
}

func newQuoteCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Quote a swap against the given pool balances and weights",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q, err := a.quoteParams()
			if err != nil {
				return err
			}
			res, err := q.run()
			if err != nil {
				return err
			}
			res.print(cmd.OutOrStdout())
			return nil
		},
	}
	f := cmd.Flags()
	f.String("balance-in", "", "pool balance of the token sold")
	f.String("weight-in", "", "denormalized weight of the token sold")
	f.String("balance-out", "", "pool balance of the token bought")
	f.String("weight-out", "", "denormalized weight of the token bought")
	f.String("fee", bmath.Format(bmath.MinFee), "swap fee as a fraction")
	f.String("amount-in", "", "exact amount sold")
	f.String("amount-out", "", "exact amount bought")
	return cmd
}

func (a *app) quoteParams() (*quote, error) {
	var (
		q   quote
		err error
	)
	required := []struct {
		key string
		dst **uint256.Int
	}{
		{"balance-in", &q.balanceIn},
		{"weight-in", &q.weightIn},
		{"balance-out", &q.balanceOut},
		{"weight-out", &q.weightOut},
		{"fee", &q.fee},
	}
	for _, r := range required {
		if *r.dst, err = a.decimal(r.key, true); err != nil {
			return nil, err
		}
	}
	if q.amountIn, err = a.decimal("amount-in", false); err != nil {
		return nil, err
	}
	if q.amountOut, err = a.decimal("amount-out", false); err != nil {
		return nil, err
	}
	if (q.amountIn == nil) == (q.amountOut == nil) {
		return nil, errAmountFlags
	}
	if q.fee.Lt(bmath.MinFee) {
		return nil, fmt.Errorf("--fee %s: %w", bmath.Format(q.fee), pool.ErrMinFee)
	}
	if q.fee.Gt(bmath.MaxFee) {
		return nil, fmt.Errorf("--fee %s: %w", bmath.Format(q.fee), pool.ErrMaxFee)
	}
	return &q, nil
}

// run prices the swap under the same ratio limits a pool enforces.
func (q *quote) run() (*quoteResult, error) {
	res := &quoteResult{amountIn: q.amountIn, amountOut: q.amountOut}
	var err error
	if res.spotBefore, err = pricing.SpotPrice(q.balanceIn, q.weightIn, q.balanceOut, q.weightOut, q.fee); err != nil {
		return nil, err
	}

	if q.amountIn != nil {
		limit, err := bmath.Mul(q.balanceIn, bmath.MaxInRatio)
		if err != nil {
			return nil, err
		}
		if q.amountIn.Gt(limit) {
			return nil, pool.ErrMaxInRatio
		}
		if res.amountOut, err = pricing.OutGivenIn(q.balanceIn, q.weightIn, q.balanceOut, q.weightOut, q.amountIn, q.fee); err != nil {
			return nil, err
		}
	} else {
		limit, err := bmath.Mul(q.balanceOut, bmath.MaxOutRatio)
		if err != nil {
			return nil, err
		}
		if q.amountOut.Gt(limit) {
			return nil, pool.ErrMaxOutRatio
		}
		if res.amountIn, err = pricing.InGivenOut(q.balanceIn, q.weightIn, q.balanceOut, q.weightOut, q.amountOut, q.fee); err != nil {
			return nil, err
		}
	}
	if res.amountOut.IsZero() {
		return nil, pool.ErrMathApprox
	}

	balanceIn, err := bmath.Add(q.balanceIn, res.amountIn)
	if err != nil {
		return nil, err
	}
	balanceOut, err := bmath.Sub(q.balanceOut, res.amountOut)
	if err != nil {
		return nil, err
	}
	if res.spotAfter, err = pricing.SpotPrice(balanceIn, q.weightIn, balanceOut, q.weightOut, q.fee); err != nil {
		return nil, err
	}
	if res.effective, err = bmath.Div(res.amountIn, res.amountOut); err != nil {
		return nil, err
	}
	return res, nil
}

func (r *quoteResult) print(w io.Writer) {
	fmt.Fprintf(w, "amount in:    %s\n", bmath.Format(r.amountIn))
	fmt.Fprintf(w, "amount out:   %s\n", bmath.Format(r.amountOut))
	fmt.Fprintf(w, "spot before:  %s\n", bmath.Format(r.spotBefore))
	fmt.Fprintf(w, "spot after:   %s\n", bmath.Format(r.spotAfter))
	fmt.Fprintf(w, "effective:    %s\n", bmath.Format(r.effective))
}
