// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"bytes"
	"fmt"
	"runtime"
	"strings"

	"github.com/holiman/uint256"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/geth/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/luxfi/weighted/bmath"
	"github.com/luxfi/weighted/factory"
	"github.com/luxfi/weighted/pool"
	"github.com/luxfi/weighted/state"
	"github.com/luxfi/weighted/token"
)

var (
	factoryAddress = common.HexToAddress("0x00000000000000000000000000000000000f0000")
	unlimited      = new(uint256.Int).SetAllOne()
)

func newSimulateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "simulate scenario.yaml...",
		Short: "Replay pool scenarios on an in-memory state",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reports, err := a.simulate(args)
			for _, r := range reports {
				fmt.Fprint(cmd.OutOrStdout(), r)
			}
			return err
		},
	}
}

// simulate runs each scenario file on its own state, concurrently, and
// returns the reports in argument order.
func (a *app) simulate(paths []string) ([]string, error) {
	reports := make([]string, len(paths))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range paths {
		g.Go(func() error {
			s, err := LoadScenario(path)
			if err != nil {
				return fmt.Errorf("load %s: %w", path, err)
			}
			log := a.log.With(zap.String("scenario", s.Name))
			report, err := runScenario(s, log)
			reports[i] = report
			if err != nil {
				return err
			}
			log.Info("scenario complete", zap.Int("steps", len(s.Steps)))
			return nil
		})
	}
	return reports, g.Wait()
}

// nameAddress derives a stable address for a named scenario participant.
func nameAddress(kind, name string) common.Address {
	key := state.Key([]byte(kind), []byte(name))
	return common.BytesToAddress(key[common.HashLength-common.AddressLength:])
}

type simulation struct {
	s          *Scenario
	db         *state.Memory
	tokens     map[string]*token.ERC20
	factory    *factory.Factory
	pool       common.Address
	controller common.Address
	out        bytes.Buffer
	log        *zap.Logger
}

func runScenario(s *Scenario, log *zap.Logger) (string, error) {
	sim := &simulation{
		s:          s,
		db:         state.NewMemory(memdb.New()),
		tokens:     make(map[string]*token.ERC20, len(s.Tokens)),
		controller: nameAddress("trader", "controller"),
		log:        log,
	}
	fmt.Fprintf(&sim.out, "== %s\n", s.Name)
	if err := sim.setup(); err != nil {
		return sim.out.String(), fmt.Errorf("%s: setup: %w", s.Name, err)
	}
	for i, st := range s.Steps {
		if err := sim.step(i+1, st); err != nil {
			return sim.out.String(), fmt.Errorf("%s: step %d (%s): %w", s.Name, i+1, st.Action, err)
		}
	}
	if err := sim.summary(); err != nil {
		return sim.out.String(), err
	}
	if err := sim.db.Commit(); err != nil {
		return sim.out.String(), fmt.Errorf("%s: commit: %w", s.Name, err)
	}
	return sim.out.String(), nil
}

func (sim *simulation) trader(name string) common.Address {
	return nameAddress("trader", name)
}

func (sim *simulation) token(symbol string) common.Address {
	return sim.tokens[symbol].Address()
}

func (sim *simulation) setup() error {
	assets := token.NewRegistry()
	for _, tc := range sim.s.Tokens {
		addr := nameAddress("token", tc.Symbol)
		tok := token.NewERC20(sim.db, addr, tc.Symbol, strings.ToUpper(tc.Symbol), bmath.Decimals)
		if err := assets.Register(addr, tok); err != nil {
			return err
		}
		if err := tok.Mint(sim.controller, bmath.MustParse(tc.Balance)); err != nil {
			return err
		}
		sim.tokens[tc.Symbol] = tok
	}
	for _, tr := range sim.s.Traders {
		for sym, amount := range tr.Funds {
			if err := sim.tokens[sym].Mint(sim.trader(tr.Name), bmath.MustParse(amount)); err != nil {
				return err
			}
		}
	}

	f, err := factory.New(sim.db, factoryAddress, assets, &factory.Config{
		Admin:   nameAddress("admin", sim.s.Name),
		ExitFee: sim.s.ExitFee,
	}, sim.log)
	if err != nil {
		return err
	}
	sim.factory = f
	p, err := f.NewPool(sim.controller)
	if err != nil {
		return err
	}
	sim.pool = p.Address()

	owners := []common.Address{sim.controller}
	for _, tr := range sim.s.Traders {
		owners = append(owners, sim.trader(tr.Name))
	}
	for _, tok := range sim.tokens {
		for _, owner := range owners {
			if err := tok.Approve(owner, sim.pool, unlimited); err != nil {
				return err
			}
		}
	}

	swapFee, err := bmath.Parse(sim.s.SwapFee)
	if err != nil {
		return err
	}
	return f.Exec(sim.pool, func(p *pool.Pool) error {
		for _, tc := range sim.s.Tokens {
			if err := p.Bind(sim.controller, sim.token(tc.Symbol), bmath.MustParse(tc.Balance), bmath.MustParse(tc.Weight)); err != nil {
				return fmt.Errorf("bind %s: %w", tc.Symbol, err)
			}
		}
		if err := p.SetSwapFee(sim.controller, swapFee); err != nil {
			return err
		}
		if sim.s.Finalize {
			return p.Finalize(sim.controller)
		}
		return p.SetPublicSwap(sim.controller, true)
	})
}

// limit parses an optional step limit.
func limit(s string, def *uint256.Int) *uint256.Int {
	if s == "" {
		return def
	}
	return bmath.MustParse(s)
}

func (sim *simulation) step(n int, st Step) error {
	caller := sim.trader(st.Trader)
	amount := bmath.MustParse(st.Amount)
	zero := uint256.NewInt(0)

	return sim.factory.Exec(sim.pool, func(p *pool.Pool) error {
		line := fmt.Sprintf("%3d %-12s %-10s", n, st.Action, st.Trader)
		switch st.Action {
		case actionSwapIn:
			out, spot, err := p.SwapExactAmountIn(caller, sim.token(st.TokenIn), amount, sim.token(st.TokenOut), limit(st.Limit, zero), unlimited)
			if err != nil {
				return err
			}
			line += fmt.Sprintf(" %s %s -> %s %s  spot %s", bmath.Format(amount), st.TokenIn, bmath.Format(out), st.TokenOut, bmath.Format(spot))
		case actionSwapOut:
			in, spot, err := p.SwapExactAmountOut(caller, sim.token(st.TokenIn), limit(st.Limit, unlimited), sim.token(st.TokenOut), amount, unlimited)
			if err != nil {
				return err
			}
			line += fmt.Sprintf(" %s %s -> %s %s  spot %s", bmath.Format(in), st.TokenIn, bmath.Format(amount), st.TokenOut, bmath.Format(spot))
		case actionJoin:
			maxIn := make([]*uint256.Int, len(sim.s.Tokens))
			for i := range maxIn {
				maxIn[i] = unlimited
			}
			amountsIn, err := p.JoinPool(caller, amount, maxIn)
			if err != nil {
				return err
			}
			line += fmt.Sprintf(" %s shares for %s", bmath.Format(amount), sim.formatAmounts(amountsIn))
		case actionExit:
			minOut := make([]*uint256.Int, len(sim.s.Tokens))
			for i := range minOut {
				minOut[i] = zero
			}
			amountsOut, err := p.ExitPool(caller, amount, minOut)
			if err != nil {
				return err
			}
			line += fmt.Sprintf(" %s shares for %s", bmath.Format(amount), sim.formatAmounts(amountsOut))
		case actionJoinSingle:
			shares, err := p.JoinswapExternAmountIn(caller, sim.token(st.TokenIn), amount, limit(st.Limit, zero))
			if err != nil {
				return err
			}
			line += fmt.Sprintf(" %s %s for %s shares", bmath.Format(amount), st.TokenIn, bmath.Format(shares))
		case actionExitSingle:
			out, err := p.ExitswapPoolAmountIn(caller, sim.token(st.TokenOut), amount, limit(st.Limit, zero))
			if err != nil {
				return err
			}
			line += fmt.Sprintf(" %s shares for %s %s", bmath.Format(amount), bmath.Format(out), st.TokenOut)
		default:
			return fmt.Errorf("unknown action %q", st.Action)
		}
		fmt.Fprintln(&sim.out, line)
		return nil
	})
}

// formatAmounts pairs per-token amounts with symbols in bind order.
func (sim *simulation) formatAmounts(amounts []*uint256.Int) string {
	parts := make([]string, len(amounts))
	for i, a := range amounts {
		parts[i] = bmath.Format(a) + " " + sim.s.Tokens[i].Symbol
	}
	return strings.Join(parts, ", ")
}

func (sim *simulation) summary() error {
	return sim.factory.Exec(sim.pool, func(p *pool.Pool) error {
		for _, tc := range sim.s.Tokens {
			bal, err := p.GetBalance(sim.token(tc.Symbol))
			if err != nil {
				return err
			}
			w, err := p.GetNormalizedWeight(sim.token(tc.Symbol))
			if err != nil {
				return err
			}
			fmt.Fprintf(&sim.out, "    %-8s balance %s  weight %s\n", tc.Symbol, bmath.Format(bal), bmath.Format(w))
		}
		fmt.Fprintf(&sim.out, "    shares   supply %s\n", bmath.Format(p.TotalSupply()))
		for _, tr := range sim.s.Traders {
			fmt.Fprintf(&sim.out, "    %-8s shares %s\n", tr.Name, bmath.Format(p.BalanceOf(sim.trader(tr.Name))))
		}
		return nil
	})
}
