// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/luxfi/weighted/bmath"
)

// Step actions
const (
	actionSwapIn     = "swap_in"
	actionSwapOut    = "swap_out"
	actionJoin       = "join"
	actionExit       = "exit"
	actionJoinSingle = "join_single"
	actionExitSingle = "exit_single"
)

// Scenario describes a pool, its traders and the steps to replay.
// Token symbols and trader names are case-insensitive.
type Scenario struct {
	Name     string        `mapstructure:"name"`
	SwapFee  string        `mapstructure:"swap_fee"`
	ExitFee  string        `mapstructure:"exit_fee"`
	Finalize bool          `mapstructure:"finalize"`
	Tokens   []TokenConfig `mapstructure:"tokens"`
	Traders  []Trader      `mapstructure:"traders"`
	Steps    []Step        `mapstructure:"steps"`
}

type TokenConfig struct {
	Symbol  string `mapstructure:"symbol"`
	Balance string `mapstructure:"balance"`
	Weight  string `mapstructure:"weight"`
}

type Trader struct {
	Name  string            `mapstructure:"name"`
	Funds map[string]string `mapstructure:"funds"`
}

// Step is one pool call. Amount and Limit are read per action:
//
//	swap_in      amount in, minimum out
//	swap_out     amount out, maximum in
//	join, exit   pool shares
//	join_single  amount of token_in, minimum shares out
//	exit_single  shares in, minimum amount of token_out
type Step struct {
	Action   string `mapstructure:"action"`
	Trader   string `mapstructure:"trader"`
	TokenIn  string `mapstructure:"token_in"`
	TokenOut string `mapstructure:"token_out"`
	Amount   string `mapstructure:"amount"`
	Limit    string `mapstructure:"limit"`
}

var errInvalidScenario = errors.New("invalid scenario")

// LoadScenario reads a scenario file in any format viper understands.
func LoadScenario(path string) (*Scenario, error) {
	v := viper.New()
	v.SetConfigFile(path)

	defaults := map[string]any{
		"name":     path,
		"swap_fee": bmath.Format(bmath.MinFee),
		"exit_fee": bmath.Format(bmath.ExitFee),
		"finalize": true,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var s Scenario
	if err := v.Unmarshal(&s); err != nil {
		return nil, err
	}
	s.normalize()
	return &s, s.validate()
}

// normalize lowercases names so lookups match viper's lowercased map keys.
func (s *Scenario) normalize() {
	for i := range s.Tokens {
		s.Tokens[i].Symbol = strings.ToLower(s.Tokens[i].Symbol)
	}
	for i := range s.Traders {
		s.Traders[i].Name = strings.ToLower(s.Traders[i].Name)
		funds := make(map[string]string, len(s.Traders[i].Funds))
		for sym, amount := range s.Traders[i].Funds {
			funds[strings.ToLower(sym)] = amount
		}
		s.Traders[i].Funds = funds
	}
	for i := range s.Steps {
		st := &s.Steps[i]
		st.Action = strings.ToLower(st.Action)
		st.Trader = strings.ToLower(st.Trader)
		st.TokenIn = strings.ToLower(st.TokenIn)
		st.TokenOut = strings.ToLower(st.TokenOut)
	}
}

func (s *Scenario) validate() error {
	if len(s.Tokens) < bmath.MinBoundTokens {
		return fmt.Errorf("%w: %s: need at least %d tokens", errInvalidScenario, s.Name, bmath.MinBoundTokens)
	}
	symbols := make(map[string]bool, len(s.Tokens))
	for _, t := range s.Tokens {
		if t.Symbol == "" {
			return fmt.Errorf("%w: %s: token without symbol", errInvalidScenario, s.Name)
		}
		if symbols[t.Symbol] {
			return fmt.Errorf("%w: %s: duplicate token %q", errInvalidScenario, s.Name, t.Symbol)
		}
		symbols[t.Symbol] = true
		if _, err := bmath.Parse(t.Balance); err != nil {
			return fmt.Errorf("%w: %s: token %s balance: %w", errInvalidScenario, s.Name, t.Symbol, err)
		}
		if _, err := bmath.Parse(t.Weight); err != nil {
			return fmt.Errorf("%w: %s: token %s weight: %w", errInvalidScenario, s.Name, t.Symbol, err)
		}
	}

	traders := make(map[string]bool, len(s.Traders))
	for _, tr := range s.Traders {
		if tr.Name == "" || traders[tr.Name] {
			return fmt.Errorf("%w: %s: trader names must be unique and non-empty", errInvalidScenario, s.Name)
		}
		traders[tr.Name] = true
		for sym, amount := range tr.Funds {
			if !symbols[sym] {
				return fmt.Errorf("%w: %s: trader %s funded with unknown token %q", errInvalidScenario, s.Name, tr.Name, sym)
			}
			if _, err := bmath.Parse(amount); err != nil {
				return fmt.Errorf("%w: %s: trader %s funds: %w", errInvalidScenario, s.Name, tr.Name, err)
			}
		}
	}

	for i, st := range s.Steps {
		if err := st.validate(symbols, traders); err != nil {
			return fmt.Errorf("%w: %s: step %d: %w", errInvalidScenario, s.Name, i+1, err)
		}
	}
	return nil
}

func (st *Step) validate(symbols, traders map[string]bool) error {
	if !traders[st.Trader] {
		return fmt.Errorf("unknown trader %q", st.Trader)
	}
	if _, err := bmath.Parse(st.Amount); err != nil {
		return fmt.Errorf("amount: %w", err)
	}
	if st.Limit != "" {
		if _, err := bmath.Parse(st.Limit); err != nil {
			return fmt.Errorf("limit: %w", err)
		}
	}

	var needIn, needOut bool
	switch st.Action {
	case actionSwapIn, actionSwapOut:
		needIn, needOut = true, true
	case actionJoinSingle:
		needIn = true
	case actionExitSingle:
		needOut = true
	case actionJoin, actionExit:
	default:
		return fmt.Errorf("unknown action %q", st.Action)
	}
	if needIn && !symbols[st.TokenIn] {
		return fmt.Errorf("unknown token_in %q", st.TokenIn)
	}
	if needOut && !symbols[st.TokenOut] {
		return fmt.Errorf("unknown token_out %q", st.TokenOut)
	}
	return nil
}
