// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/luxfi/weighted/bmath"
	"github.com/luxfi/weighted/pool"
	"github.com/luxfi/weighted/pricing"
)

const basicScenario = `
name: basic
swap_fee: "0.003"
tokens:
  - symbol: A
    balance: "100"
    weight: "5"
  - symbol: B
    balance: "100"
    weight: "5"
traders:
  - name: Alice
    funds:
      A: "1000"
      B: "1000"
steps:
  - action: swap_in
    trader: alice
    token_in: a
    token_out: b
    amount: "10"
  - action: join
    trader: alice
    amount: "10"
  - action: exit_single
    trader: alice
    token_out: a
    amount: "5"
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--log-level", "error"))
	err := cmd.Execute()
	return out.String(), err
}

func TestQuoteAmountIn(t *testing.T) {
	out, err := execute(t, "quote",
		"--balance-in", "100", "--weight-in", "1",
		"--balance-out", "100", "--weight-out", "1",
		"--fee", "0.003", "--amount-in", "10",
	)
	require.NoError(t, err)

	want, err := pricing.OutGivenIn(bmath.Units(100), bmath.One(), bmath.Units(100), bmath.One(), bmath.Units(10), bmath.MustParse("0.003"))
	require.NoError(t, err)
	require.Contains(t, out, "amount in:    10\n")
	require.Contains(t, out, "amount out:   "+bmath.Format(want)+"\n")
}

func TestQuoteAmountOut(t *testing.T) {
	out, err := execute(t, "quote",
		"--balance-in", "100", "--weight-in", "1",
		"--balance-out", "100", "--weight-out", "1",
		"--amount-out", "10",
	)
	require.NoError(t, err)

	want, err := pricing.InGivenOut(bmath.Units(100), bmath.One(), bmath.Units(100), bmath.One(), bmath.Units(10), bmath.MinFee)
	require.NoError(t, err)
	require.Contains(t, out, "amount in:    "+bmath.Format(want)+"\n")
}

func TestQuoteFeeFromEnv(t *testing.T) {
	t.Setenv("WEIGHTED_FEE", "0.05")
	out, err := execute(t, "quote",
		"--balance-in", "100", "--weight-in", "1",
		"--balance-out", "100", "--weight-out", "1",
		"--amount-in", "10",
	)
	require.NoError(t, err)

	want, err := pricing.OutGivenIn(bmath.Units(100), bmath.One(), bmath.Units(100), bmath.One(), bmath.Units(10), bmath.MustParse("0.05"))
	require.NoError(t, err)
	require.Contains(t, out, "amount out:   "+bmath.Format(want)+"\n")
}

func TestQuoteErrors(t *testing.T) {
	pools := []string{
		"--balance-in", "100", "--weight-in", "1",
		"--balance-out", "100", "--weight-out", "1",
	}
	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{
			name:    "no amount",
			args:    pools,
			wantErr: errAmountFlags,
		},
		{
			name:    "both amounts",
			args:    append([]string{"--amount-in", "1", "--amount-out", "1"}, pools...),
			wantErr: errAmountFlags,
		},
		{
			name:    "fee too high",
			args:    append([]string{"--amount-in", "1", "--fee", "0.5"}, pools...),
			wantErr: pool.ErrMaxFee,
		},
		{
			name:    "in ratio",
			args:    append([]string{"--amount-in", "51"}, pools...),
			wantErr: pool.ErrMaxInRatio,
		},
		{
			name:    "out ratio",
			args:    append([]string{"--amount-out", "34"}, pools...),
			wantErr: pool.ErrMaxOutRatio,
		},
		{
			name:    "bad decimal",
			args:    append([]string{"--amount-in", "1.x"}, pools...),
			wantErr: bmath.ErrInvalidDecimal,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, append([]string{"quote"}, tt.args...)...)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestQuoteMissingBalance(t *testing.T) {
	_, err := execute(t, "quote", "--amount-in", "1")
	require.ErrorContains(t, err, "--balance-in is required")
}

func TestLoadScenario(t *testing.T) {
	s, err := LoadScenario(writeFile(t, "basic.yaml", basicScenario))
	require.NoError(t, err)
	require.Equal(t, "basic", s.Name)
	require.True(t, s.Finalize)
	require.Equal(t, "0", s.ExitFee)
	require.Equal(t, "a", s.Tokens[0].Symbol)
	require.Equal(t, "alice", s.Traders[0].Name)
	require.Equal(t, "1000", s.Traders[0].Funds["a"])
	require.Len(t, s.Steps, 3)
}

func TestLoadScenarioInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "one token",
			content: `
tokens:
  - {symbol: A, balance: "100", weight: "1"}
`,
		},
		{
			name: "unknown trader",
			content: `
tokens:
  - {symbol: A, balance: "100", weight: "1"}
  - {symbol: B, balance: "100", weight: "1"}
steps:
  - {action: swap_in, trader: bob, token_in: a, token_out: b, amount: "1"}
`,
		},
		{
			name: "unknown action",
			content: `
tokens:
  - {symbol: A, balance: "100", weight: "1"}
  - {symbol: B, balance: "100", weight: "1"}
traders:
  - {name: bob}
steps:
  - {action: borrow, trader: bob, amount: "1"}
`,
		},
		{
			name: "duplicate token",
			content: `
tokens:
  - {symbol: A, balance: "100", weight: "1"}
  - {symbol: a, balance: "100", weight: "1"}
`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeFile(t, "bad.yaml", tt.content))
			require.ErrorIs(t, err, errInvalidScenario)
		})
	}
}

func TestRunScenario(t *testing.T) {
	s, err := LoadScenario(writeFile(t, "basic.yaml", basicScenario))
	require.NoError(t, err)

	report, err := runScenario(s, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.Contains(t, report, "== basic\n")
	require.Contains(t, report, "swap_in")
	require.Contains(t, report, "10 shares for")
	require.Contains(t, report, "shares   supply 105\n")
	require.Contains(t, report, "alice    shares 5\n")
}

func TestRunScenarioStepFailure(t *testing.T) {
	s, err := LoadScenario(writeFile(t, "ratio.yaml", `
name: ratio
tokens:
  - {symbol: A, balance: "100", weight: "1"}
  - {symbol: B, balance: "100", weight: "1"}
traders:
  - name: bob
    funds: {A: "1000"}
steps:
  - {action: swap_in, trader: bob, token_in: a, token_out: b, amount: "60"}
`))
	require.NoError(t, err)

	report, err := runScenario(s, zaptest.NewLogger(t))
	require.ErrorIs(t, err, pool.ErrMaxInRatio)
	require.Contains(t, report, "== ratio\n")
}

func TestSimulateCommand(t *testing.T) {
	first := writeFile(t, "first.yaml", basicScenario)
	second := writeFile(t, "second.yaml", `
name: unfinalized
finalize: false
tokens:
  - {symbol: X, balance: "50", weight: "2"}
  - {symbol: Y, balance: "200", weight: "8"}
traders:
  - name: carol
    funds: {X: "100"}
steps:
  - {action: swap_in, trader: carol, token_in: x, token_out: y, amount: "1"}
`)

	out, err := execute(t, "simulate", first, second)
	require.NoError(t, err)
	require.Contains(t, out, "== basic\n")
	require.Contains(t, out, "== unfinalized\n")
	require.Less(t, bytes.Index([]byte(out), []byte("== basic")), bytes.Index([]byte(out), []byte("== unfinalized")))
}

func TestSimulateCommandRequiresFile(t *testing.T) {
	_, err := execute(t, "simulate")
	require.Error(t, err)
}
