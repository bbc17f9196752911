// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Command weighted quotes swaps against weighted pool balances and replays
// pool scenarios on an in-memory state.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/holiman/uint256"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/luxfi/weighted/bmath"
)

const envPrefix = "WEIGHTED"

type app struct {
	v   *viper.Viper
	log *zap.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New(), log: zap.NewNop()}
	root := &cobra.Command{
		Use:          "weighted",
		Short:        "Weighted constant-product pool tools",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = a.log.Sync()
		},
	}
	root.PersistentFlags().String("config", "", "config file (yaml or json)")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.AddCommand(newQuoteCmd(a), newSimulateCmd(a))
	return root
}

// init binds flags, environment and the config file into viper and builds
// the logger.
func (a *app) init(cmd *cobra.Command) error {
	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()
	if err := a.v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	if path := a.v.GetString("config"); path != "" {
		a.v.SetConfigFile(path)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
	}

	level, err := zapcore.ParseLevel(a.v.GetString("log-level"))
	if err != nil {
		return err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.Encoding = "console"
	log, err := cfg.Build()
	if err != nil {
		return err
	}
	a.log = log
	return nil
}

// decimal reads key as a fixed-point decimal. Missing optional keys return nil.
func (a *app) decimal(key string, required bool) (*uint256.Int, error) {
	s := a.v.GetString(key)
	if s == "" {
		if required {
			return nil, fmt.Errorf("--%s is required", key)
		}
		return nil, nil
	}
	v, err := bmath.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", key, err)
	}
	return v, nil
}
