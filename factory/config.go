// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package factory

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/weighted/bmath"
)

// ConfigKey is the key used in json config files to specify the factory config.
const ConfigKey = "weightedPoolFactory"

// Config configures a Factory.
type Config struct {
	// Admin may collect exit fees and hand over the admin role.
	Admin common.Address `json:"admin"`
	// ExitFee is a decimal fraction of redeemed shares, e.g. "0.001".
	// Empty means no exit fee.
	ExitFee string `json:"exitFee,omitempty"`
	// MaxPools caps the number of pools; zero means unlimited.
	MaxPools uint64 `json:"maxPools,omitempty"`
}

func (c *Config) Key() string {
	return ConfigKey
}

// ExitFeeValue returns the exit fee as a fixed-point value.
func (c *Config) ExitFeeValue() (*uint256.Int, error) {
	if c.ExitFee == "" {
		return new(uint256.Int).Set(bmath.ExitFee), nil
	}
	return bmath.Parse(c.ExitFee)
}

func (c *Config) Verify() error {
	if c.Admin == (common.Address{}) {
		return fmt.Errorf("%w: admin must be set", ErrInvalidConfig)
	}
	fee, err := c.ExitFeeValue()
	if err != nil {
		return fmt.Errorf("%w: exit fee: %w", ErrInvalidConfig, err)
	}
	if !fee.Lt(bmath.BONE) {
		return fmt.Errorf("%w: exit fee %s must be below 1", ErrInvalidConfig, c.ExitFee)
	}
	return nil
}

func (c *Config) Equal(other *Config) bool {
	if other == nil {
		return false
	}
	return c.Admin == other.Admin &&
		c.ExitFee == other.ExitFee &&
		c.MaxPools == other.MaxPools
}
