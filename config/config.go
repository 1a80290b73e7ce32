package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kelseyhightower/envconfig"

	"github.com/flokiorg/lspd/constants"
)

const envPrefix = "LSPD"

// Load reads the AppConfig from the environment.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}
	return cfg, nil
}

// ParseSatAmount parses a satoshi amount expressed as a decimal string.
// Underscores are tolerated as digit separators.
func ParseSatAmount(value string) (uint64, error) {
	cleaned := strings.ReplaceAll(value, "_", "")
	amount, err := strconv.ParseUint(cleaned, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid satoshi amount %q: %w", value, err)
	}
	return amount, nil
}

// ParseLimits converts the string-typed bounds into a Limits value and
// checks them for basic consistency.
func (c *AppConfig) ParseLimits() (*Limits, error) {
	limits := &Limits{MaxChannelExpiryBlocks: c.MaxChannelExpiryBlocks}

	var err error
	if limits.MinInitialClientBalanceSat, err = ParseSatAmount(c.MinInitialClientBalanceSat); err != nil {
		return nil, err
	}
	if limits.MaxInitialClientBalanceSat, err = ParseSatAmount(c.MaxInitialClientBalanceSat); err != nil {
		return nil, err
	}
	if limits.MinInitialLspBalanceSat, err = ParseSatAmount(c.MinInitialLspBalanceSat); err != nil {
		return nil, err
	}
	if limits.MaxInitialLspBalanceSat, err = ParseSatAmount(c.MaxInitialLspBalanceSat); err != nil {
		return nil, err
	}
	if limits.MinChannelBalanceSat, err = ParseSatAmount(c.MinChannelBalanceSat); err != nil {
		return nil, err
	}
	if limits.MaxChannelBalanceSat, err = ParseSatAmount(c.MaxChannelBalanceSat); err != nil {
		return nil, err
	}

	if limits.MinInitialClientBalanceSat > limits.MaxInitialClientBalanceSat {
		return nil, fmt.Errorf("min initial client balance exceeds max")
	}
	if limits.MinInitialLspBalanceSat > limits.MaxInitialLspBalanceSat {
		return nil, fmt.Errorf("min initial lsp balance exceeds max")
	}
	if limits.MinChannelBalanceSat > limits.MaxChannelBalanceSat {
		return nil, fmt.Errorf("min channel balance exceeds max")
	}

	return limits, nil
}

// ParseFeeSchedule converts the fee computation options.
func (c *AppConfig) ParseFeeSchedule() (*FeeSchedule, error) {
	baseFee, err := ParseSatAmount(c.FeeComputationBaseFeeSat)
	if err != nil {
		return nil, err
	}
	onchainCost, err := ParseSatAmount(c.ProjectedOnchainCostSat)
	if err != nil {
		return nil, err
	}
	return &FeeSchedule{
		BaseFeeSat:              baseFee,
		OnchainPpm:              c.FeeComputationOnchainPpm,
		LiquidityPpb:            c.FeeComputationLiquidityPpb,
		ProjectedOnchainCostSat: onchainCost,
	}, nil
}

// EnabledProtocols returns the protocol numbers this instance serves,
// sorted ascending. LSPS0 is always on.
func (c *AppConfig) EnabledProtocols() []int {
	protocols := []int{constants.PROTOCOL_LSPS0}
	if c.LSPS1Enabled {
		protocols = append(protocols, constants.PROTOCOL_LSPS1)
	}
	return protocols
}
