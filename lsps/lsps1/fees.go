package lsps1

import (
	"github.com/flokiorg/lspd/config"
)

// FeeCalculator computes order fees from the configured fee schedule.
type FeeCalculator struct {
	schedule *config.FeeSchedule
}

func NewFeeCalculator(schedule *config.FeeSchedule) *FeeCalculator {
	return &FeeCalculator{schedule: schedule}
}

// FeeTotalSat returns the fee for a channel of the given capacity held open
// for channelExpiryBlocks. Proportional terms round up so the LSP never
// undercharges by a fraction of a satoshi.
func (c *FeeCalculator) FeeTotalSat(capacitySat uint64, channelExpiryBlocks uint32) uint64 {
	onchainShare := ceilDiv(c.schedule.ProjectedOnchainCostSat*c.schedule.OnchainPpm, 1_000_000)
	liquidityShare := ceilDiv(capacitySat*uint64(channelExpiryBlocks)*c.schedule.LiquidityPpb, 1_000_000_000)
	return c.schedule.BaseFeeSat + onchainShare + liquidityShare
}

// OrderTotalSat is the amount the client pays: the fee plus the balance the
// LSP pushes to the client side of the channel.
func (c *FeeCalculator) OrderTotalSat(feeTotalSat, clientBalanceSat uint64) uint64 {
	return feeTotalSat + clientBalanceSat
}

func ceilDiv(numerator, denominator uint64) uint64 {
	return (numerator + denominator - 1) / denominator
}
