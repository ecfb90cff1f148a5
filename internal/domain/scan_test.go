package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPairName_UsesPoolName(t *testing.T) {
	assert.Equal(t, "WETH/USDC", PairName(PoolInfo{Name: "WETH/USDC"}))
}

func TestPairName_Fallback(t *testing.T) {
	p := PoolInfo{BaseToken: "WETH", QuoteToken: "USDC", FeeTier: 500}
	assert.Equal(t, "WETH / USDC 0.05%", PairName(p))

	p = PoolInfo{QuoteToken: "USDC", FeeTier: 3000}
	assert.Equal(t, "? / USDC 0.3%", PairName(p))
}

func TestDexLabel(t *testing.T) {
	assert.Equal(t, "Uniswap", DexLabel("uniswap-v3"))
	assert.Equal(t, "Pancakeswap", DexLabel("PancakeSwap-V3"))
	assert.Equal(t, "Aerodrome", DexLabel("aerodrome"))
	assert.Equal(t, "Unknown", DexLabel(""))
}

func TestChainLabel(t *testing.T) {
	assert.Equal(t, "Arbitrum", ChainLabel("arbitrum"))
	assert.Equal(t, "Unknown", ChainLabel(" "))
}

func TestScanParams_MatchesChain(t *testing.T) {
	p := ScanParams{}
	assert.True(t, p.MatchesChain("base"))

	p.Chains = []string{"arbitrum", "Base"}
	assert.True(t, p.MatchesChain("base"))
	assert.False(t, p.MatchesChain("ethereum"))
}

func TestSummarize(t *testing.T) {
	records := []SimulationRecord{
		{InRange: true, PositionValueUSD: 1000, FeesAccumulated: 1, HodlValueUSD: 1000},
		{InRange: false, PositionValueUSD: 990, FeesAccumulated: 1, HodlValueUSD: 995},
		{InRange: true, PositionValueUSD: 1010, FeesAccumulated: 3, HodlValueUSD: 1005},
		{InRange: true, PositionValueUSD: 1020, FeesAccumulated: 5, HodlValueUSD: 1010},
	}
	s := Summarize(records, 1000, 2)

	assert.Equal(t, 4, s.Periods)
	assert.Equal(t, 2, s.RebalanceCount)
	assert.InDelta(t, 1025.0, s.FinalValueUSD, 1e-9)
	assert.InDelta(t, 0.025, s.ROI, 1e-9)
	assert.InDelta(t, 0.01, s.HodlROI, 1e-9)
	assert.InDelta(t, 15.0, s.VsHodl, 1e-9)
	assert.InDelta(t, 5.0, s.TotalFeesUSD, 1e-9)
	assert.InDelta(t, 0.75, s.TimeInRange, 1e-9)
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil, 1000, 0)
	assert.Equal(t, 0, s.Periods)
	assert.Equal(t, 0.0, s.ROI)
}

func TestFeeFraction(t *testing.T) {
	assert.InDelta(t, 0.0005, FeeFraction(PoolInfo{FeeTier: 500}), 1e-12)
	assert.InDelta(t, 0.0005, FeeFraction(PoolInfo{Name: "WETH/USDC 0.05%"}), 1e-12)
	assert.InDelta(t, 0.0001, FeeFraction(PoolInfo{Name: "USDC/USDT 0.01%"}), 1e-12)
	assert.InDelta(t, 0.01, FeeFraction(PoolInfo{Name: "PEPE/WETH 1%"}), 1e-12)
	assert.InDelta(t, 0.003, FeeFraction(PoolInfo{Name: "WBTC/WETH"}), 1e-12)
}
