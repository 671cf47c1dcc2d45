package strategy

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/dexroute/route-cache/internal/cachekey"
)

// Mainnet token addresses covered by the default table.
var (
	wethMainnet = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	usdcMainnet = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	usdtMainnet = common.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7")
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// wethBuckets is the shared band ladder for WETH-denominated amounts. Small
// bands serve live, the mid bands shadow-compare while drift is measured,
// and the largest bands stay dark. Amounts above the last threshold are
// never cached: very large trades always compute fresh.
func wethBuckets() []BucketPolicy {
	return []BucketPolicy{
		{Threshold: d("0.2"), Mode: Live, ResultWindow: 2, MaxSplits: 0},
		{Threshold: d("1"), Mode: Live, ResultWindow: 2, MaxSplits: 0},
		{Threshold: d("3"), Mode: Live, ResultWindow: 2, MaxSplits: 3},
		{Threshold: d("5"), Mode: Live, ResultWindow: 2, MaxSplits: 3},
		{Threshold: d("8"), Mode: ShadowCompare, ResultWindow: 3, MaxSplits: 3},
		{Threshold: d("13"), Mode: ShadowCompare, ResultWindow: 3, MaxSplits: 3},
		{Threshold: d("21"), Mode: Dark, ResultWindow: 3, MaxSplits: 2},
		{Threshold: d("34"), Mode: Dark, ResultWindow: 3, MaxSplits: 2},
		{Threshold: d("55"), Mode: Dark, ResultWindow: 3, MaxSplits: 2},
	}
}

// usdcBuckets is the band ladder for USDC-denominated amounts.
func usdcBuckets() []BucketPolicy {
	return []BucketPolicy{
		{Threshold: d("500"), Mode: Live, ResultWindow: 2, MaxSplits: 0},
		{Threshold: d("2500"), Mode: Live, ResultWindow: 2, MaxSplits: 3},
		{Threshold: d("10000"), Mode: Live, ResultWindow: 2, MaxSplits: 3},
		{Threshold: d("25000"), Mode: ShadowCompare, ResultWindow: 3, MaxSplits: 3},
		{Threshold: d("100000"), Mode: Dark, ResultWindow: 3, MaxSplits: 2},
	}
}

// DefaultTable is the declarative mainnet configuration: exact rows for the
// highest-volume pairs plus wildcard fallbacks keyed on the quoted token.
// Pure data; the selection contract lives in Table and Strategy.
func DefaultTable() *Table {
	const mainnet = 1

	return MustNewTable([]Row{
		// Exact pairs. These win over the wildcard rows below.
		{
			Identity: cachekey.NewPairIdentity(wethMainnet, usdcMainnet, cachekey.ExactIn, mainnet),
			Pair:     "WETH/USDC",
			Buckets:  wethBuckets(),
		},
		{
			Identity: cachekey.NewPairIdentity(usdcMainnet, wethMainnet, cachekey.ExactIn, mainnet),
			Pair:     "USDC/WETH",
			Buckets:  usdcBuckets(),
		},
		{
			Identity: cachekey.NewPairIdentity(wethMainnet, usdtMainnet, cachekey.ExactIn, mainnet),
			Pair:     "WETH/USDT",
			Buckets:  wethBuckets(),
		},
		{
			Identity: cachekey.NewPairIdentity(usdcMainnet, wethMainnet, cachekey.ExactOut, mainnet),
			Pair:     "USDC/WETH",
			Buckets:  wethBuckets(),
		},

		// Wildcard fallbacks: any pair whose quoted side is WETH.
		{
			Identity: cachekey.NewPairIdentity(wethMainnet, common.Address{}, cachekey.ExactIn, mainnet),
			Wildcard: true,
			Pair:     "WETH/*",
			Buckets:  wethBuckets(),
		},
		{
			Identity: cachekey.NewPairIdentity(common.Address{}, wethMainnet, cachekey.ExactOut, mainnet),
			Wildcard: true,
			Pair:     "*/WETH",
			Buckets:  wethBuckets(),
		},
		{
			Identity: cachekey.NewPairIdentity(usdcMainnet, common.Address{}, cachekey.ExactIn, mainnet),
			Wildcard: true,
			Pair:     "USDC/*",
			Buckets:  usdcBuckets(),
		},
	})
}
