package routes

import (
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/dexroute/route-cache/internal/cachekey"
)

var (
	weth = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	usdc = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")

	poolA = common.HexToAddress("0x88e6A0c2dDD26FEEb64F039a2c41296FcB3f5640")
	poolB = common.HexToAddress("0x8ad599c3A0ff1De082011EFDDc58f1908eb6e6D8")
)

func snapshot(block uint64, provenance string, subs ...SubRoute) *CachedRoute {
	return &CachedRoute{
		ChainID:          1,
		TokenIn:          weth,
		TokenOut:         usdc,
		Direction:        cachekey.ExactIn,
		Protocols:        []string{"v3"},
		BlockNumber:      block,
		Amount:           decimal.RequireFromString("1"),
		Routes:           subs,
		AmountProvenance: provenance,
	}
}

func sub(pool common.Address, fee uint32, percent int32) SubRoute {
	return SubRoute{
		Percent:  percent,
		Protocol: "v3",
		Path:     []Pool{{Address: pool, TokenA: weth, TokenB: usdc, FeeTier: fee, Protocol: "v3"}},
	}
}

// TestMergeDeduplicatesByPath verifies a recurring pool path appears exactly
// once, with the most recent snapshot's version surviving.
func TestMergeDeduplicatesByPath(t *testing.T) {
	newest := snapshot(200, "exact", sub(poolA, 500, 70))
	older := snapshot(100, "exact", sub(poolA, 500, 40), sub(poolB, 3000, 60))

	merged := Merge([]*CachedRoute{newest, older})

	if merged.SplitCount() != 2 {
		t.Fatalf("Expected 2 distinct sub-routes, got %d", merged.SplitCount())
	}

	// The newest version of the poolA path must win.
	if merged.Routes[0].Percent != 70 {
		t.Errorf("Expected newest sub-route to survive dedup, got percent %d", merged.Routes[0].Percent)
	}

	t.Log("✓ Merge deduplicates recurring paths, newest wins")
}

// TestMergeRevisionIsMax verifies the merged block number is the maximum of
// the inputs regardless of processing order.
func TestMergeRevisionIsMax(t *testing.T) {
	merged := Merge([]*CachedRoute{
		snapshot(150, "a", sub(poolA, 500, 100)),
		snapshot(300, "b", sub(poolB, 3000, 100)),
		snapshot(90, "c", sub(poolA, 3000, 100)),
	})

	if merged.BlockNumber != 300 {
		t.Errorf("Expected merged revision 300, got %d", merged.BlockNumber)
	}

	t.Log("✓ Merged revision is the maximum input revision")
}

// TestMergeHeaderFromFirst verifies chain/token/direction/amount come from
// the most recent snapshot.
func TestMergeHeaderFromFirst(t *testing.T) {
	first := snapshot(200, "exact", sub(poolA, 500, 100))
	merged := Merge([]*CachedRoute{first, snapshot(100, "exact", sub(poolB, 3000, 100))})

	if merged.ChainID != first.ChainID || merged.TokenIn != first.TokenIn ||
		merged.TokenOut != first.TokenOut || merged.Direction != first.Direction {
		t.Error("Expected header fields copied from the first snapshot")
	}
	if !merged.Amount.Equal(first.Amount) {
		t.Errorf("Expected amount %s, got %s", first.Amount, merged.Amount)
	}

	t.Log("✓ Merged header comes from the most recent snapshot")
}

// TestMergeProvenance verifies the diagnostic string records each snapshot's
// provenance, cumulative route count and revision in processing order.
func TestMergeProvenance(t *testing.T) {
	merged := Merge([]*CachedRoute{
		snapshot(200, "exact", sub(poolA, 500, 100)),
		snapshot(100, "carried", sub(poolA, 500, 100), sub(poolB, 3000, 100)),
	})

	parts := strings.Split(merged.AmountProvenance, ", ")
	if len(parts) != 2 {
		t.Fatalf("Expected 2 provenance segments, got %d: %q", len(parts), merged.AmountProvenance)
	}
	if parts[0] != "exact | 1 | 200" {
		t.Errorf("Unexpected first segment %q", parts[0])
	}
	if parts[1] != "carried | 2 | 100" {
		t.Errorf("Unexpected second segment %q", parts[1])
	}

	t.Log("✓ Provenance concatenates per-snapshot diagnostics")
}

// TestMergeSingleAndEmpty covers the degenerate inputs.
func TestMergeSingleAndEmpty(t *testing.T) {
	if Merge(nil) != nil {
		t.Error("Expected nil merge result for empty input")
	}

	single := snapshot(42, "exact", sub(poolA, 500, 100))
	merged := Merge([]*CachedRoute{single})
	if merged.BlockNumber != 42 || merged.SplitCount() != 1 {
		t.Errorf("Expected single-snapshot merge to preserve content, got block %d splits %d",
			merged.BlockNumber, merged.SplitCount())
	}

	// Merge must not alias the input's route slice.
	merged.Routes[0].Percent = 1
	if single.Routes[0].Percent == 1 {
		t.Error("Expected merge to copy sub-routes, input was mutated")
	}

	t.Log("✓ Degenerate merges behave")
}

// TestPathKeyDistinguishesFeeTier verifies the same pools at different fee
// tiers are distinct routes.
func TestPathKeyDistinguishesFeeTier(t *testing.T) {
	a := sub(poolA, 500, 100)
	b := sub(poolA, 3000, 100)

	if a.PathKey() == b.PathKey() {
		t.Error("Expected different path keys for different fee tiers")
	}
	if a.PathKey() != sub(poolA, 500, 50).PathKey() {
		t.Error("Expected path key independent of split weight")
	}

	t.Log("✓ Path key covers protocol, pools and fee tier only")
}
