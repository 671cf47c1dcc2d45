package warmer

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/dexroute/route-cache/internal/cachekey"
	"github.com/dexroute/route-cache/internal/routes"
	"github.com/dexroute/route-cache/internal/store"
	"github.com/dexroute/route-cache/internal/strategy"
)

var (
	testWETH = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	testUSDC = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	testDAI  = common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")
	testPool = common.HexToAddress("0x88e6A0c2dDD26FEEb64F039a2c41296FcB3f5640")
)

// echoComputer returns a route sized at the request's own amount, like the
// routing engine does.
type echoComputer struct {
	calls atomic.Int64
	fail  bool
}

func (c *echoComputer) ComputeRoute(ctx context.Context, req store.Request) (*routes.CachedRoute, error) {
	c.calls.Add(1)
	if c.fail {
		return nil, errors.New("routing engine down")
	}
	id := req.PairIdentity()
	return &routes.CachedRoute{
		ChainID:     req.ChainID,
		TokenIn:     id.TokenIn,
		TokenOut:    id.TokenOut,
		Direction:   req.Direction,
		Protocols:   req.Protocols,
		BlockNumber: 100,
		Amount:      req.Amount,
		Routes: []routes.SubRoute{{
			Percent:  100,
			Protocol: "uniswap_v3",
			Path: []routes.Pool{{
				Address:  testPool,
				TokenA:   id.TokenIn,
				TokenB:   id.TokenOut,
				FeeTier:  500,
				Protocol: "uniswap_v3",
			}},
		}},
	}, nil
}

func testTable(t *testing.T) *strategy.Table {
	t.Helper()
	buckets := []strategy.BucketPolicy{
		{Threshold: decimal.RequireFromString("1"), Mode: strategy.Live},
		{Threshold: decimal.RequireFromString("5"), Mode: strategy.Dark},
	}
	table, err := strategy.NewTable([]strategy.Row{
		{
			Identity: cachekey.NewPairIdentity(testWETH, testUSDC, cachekey.ExactIn, 1),
			Pair:     "WETH/USDC",
			Buckets:  buckets,
		},
		{
			Identity: cachekey.NewPairIdentity(testWETH, testDAI, cachekey.ExactIn, 1),
			Wildcard: true,
			Pair:     "WETH/*",
			Buckets:  buckets,
		},
	})
	if err != nil {
		t.Fatalf("failed to build table: %v", err)
	}
	return table
}

func TestWarmOnceFillsEveryConcreteBucket(t *testing.T) {
	table := testTable(t)
	backend := store.NewMemoryBackend()
	st := store.New(store.Config{Backend: backend, Table: table})
	computer := &echoComputer{}

	w := New(Config{
		Table:     table,
		Store:     st,
		Computer:  computer,
		Protocols: []string{"uniswap_v3"},
	})

	warmed := w.WarmOnce(context.Background())

	// One concrete row with two buckets; the wildcard row is skipped.
	if warmed != 2 {
		t.Errorf("expected 2 warmed routes, got %d", warmed)
	}
	if computer.calls.Load() != 2 {
		t.Errorf("expected 2 computations, got %d", computer.calls.Load())
	}
	if backend.Len() != 2 {
		t.Errorf("expected 2 stored records, got %d", backend.Len())
	}

	t.Log("✓ Warm cycle fills every concrete pair and bucket")
}

func TestWarmOnceSurvivesComputerFailures(t *testing.T) {
	table := testTable(t)
	st := store.New(store.Config{Backend: store.NewMemoryBackend(), Table: table})
	computer := &echoComputer{fail: true}

	w := New(Config{
		Table:     table,
		Store:     st,
		Computer:  computer,
		Protocols: []string{"uniswap_v3"},
	})

	if warmed := w.WarmOnce(context.Background()); warmed != 0 {
		t.Errorf("expected 0 warmed routes, got %d", warmed)
	}
	if computer.calls.Load() != 2 {
		t.Errorf("failures must not stop the cycle, got %d calls", computer.calls.Load())
	}

	t.Log("✓ Computation failures are skipped, not fatal")
}

func TestWarmedEntriesServeLiveReads(t *testing.T) {
	table := testTable(t)
	st := store.New(store.Config{Backend: store.NewMemoryBackend(), Table: table})

	w := New(Config{
		Table:     table,
		Store:     st,
		Computer:  &echoComputer{},
		Protocols: []string{"uniswap_v3"},
	})
	w.WarmOnce(context.Background())

	got, ok := st.TryGetCachedRoute(context.Background(), store.Request{
		ChainID:     1,
		Direction:   cachekey.ExactIn,
		AmountToken: testWETH,
		QuoteToken:  testUSDC,
		Amount:      decimal.RequireFromString("0.7"),
		Protocols:   []string{"uniswap_v3"},
	})
	if !ok {
		t.Fatal("expected the warmed entry to serve a later read")
	}
	if got.BlockNumber != 100 {
		t.Errorf("expected block 100, got %d", got.BlockNumber)
	}

	t.Log("✓ Warmed entries are readable through the store")
}
