// Package warmer pre-populates the route cache by walking the strategy
// table and computing a route for every concrete pair and bucket, so a
// bucket promoted to live starts with warm entries instead of a miss storm.
package warmer

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dexroute/route-cache/internal/cachekey"
	"github.com/dexroute/route-cache/internal/platform/observability"
	"github.com/dexroute/route-cache/internal/quote"
	"github.com/dexroute/route-cache/internal/store"
	"github.com/dexroute/route-cache/internal/strategy"
)

// Warmer runs warm cycles against the strategy table. Wildcard rows are
// skipped: with one token side unconstrained there is no concrete pair to
// compute a route for.
type Warmer struct {
	table       *strategy.Table
	store       *store.Store
	computer    quote.RouteComputer
	protocols   []string
	concurrency int
	logger      *observability.Logger
}

// Config holds Warmer construction options.
type Config struct {
	Table    *strategy.Table
	Store    *store.Store
	Computer quote.RouteComputer

	// Protocols is the protocol set warmed routes are computed over.
	Protocols []string

	// Concurrency bounds in-flight computations. Defaults to 4.
	Concurrency int

	Logger *observability.Logger
}

// New builds a Warmer.
func New(cfg Config) *Warmer {
	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 4
	}
	logger := cfg.Logger
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &Warmer{
		table:       cfg.Table,
		store:       cfg.Store,
		computer:    cfg.Computer,
		protocols:   cfg.Protocols,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Run warms on the given interval until the context ends. A cycle runs
// immediately on start.
func (w *Warmer) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.WarmOnce(ctx)
	for {
		select {
		case <-ticker.C:
			w.WarmOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// WarmOnce runs one full warm cycle and returns how many routes were
// stored. Individual failures are logged and skipped; the cycle always
// visits every target.
func (w *Warmer) WarmOnce(ctx context.Context) int {
	start := time.Now()
	targets := w.targets()

	var warmed int64
	results := make(chan bool, len(targets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)
	for _, target := range targets {
		g.Go(func() error {
			results <- w.warmTarget(gctx, target)
			return nil
		})
	}
	g.Wait()
	close(results)

	for ok := range results {
		if ok {
			warmed++
		}
	}

	w.logger.LogInfo(ctx, "warm cycle complete",
		"targets", len(targets),
		"warmed", warmed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return int(warmed)
}

type target struct {
	pair   string
	req    store.Request
	bucket strategy.BucketPolicy
}

// targets enumerates one request per (concrete pair, bucket), sized exactly
// at the bucket threshold so the computed route lands in that bucket.
func (w *Warmer) targets() []target {
	var out []target
	for _, row := range w.table.Rows() {
		if row.Wildcard {
			continue
		}

		req := store.Request{
			ChainID:     row.Identity.ChainID,
			Direction:   row.Identity.Direction,
			AmountToken: row.Identity.TokenIn,
			QuoteToken:  row.Identity.TokenOut,
			Protocols:   w.protocols,
		}
		if row.Identity.Direction == cachekey.ExactOut {
			req.AmountToken = row.Identity.TokenOut
			req.QuoteToken = row.Identity.TokenIn
		}

		for _, bucket := range row.Buckets {
			t := target{pair: row.Pair, req: req, bucket: bucket}
			t.req.Amount = bucket.Threshold
			out = append(out, t)
		}
	}
	return out
}

func (w *Warmer) warmTarget(ctx context.Context, t target) bool {
	route, err := w.computer.ComputeRoute(ctx, t.req)
	if err != nil {
		w.logger.LogWarn(ctx, "warm computation failed",
			"pair", t.pair,
			"amount", t.req.Amount.String(),
			"error", err,
		)
		return false
	}

	if !w.store.TryPutCachedRoute(ctx, route) {
		w.logger.LogDebug(ctx, "warm write not admitted",
			"pair", t.pair,
			"amount", t.req.Amount.String(),
		)
		return false
	}
	return true
}
