package store

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/dexroute/route-cache/internal/cachekey"
	"github.com/dexroute/route-cache/internal/platform/observability"
	"github.com/dexroute/route-cache/internal/platform/resilience"
	"github.com/dexroute/route-cache/internal/routes"
	"github.com/dexroute/route-cache/internal/strategy"
)

// Request describes one quote the caller wants cache acceleration for. The
// amount is denominated in AmountToken; QuoteToken is the other side of the
// trade. Which token plays the in or out role follows from the direction.
type Request struct {
	ChainID     uint64
	Direction   cachekey.TradeDirection
	AmountToken common.Address
	QuoteToken  common.Address

	// Amount is the trade size in human-readable units of AmountToken.
	Amount decimal.Decimal

	// Protocols is the protocol set the route computation covers.
	Protocols []string
}

// PairIdentity derives the identity a request's routes are cached under.
// For exact-in trades the amount fixes the input token; for exact-out it
// fixes the output token.
func (r Request) PairIdentity() cachekey.PairIdentity {
	if r.Direction == cachekey.ExactOut {
		return cachekey.NewPairIdentity(r.QuoteToken, r.AmountToken, r.Direction, r.ChainID)
	}
	return cachekey.NewPairIdentity(r.AmountToken, r.QuoteToken, r.Direction, r.ChainID)
}

// Store is the route cache: strategy resolution, bucket selection, prefix
// range reads with merging, and admission-controlled writes, all fail-open
// over a pluggable backend.
type Store struct {
	backend      Backend
	table        *strategy.Table
	ttl          time.Duration
	queryTimeout time.Duration
	retry        resilience.RetryConfig
	logger       *observability.Logger
	metrics      *observability.Metrics

	now func() time.Time
}

// Config holds Store construction options. Backend and Table are required;
// everything else defaults.
type Config struct {
	Backend Backend
	Table   *strategy.Table

	// TTL is how long a stored snapshot stays servable. Defaults to 2m.
	TTL time.Duration

	// QueryTimeout bounds each backend call. Defaults to 150ms.
	QueryTimeout time.Duration

	Logger  *observability.Logger
	Metrics *observability.Metrics
}

// New builds a Store.
func New(cfg Config) *Store {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	queryTimeout := cfg.QueryTimeout
	if queryTimeout <= 0 {
		queryTimeout = 150 * time.Millisecond
	}
	logger := cfg.Logger
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = &observability.Metrics{}
	}

	return &Store{
		backend:      cfg.Backend,
		table:        cfg.Table,
		ttl:          ttl,
		queryTimeout: queryTimeout,
		retry:        resilience.FailFastRetryConfig(),
		logger:       logger,
		metrics:      metrics,
		now:          time.Now,
	}
}

// ResolveCacheMode returns the cache mode governing a request: the mode of
// the bucket its amount lands in. Requests with no configured strategy, or
// with amounts above every threshold, resolve to Dark.
func (s *Store) ResolveCacheMode(req Request) strategy.CacheMode {
	strat, ok := s.table.Resolve(req.PairIdentity())
	if !ok {
		return strategy.Dark
	}
	bucket, ok := strat.SelectBucket(req.Amount)
	if !ok {
		return strategy.Dark
	}
	return bucket.Mode
}

// TryGetCachedRoute looks up the freshest stored snapshots for a request and
// merges them into one servable route. It never fails the caller: strategy
// misses, uncacheable amounts, backend errors, timeouts and undecodable
// payloads all come back as (nil, false).
func (s *Store) TryGetCachedRoute(ctx context.Context, req Request) (*routes.CachedRoute, bool) {
	id := req.PairIdentity()

	strat, ok := s.table.Resolve(id)
	if !ok {
		return nil, false
	}
	bucket, ok := strat.SelectBucket(req.Amount)
	if !ok {
		return nil, false
	}

	pk := id.CanonicalString()
	prefix := cachekey.NewRevisionPrefix(req.Protocols, bucket.Threshold).PrefixString()

	queryCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	start := s.now()
	records, err := resilience.RetryWithResult(queryCtx, s.retry, func(ctx context.Context) ([]Record, error) {
		return s.backend.QueryDescending(ctx, pk, prefix, bucket.Window())
	})
	s.metrics.RecordStoreLatency(ctx, "query", s.now().Sub(start))
	if err != nil {
		s.logger.LogWarn(ctx, "cache query failed, treating as miss",
			"pair", strat.Pair,
			"pk", pk,
			"prefix", prefix,
			"limit", bucket.Window(),
			"error", err,
		)
		s.metrics.RecordStoreError(ctx, "query")
		s.metrics.RecordCacheRequest(ctx, strat.Pair, bucket.Mode.String(), false)
		return nil, false
	}

	snapshots := make([]*routes.CachedRoute, 0, len(records))
	for _, rec := range records {
		snap, err := routes.Decode(rec.Payload)
		if err != nil {
			s.logger.LogWarn(ctx, "skipping undecodable cached route",
				"pk", rec.PartitionKey,
				"sk", rec.SortKey,
				"error", err,
			)
			s.metrics.RecordDecodeFailure(ctx)
			continue
		}
		snapshots = append(snapshots, snap)
	}

	merged := routes.Merge(snapshots)
	hit := merged != nil && len(merged.Routes) > 0
	s.metrics.RecordCacheRequest(ctx, strat.Pair, bucket.Mode.String(), hit)
	if !hit {
		s.logger.LogDebug(ctx, "cache miss",
			"pair", strat.Pair,
			"pk", pk,
			"prefix", prefix,
		)
		return nil, false
	}

	s.metrics.RecordMerge(ctx, len(snapshots))
	s.logger.LogDebug(ctx, "cache hit",
		"pair", strat.Pair,
		"snapshots", len(snapshots),
		"block", merged.BlockNumber,
		"splits", merged.SplitCount(),
	)
	return merged, true
}

// TryPutCachedRoute stores a computed route under the bucket its own amount
// resolves to, so a retried write always lands on the same composite key.
// Returns whether the route was stored; rejections and backend failures are
// absorbed, never propagated.
func (s *Store) TryPutCachedRoute(ctx context.Context, route *routes.CachedRoute) bool {
	if route == nil || route.BlockNumber == 0 {
		return false
	}

	id := route.PairIdentity()
	strat, ok := s.table.Resolve(id)
	if !ok {
		return false
	}
	bucket, ok := strat.SelectBucket(route.Amount)
	if !ok {
		return false
	}

	if !bucket.AdmitsSplits(route.SplitCount()) {
		s.logger.LogDebug(ctx, "route rejected by admission policy",
			"pair", strat.Pair,
			"splits", route.SplitCount(),
			"max_splits", bucket.MaxSplits,
		)
		s.metrics.RecordAdmissionRejection(ctx, strat.Pair, "max_splits")
		return false
	}

	payload, err := routes.Encode(route)
	if err != nil {
		s.logger.LogError(ctx, "failed to encode route for caching", err, "pair", strat.Pair)
		return false
	}

	rec := Record{
		PartitionKey: id.CanonicalString(),
		SortKey:      cachekey.NewRevisionKey(route.Protocols, bucket.Threshold, route.BlockNumber).FullString(),
		Payload:      payload,
		ExpiresAt:    s.now().Add(s.ttl),
	}

	putCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	start := s.now()
	err = resilience.Retry(putCtx, s.retry, func(ctx context.Context) error {
		return s.backend.Put(ctx, rec)
	})
	s.metrics.RecordStoreLatency(ctx, "put", s.now().Sub(start))
	if err != nil {
		s.logger.LogWarn(ctx, "cache write failed, dropping route",
			"pair", strat.Pair,
			"pk", rec.PartitionKey,
			"error", err,
		)
		s.metrics.RecordStoreError(ctx, "put")
		return false
	}

	s.metrics.RecordCacheWrite(ctx, strat.Pair)
	return true
}
