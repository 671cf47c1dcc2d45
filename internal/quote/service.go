package quote

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dexroute/route-cache/internal/notification"
	"github.com/dexroute/route-cache/internal/platform/observability"
	"github.com/dexroute/route-cache/internal/routes"
	"github.com/dexroute/route-cache/internal/store"
	"github.com/dexroute/route-cache/internal/strategy"
)

// ErrNoRoute is returned when the route computer finds no viable route for
// a request. The computer signals this with a nil route and nil error.
var ErrNoRoute = errors.New("quote: no route for request")

// Source says where a served route came from.
type Source string

const (
	SourceCache    Source = "cache"
	SourceComputed Source = "computed"
)

// Result is one served quote.
type Result struct {
	Route  *routes.CachedRoute
	Source Source
	Mode   strategy.CacheMode
}

// Service is the quote orchestrator. Per request it resolves the cache mode
// and runs the matching state machine: live serves cache hits, dark computes
// and only warms, shadow-compare serves fresh while measuring drift against
// the cache.
type Service struct {
	store    *store.Store
	computer RouteComputer
	alerts   *notification.Publisher
	logger   *observability.Logger
	metrics  *observability.Metrics
}

// ServiceConfig holds Service construction options. Store and Computer are
// required; Alerts may be nil to disable drift alerting.
type ServiceConfig struct {
	Store    *store.Store
	Computer RouteComputer
	Alerts   *notification.Publisher
	Logger   *observability.Logger
	Metrics  *observability.Metrics
}

// NewService builds a Service.
func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = &observability.Metrics{}
	}
	return &Service{
		store:    cfg.Store,
		computer: cfg.Computer,
		alerts:   cfg.Alerts,
		logger:   logger,
		metrics:  metrics,
	}
}

// Quote serves one quote. The error is non-nil only when a fresh route was
// required and the computer failed; cache trouble never surfaces here.
func (s *Service) Quote(ctx context.Context, req store.Request) (*Result, error) {
	start := time.Now()
	mode := s.store.ResolveCacheMode(req)

	var (
		result *Result
		err    error
	)
	switch mode {
	case strategy.Live:
		result, err = s.quoteLive(ctx, req)
	case strategy.ShadowCompare:
		result, err = s.quoteShadow(ctx, req)
	default:
		result, err = s.quoteDark(ctx, req, mode)
	}
	if err != nil {
		return nil, err
	}

	s.metrics.RecordQuote(ctx, mode.String(), string(result.Source), time.Since(start))
	return result, nil
}

// quoteLive serves the cache when it can and computes on a miss, warming the
// cache with the computed result.
func (s *Service) quoteLive(ctx context.Context, req store.Request) (*Result, error) {
	if cached, ok := s.store.TryGetCachedRoute(ctx, req); ok {
		return &Result{Route: cached, Source: SourceCache, Mode: strategy.Live}, nil
	}

	fresh, err := s.compute(ctx, req)
	if err != nil {
		return nil, err
	}
	s.store.TryPutCachedRoute(ctx, fresh)
	return &Result{Route: fresh, Source: SourceComputed, Mode: strategy.Live}, nil
}

// quoteDark always computes. The result still warms the cache so that a
// later promotion to live starts hot.
func (s *Service) quoteDark(ctx context.Context, req store.Request, mode strategy.CacheMode) (*Result, error) {
	fresh, err := s.compute(ctx, req)
	if err != nil {
		return nil, err
	}
	s.store.TryPutCachedRoute(ctx, fresh)
	return &Result{Route: fresh, Source: SourceComputed, Mode: mode}, nil
}

// quoteShadow computes and reads the cache concurrently, serves the fresh
// route, and records whether the cache would have agreed. The comparison
// never changes what is served.
func (s *Service) quoteShadow(ctx context.Context, req store.Request) (*Result, error) {
	var (
		fresh  *routes.CachedRoute
		cached *routes.CachedRoute
		hit    bool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		fresh, err = s.compute(gctx, req)
		return err
	})
	g.Go(func() error {
		cached, hit = s.store.TryGetCachedRoute(gctx, req)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if hit {
		s.compareShadow(ctx, req, cached, fresh)
	}

	s.store.TryPutCachedRoute(ctx, fresh)
	return &Result{Route: fresh, Source: SourceComputed, Mode: strategy.ShadowCompare}, nil
}

func (s *Service) compareShadow(ctx context.Context, req store.Request, cached, fresh *routes.CachedRoute) {
	pair := req.PairIdentity().CanonicalString()
	divergent := divergentPaths(cached, fresh)
	match := len(divergent) == 0

	s.metrics.RecordShadowComparison(ctx, pair, match)
	if match {
		return
	}

	s.logger.LogWarn(ctx, "shadow comparison mismatch",
		"pair", pair,
		"cached_block", cached.BlockNumber,
		"fresh_block", fresh.BlockNumber,
		"divergent_paths", len(divergent),
	)

	if s.alerts.Enabled() {
		alert := notification.DriftAlert{
			Pair:           pair,
			PartitionKey:   pair,
			Mode:           strategy.ShadowCompare.String(),
			CachedBlock:    cached.BlockNumber,
			FreshBlock:     fresh.BlockNumber,
			CachedSplits:   cached.SplitCount(),
			FreshSplits:    fresh.SplitCount(),
			DivergentPaths: divergent,
			ObservedAt:     time.Now().UTC(),
		}
		// Detached from the request so serving never waits on SNS.
		go func() {
			alertCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			s.alerts.PublishDrift(alertCtx, alert)
		}()
	}
}

// compute invokes the route computer and normalizes its "no route" outcome
// (nil route, nil error) into ErrNoRoute so no caller ever holds a nil route
// without an error.
func (s *Service) compute(ctx context.Context, req store.Request) (*routes.CachedRoute, error) {
	fresh, err := s.computer.ComputeRoute(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("route computation failed: %w", err)
	}
	if fresh == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoRoute, req.PairIdentity().CanonicalString())
	}
	return fresh, nil
}

// divergentPaths returns the path keys present in exactly one of the two
// routes, sorted for stable alert payloads.
func divergentPaths(a, b *routes.CachedRoute) []string {
	inA := make(map[string]struct{}, len(a.Routes))
	for _, sub := range a.Routes {
		inA[sub.PathKey()] = struct{}{}
	}

	var diff []string
	inB := make(map[string]struct{}, len(b.Routes))
	for _, sub := range b.Routes {
		key := sub.PathKey()
		inB[key] = struct{}{}
		if _, ok := inA[key]; !ok {
			diff = append(diff, key)
		}
	}
	for key := range inA {
		if _, ok := inB[key]; !ok {
			diff = append(diff, key)
		}
	}

	sort.Strings(diff)
	return diff
}
