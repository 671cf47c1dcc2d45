// Package quote serves swap quotes: it resolves the cache mode for each
// request, consults the route cache accordingly, falls back to the route
// computer, and warms the cache with computed results.
package quote

import (
	"context"

	"github.com/dexroute/route-cache/internal/routes"
	"github.com/dexroute/route-cache/internal/store"
)

// RouteComputer produces a fresh route for a request. Implementations are
// expected to be expensive relative to a cache read; the service only calls
// one when the cache cannot or must not serve.
type RouteComputer interface {
	ComputeRoute(ctx context.Context, req store.Request) (*routes.CachedRoute, error)
}

// RouteComputerFunc adapts a function to the RouteComputer interface.
type RouteComputerFunc func(ctx context.Context, req store.Request) (*routes.CachedRoute, error)

// ComputeRoute implements RouteComputer.
func (f RouteComputerFunc) ComputeRoute(ctx context.Context, req store.Request) (*routes.CachedRoute, error) {
	return f(ctx, req)
}
