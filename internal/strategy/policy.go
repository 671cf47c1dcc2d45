// Package strategy holds the declarative caching configuration: per-pair
// ordered trade-size buckets, each carrying a caching policy, plus the
// selection logic that maps an arbitrary amount to the applicable policy.
// The package is dependency-free beyond the key model so selection can be
// tested in isolation.
package strategy

import (
	"github.com/shopspring/decimal"

	"github.com/dexroute/route-cache/internal/cachekey"
)

// CacheMode governs whether a cache hit is actually served.
type CacheMode int

const (
	// Dark never serves cache reads; writes may still warm the cache. It is
	// the zero value so unresolved lookups default to the conservative mode.
	Dark CacheMode = iota
	// Live serves cache hits without invoking the route computer.
	Live
	// ShadowCompare serves fresh results but reads the cache to measure
	// drift; the comparison never changes what is served.
	ShadowCompare
)

// String returns the mode label used in logs and metrics.
func (m CacheMode) String() string {
	switch m {
	case Live:
		return "live"
	case ShadowCompare:
		return "shadow_compare"
	default:
		return "dark"
	}
}

// BucketPolicy is the caching policy for one trade-size band.
type BucketPolicy struct {
	// Threshold is the inclusive upper bound of the band, in human-readable
	// units of the quoted token.
	Threshold decimal.Decimal

	// Mode governs read behavior for amounts landing in this band.
	Mode CacheMode

	// ResultWindow is how many of the most recent stored snapshots a read
	// fetches and merges. Values below 1 are treated as 1.
	ResultWindow int

	// MaxSplits rejects writes whose route is divided across more than this
	// many sub-routes. Zero or negative means unlimited.
	MaxSplits int
}

// Window returns the effective result window.
func (p BucketPolicy) Window() int {
	if p.ResultWindow < 1 {
		return 1
	}
	return p.ResultWindow
}

// AdmitsSplits reports whether a route with the given split count may be
// stored under this policy.
func (p BucketPolicy) AdmitsSplits(n int) bool {
	return p.MaxSplits <= 0 || n <= p.MaxSplits
}

// Strategy is the ordered bucket list configured for one pair identity.
type Strategy struct {
	// Pair is a human-readable label like "WETH/USDC", for logs only.
	Pair      string
	Direction cachekey.TradeDirection
	ChainID   uint64

	// Buckets are declared in ascending threshold order; Table construction
	// validates the invariant.
	Buckets []BucketPolicy
}

// SelectBucket returns the first policy whose threshold is >= amount,
// scanning in declared order. The boundary is inclusive: an amount sitting
// exactly on a threshold selects that bucket. Amounts above every threshold
// are uncacheable and return ok=false.
func (s *Strategy) SelectBucket(amount decimal.Decimal) (BucketPolicy, bool) {
	for _, b := range s.Buckets {
		if b.Threshold.GreaterThanOrEqual(amount) {
			return b, true
		}
	}
	return BucketPolicy{}, false
}
