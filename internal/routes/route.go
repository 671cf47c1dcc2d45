// Package routes defines the cached route domain object, its versioned
// payload codec, and the pure merge over stored snapshots. Nothing here
// touches the backend; the store composes these pieces.
package routes

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/dexroute/route-cache/internal/cachekey"
)

// Pool is one hop of a sub-route's path.
type Pool struct {
	Address  common.Address `json:"address"`
	TokenA   common.Address `json:"token_a"`
	TokenB   common.Address `json:"token_b"`
	FeeTier  uint32         `json:"fee_tier"`
	Protocol string         `json:"protocol"`
}

// SubRoute is one weighted split of the overall trade: its share of the
// amount and the pool path that share is routed through.
type SubRoute struct {
	// Percent is this split's share of the trade, 1..100.
	Percent   int32  `json:"percent"`
	Protocol  string `json:"protocol"`
	Path      []Pool `json:"path"`
	AmountIn  string `json:"amount_in"`
	AmountOut string `json:"amount_out"`
}

// PathKey returns the canonical string of the pool path, used to deduplicate
// recurring sub-routes during merges. Protocol and fee tier are part of the
// key: the same pools at a different tier are a different route.
func (r SubRoute) PathKey() string {
	var sb strings.Builder
	sb.WriteString(strings.ToLower(r.Protocol))
	for _, p := range r.Path {
		fmt.Fprintf(&sb, "/%s:%d", strings.ToLower(p.Address.Hex()), p.FeeTier)
	}
	return sb.String()
}

// CachedRoute is the stored and retrieved domain object: the best known
// route for one (pair, direction, amount) computed at one block. Instances
// are never mutated after construction; merging produces a new one.
type CachedRoute struct {
	ChainID   uint64                  `json:"chain_id"`
	TokenIn   common.Address          `json:"token_in"`
	TokenOut  common.Address          `json:"token_out"`
	Direction cachekey.TradeDirection `json:"direction"`

	// Protocols is the protocol set the route computation covered, not just
	// the protocols the winning route touches.
	Protocols []string `json:"protocols"`

	// BlockNumber is the revision: the chain height the route was computed
	// at. After a merge it is the highest contributing block.
	BlockNumber uint64 `json:"block_number"`

	// Amount is the trade size in human-readable units of the quoted token.
	// Carried so storage re-resolves its own bucket, keeping retried writes
	// idempotent.
	Amount decimal.Decimal `json:"amount"`

	Routes []SubRoute `json:"routes"`

	// AmountProvenance is a debugging aid describing where the amount came
	// from; merges concatenate it. No invariant depends on it.
	AmountProvenance string `json:"amount_provenance,omitempty"`
}

// SplitCount returns the number of sub-routes, the quantity admission
// control limits.
func (r *CachedRoute) SplitCount() int {
	return len(r.Routes)
}

// PairIdentity derives the identity the route is stored under from the
// route's own fields.
func (r *CachedRoute) PairIdentity() cachekey.PairIdentity {
	return cachekey.NewPairIdentity(r.TokenIn, r.TokenOut, r.Direction, r.ChainID)
}
