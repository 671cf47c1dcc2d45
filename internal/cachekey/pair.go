// Package cachekey defines the composite key model for the cached-routes
// table: an immutable pair identity used as the partition key and a
// revision-scoped key used as the sort key. All encodings are pure,
// deterministic functions of their inputs so that set-equal or value-equal
// inputs always land on the same stored records.
package cachekey

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// TradeDirection indicates which side of the swap the quoted amount fixes.
type TradeDirection int

const (
	// ExactIn quotes a fixed input amount.
	ExactIn TradeDirection = iota
	// ExactOut quotes a fixed output amount.
	ExactOut
)

// String returns the canonical wire label for the direction.
func (d TradeDirection) String() string {
	if d == ExactOut {
		return "exactOut"
	}
	return "exactIn"
}

// ParseTradeDirection parses a direction label. Unrecognized input defaults
// to ExactIn with ok=false so callers can decide whether to reject.
func ParseTradeDirection(s string) (TradeDirection, bool) {
	switch strings.ToLower(s) {
	case "exactin", "exact_in":
		return ExactIn, true
	case "exactout", "exact_out":
		return ExactOut, true
	}
	return ExactIn, false
}

// MarshalJSON implements JSON marshaling for TradeDirection.
func (d TradeDirection) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON implements JSON unmarshaling for TradeDirection.
func (d *TradeDirection) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, ok := ParseTradeDirection(s)
	if !ok {
		return fmt.Errorf("cachekey: invalid trade direction %q", s)
	}
	*d = parsed
	return nil
}

// WildcardToken is the sentinel that stands in for the unconstrained token
// side of a wildcard pair identity.
const WildcardToken = "*"

// PairIdentity identifies a cacheable trade shape: the two token roles, the
// trade direction and the chain. It is never persisted itself; only its
// string forms are used as partition keys.
type PairIdentity struct {
	TokenIn   common.Address
	TokenOut  common.Address
	Direction TradeDirection
	ChainID   uint64
}

// NewPairIdentity builds a pair identity. Token roles are positional
// (in/out), never sorted: A→B and B→A are distinct identities.
func NewPairIdentity(tokenIn, tokenOut common.Address, direction TradeDirection, chainID uint64) PairIdentity {
	return PairIdentity{
		TokenIn:   tokenIn,
		TokenOut:  tokenOut,
		Direction: direction,
		ChainID:   chainID,
	}
}

// CanonicalString returns the exact-pair partition key:
// "<chain>/<direction>/<tokenIn>/<tokenOut>" with lowercase hex addresses.
func (p PairIdentity) CanonicalString() string {
	return fmt.Sprintf("%d/%s/%s/%s",
		p.ChainID,
		p.Direction,
		encodeAddress(p.TokenIn),
		encodeAddress(p.TokenOut),
	)
}

// WildcardString returns the fallback partition key with the quoted side
// replaced by WildcardToken: the token-out side for exact-in trades, the
// token-in side for exact-out trades.
func (p PairIdentity) WildcardString() string {
	if p.Direction == ExactOut {
		return fmt.Sprintf("%d/%s/%s/%s",
			p.ChainID, p.Direction, WildcardToken, encodeAddress(p.TokenOut))
	}
	return fmt.Sprintf("%d/%s/%s/%s",
		p.ChainID, p.Direction, encodeAddress(p.TokenIn), WildcardToken)
}

// encodeAddress lowercases the hex form so that checksummed and plain
// spellings of the same address produce identical keys.
func encodeAddress(a common.Address) string {
	return strings.ToLower(a.Hex())
}
