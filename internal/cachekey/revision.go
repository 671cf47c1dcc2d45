package cachekey

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// revisionDigits is the fixed width of the zero-padded block number in the
// full sort key. Padding keeps lexicographic order equal to numeric order,
// which the descending range query depends on.
const revisionDigits = 12

// RevisionKey is the sort-key model: the protocol set a route covers, the
// size bucket it was cached under, and optionally the block number it was
// computed at. Without a revision it encodes only the query prefix.
type RevisionKey struct {
	protocols   []string
	bucket      decimal.Decimal
	revision    uint64
	hasRevision bool
}

// NewRevisionPrefix builds the revision-less key used for begins-with
// queries over every stored snapshot of a (protocol set, bucket) pair.
func NewRevisionPrefix(protocols []string, bucket decimal.Decimal) RevisionKey {
	return RevisionKey{
		protocols: canonicalProtocols(protocols),
		bucket:    bucket,
	}
}

// NewRevisionKey builds the full key for a snapshot computed at the given
// block number.
func NewRevisionKey(protocols []string, bucket decimal.Decimal, revision uint64) RevisionKey {
	k := NewRevisionPrefix(protocols, bucket)
	k.revision = revision
	k.hasRevision = true
	return k
}

// PrefixString returns "<protocols>/<bucket>/", a strict prefix of every
// FullString sharing the same protocol set and bucket.
func (k RevisionKey) PrefixString() string {
	return fmt.Sprintf("%s/%s/", strings.Join(k.protocols, ","), k.bucket.String())
}

// FullString returns the complete sort key including the zero-padded
// revision. Calling it on a prefix-only key is a programming error and
// panics rather than silently producing an unqueryable key.
func (k RevisionKey) FullString() string {
	if !k.hasRevision {
		panic("cachekey: FullString called on a revision-less key")
	}
	return fmt.Sprintf("%s%0*d", k.PrefixString(), revisionDigits, k.revision)
}

// Revision returns the block number and whether one is present.
func (k RevisionKey) Revision() (uint64, bool) {
	return k.revision, k.hasRevision
}

// canonicalProtocols lowercases, sorts and copies the protocol tags so that
// set-equal inputs in any order encode identically.
func canonicalProtocols(protocols []string) []string {
	out := make([]string, 0, len(protocols))
	for _, p := range protocols {
		out = append(out, strings.ToLower(p))
	}
	sort.Strings(out)
	return out
}
