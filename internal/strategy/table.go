package strategy

import (
	"fmt"

	"github.com/dexroute/route-cache/internal/cachekey"
)

// Row declares one strategy in the configuration table. Exact rows are keyed
// by the identity's canonical string; wildcard rows by its wildcard string,
// leaving one token side unconstrained.
type Row struct {
	Identity cachekey.PairIdentity
	Wildcard bool
	Pair     string
	Buckets  []BucketPolicy
}

// Table is the immutable pair→strategy mapping, loaded once at process start
// and shared without locks. Resolution tries the exact key first and falls
// back to the wildcard key; the exact match always wins.
type Table struct {
	strategies map[string]*Strategy
	rows       []Row
}

// NewTable builds and validates a table. Misordered thresholds or duplicate
// keys are configuration bugs and fail construction rather than producing
// undefined bucket selection at runtime.
func NewTable(rows []Row) (*Table, error) {
	t := &Table{
		strategies: make(map[string]*Strategy, len(rows)),
		rows:       rows,
	}

	for _, row := range rows {
		key := row.Identity.CanonicalString()
		if row.Wildcard {
			key = row.Identity.WildcardString()
		}

		if _, dup := t.strategies[key]; dup {
			return nil, fmt.Errorf("strategy: duplicate table row for key %q", key)
		}
		if len(row.Buckets) == 0 {
			return nil, fmt.Errorf("strategy: row %q has no buckets", key)
		}
		for i := 1; i < len(row.Buckets); i++ {
			prev, cur := row.Buckets[i-1].Threshold, row.Buckets[i].Threshold
			if cur.LessThanOrEqual(prev) {
				return nil, fmt.Errorf("strategy: row %q thresholds not strictly ascending (%s then %s)",
					key, prev, cur)
			}
		}

		t.strategies[key] = &Strategy{
			Pair:      row.Pair,
			Direction: row.Identity.Direction,
			ChainID:   row.Identity.ChainID,
			Buckets:   row.Buckets,
		}
	}

	return t, nil
}

// MustNewTable builds a table or panics. For static configuration known at
// compile time.
func MustNewTable(rows []Row) *Table {
	t, err := NewTable(rows)
	if err != nil {
		panic(err)
	}
	return t
}

// Resolve returns the strategy for an identity: the exact entry when
// configured, otherwise the wildcard entry, otherwise ok=false.
func (t *Table) Resolve(id cachekey.PairIdentity) (*Strategy, bool) {
	if s, ok := t.strategies[id.CanonicalString()]; ok {
		return s, true
	}
	if s, ok := t.strategies[id.WildcardString()]; ok {
		return s, true
	}
	return nil, false
}

// Rows returns the declared configuration rows, used by the cache warmer to
// enumerate warmable pairs.
func (t *Table) Rows() []Row {
	return t.rows
}

// Len returns the number of configured strategies.
func (t *Table) Len() int {
	return len(t.strategies)
}
