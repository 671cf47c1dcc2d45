package routes

import (
	"fmt"
	"strings"
)

// Merge reconciles 1..N stored snapshots, ordered most-recent-first, into
// one consistent route:
//
//   - Sub-routes are deduplicated by path key, first seen wins, so the
//     newest snapshot's version of a recurring path survives.
//   - The merged block number is the highest among all snapshots.
//   - Header fields (chain, tokens, direction, protocols, amount) come from
//     the first, most recent snapshot.
//
// Returns nil for an empty input. Inputs are not mutated.
func Merge(snapshots []*CachedRoute) *CachedRoute {
	if len(snapshots) == 0 {
		return nil
	}

	first := snapshots[0]
	merged := &CachedRoute{
		ChainID:   first.ChainID,
		TokenIn:   first.TokenIn,
		TokenOut:  first.TokenOut,
		Direction: first.Direction,
		Protocols: first.Protocols,
		Amount:    first.Amount,
	}

	seen := make(map[string]struct{})
	var provenance []string

	for _, snap := range snapshots {
		for _, sub := range snap.Routes {
			key := sub.PathKey()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			merged.Routes = append(merged.Routes, sub)
		}

		if snap.BlockNumber > merged.BlockNumber {
			merged.BlockNumber = snap.BlockNumber
		}

		provenance = append(provenance,
			fmt.Sprintf("%s | %d | %d", snap.AmountProvenance, len(merged.Routes), snap.BlockNumber))
	}

	merged.AmountProvenance = strings.Join(provenance, ", ")
	return merged
}
