// Package proof keeps the per-mechanism "last seen working" ledger.
package proof

import (
	"sort"
	"time"

	"github.com/tomatolover555/windrose-ai/internal/probe"
	"github.com/tomatolover555/windrose-ai/internal/types"
)

// Upsert replaces the entry with the same (type, url) or appends a new one,
// and returns the list sorted by (type, url). list is not modified.
func Upsert(list []types.Proof, entry types.Proof) []types.Proof {
	out := make([]types.Proof, 0, len(list)+1)
	replaced := false
	for _, p := range list {
		if p.Type == entry.Type && p.URL == entry.URL {
			out = append(out, entry)
			replaced = true
			continue
		}
		out = append(out, p)
	}
	if !replaced {
		out = append(out, entry)
	}

	Sort(out)
	return out
}

// Sort orders proofs by (type, url).
func Sort(list []types.Proof) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Type != list[j].Type {
			return list[i].Type < list[j].Type
		}
		return list[i].URL < list[j].URL
	})
}

// FromObservation records the mechanisms that worked this run. Nothing is
// removed when a probe fails.
func FromObservation(list []types.Proof, obs probe.Observation, now time.Time) []types.Proof {
	out := make([]types.Proof, len(list))
	copy(out, list)
	Sort(out)

	if obs.WellKnownOK() {
		out = Upsert(out, types.Proof{Type: types.ProofWellKnown, URL: obs.WellKnown.URL, LastSuccess: now})
	}
	if obs.ModelContextHit() {
		out = Upsert(out, types.Proof{Type: types.ProofHomepage, URL: obs.Homepage.URL, LastSuccess: now})
	}
	return out
}
