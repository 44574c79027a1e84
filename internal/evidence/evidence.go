// Package evidence maintains a domain's append-only evidence ledger and
// derives confidence and item types from it.
package evidence

import (
	"sort"

	"github.com/tomatolover555/windrose-ai/internal/probe"
	"github.com/tomatolover555/windrose-ai/internal/types"
)

// Score contributions.
const (
	WeightWellKnown = 70
	WeightGitHub    = 30
	WeightStrong    = 60
	WeightWeak      = 25

	MaxConfidence = 100
)

type key struct {
	kind   types.EvidenceKind
	detail string
	url    string
}

func keyOf(e types.Evidence) key {
	return key{kind: e.Kind, detail: e.Detail, url: e.URL}
}

// Merge appends the entries of fresh not already in ledger. Existing entries
// keep their position; the result is never shorter than ledger.
func Merge(ledger []types.Evidence, fresh ...types.Evidence) []types.Evidence {
	out := make([]types.Evidence, 0, len(ledger)+len(fresh))
	seen := make(map[key]struct{}, len(ledger)+len(fresh))

	for _, list := range [][]types.Evidence{ledger, fresh} {
		for _, e := range list {
			k := keyOf(e)
			if _, exists := seen[k]; exists {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, e)
		}
	}
	return out
}

// FromObservation converts this run's successful probes into evidence.
func FromObservation(obs probe.Observation) []types.Evidence {
	var out []types.Evidence
	if obs.WellKnownOK() {
		out = append(out, types.Evidence{
			Kind:   types.EvidenceWellKnownJSON,
			Detail: "well-known manifest returned a JSON object",
			URL:    obs.WellKnown.URL,
		})
	}
	if obs.Homepage.OK() {
		for _, hint := range obs.Homepage.Hints {
			out = append(out, types.Evidence{
				Kind:   types.EvidenceHeuristicHTML,
				Detail: "homepage contains " + hint,
				URL:    obs.Homepage.URL,
			})
		}
	}
	return out
}

func has(ledger []types.Evidence, kind types.EvidenceKind) bool {
	for _, e := range ledger {
		if e.Kind == kind {
			return true
		}
	}
	return false
}

// Confidence scores a domain from its full ledger plus this run's homepage
// signal. Manifest and discovery evidence count forever once recorded; the
// homepage contribution only counts when seen in this run.
func Confidence(ledger []types.Evidence, obs probe.Observation) int {
	score := 0
	if has(ledger, types.EvidenceWellKnownJSON) {
		score += WeightWellKnown
	}
	if has(ledger, types.EvidenceGitHubHit) {
		score += WeightGitHub
	}
	switch {
	case obs.ModelContextHit():
		score += WeightStrong
	case obs.OtherHit():
		score += WeightWeak
	}
	return clamp(score)
}

func clamp(score int) int {
	return min(max(score, 0), MaxConfidence)
}

// Types derives the protocol surfaces a domain currently supports.
func Types(ledger []types.Evidence, obs probe.Observation) []types.ItemType {
	out := []types.ItemType{}
	if has(ledger, types.EvidenceWellKnownJSON) || has(ledger, types.EvidenceGitHubHit) {
		out = append(out, types.TypeMCPServer)
	}
	if obs.ModelContextHit() || obs.OtherHit() {
		out = append(out, types.TypeWebMCP)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Kinds returns the sorted unique evidence kinds in ledger.
func Kinds(ledger []types.Evidence) []string {
	seen := make(map[types.EvidenceKind]struct{})
	out := []string{}
	for _, e := range ledger {
		if _, exists := seen[e.Kind]; exists {
			continue
		}
		seen[e.Kind] = struct{}{}
		out = append(out, string(e.Kind))
	}
	sort.Strings(out)
	return out
}
