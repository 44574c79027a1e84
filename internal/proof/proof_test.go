package proof

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomatolover555/windrose-ai/internal/probe"
	"github.com/tomatolover555/windrose-ai/internal/types"
)

var (
	t0 = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	t1 = t0.Add(24 * time.Hour)
)

func TestUpsertAppendsAndSorts(t *testing.T) {
	list := []types.Proof{}
	list = Upsert(list, types.Proof{Type: types.ProofWellKnown, URL: "https://b.com/.well-known/mcp.json", LastSuccess: t0})
	list = Upsert(list, types.Proof{Type: types.ProofHomepage, URL: "https://b.com/", LastSuccess: t0})
	list = Upsert(list, types.Proof{Type: types.ProofHomepage, URL: "https://a.b.com/", LastSuccess: t0})

	require.Len(t, list, 3)
	assert.Equal(t, types.ProofHomepage, list[0].Type)
	assert.Equal(t, "https://a.b.com/", list[0].URL)
	assert.Equal(t, "https://b.com/", list[1].URL)
	assert.Equal(t, types.ProofWellKnown, list[2].Type)
}

func TestUpsertReplacesInPlace(t *testing.T) {
	orig := []types.Proof{{Type: types.ProofWellKnown, URL: "u", LastSuccess: t0}}

	got := Upsert(orig, types.Proof{Type: types.ProofWellKnown, URL: "u", LastSuccess: t1})
	require.Len(t, got, 1)
	assert.Equal(t, t1, got[0].LastSuccess)
	assert.Equal(t, t0, orig[0].LastSuccess, "input untouched")
}

func TestFromObservation(t *testing.T) {
	existing := []types.Proof{{Type: types.ProofHomepage, URL: "https://a.com/", LastSuccess: t0}}

	failed := probe.Observation{
		WellKnown: probe.Outcome{Result: probe.ResultNonSuccess, Reason: probe.ReasonTransport},
		Homepage:  probe.Outcome{Result: probe.ResultNonSuccess, Reason: probe.ReasonTransport},
	}
	assert.Equal(t, existing, FromObservation(existing, failed, t1), "failure keeps proofs")

	ok := probe.Observation{
		WellKnown: probe.Outcome{Result: probe.ResultSuccess, Reason: probe.ReasonOK, StatusCode: 200, URL: "https://a.com/.well-known/mcp.json"},
		Homepage:  probe.Outcome{Result: probe.ResultSuccess, Reason: probe.ReasonOK, StatusCode: 200, URL: "https://a.com/", Hints: []string{probe.StrongHint}, Strong: true},
	}
	got := FromObservation(existing, ok, t1)
	require.Len(t, got, 2)
	assert.Equal(t, types.Proof{Type: types.ProofHomepage, URL: "https://a.com/", LastSuccess: t1}, got[0])
	assert.Equal(t, types.Proof{Type: types.ProofWellKnown, URL: "https://a.com/.well-known/mcp.json", LastSuccess: t1}, got[1])

	weak := probe.Observation{
		Homepage: probe.Outcome{Result: probe.ResultSuccess, Reason: probe.ReasonOK, StatusCode: 200, URL: "https://c.com/", Hints: []string{"webmcp"}},
	}
	assert.Empty(t, FromObservation(nil, weak, t1), "weak hints are not proof")
}
