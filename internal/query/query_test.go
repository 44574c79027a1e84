package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomatolover555/windrose-ai/internal/types"
)

var base = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

func item(domain string, status types.Status, confidence int, lastSeen *time.Time, kinds ...types.EvidenceKind) types.DirectoryItem {
	it := types.NewItem(domain, base)
	it.Status = status
	it.Confidence = confidence
	it.LastSeen = lastSeen
	for _, k := range kinds {
		it.Evidence = append(it.Evidence, types.Evidence{Kind: k, Detail: string(k)})
	}
	return it
}

func at(hours int) *time.Time {
	t := base.Add(time.Duration(hours) * time.Hour)
	return &t
}

func domains(resp Response) []string {
	out := make([]string, 0, len(resp.Results))
	for _, r := range resp.Results {
		out = append(out, r.Domain)
	}
	return out
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		wantErr bool
	}{
		{"empty request", Request{}, false},
		{"known filters", Request{Filters: Filters{Status: types.StatusDead, Type: []types.ItemType{types.TypeWebMCP}, MinConfidence: 100}, Limit: 50}, false},
		{"unknown status", Request{Filters: Filters{Status: "pending"}}, true},
		{"unknown type", Request{Filters: Filters{Type: []types.ItemType{"rest"}}}, true},
		{"confidence below range", Request{Filters: Filters{MinConfidence: -1}}, true},
		{"confidence above range", Request{Filters: Filters{MinConfidence: 101}}, true},
		{"limit too large", Request{Limit: 51}, true},
		{"negative limit", Request{Limit: -3}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRequest)
				return
			}
			assert.NoError(t, err)
		})
	}

	req := Request{}
	require.NoError(t, req.Validate())
	assert.Equal(t, DefaultLimit, req.Limit)
}

func TestSearchVerifiedAboveThreshold(t *testing.T) {
	items := []types.DirectoryItem{
		item("low.com", types.StatusVerified, 79, at(5)),
		item("old.com", types.StatusVerified, 90, at(1)),
		item("new.com", types.StatusVerified, 90, at(3)),
		item("top.com", types.StatusVerified, 100, at(0)),
		item("likely.com", types.StatusLikely, 95, at(9)),
		item("never.com", types.StatusVerified, 90, nil),
		item("alpha.com", types.StatusVerified, 90, at(3)),
	}

	req := Request{Filters: Filters{Status: types.StatusVerified, MinConfidence: 80}, Limit: 10}
	require.NoError(t, req.Validate())

	resp := Search(items, req)
	assert.Equal(t, 5, resp.Total)
	assert.Equal(t, []string{"top.com", "alpha.com", "new.com", "old.com", "never.com"}, domains(resp))
	for _, r := range resp.Results {
		assert.Equal(t, types.StatusVerified, r.Status)
		assert.GreaterOrEqual(t, r.Confidence, 80)
	}
}

func TestSearchStatusRankOrdering(t *testing.T) {
	items := []types.DirectoryItem{
		item("dead.com", types.StatusDead, 100, at(1)),
		item("unverified.com", types.StatusUnverified, 10, at(1)),
		item("likely.com", types.StatusLikely, 60, at(1)),
		item("verified.com", types.StatusVerified, 80, at(1)),
	}
	resp := Search(items, Request{Limit: 10})
	assert.Equal(t, []string{"verified.com", "likely.com", "unverified.com", "dead.com"}, domains(resp))
}

func TestSearchQueryAndTypeFilters(t *testing.T) {
	server := item("tools.acme.dev", types.StatusLikely, 70, at(1), types.EvidenceWellKnownJSON)
	server.Type = []types.ItemType{types.TypeMCPServer}
	page := item("shop.example.com", types.StatusLikely, 60, at(1), types.EvidenceHeuristicHTML, types.EvidenceHeuristicHTML)
	page.Type = []types.ItemType{types.TypeWebMCP}
	items := []types.DirectoryItem{server, page}

	resp := Search(items, Request{Query: "ACME", Limit: 10})
	assert.Equal(t, []string{"tools.acme.dev"}, domains(resp))

	resp = Search(items, Request{Query: "heuristic", Limit: 10})
	assert.Equal(t, []string{"shop.example.com"}, domains(resp), "matches evidence kinds")
	assert.Equal(t, []string{"heuristic_html"}, resp.Results[0].EvidenceSummary)

	resp = Search(items, Request{Filters: Filters{Type: []types.ItemType{types.TypeWebMCP, types.TypeMCPServer}}, Limit: 10})
	assert.Equal(t, 2, resp.Total)

	resp = Search(items, Request{Filters: Filters{Type: []types.ItemType{types.TypeMCPServer}}, Limit: 10})
	assert.Equal(t, []string{"tools.acme.dev"}, domains(resp))
}

func TestSearchLimitAndTotal(t *testing.T) {
	var items []types.DirectoryItem
	for _, d := range []string{"e.com", "d.com", "c.com", "b.com", "a.com"} {
		items = append(items, item(d, types.StatusUnverified, 0, nil))
	}

	resp := Search(items, Request{Limit: 2})
	assert.Equal(t, 5, resp.Total)
	assert.Equal(t, []string{"a.com", "b.com"}, domains(resp))

	empty := Search(nil, Request{Limit: 10})
	assert.NotNil(t, empty.Results)
	assert.Equal(t, 0, empty.Total)
}
