// Package query filters and ranks directory items for callers.
package query

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tomatolover555/windrose-ai/internal/evidence"
	"github.com/tomatolover555/windrose-ai/internal/types"
)

const (
	DefaultLimit = 10
	MaxLimit     = 50
)

var ErrInvalidRequest = errors.New("invalid_request")

type Filters struct {
	Status        types.Status     `json:"status,omitempty"`
	Type          []types.ItemType `json:"type,omitempty"`
	MinConfidence int              `json:"min_confidence,omitempty"`
}

type Request struct {
	Query   string  `json:"query"`
	Filters Filters `json:"filters"`
	Limit   int     `json:"limit"`
}

// Result is the public projection of a DirectoryItem.
type Result struct {
	Domain          string           `json:"domain"`
	Type            []types.ItemType `json:"type"`
	Confidence      int              `json:"confidence"`
	Status          types.Status     `json:"status"`
	EvidenceSummary []string         `json:"evidence_summary"`
	LastSeen        *time.Time       `json:"last_seen"`
}

type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// Validate checks the request and fills in the default limit.
func (r *Request) Validate() error {
	switch r.Filters.Status {
	case "", types.StatusVerified, types.StatusLikely, types.StatusUnverified, types.StatusDead:
	default:
		return invalid("unknown status %q", r.Filters.Status)
	}
	for _, t := range r.Filters.Type {
		if t != types.TypeWebMCP && t != types.TypeMCPServer {
			return invalid("unknown type %q", t)
		}
	}
	if r.Filters.MinConfidence < 0 || r.Filters.MinConfidence > evidence.MaxConfidence {
		return invalid("min_confidence must be between 0 and %d", evidence.MaxConfidence)
	}
	if r.Limit == 0 {
		r.Limit = DefaultLimit
	}
	if r.Limit < 1 || r.Limit > MaxLimit {
		return invalid("limit must be between 1 and %d", MaxLimit)
	}
	return nil
}

// Search returns the matching items ranked most trustworthy first. req must
// have passed Validate.
func Search(items []types.DirectoryItem, req Request) Response {
	needle := strings.ToLower(strings.TrimSpace(req.Query))

	matched := make([]types.DirectoryItem, 0)
	for _, item := range items {
		if matches(item, req.Filters, needle) {
			matched = append(matched, item)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool { return less(matched[i], matched[j]) })

	limit := req.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	resp := Response{Results: make([]Result, 0, min(limit, len(matched))), Total: len(matched)}
	for i, item := range matched {
		if i >= limit {
			break
		}
		resp.Results = append(resp.Results, project(item))
	}
	return resp
}

func matches(item types.DirectoryItem, f Filters, needle string) bool {
	if f.Status != "" && item.Status != f.Status {
		return false
	}
	if len(f.Type) > 0 && !hasAnyType(item.Type, f.Type) {
		return false
	}
	if item.Confidence < f.MinConfidence {
		return false
	}
	if needle == "" {
		return true
	}

	haystack := item.Domain + " " + strings.Join(evidence.Kinds(item.Evidence), " ")
	return strings.Contains(strings.ToLower(haystack), needle)
}

func hasAnyType(have, want []types.ItemType) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}

func less(a, b types.DirectoryItem) bool {
	if ra, rb := a.Status.Rank(), b.Status.Rank(); ra != rb {
		return ra < rb
	}
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	switch {
	case a.LastSeen != nil && b.LastSeen == nil:
		return true
	case a.LastSeen == nil && b.LastSeen != nil:
		return false
	case a.LastSeen != nil && b.LastSeen != nil && !a.LastSeen.Equal(*b.LastSeen):
		return a.LastSeen.After(*b.LastSeen)
	}
	return a.Domain < b.Domain
}

func project(item types.DirectoryItem) Result {
	itemTypes := item.Type
	if itemTypes == nil {
		itemTypes = []types.ItemType{}
	}
	return Result{
		Domain:          item.Domain,
		Type:            itemTypes,
		Confidence:      item.Confidence,
		Status:          item.Status,
		EvidenceSummary: evidence.Kinds(item.Evidence),
		LastSeen:        item.LastSeen,
	}
}
