// Package submission holds domains proposed by operators or site owners until
// the next run picks them up.
package submission

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tomatolover555/windrose-ai/internal/discovery"
	"github.com/tomatolover555/windrose-ai/internal/domain"
)

const maxNotesLength = 1000

var (
	ErrQueueFull       = errors.New("submission queue full")
	ErrInvalidProofURL = errors.New("invalid proof url")
	ErrNotesTooLong    = errors.New("notes too long")
)

type Submission struct {
	ID          string    `json:"id"`
	Domain      string    `json:"domain"`
	ProofURL    string    `json:"proof_url,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Queue is a bounded FIFO of pending submissions. It implements
// discovery.Feed; a submission leaves the queue once a run has probed it.
type Queue struct {
	mu       sync.Mutex
	pending  []Submission
	index    map[string]struct{}
	capacity int
	now      func() time.Time
}

func NewQueue(capacity int) *Queue {
	return &Queue{
		index:    make(map[string]struct{}),
		capacity: capacity,
		now:      time.Now,
	}
}

// Submit validates and enqueues a domain. Resubmitting a pending domain
// returns the existing entry.
func (q *Queue) Submit(rawDomain, proofURL, notes string) (Submission, error) {
	host, err := domain.Normalize(rawDomain)
	if err != nil {
		return Submission{}, err
	}
	if proofURL != "" {
		u, err := url.Parse(proofURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return Submission{}, fmt.Errorf("%w: %q", ErrInvalidProofURL, proofURL)
		}
	}
	if len(notes) > maxNotesLength {
		return Submission{}, ErrNotesTooLong
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.index[host]; exists {
		for _, s := range q.pending {
			if s.Domain == host {
				return s, nil
			}
		}
	}
	if len(q.pending) >= q.capacity {
		return Submission{}, ErrQueueFull
	}

	s := Submission{
		ID:          uuid.NewString(),
		Domain:      host,
		ProofURL:    proofURL,
		Notes:       notes,
		SubmittedAt: q.now().UTC(),
	}
	q.pending = append(q.pending, s)
	q.index[host] = struct{}{}
	return s, nil
}

// Drain removes and returns every pending submission in arrival order.
func (q *Queue) Drain() []Submission {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := q.pending
	q.pending = nil
	q.index = make(map[string]struct{})
	if out == nil {
		out = []Submission{}
	}
	return out
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Settle removes the pending submissions whose domain was probed. Anything
// a run did not reach, because of the per-run cap or a cancellation, stays
// queued for the next run.
func (q *Queue) Settle(probed []string) {
	if len(probed) == 0 {
		return
	}
	done := make(map[string]struct{}, len(probed))
	for _, d := range probed {
		done[d] = struct{}{}
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.pending[:0]
	for _, s := range q.pending {
		if _, ok := done[s.Domain]; ok {
			delete(q.index, s.Domain)
			continue
		}
		kept = append(kept, s)
	}
	q.pending = kept
}

func (q *Queue) Name() string { return "submissions" }

// Candidates lists the pending submissions without removing them; see Settle.
func (q *Queue) Candidates(ctx context.Context) ([]discovery.Candidate, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]discovery.Candidate, 0, len(q.pending))
	for _, s := range q.pending {
		out = append(out, discovery.Candidate{Domain: s.Domain, Source: q.Name()})
	}
	return out, nil
}
