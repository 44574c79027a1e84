// Package discovery gathers candidate domains for a verification run.
package discovery

import (
	"context"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tomatolover555/windrose-ai/internal/domain"
	"github.com/tomatolover555/windrose-ai/internal/evidence"
	"github.com/tomatolover555/windrose-ai/internal/metrics"
	"github.com/tomatolover555/windrose-ai/internal/types"
)

// Candidate is a domain proposed for probing, optionally carrying evidence
// gathered by the feed that found it.
type Candidate struct {
	Domain   string
	Evidence []types.Evidence
	Source   string
}

// Feed supplies candidates. A failing feed does not fail the run.
type Feed interface {
	Name() string
	Candidates(ctx context.Context) ([]Candidate, error)
}

type FeedStats struct {
	Name       string
	Candidates int
	Error      string
	Duration   time.Duration
}

type Aggregator struct {
	feeds   []Feed
	metrics *metrics.Collector
}

func NewAggregator(metricsCollector *metrics.Collector, feeds ...Feed) *Aggregator {
	return &Aggregator{feeds: feeds, metrics: metricsCollector}
}

func (a *Aggregator) Add(feed Feed) {
	a.feeds = append(a.feeds, feed)
}

// Collect queries every feed concurrently and returns the raw candidates in
// feed order. Normalization happens in Dedupe.
func (a *Aggregator) Collect(ctx context.Context) ([]Candidate, map[string]FeedStats) {
	results := make([][]Candidate, len(a.feeds))
	stats := make([]FeedStats, len(a.feeds))

	var wg sync.WaitGroup
	for i, feed := range a.feeds {
		wg.Add(1)
		go func(i int, feed Feed) {
			defer wg.Done()

			startTime := time.Now()
			candidates, err := feed.Candidates(ctx)
			duration := time.Since(startTime)

			stat := FeedStats{Name: feed.Name(), Candidates: len(candidates), Duration: duration}
			if err != nil {
				stat.Error = err.Error()
				log.Warnf("Feed %s failed: %v (took %v)", feed.Name(), err, duration)
			} else {
				log.Infof("Feed %s returned %d candidates (took %v)", feed.Name(), len(candidates), duration)
			}
			a.metrics.RecordCandidates(feed.Name(), len(candidates))

			results[i] = candidates
			stats[i] = stat
		}(i, feed)
	}
	wg.Wait()

	all := make([]Candidate, 0)
	statsByName := make(map[string]FeedStats, len(stats))
	for i := range a.feeds {
		all = append(all, results[i]...)
		statsByName[stats[i].Name] = stats[i]
	}
	return all, statsByName
}

// Dedupe normalizes candidates, merges the evidence of duplicates and returns
// them sorted by domain, along with the inputs that failed normalization.
func Dedupe(candidates []Candidate) ([]Candidate, []string) {
	byDomain := make(map[string]*Candidate, len(candidates))
	var rejected []string

	for _, c := range candidates {
		host, err := domain.Normalize(c.Domain)
		if err != nil {
			rejected = append(rejected, c.Domain)
			continue
		}
		if existing, ok := byDomain[host]; ok {
			existing.Evidence = evidence.Merge(existing.Evidence, c.Evidence...)
			continue
		}
		byDomain[host] = &Candidate{
			Domain:   host,
			Evidence: evidence.Merge(nil, c.Evidence...),
			Source:   c.Source,
		}
	}

	unique := make([]Candidate, 0, len(byDomain))
	for _, c := range byDomain {
		unique = append(unique, *c)
	}
	sort.Slice(unique, func(i, j int) bool { return unique[i].Domain < unique[j].Domain })

	return unique, rejected
}

// StaticFeed serves a fixed list, typically the configured seeds.
type StaticFeed struct {
	name    string
	domains []string
}

func NewStaticFeed(name string, domains []string) *StaticFeed {
	return &StaticFeed{name: name, domains: domains}
}

func (f *StaticFeed) Name() string { return f.name }

func (f *StaticFeed) Candidates(ctx context.Context) ([]Candidate, error) {
	out := make([]Candidate, 0, len(f.domains))
	for _, d := range f.domains {
		out = append(out, Candidate{Domain: d, Source: f.name})
	}
	return out, nil
}
