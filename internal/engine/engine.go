// Package engine runs one verification pass over a bounded set of candidates
// and merges the results into the directory snapshot.
package engine

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/tomatolover555/windrose-ai/internal/discovery"
	"github.com/tomatolover555/windrose-ai/internal/evidence"
	"github.com/tomatolover555/windrose-ai/internal/metrics"
	"github.com/tomatolover555/windrose-ai/internal/probe"
	"github.com/tomatolover555/windrose-ai/internal/proof"
	"github.com/tomatolover555/windrose-ai/internal/types"
	"github.com/tomatolover555/windrose-ai/internal/verify"
)

// Prober checks one domain. *probe.Prober satisfies it.
type Prober interface {
	ProbeDomain(ctx context.Context, domain string) probe.Observation
}

type Engine struct {
	prober    Prober
	clock     probe.Clock
	maxPerRun int
	metrics   *metrics.Collector
	logger    *log.Entry
}

func New(prober Prober, maxPerRun int, clock probe.Clock, metricsCollector *metrics.Collector) *Engine {
	if clock == nil {
		clock = probe.SystemClock
	}
	return &Engine{
		prober:    prober,
		clock:     clock,
		maxPerRun: maxPerRun,
		metrics:   metricsCollector,
		logger:    log.NewEntry(log.StandardLogger()),
	}
}

func (e *Engine) SetLogger(logger *log.Entry) { e.logger = logger }

// Report summarizes a run.
type Report struct {
	RunID        string         `json:"run_id"`
	StartedAt    time.Time      `json:"started_at"`
	FinishedAt   time.Time      `json:"finished_at"`
	Candidates   int            `json:"candidates"`
	Rejected     []string       `json:"rejected"`
	Selected     int            `json:"selected"`
	Probed       int            `json:"probed"`
	Created      int            `json:"created"`
	Carried      int            `json:"carried"`
	Cancelled    bool           `json:"cancelled"`
	StatusCounts map[string]int `json:"status_counts"`

	// ProbedDomains lists the domains recomputed this run, in probe order.
	ProbedDomains []string `json:"-"`
}

func (r Report) Duration() time.Duration { return r.FinishedAt.Sub(r.StartedAt) }

// Select normalizes and dedupes candidates, sorts them by domain and keeps at
// most max of them. max <= 0 means no cap.
func Select(candidates []discovery.Candidate, max int) ([]discovery.Candidate, []string) {
	unique, rejected := discovery.Dedupe(candidates)
	if max > 0 && len(unique) > max {
		unique = unique[:max]
	}
	return unique, rejected
}

// Run probes the selected candidates sequentially and returns the next
// snapshot. Items that were not probed are carried over unchanged. prev is
// not modified. If ctx is cancelled mid-run the remaining candidates are
// treated as unselected.
func (e *Engine) Run(ctx context.Context, prev *types.Snapshot, candidates []discovery.Candidate) (*types.Snapshot, Report) {
	if prev == nil {
		prev = types.EmptySnapshot(time.Time{})
	}

	report := Report{
		RunID:      uuid.NewString(),
		StartedAt:  e.clock.Now(),
		Candidates: len(candidates),
	}
	logger := e.logger.WithField("run_id", report.RunID)

	selected, rejected := Select(candidates, e.maxPerRun)
	report.Rejected = rejected
	if report.Rejected == nil {
		report.Rejected = []string{}
	}
	report.Selected = len(selected)
	for _, raw := range rejected {
		logger.WithField("input", raw).Debug("Rejected candidate")
	}
	logger.Infof("Starting run: %d candidates, %d selected, %d rejected", len(candidates), len(selected), len(rejected))

	existing := make(map[string]types.DirectoryItem, len(prev.Items))
	for _, item := range prev.Items {
		existing[item.Domain] = item
	}

	updated := make(map[string]types.DirectoryItem, len(selected))
	for _, cand := range selected {
		if ctx.Err() != nil {
			report.Cancelled = true
			logger.Warnf("Run cancelled after %d of %d domains", report.Probed, len(selected))
			break
		}

		obs := e.prober.ProbeDomain(ctx, cand.Domain)
		if ctx.Err() != nil || obs.Cancelled() {
			// An interrupted probe is not a failure of the site; keep the prior record.
			report.Cancelled = true
			logger.WithField("domain", cand.Domain).Warnf("Run cancelled after %d of %d domains", report.Probed, len(selected))
			break
		}
		now := e.clock.Now()

		prevItem, found := existing[cand.Domain]
		if !found {
			report.Created++
		}
		item := Recompute(prevItem, found, cand, obs, now)
		updated[item.Domain] = item
		report.Probed++
		report.ProbedDomains = append(report.ProbedDomains, item.Domain)

		logger.WithFields(log.Fields{
			"domain":      item.Domain,
			"status":      item.Status,
			"confidence":  item.Confidence,
			"fail_streak": item.FailStreak,
		}).Debug("Domain updated")
	}

	items := make([]types.DirectoryItem, 0, len(existing)+len(updated))
	for _, item := range updated {
		items = append(items, item)
	}
	for domain, item := range existing {
		if _, ok := updated[domain]; ok {
			continue
		}
		items = append(items, item)
		report.Carried++
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Domain < items[j].Domain })

	report.FinishedAt = e.clock.Now()
	report.StatusCounts = CountStatuses(items)

	e.metrics.RecordRun(report.Duration().Seconds(), report.Probed)
	e.metrics.SetItemsByStatus(report.StatusCounts)

	logger.WithFields(log.Fields{
		"probed":  report.Probed,
		"created": report.Created,
		"carried": report.Carried,
	}).Infof("Run finished in %v", report.Duration())

	return &types.Snapshot{UpdatedAt: report.FinishedAt, Items: items}, report
}

// Recompute applies one probe observation to an item. When found is false a
// fresh item is created for cand.Domain.
func Recompute(prev types.DirectoryItem, found bool, cand discovery.Candidate, obs probe.Observation, now time.Time) types.DirectoryItem {
	item := prev
	if !found {
		item = types.NewItem(cand.Domain, now)
	}
	if item.FirstSeen == nil {
		first := now
		item.FirstSeen = &first
	}

	fresh := append(append([]types.Evidence{}, cand.Evidence...), evidence.FromObservation(obs)...)
	item.Evidence = evidence.Merge(item.Evidence, fresh...)

	confidence := evidence.Confidence(item.Evidence, obs)
	item.Confidence = confidence
	item.Type = evidence.Types(item.Evidence, obs)

	sig := verify.Signals{
		WellKnownOK:         obs.WellKnownOK(),
		ModelContextHit:     obs.ModelContextHit(),
		OtherHit:            obs.OtherHit(),
		BothFailedTransport: obs.BothFailedTransport(),
	}
	state := verify.Transition(verify.StateOf(item), sig, confidence, now, *item.FirstSeen)
	state.Apply(&item)

	item.Proof = proof.FromObservation(item.Proof, obs, now)

	checked := now
	item.LastChecked = &checked
	return item
}

// CountStatuses tallies items by display status.
func CountStatuses(items []types.DirectoryItem) map[string]int {
	counts := map[string]int{
		string(types.StatusVerified):   0,
		string(types.StatusLikely):     0,
		string(types.StatusUnverified): 0,
		string(types.StatusDead):       0,
	}
	for _, item := range items {
		counts[string(item.Status)]++
	}
	return counts
}
