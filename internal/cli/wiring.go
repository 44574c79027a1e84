package cli

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/tomatolover555/windrose-ai/internal/config"
	"github.com/tomatolover555/windrose-ai/internal/discovery"
	"github.com/tomatolover555/windrose-ai/internal/engine"
	"github.com/tomatolover555/windrose-ai/internal/metrics"
	"github.com/tomatolover555/windrose-ai/internal/probe"
	"github.com/tomatolover555/windrose-ai/internal/runner"
	"github.com/tomatolover555/windrose-ai/internal/snapshot"
	"github.com/tomatolover555/windrose-ai/internal/storage"
	"github.com/tomatolover555/windrose-ai/internal/submission"
)

// service is everything a run needs, built from one config.
type service struct {
	metrics     *metrics.Collector
	manager     *snapshot.Manager
	submissions *submission.Queue
	runner      *runner.Runner
}

func newService(cfg *config.Config) (*service, error) {
	metricsCollector := metrics.NewCollector(cfg.Metrics.Namespace)

	store, err := storage.NewStorage(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("initialize storage: %w", err)
	}

	manager := snapshot.NewManager(store)
	manager.Load()

	// The throttle is shared by every probe of every run of this process.
	throttle := probe.NewThrottle(cfg.Probe.MinInterval(), probe.SystemClock)
	prober, err := probe.NewProber(cfg.Probe, throttle, metricsCollector)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("initialize prober: %w", err)
	}

	eng := engine.New(prober, cfg.Engine.MaxDomainsPerRun, probe.SystemClock, metricsCollector)
	eng.SetLogger(log.WithField("component", "engine"))

	queue := submission.NewQueue(cfg.Submission.QueueSize)
	agg := newAggregator(cfg, metricsCollector, queue)

	runs := runner.New(eng, manager, agg)
	runs.AddSettler(queue)

	return &service{
		metrics:     metricsCollector,
		manager:     manager,
		submissions: queue,
		runner:      runs,
	}, nil
}

func newAggregator(cfg *config.Config, metricsCollector *metrics.Collector, queue *submission.Queue) *discovery.Aggregator {
	agg := discovery.NewAggregator(metricsCollector, discovery.NewStaticFeed("seeds", cfg.Engine.Seeds))
	if cfg.Engine.SeedFile != "" {
		agg.Add(discovery.NewSeedFileFeed(cfg.Engine.SeedFile))
	}

	enabled := 0
	for _, src := range cfg.Discovery.Sources {
		if !src.Enabled {
			continue
		}
		agg.Add(discovery.NewHTTPFeed(src, cfg.Discovery))
		enabled++
	}
	log.Infof("Discovery: %d seeds, %d HTTP sources enabled", len(cfg.Engine.Seeds), enabled)

	agg.Add(queue)
	return agg
}

func (s *service) Close() {
	if err := s.manager.Close(); err != nil {
		log.Errorf("Failed to close storage: %v", err)
	}
}
