package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/beanlab/bean-curator/internal/adapter"
	"github.com/beanlab/bean-curator/internal/enrich"
	"github.com/beanlab/bean-curator/internal/logger"
	"github.com/beanlab/bean-curator/internal/metrics"
	"github.com/beanlab/bean-curator/internal/report"
	"github.com/beanlab/bean-curator/internal/source"
	"github.com/beanlab/bean-curator/internal/syncer"
)

// minSleep keeps the scheduler loop from spinning when a stage is overdue
const minSleep = time.Second

// Stage is one pipeline step
type Stage string

const (
	StageSync   Stage = metrics.StageSync
	StageEnrich Stage = metrics.StageEnrich
	StageCurate Stage = metrics.StageCurate
)

// Stages lists every stage in run order
var Stages = []Stage{StageSync, StageEnrich, StageCurate}

// ParseStage converts a name to a stage
func ParseStage(v string) (Stage, error) {
	for _, s := range Stages {
		if string(s) == v {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown stage %q", v)
}

// CandidateFetcher collects raw candidates from every configured shop
//
//go:generate mockgen -source=runner.go -destination=../mocks/worker.go -package=mocks -mock_names=CandidateFetcher=MockCandidateFetcher,Syncer=MockSyncer,Enricher=MockEnricher,Curator=MockCurator
type CandidateFetcher interface {
	FetchAll(ctx context.Context, shops []source.Shop) *source.FetchResult
}

// Syncer merges candidates into the catalog
type Syncer interface {
	Sync(ctx context.Context, candidates []source.RawCandidate) (*syncer.Result, error)
}

// Enricher runs one enrichment batch
type Enricher interface {
	Run(ctx context.Context) (*enrich.Summary, error)
}

// Curator runs one selection and publish pass
type Curator interface {
	Run(ctx context.Context) (*report.Outcome, error)
}

// Config holds the schedule. A zero interval leaves the stage out of the loop;
// it can still be run once.
type Config struct {
	Shops          []source.Shop
	SyncInterval   time.Duration
	EnrichInterval time.Duration
	CurateInterval time.Duration
}

func (c Config) interval(stage Stage) time.Duration {
	switch stage {
	case StageSync:
		return c.SyncInterval
	case StageEnrich:
		return c.EnrichInterval
	case StageCurate:
		return c.CurateInterval
	}
	return 0
}

// Runner executes pipeline stages one at a time, either on a schedule or on demand
type Runner struct {
	cfg      Config
	fetcher  CandidateFetcher
	syncer   Syncer
	enricher Enricher
	curator  Curator
	clock    adapter.Clock

	mu        sync.Mutex // held for the duration of a stage
	lastRun   map[Stage]time.Time
	running   atomic.Bool
	stopChan  chan struct{}
	stoppedCh chan struct{}
}

// NewRunner creates a runner
func NewRunner(cfg Config, fetcher CandidateFetcher, sy Syncer, enricher Enricher, curator Curator, clock adapter.Clock) *Runner {
	return &Runner{
		cfg:       cfg,
		fetcher:   fetcher,
		syncer:    sy,
		enricher:  enricher,
		curator:   curator,
		clock:     clock,
		lastRun:   make(map[Stage]time.Time),
		stopChan:  make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Name returns the runner's name
func (r *Runner) Name() string {
	return "pipeline-runner"
}

// Start runs due stages in order, then sleeps until the next one is due.
// It blocks until the context is canceled or Stop is called.
func (r *Runner) Start(ctx context.Context) error {
	if !r.running.CompareAndSwap(false, true) {
		return fmt.Errorf("runner already running")
	}
	defer func() {
		r.running.Store(false)
		close(r.stoppedCh)
	}()

	logger.InfoCtx(ctx, "Starting pipeline runner",
		zap.Duration("sync_interval", r.cfg.SyncInterval),
		zap.Duration("enrich_interval", r.cfg.EnrichInterval),
		zap.Duration("curate_interval", r.cfg.CurateInterval),
	)

	for {
		for _, stage := range Stages {
			if r.stopped(ctx) {
				return nil
			}
			if !r.due(stage) {
				continue
			}
			// Failures are logged by RunOnce; the loop carries on with the next stage
			_ = r.RunOnce(ctx, stage)
		}

		if !r.sleep(ctx, r.untilNextDue()) {
			logger.InfoCtx(ctx, "Pipeline runner stopping")
			return nil
		}
	}
}

// Stop gracefully stops the runner, waiting for an in-progress stage
func (r *Runner) Stop(ctx context.Context) error {
	if !r.running.CompareAndSwap(true, false) {
		return nil
	}

	logger.InfoCtx(ctx, "Stopping pipeline runner")
	close(r.stopChan)

	select {
	case <-r.stoppedCh:
		logger.InfoCtx(ctx, "Pipeline runner stopped gracefully")
		return nil
	case <-ctx.Done():
		logger.WarnCtx(ctx, "Pipeline runner stop interrupted by context timeout")
		return ctx.Err()
	}
}

// RunOnce executes a single stage. Stages never overlap.
func (r *Runner) RunOnce(ctx context.Context, stage Stage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := r.clock.Now()
	var err error
	switch stage {
	case StageSync:
		err = r.runSync(ctx)
	case StageEnrich:
		err = r.runEnrich(ctx)
	case StageCurate:
		err = r.runCurate(ctx)
	default:
		return fmt.Errorf("unknown stage %q", stage)
	}

	elapsed := r.clock.Since(start)
	r.lastRun[stage] = start
	metrics.RecordStage(string(stage), elapsed, err)

	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.InfoCtx(ctx, "Stage interrupted", zap.String("stage", string(stage)))
		} else {
			logger.ErrorCtx(ctx, err, zap.String("stage", string(stage)), zap.Duration("elapsed", elapsed))
		}
		return fmt.Errorf("%s stage failed: %w", stage, err)
	}
	return nil
}

func (r *Runner) runSync(ctx context.Context) error {
	fetched := r.fetcher.FetchAll(ctx, r.cfg.Shops)
	if len(r.cfg.Shops) > 0 && len(fetched.FailedShop) == len(r.cfg.Shops) {
		return fmt.Errorf("all %d shops failed", len(r.cfg.Shops))
	}

	result, err := r.syncer.Sync(ctx, fetched.Candidates)
	if err != nil {
		return err
	}
	metrics.RecordSync(result.Inserted, result.Updated, result.Rejected)

	logger.InfoCtx(ctx, "Sync stage finished",
		zap.String("stage", string(StageSync)),
		zap.Int("fetched", fetched.Fetched),
		zap.Int("filtered", fetched.Filtered),
		zap.Strings("failed_shops", fetched.FailedShop),
		zap.Int("inserted", result.Inserted),
		zap.Int("updated", result.Updated),
		zap.Int("rejected", result.Rejected))
	return nil
}

func (r *Runner) runEnrich(ctx context.Context) error {
	summary, err := r.enricher.Run(ctx)
	if summary != nil {
		metrics.RecordEnrich(summary.Completed, summary.Skipped, summary.Errored, summary.RateLimited, summary.ParseFailures)
	}
	return err
}

func (r *Runner) runCurate(ctx context.Context) error {
	outcome, err := r.curator.Run(ctx)
	if outcome != nil {
		mode := report.ModeRules
		if outcome.Assisted {
			mode = report.ModeAssisted
		}
		var languages []string
		for _, a := range outcome.Artifacts[:outcome.Published] {
			languages = append(languages, a.Language)
		}
		metrics.RecordCuration(mode, outcome.WrittenBack, outcome.Degraded, languages)
	}
	return err
}

// due reports whether a scheduled stage should run now
func (r *Runner) due(stage Stage) bool {
	interval := r.cfg.interval(stage)
	if interval <= 0 {
		return false
	}
	last, ok := r.lastRun[stage]
	return !ok || r.clock.Since(last) >= interval
}

// untilNextDue returns how long to wait for the earliest scheduled stage
func (r *Runner) untilNextDue() time.Duration {
	var next time.Duration
	for _, stage := range Stages {
		interval := r.cfg.interval(stage)
		if interval <= 0 {
			continue
		}
		wait := interval - r.clock.Since(r.lastRun[stage])
		if next == 0 || wait < next {
			next = wait
		}
	}
	if next < minSleep {
		next = minSleep
	}
	return next
}

func (r *Runner) stopped(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	case <-r.stopChan:
		return true
	default:
		return false
	}
}

func (r *Runner) sleep(ctx context.Context, duration time.Duration) bool {
	select {
	case <-r.clock.After(duration):
		return true
	case <-ctx.Done():
		return false
	case <-r.stopChan:
		return false
	}
}
