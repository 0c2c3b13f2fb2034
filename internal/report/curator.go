package report

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/beanlab/bean-curator/internal/adapter"
	"github.com/beanlab/bean-curator/internal/domain"
	"github.com/beanlab/bean-curator/internal/logger"
	"github.com/beanlab/bean-curator/internal/selection"
	"github.com/beanlab/bean-curator/internal/store"
)

// Selection modes
const (
	ModeRules    = "rules"
	ModeAssisted = "assisted"
)

// Outcome summarizes one curation run
type Outcome struct {
	RunID       string
	Eligible    int
	Picks       int
	Degraded    bool
	Assisted    bool
	Artifacts   []Artifact
	Published   int
	WrittenBack int
}

// Curator runs selection, report generation, publishing and writeback
type Curator struct {
	store     store.Store
	selector  *selection.Selector
	generator Generator
	publisher Publisher
	clock     adapter.Clock
	mode      string
}

// NewCurator creates a curator. An unknown mode behaves as rules.
func NewCurator(st store.Store, selector *selection.Selector, generator Generator, publisher Publisher, clock adapter.Clock, mode string) *Curator {
	if mode != ModeAssisted {
		mode = ModeRules
	}
	return &Curator{
		store:     st,
		selector:  selector,
		generator: generator,
		publisher: publisher,
		clock:     clock,
		mode:      mode,
	}
}

// Run executes one curation pass. Picks are written back only after every
// artifact was published, so a failed publish leaves cooldowns untouched and
// the same items stay eligible for the next run.
func (c *Curator) Run(ctx context.Context) (*Outcome, error) {
	now := c.clock.Now().UTC()
	outcome := &Outcome{RunID: ulid.MustNewDefault(now).String()}

	items, err := c.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}

	result := c.choose(ctx, items, now, outcome)
	outcome.Eligible = result.Eligible
	outcome.Degraded = result.Degraded()

	picks := result.Picks()
	outcome.Picks = len(picks)
	if result.Empty() || len(picks) == 0 {
		logger.InfoCtx(ctx, "No eligible items, nothing to curate",
			zap.String("run_id", outcome.RunID),
			zap.Int("items", len(items)))
		return outcome, nil
	}

	artifacts, err := c.generator.GenerateReport(ctx, now, result.Buckets)
	if err != nil {
		return nil, fmt.Errorf("failed to generate report: %w", err)
	}
	for i := range artifacts {
		artifacts[i].RunID = outcome.RunID
	}
	outcome.Artifacts = artifacts

	for _, artifact := range artifacts {
		if err := c.publisher.Publish(ctx, artifact); err != nil {
			return outcome, fmt.Errorf("failed to publish %s artifact: %w", artifact.Language, err)
		}
		outcome.Published++
	}

	for _, cand := range picks {
		if prev := cand.Item.LastSelectedAt; prev != nil && !prev.Before(now) {
			continue
		}
		selectedAt := now
		if err := c.store.UpdateFields(ctx, cand.Item.ID, store.ItemPatch{LastSelectedAt: &selectedAt}); err != nil {
			return outcome, fmt.Errorf("failed to record selection of item %d: %w", cand.Item.ID, err)
		}
		outcome.WrittenBack++
	}

	logger.InfoCtx(ctx, "Curation run completed",
		zap.String("run_id", outcome.RunID),
		zap.Int("eligible", outcome.Eligible),
		zap.Int("picks", outcome.Picks),
		zap.Bool("degraded", outcome.Degraded),
		zap.Bool("assisted", outcome.Assisted),
		zap.Int("published", outcome.Published),
		zap.Int("written_back", outcome.WrittenBack))

	return outcome, nil
}

// choose returns rule picks, or model picks in assisted mode. Any assisted
// failure falls back to the rule picks for the same run.
func (c *Curator) choose(ctx context.Context, items []domain.Item, now time.Time, outcome *Outcome) *selection.Result {
	if c.mode != ModeAssisted {
		return c.selector.Select(items, now)
	}

	result := c.selector.Shortlist(items, now)
	if result.Empty() {
		return result
	}

	sel, err := c.generator.SelectAndGenerate(ctx, result.Buckets, c.selector.Config().PicksPerBucket)
	if err == nil {
		err = c.selector.ApplyPicks(result, sel.Picks)
	}
	if err != nil {
		logger.WarnCtx(ctx, "Assisted selection failed, using rule picks",
			zap.String("run_id", outcome.RunID),
			zap.Error(err))
		return c.selector.Select(items, now)
	}

	outcome.Assisted = true
	return result
}
