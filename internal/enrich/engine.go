package enrich

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/beanlab/bean-curator/internal/adapter"
	"github.com/beanlab/bean-curator/internal/domain"
	"github.com/beanlab/bean-curator/internal/inference"
	"github.com/beanlab/bean-curator/internal/logger"
	"github.com/beanlab/bean-curator/internal/store"
)

// Config holds the retry and pacing policy of an enrichment run
type Config struct {
	// MaxAttempts is the number of inference calls per item, including the first
	MaxAttempts int
	// RateLimitCooldown is how long the whole run waits after a throttling signal
	RateLimitCooldown time.Duration
	// Pacing is the pause after each inference-backed write
	Pacing time.Duration
	// BatchSize bounds the items sent to the model per run; 0 means unlimited
	BatchSize int
}

// DefaultConfig returns the stock policy: 2 attempts, 120s cooldown, 2s pacing, 10 items per run
func DefaultConfig() Config {
	return Config{
		MaxAttempts:       2,
		RateLimitCooldown: 120 * time.Second,
		Pacing:            2 * time.Second,
		BatchSize:         10,
	}
}

// Summary counts the outcomes of one run
type Summary struct {
	Processed     int // items sent to the model
	Completed     int
	Skipped       int
	Deferred      int // pending items left alone because they have no description
	Errored       int
	RateLimited   int // cooldowns taken
	ParseFailures int // unparseable replies stored as empty records
}

// Engine moves Pending items to Skipped, Completed or Error
type Engine struct {
	store      store.Store
	inferencer inference.Inferencer
	clock      adapter.Clock
	cfg        Config
}

// NewEngine creates an enrichment engine
func NewEngine(st store.Store, inferencer inference.Inferencer, clock adapter.Clock, cfg Config) *Engine {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Engine{store: st, inferencer: inferencer, clock: clock, cfg: cfg}
}

// Run makes one pass over the catalog in scan order. Every status change is written
// before the next item is looked at, so a cancelled run leaves each row either
// untouched or fully updated.
func (e *Engine) Run(ctx context.Context) (*Summary, error) {
	items, err := e.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}

	summary := &Summary{}
	for i := range items {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		item := &items[i]
		if item.Status != domain.StatusPending {
			continue
		}

		if !item.InStock() {
			if err := e.markSkipped(ctx, item); err != nil {
				return summary, err
			}
			summary.Skipped++
			continue
		}

		if strings.TrimSpace(item.Description) == "" {
			logger.DebugCtx(ctx, "Deferring item without description", itemFields(item)...)
			summary.Deferred++
			continue
		}

		if e.cfg.BatchSize > 0 && summary.Processed >= e.cfg.BatchSize {
			logger.InfoCtx(ctx, "Enrichment batch limit reached", zap.Int("batch_size", e.cfg.BatchSize))
			break
		}

		summary.Processed++
		completed := summary.Completed
		if err := e.enrichItem(ctx, item, summary); err != nil {
			return summary, err
		}

		// pacing follows successful writes only
		if summary.Completed > completed {
			if err := e.pause(ctx); err != nil {
				return summary, err
			}
		}
	}

	logger.InfoCtx(ctx, "Enrichment run finished",
		zap.Int("processed", summary.Processed),
		zap.Int("completed", summary.Completed),
		zap.Int("skipped", summary.Skipped),
		zap.Int("deferred", summary.Deferred),
		zap.Int("errored", summary.Errored),
		zap.Int("rate_limited", summary.RateLimited),
		zap.Int("parse_failures", summary.ParseFailures))

	return summary, nil
}

// enrichItem infers one item and persists Completed or Error. Only store failures
// and cancellation are returned.
func (e *Engine) enrichItem(ctx context.Context, item *domain.Item, summary *Summary) error {
	in := inference.Input{
		Shop:        item.Shop,
		Name:        item.Name,
		Description: item.Description,
		Price:       item.Price,
		WeightLabel: item.WeightLabel,
	}

	record, err := e.inferWithRetry(ctx, item, in, summary)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		logger.WarnCtx(ctx, "Enrichment failed, marking item as error",
			append(itemFields(item), zap.Error(err))...)
		if err := e.markError(ctx, item, err); err != nil {
			return err
		}
		summary.Errored++
		return nil
	}

	if err := e.markCompleted(ctx, item, record); err != nil {
		return err
	}
	summary.Completed++
	return nil
}

// inferWithRetry calls the model under the bounded retry policy. Throttling waits
// out the cooldown on the injected clock and retries the same item; any other
// failure is permanent. A parse failure resolves to an empty record.
func (e *Engine) inferWithRetry(ctx context.Context, item *domain.Item, in inference.Input, summary *Summary) (*domain.Enrichment, error) {
	var record *domain.Enrichment
	attempt := 0

	operation := func() error {
		attempt++
		res, err := e.inferencer.Infer(ctx, in)
		switch {
		case err == nil:
			record = res
			return nil
		case inference.IsParseFailure(err):
			logger.WarnCtx(ctx, "Unparseable model reply, storing empty record",
				append(itemFields(item), zap.Error(err))...)
			summary.ParseFailures++
			record = inference.EmptyRecord(in)
			return nil
		case inference.IsRateLimited(err):
			return err
		default:
			return backoff.Permanent(err)
		}
	}

	notify := func(err error, wait time.Duration) {
		summary.RateLimited++
		logger.WarnCtx(ctx, "Model rate limited, cooling down before retrying item",
			append(itemFields(item),
				zap.Int("attempt", attempt),
				zap.Duration("cooldown", wait),
				zap.Error(err))...)
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(e.cfg.RateLimitCooldown), uint64(e.cfg.MaxAttempts-1)),
		ctx,
	)

	if err := backoff.RetryNotifyWithTimer(operation, policy, notify, adapter.NewClockTimer(e.clock)); err != nil {
		if inference.IsRateLimited(err) {
			return nil, fmt.Errorf("rate limited after %d attempts: %w", attempt, err)
		}
		return nil, err
	}

	return record, nil
}

func (e *Engine) markSkipped(ctx context.Context, item *domain.Item) error {
	next, err := item.Status.Transition(domain.StatusSkipped)
	if err != nil {
		return err
	}
	if err := e.store.UpdateFields(ctx, item.ID, store.ItemPatch{Status: &next}); err != nil {
		return fmt.Errorf("failed to mark item %d skipped: %w", item.ID, err)
	}
	item.Status = next
	logger.DebugCtx(ctx, "Skipped sold out item", itemFields(item)...)
	return nil
}

func (e *Engine) markError(ctx context.Context, item *domain.Item, cause error) error {
	next, err := item.Status.Transition(domain.StatusError)
	if err != nil {
		return err
	}
	msg := cause.Error()
	if err := e.store.UpdateFields(ctx, item.ID, store.ItemPatch{Status: &next, LastError: &msg}); err != nil {
		return fmt.Errorf("failed to mark item %d as error: %w", item.ID, err)
	}
	item.Status = next
	return nil
}

func (e *Engine) markCompleted(ctx context.Context, item *domain.Item, record *domain.Enrichment) error {
	next, err := item.Status.Transition(domain.StatusCompleted)
	if err != nil {
		return err
	}

	cleared := ""
	patch := store.ItemPatch{
		Status:     &next,
		Enrichment: record,
		LastError:  &cleared,
	}
	if item.WeightGrams == nil && record.WeightGrams != nil {
		patch.WeightGrams = record.WeightGrams
	}

	if err := e.store.UpdateFields(ctx, item.ID, patch); err != nil {
		return fmt.Errorf("failed to store enrichment for item %d: %w", item.ID, err)
	}
	item.Status = next
	item.Enrichment = record
	logger.DebugCtx(ctx, "Enriched item", append(itemFields(item),
		zap.String("roast_level", string(record.RoastLevel)),
		zap.Float64("value_score", record.ValueScore))...)
	return nil
}

// pause waits out the pacing interval on the injected clock
func (e *Engine) pause(ctx context.Context) error {
	if e.cfg.Pacing <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-e.clock.After(e.cfg.Pacing):
		return nil
	}
}

func itemFields(item *domain.Item) []zap.Field {
	return []zap.Field{
		zap.Uint64("item_id", item.ID),
		zap.String("shop", item.Shop),
		zap.String("name", item.Name),
	}
}

// IsCancelled reports whether a run ended because its context was cancelled
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
