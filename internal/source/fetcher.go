package source

import (
	"context"
	"time"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"

	"github.com/beanlab/bean-curator/internal/logger"
)

// FetchResult summarizes one fetch-all pass
type FetchResult struct {
	Candidates []RawCandidate
	Fetched    int // products returned by storefronts
	Filtered   int // products dropped by the keyword filter
	FailedShop []string
}

type shopResult struct {
	candidates []RawCandidate
	err        error
}

// Fetcher fans out storefront fetches and applies the keyword filter
type Fetcher struct {
	registry *Registry
	filter   Filter
	workers  int
	queue    int
}

// NewFetcher creates a fetcher that runs at most workers shop fetches at once
func NewFetcher(registry *Registry, filter Filter, workers, queue int) *Fetcher {
	if workers < 1 {
		workers = 1
	}
	return &Fetcher{registry: registry, filter: filter, workers: workers, queue: queue}
}

// FetchAll fetches every shop concurrently. A failing shop is logged and skipped;
// candidates keep the configured shop order so later stages stay deterministic.
func (f *Fetcher) FetchAll(ctx context.Context, shops []Shop) *FetchResult {
	opts := []pond.Option{pond.WithContext(ctx)}
	if f.queue > 0 {
		opts = append(opts, pond.WithQueueSize(f.queue))
	}
	pool := pond.NewResultPool[shopResult](f.workers, opts...)
	defer pool.StopAndWait()

	tasks := make([]pond.Result[shopResult], len(shops))
	for i, shop := range shops {
		tasks[i] = pool.Submit(func() shopResult {
			a, err := f.registry.Resolve(shop.Platform)
			if err != nil {
				return shopResult{err: err}
			}
			start := time.Now()
			candidates, err := a.Fetch(ctx, shop)
			logger.DebugCtx(ctx, "Fetched storefront",
				zap.String("shop", shop.Name),
				zap.Int("products", len(candidates)),
				zap.Duration("elapsed", time.Since(start)))
			return shopResult{candidates: candidates, err: err}
		})
	}

	result := &FetchResult{}
	for i, task := range tasks {
		res, err := task.Wait()
		if err == nil {
			err = res.err
		}
		if err != nil {
			logger.WarnCtx(ctx, "Storefront fetch failed, skipping shop",
				zap.String("shop", shops[i].Name),
				zap.Error(err))
			result.FailedShop = append(result.FailedShop, shops[i].Name)
			continue
		}

		result.Fetched += len(res.candidates)
		for _, c := range res.candidates {
			if f.filter != nil && !f.filter.Accept(c) {
				result.Filtered++
				continue
			}
			result.Candidates = append(result.Candidates, c)
		}
	}

	return result
}
