package selection

import (
	"fmt"
	"sort"
	"time"

	"github.com/beanlab/bean-curator/internal/domain"
	"github.com/beanlab/bean-curator/internal/scoring"
)

// Config holds the selection windows and sizes
type Config struct {
	ShortlistSize   int
	PicksPerBucket  int
	FreshnessWindow time.Duration
	CooldownWindow  time.Duration
}

// DefaultConfig returns the stock selection policy
func DefaultConfig() Config {
	return Config{
		ShortlistSize:   5,
		PicksPerBucket:  2,
		FreshnessWindow: 7 * 24 * time.Hour,
		CooldownWindow:  14 * 24 * time.Hour,
	}
}

// Candidate is an eligible item with its score in one bucket
type Candidate struct {
	Item    domain.Item
	Score   scoring.Breakdown
	Notable bool
}

// BucketResult is the outcome of selection for one bucket
type BucketResult struct {
	Bucket    domain.Bucket
	Shortlist []Candidate
	Picks     []Candidate
	Degraded  bool
	Reason    string
}

// Result is the outcome of one selection run
type Result struct {
	Eligible int
	Buckets  []BucketResult
}

// Empty reports whether no item survived the eligibility filters
func (r *Result) Empty() bool {
	return r.Eligible == 0
}

// Degraded reports whether any bucket is under-filled
func (r *Result) Degraded() bool {
	for _, b := range r.Buckets {
		if b.Degraded {
			return true
		}
	}
	return false
}

// Picks returns every picked candidate in bucket order
func (r *Result) Picks() []Candidate {
	var out []Candidate
	for _, b := range r.Buckets {
		out = append(out, b.Picks...)
	}
	return out
}

// Bucket returns the result of one bucket
func (r *Result) Bucket(bucket domain.Bucket) *BucketResult {
	for i := range r.Buckets {
		if r.Buckets[i].Bucket == bucket {
			return &r.Buckets[i]
		}
	}
	return nil
}

// Selector ranks eligible items per bucket and picks a diverse subset
type Selector struct {
	scorer *scoring.Scorer
	cfg    Config
}

// NewSelector creates a selector
func NewSelector(scorer *scoring.Scorer, cfg Config) *Selector {
	if cfg.PicksPerBucket < 1 {
		cfg.PicksPerBucket = 1
	}
	if cfg.ShortlistSize < cfg.PicksPerBucket {
		cfg.ShortlistSize = cfg.PicksPerBucket
	}
	return &Selector{scorer: scorer, cfg: cfg}
}

// Config returns the effective configuration
func (s *Selector) Config() Config {
	return s.cfg
}

// Eligible keeps Completed, in-stock items synced within the freshness window
// whose last selection, if any, is older than the cooldown window
func (s *Selector) Eligible(items []domain.Item, now time.Time) []domain.Item {
	var out []domain.Item
	for _, item := range items {
		if item.Status != domain.StatusCompleted || item.Enrichment == nil || !item.InStock() {
			continue
		}
		if now.Sub(item.LastSyncedAt) > s.cfg.FreshnessWindow {
			continue
		}
		if item.LastSelectedAt != nil && now.Sub(*item.LastSelectedAt) <= s.cfg.CooldownWindow {
			continue
		}
		out = append(out, item)
	}
	return out
}

// Classify puts an item into exactly one bucket. An explicit intended use wins;
// general-purpose and unknown items follow their roast level.
func Classify(e *domain.Enrichment) domain.Bucket {
	if e == nil {
		return domain.BucketFilter
	}
	switch e.IntendedUse {
	case domain.UseFilter:
		return domain.BucketFilter
	case domain.UseEspresso:
		return domain.BucketEspresso
	}
	switch e.RoastLevel {
	case domain.RoastMedium, domain.RoastMediumDark, domain.RoastDark:
		return domain.BucketEspresso
	}
	return domain.BucketFilter
}

// Shortlist builds the ranked shortlist of every bucket without picking
func (s *Selector) Shortlist(items []domain.Item, now time.Time) *Result {
	eligible := s.Eligible(items, now)
	result := &Result{Eligible: len(eligible)}

	grouped := make(map[domain.Bucket][]Candidate, len(domain.Buckets))
	for _, item := range eligible {
		bucket := Classify(item.Enrichment)
		grouped[bucket] = append(grouped[bucket], Candidate{
			Item:    item,
			Score:   s.scorer.Score(&item, bucket),
			Notable: item.Enrichment.Notable(),
		})
	}

	for _, bucket := range domain.Buckets {
		ranked := grouped[bucket]
		sort.SliceStable(ranked, func(i, j int) bool {
			return rankedBefore(ranked[i], ranked[j])
		})
		if len(ranked) > s.cfg.ShortlistSize {
			ranked = ranked[:s.cfg.ShortlistSize]
		}
		result.Buckets = append(result.Buckets, BucketResult{Bucket: bucket, Shortlist: ranked})
	}

	return result
}

// Select runs the full rule-based selection
func (s *Selector) Select(items []domain.Item, now time.Time) *Result {
	result := s.Shortlist(items, now)
	taken := make(map[uint64]bool)
	for i := range result.Buckets {
		b := &result.Buckets[i]
		b.Picks = Pick(b.Shortlist, s.cfg.PicksPerBucket, taken)
		for _, c := range b.Picks {
			taken[c.Item.ID] = true
		}
		s.markDegraded(b)
	}
	return result
}

// ApplyPicks replaces the rule-based picks with externally chosen item IDs after
// checking that every ID is on its bucket's shortlist, appears once, and that each
// bucket gets as many picks as the rules would give it
func (s *Selector) ApplyPicks(result *Result, picks map[domain.Bucket][]uint64) error {
	chosen := make(map[domain.Bucket][]Candidate, len(result.Buckets))
	seen := make(map[uint64]bool)

	for _, b := range result.Buckets {
		ids := picks[b.Bucket]
		want := min(s.cfg.PicksPerBucket, len(b.Shortlist))
		if len(ids) != want {
			return fmt.Errorf("bucket %s: got %d picks, want %d", b.Bucket, len(ids), want)
		}

		byID := make(map[uint64]Candidate, len(b.Shortlist))
		for _, c := range b.Shortlist {
			byID[c.Item.ID] = c
		}
		for _, id := range ids {
			c, ok := byID[id]
			if !ok {
				return fmt.Errorf("bucket %s: item %d is not on the shortlist", b.Bucket, id)
			}
			if seen[id] {
				return fmt.Errorf("bucket %s: item %d picked twice", b.Bucket, id)
			}
			seen[id] = true
			chosen[b.Bucket] = append(chosen[b.Bucket], c)
		}
	}

	for i := range result.Buckets {
		b := &result.Buckets[i]
		b.Picks = chosen[b.Bucket]
		s.markDegraded(b)
	}
	return nil
}

func (s *Selector) markDegraded(b *BucketResult) {
	b.Degraded = len(b.Picks) < s.cfg.PicksPerBucket
	b.Reason = ""
	if b.Degraded {
		b.Reason = fmt.Sprintf("only %d of %d picks available", len(b.Picks), s.cfg.PicksPerBucket)
	}
}

// Pick chooses up to n candidates from a ranked shortlist. Notable items come
// first; within a tier a shop not yet chosen in this bucket wins, then score, then
// store order. Diversity never leaves a slot empty. Items in taken are skipped.
func Pick(shortlist []Candidate, n int, taken map[uint64]bool) []Candidate {
	remaining := make([]Candidate, 0, len(shortlist))
	for _, c := range shortlist {
		if !taken[c.Item.ID] {
			remaining = append(remaining, c)
		}
	}

	shops := make(map[string]bool)
	var picks []Candidate
	for len(picks) < n && len(remaining) > 0 {
		best := 0
		for i := 1; i < len(remaining); i++ {
			if pickedBefore(remaining[i], remaining[best], shops) {
				best = i
			}
		}
		c := remaining[best]
		picks = append(picks, c)
		shops[domain.Normalize(c.Item.Shop)] = true
		remaining = append(remaining[:best], remaining[best+1:]...)
	}
	return picks
}

func pickedBefore(a, b Candidate, shops map[string]bool) bool {
	if a.Notable != b.Notable {
		return a.Notable
	}
	aNew := !shops[domain.Normalize(a.Item.Shop)]
	bNew := !shops[domain.Normalize(b.Item.Shop)]
	if aNew != bNew {
		return aNew
	}
	return rankedBefore(a, b)
}

func rankedBefore(a, b Candidate) bool {
	if a.Score.Final != b.Score.Final {
		return a.Score.Final > b.Score.Final
	}
	return a.Item.ID < b.Item.ID
}
