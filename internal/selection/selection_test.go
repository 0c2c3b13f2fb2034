package selection_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/beanlab/bean-curator/internal/domain"
	"github.com/beanlab/bean-curator/internal/scoring"
	"github.com/beanlab/bean-curator/internal/selection"
)

var now = time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

func timePtr(t time.Time) *time.Time { return &t }

func enrichedItem(id uint64, shop, name string, e *domain.Enrichment) domain.Item {
	return domain.Item{
		ID:           id,
		Shop:         shop,
		Name:         name,
		StockStatus:  domain.StockInStock,
		Status:       domain.StatusCompleted,
		LastSyncedAt: now.Add(-24 * time.Hour),
		Enrichment:   e,
	}
}

func plainFilter(value float64) *domain.Enrichment {
	return &domain.Enrichment{RoastLevel: domain.RoastLight, IntendedUse: domain.UseFilter, ValueScore: value}
}

func newSelector(cfg selection.Config) *selection.Selector {
	return selection.NewSelector(scoring.NewScorer(scoring.DefaultWeights()), cfg)
}

func pickedIDs(b *selection.BucketResult) []uint64 {
	var ids []uint64
	for _, c := range b.Picks {
		ids = append(ids, c.Item.ID)
	}
	return ids
}

func TestEligible(t *testing.T) {
	s := newSelector(selection.DefaultConfig())

	fresh := enrichedItem(1, "X", "Fresh", plainFilter(5))
	stale := enrichedItem(2, "X", "Stale", plainFilter(5))
	stale.LastSyncedAt = now.Add(-8 * 24 * time.Hour)
	soldOut := enrichedItem(3, "X", "Sold Out", plainFilter(5))
	soldOut.StockStatus = domain.StockSoldOut
	pending := enrichedItem(4, "X", "Pending", nil)
	pending.Status = domain.StatusPending
	recent := enrichedItem(5, "X", "Recently Picked", plainFilter(5))
	recent.LastSelectedAt = timePtr(now.Add(-13 * 24 * time.Hour))
	cooled := enrichedItem(6, "X", "Cooled Down", plainFilter(5))
	cooled.LastSelectedAt = timePtr(now.Add(-15 * 24 * time.Hour))

	eligible := s.Eligible([]domain.Item{fresh, stale, soldOut, pending, recent, cooled}, now)

	var ids []uint64
	for _, item := range eligible {
		ids = append(ids, item.ID)
	}
	assert.Equal(t, []uint64{1, 6}, ids)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		use    domain.IntendedUse
		roast  domain.RoastLevel
		bucket domain.Bucket
	}{
		{domain.UseFilter, domain.RoastDark, domain.BucketFilter},
		{domain.UseEspresso, domain.RoastLight, domain.BucketEspresso},
		{domain.UseBoth, domain.RoastLight, domain.BucketFilter},
		{domain.UseBoth, domain.RoastLightMedium, domain.BucketFilter},
		{domain.UseBoth, domain.RoastMedium, domain.BucketEspresso},
		{domain.UseUnknown, domain.RoastMediumDark, domain.BucketEspresso},
		{domain.UseUnknown, domain.RoastDark, domain.BucketEspresso},
		{domain.UseUnknown, domain.RoastUnknown, domain.BucketFilter},
	}
	for _, tt := range tests {
		got := selection.Classify(&domain.Enrichment{IntendedUse: tt.use, RoastLevel: tt.roast})
		assert.Equal(t, tt.bucket, got, "%s/%s", tt.use, tt.roast)
	}
}

func TestSelect_QualityDrivenOrder(t *testing.T) {
	cfg := selection.DefaultConfig()
	cfg.ShortlistSize = 2
	cfg.PicksPerBucket = 1
	s := newSelector(cfg)

	gesha := "Gesha"
	b := enrichedItem(2, "X", "Panama Gesha", &domain.Enrichment{
		Variety:        &gesha,
		RareVariety:    true,
		SpecialProcess: "Anaerobic",
		RoastLevel:     domain.RoastLight,
		IntendedUse:    domain.UseFilter,
		ValueScore:     9,
	})
	c := enrichedItem(1, "X", "House Blend", plainFilter(3))

	result := s.Select([]domain.Item{c, b}, now)
	filter := result.Bucket(domain.BucketFilter)
	require.NotNil(t, filter)
	require.Len(t, filter.Shortlist, 2)
	assert.Equal(t, uint64(2), filter.Shortlist[0].Item.ID)
	assert.Equal(t, []uint64{2}, pickedIDs(filter))
}

func TestSelect_DiversityBreaksScoreTies(t *testing.T) {
	s := newSelector(selection.DefaultConfig())

	top := enrichedItem(1, "Y", "Top Lot", plainFilter(9))
	d := enrichedItem(2, "Y", "Lot D", plainFilter(6))
	e := enrichedItem(3, "Z", "Lot E", plainFilter(6))

	result := s.Select([]domain.Item{top, d, e}, now)
	filter := result.Bucket(domain.BucketFilter)
	assert.Equal(t, []uint64{1, 3}, pickedIDs(filter))
	assert.False(t, filter.Degraded)
}

func TestSelect_DiversityNeverUnderFills(t *testing.T) {
	s := newSelector(selection.DefaultConfig())

	a := enrichedItem(1, "Y", "A", plainFilter(9))
	b := enrichedItem(2, "Y", "B", plainFilter(7))

	result := s.Select([]domain.Item{a, b}, now)
	filter := result.Bucket(domain.BucketFilter)
	assert.Equal(t, []uint64{1, 2}, pickedIDs(filter))
	assert.False(t, filter.Degraded)
}

func TestSelect_NotableTierFirst(t *testing.T) {
	s := newSelector(selection.DefaultConfig())

	highScore := enrichedItem(1, "A", "High Score", plainFilter(10))
	notable := enrichedItem(2, "B", "Micro Lot", &domain.Enrichment{
		RoastLevel:  domain.RoastLight,
		IntendedUse: domain.UseFilter,
		MicroLot:    true,
		ValueScore:  1,
	})
	middle := enrichedItem(3, "C", "Middle", plainFilter(8))

	result := s.Select([]domain.Item{highScore, notable, middle}, now)
	assert.Equal(t, []uint64{2, 1}, pickedIDs(result.Bucket(domain.BucketFilter)))
}

func TestSelect_DegradedBuckets(t *testing.T) {
	s := newSelector(selection.DefaultConfig())

	only := enrichedItem(1, "X", "Only Filter", plainFilter(5))
	result := s.Select([]domain.Item{only}, now)

	assert.False(t, result.Empty())
	assert.True(t, result.Degraded())

	filter := result.Bucket(domain.BucketFilter)
	assert.True(t, filter.Degraded)
	assert.Contains(t, filter.Reason, "only 1 of 2")

	espresso := result.Bucket(domain.BucketEspresso)
	assert.True(t, espresso.Degraded)
	assert.Empty(t, espresso.Picks)
	assert.Len(t, result.Picks(), 1)
}

func TestSelect_NoCandidates(t *testing.T) {
	result := newSelector(selection.DefaultConfig()).Select(nil, now)
	assert.True(t, result.Empty())
	assert.Empty(t, result.Picks())
}

func TestApplyPicks(t *testing.T) {
	s := newSelector(selection.DefaultConfig())
	items := []domain.Item{
		enrichedItem(1, "A", "F1", plainFilter(9)),
		enrichedItem(2, "B", "F2", plainFilter(8)),
		enrichedItem(3, "C", "F3", plainFilter(7)),
		enrichedItem(4, "D", "E1", &domain.Enrichment{RoastLevel: domain.RoastDark, IntendedUse: domain.UseEspresso, ValueScore: 6}),
	}

	result := s.Shortlist(items, now)
	require.NoError(t, s.ApplyPicks(result, map[domain.Bucket][]uint64{
		domain.BucketFilter:   {3, 1},
		domain.BucketEspresso: {4},
	}))
	assert.Equal(t, []uint64{3, 1}, pickedIDs(result.Bucket(domain.BucketFilter)))
	assert.True(t, result.Bucket(domain.BucketEspresso).Degraded)

	result = s.Shortlist(items, now)
	assert.Error(t, s.ApplyPicks(result, map[domain.Bucket][]uint64{
		domain.BucketFilter:   {1, 99},
		domain.BucketEspresso: {4},
	}), "unknown id")
	assert.Error(t, s.ApplyPicks(result, map[domain.Bucket][]uint64{
		domain.BucketFilter:   {1},
		domain.BucketEspresso: {4},
	}), "too few picks")
	assert.Error(t, s.ApplyPicks(result, map[domain.Bucket][]uint64{
		domain.BucketFilter:   {1, 4},
		domain.BucketEspresso: {4},
	}), "cross-bucket id")
}

func TestSelect_WindowProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cfg := selection.Config{
			ShortlistSize:   rapid.IntRange(1, 6).Draw(t, "shortlist"),
			PicksPerBucket:  rapid.IntRange(1, 3).Draw(t, "picks"),
			FreshnessWindow: time.Duration(rapid.IntRange(1, 10).Draw(t, "freshness_days")) * 24 * time.Hour,
			CooldownWindow:  time.Duration(rapid.IntRange(0, 20).Draw(t, "cooldown_days")) * 24 * time.Hour,
		}
		s := newSelector(cfg)

		n := rapid.IntRange(0, 15).Draw(t, "items")
		items := make([]domain.Item, n)
		for i := range items {
			item := enrichedItem(uint64(i+1),
				rapid.SampledFrom([]string{"A", "B", "C"}).Draw(t, "shop"),
				"item",
				&domain.Enrichment{
					RoastLevel:  rapid.SampledFrom([]domain.RoastLevel{domain.RoastLight, domain.RoastMedium, domain.RoastDark}).Draw(t, "roast"),
					IntendedUse: rapid.SampledFrom([]domain.IntendedUse{domain.UseUnknown, domain.UseBoth, domain.UseFilter, domain.UseEspresso}).Draw(t, "use"),
					MicroLot:    rapid.Bool().Draw(t, "micro"),
					ValueScore:  rapid.Float64Range(0, 10).Draw(t, "value"),
				})
			item.LastSyncedAt = now.Add(-time.Duration(rapid.IntRange(0, 15*24).Draw(t, "synced_hours_ago")) * time.Hour)
			if rapid.Bool().Draw(t, "selected_before") {
				item.LastSelectedAt = timePtr(now.Add(-time.Duration(rapid.IntRange(0, 30*24).Draw(t, "selected_hours_ago")) * time.Hour))
			}
			items[i] = item
		}

		result := s.Select(items, now)
		seen := make(map[uint64]bool)
		for _, b := range result.Buckets {
			if len(b.Picks) > cfg.PicksPerBucket {
				t.Fatalf("bucket %s over-filled: %d", b.Bucket, len(b.Picks))
			}
			if len(b.Picks) < min(cfg.PicksPerBucket, len(b.Shortlist)) {
				t.Fatalf("bucket %s under-filled with shortlist %d", b.Bucket, len(b.Shortlist))
			}
			for _, c := range b.Picks {
				if now.Sub(c.Item.LastSyncedAt) > cfg.FreshnessWindow {
					t.Fatalf("stale item %d selected", c.Item.ID)
				}
				if c.Item.LastSelectedAt != nil && now.Sub(*c.Item.LastSelectedAt) <= cfg.CooldownWindow {
					t.Fatalf("item %d selected inside cooldown", c.Item.ID)
				}
				if seen[c.Item.ID] {
					t.Fatalf("item %d selected twice", c.Item.ID)
				}
				seen[c.Item.ID] = true
			}
		}
	})
}
