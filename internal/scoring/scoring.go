package scoring

import (
	"math"
	"strings"

	"github.com/beanlab/bean-curator/internal/domain"
)

const (
	// MaxScore is the upper bound of every sub-score and of the final score
	MaxScore = 10.0

	qualityBase         = 5.0
	premiumVarietyBonus = 2.0
	rareBonus           = 1.5
	specialProcessBonus = 1.5
	microLotBonus       = 1.0
	producerBonus       = 0.5
	competitionBonus    = 1.0

	neutralScore         = 5.0
	freshnessMidpoint    = 3
	freshnessWeight      = 0.5
	flavorTextMinLength  = 20
	flavorTextBonus      = 0.5
	highFreshnessMinimum = 4
	highFreshnessBonus   = 0.5
)

var premiumVarieties = []string{
	"gesha", "geisha", "sl28", "sl34", "pink bourbon", "sidra", "wush wush", "laurina", "eugenioides", "java",
}

var specialProcessKeywords = []string{
	"anaerobic", "carbonic", "co-ferment", "coferment", "thermal shock", "yeast", "koji", "double fermentation", "infused",
}

var competitionKeywords = []string{
	"cup of excellence", "coe", "best of panama", "auction", "competition",
}

var seasonalityBase = map[domain.Seasonality]float64{
	domain.SeasonFreshArrival: 9,
	domain.SeasonPeak:         8,
	domain.SeasonLateHarvest:  6,
	domain.SeasonPastCrop:     3,
	domain.SeasonUnknown:      5,
}

var roastFit = map[domain.Bucket]map[domain.RoastLevel]float64{
	domain.BucketFilter: {
		domain.RoastLight:       8,
		domain.RoastLightMedium: 7,
		domain.RoastMedium:      5,
		domain.RoastMediumDark:  3,
		domain.RoastDark:        2,
	},
	domain.BucketEspresso: {
		domain.RoastLight:       3,
		domain.RoastLightMedium: 4,
		domain.RoastMedium:      7,
		domain.RoastMediumDark:  8,
		domain.RoastDark:        8,
	},
}

// Weights is the weight vector of the final score. It is expected to sum to 1.
type Weights struct {
	Quality     float64
	Seasonality float64
	Value       float64
	Versatility float64
}

// DefaultWeights returns the stock weight vector
func DefaultWeights() Weights {
	return Weights{Quality: 0.35, Seasonality: 0.20, Value: 0.25, Versatility: 0.20}
}

// Breakdown holds the sub-scores and final score of one item for one bucket
type Breakdown struct {
	Bucket      domain.Bucket `json:"bucket"`
	Quality     float64       `json:"quality"`
	Seasonality float64       `json:"seasonality"`
	Value       float64       `json:"value"`
	Versatility float64       `json:"versatility"`
	Final       float64       `json:"final"`
}

// Scorer computes bucket scores from enrichment records
type Scorer struct {
	weights Weights
}

// NewScorer creates a scorer with the given weights
func NewScorer(weights Weights) *Scorer {
	return &Scorer{weights: weights}
}

// Score computes the breakdown of an item for one bucket. Items without
// enrichment score neutral on every dimension.
func (s *Scorer) Score(item *domain.Item, bucket domain.Bucket) Breakdown {
	e := item.Enrichment
	b := Breakdown{
		Bucket:      bucket,
		Quality:     QualityScore(item.Name, e),
		Seasonality: SeasonalityScore(e),
		Value:       ValueScore(e),
		Versatility: VersatilityScore(e, bucket),
	}
	b.Final = s.weights.Quality*b.Quality +
		s.weights.Seasonality*b.Seasonality +
		s.weights.Value*b.Value +
		s.weights.Versatility*b.Versatility
	return b
}

// ScoreAll scores an item for every bucket
func (s *Scorer) ScoreAll(item *domain.Item) map[domain.Bucket]Breakdown {
	out := make(map[domain.Bucket]Breakdown, len(domain.Buckets))
	for _, bucket := range domain.Buckets {
		out[bucket] = s.Score(item, bucket)
	}
	return out
}

// QualityScore rewards premium varieties, rarity, special processing, micro-lots,
// named producers and competition lots
func QualityScore(name string, e *domain.Enrichment) float64 {
	score := qualityBase
	if e == nil {
		if containsAny(domain.Normalize(name), competitionKeywords) {
			score += competitionBonus
		}
		return math.Min(score, MaxScore)
	}

	if containsAny(domain.Normalize(domain.StringValue(e.Variety)+" "+name), premiumVarieties) {
		score += premiumVarietyBonus
	}
	if e.RareVariety {
		score += rareBonus
	}
	processText := domain.Normalize(e.SpecialProcess + " " + domain.StringValue(e.Process))
	if containsAny(processText, specialProcessKeywords) {
		score += specialProcessBonus
	}
	if e.MicroLot {
		score += microLotBonus
	}
	if strings.TrimSpace(domain.StringValue(e.Origin.Farm)) != "" {
		score += producerBonus
	}
	if containsAny(domain.Normalize(name), competitionKeywords) {
		score += competitionBonus
	}

	return math.Min(score, MaxScore)
}

// SeasonalityScore maps the harvest position to a base score and nudges it by freshness
func SeasonalityScore(e *domain.Enrichment) float64 {
	if e == nil {
		return neutralScore
	}
	score, ok := seasonalityBase[e.Seasonality]
	if !ok {
		score = neutralScore
	}
	if e.FreshnessScore != nil {
		score += float64(*e.FreshnessScore-freshnessMidpoint) * freshnessWeight
	}
	return clamp(score)
}

// ValueScore is the inferred value score, neutral when unknown
func ValueScore(e *domain.Enrichment) float64 {
	if e == nil {
		return neutralScore
	}
	return clamp(e.ValueScore)
}

// VersatilityScore matches the roast level against the bucket
func VersatilityScore(e *domain.Enrichment, bucket domain.Bucket) float64 {
	if e == nil {
		return neutralScore
	}
	score, ok := roastFit[bucket][e.RoastLevel]
	if !ok {
		score = neutralScore
	}
	if len(e.FlavorText()) >= flavorTextMinLength {
		score += flavorTextBonus
	}
	if e.FreshnessScore != nil && *e.FreshnessScore >= highFreshnessMinimum {
		score += highFreshnessBonus
	}
	return math.Min(score, MaxScore)
}

// containsAny matches keywords on word boundaries so "coe" does not hit "coffee"
func containsAny(text string, keywords []string) bool {
	cleaned := strings.NewReplacer(",", " ", ".", " ", "(", " ", ")", " ", "/", " ").Replace(text)
	padded := " " + strings.Join(strings.Fields(cleaned), " ") + " "
	for _, k := range keywords {
		if strings.Contains(padded, " "+k+" ") {
			return true
		}
	}
	return false
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(MaxScore, v))
}
