package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// RoastLevel is the inferred roast level
type RoastLevel string

const (
	RoastUnknown     RoastLevel = "unknown"
	RoastLight       RoastLevel = "light"
	RoastLightMedium RoastLevel = "light_medium"
	RoastMedium      RoastLevel = "medium"
	RoastMediumDark  RoastLevel = "medium_dark"
	RoastDark        RoastLevel = "dark"
)

// ParseRoastLevel maps free text such as "Light-Medium" or "medium dark" to a roast level
func ParseRoastLevel(v string) RoastLevel {
	s := Normalize(strings.NewReplacer("-", " ", "_", " ", "/", " ").Replace(v))
	switch s {
	case "light", "very light", "nordic", "extra light":
		return RoastLight
	case "light medium", "medium light":
		return RoastLightMedium
	case "medium", "city":
		return RoastMedium
	case "medium dark", "dark medium", "full city":
		return RoastMediumDark
	case "dark", "very dark", "french", "italian":
		return RoastDark
	}
	return RoastUnknown
}

// IntendedUse is the brewing method a coffee is recommended for
type IntendedUse string

const (
	UseUnknown  IntendedUse = "unknown"
	UseFilter   IntendedUse = "filter"
	UseEspresso IntendedUse = "espresso"
	UseBoth     IntendedUse = "both"
)

// ParseIntendedUse maps free text to an intended use
func ParseIntendedUse(v string) IntendedUse {
	s := Normalize(v)
	switch {
	case s == "":
		return UseUnknown
	case s == "both" || s == "omni" || s == "omniroast" || s == "all" ||
		(strings.Contains(s, "filter") && strings.Contains(s, "espresso")):
		return UseBoth
	case strings.Contains(s, "espresso"):
		return UseEspresso
	case strings.Contains(s, "filter") || strings.Contains(s, "pour") || s == "drip":
		return UseFilter
	}
	return UseUnknown
}

// Seasonality describes where a coffee sits in its harvest cycle
type Seasonality string

const (
	SeasonUnknown      Seasonality = "unknown"
	SeasonFreshArrival Seasonality = "fresh_arrival"
	SeasonPeak         Seasonality = "peak_season"
	SeasonLateHarvest  Seasonality = "late_harvest"
	SeasonPastCrop     Seasonality = "past_crop"
)

// ParseSeasonality maps free text to a seasonality value
func ParseSeasonality(v string) Seasonality {
	s := Normalize(strings.NewReplacer("-", " ", "_", " ").Replace(v))
	switch {
	case strings.Contains(s, "fresh") || strings.Contains(s, "new crop") || strings.Contains(s, "just arrived"):
		return SeasonFreshArrival
	case strings.Contains(s, "peak") || strings.Contains(s, "in season") || strings.Contains(s, "current"):
		return SeasonPeak
	case strings.Contains(s, "late"):
		return SeasonLateHarvest
	case strings.Contains(s, "past") || strings.Contains(s, "old") || strings.Contains(s, "previous"):
		return SeasonPastCrop
	}
	return SeasonUnknown
}

// Origin holds the growing origin of a coffee
type Origin struct {
	Country  *string `json:"country,omitempty"`
	Region   *string `json:"region,omitempty"`
	Farm     *string `json:"farm,omitempty"`
	Altitude *string `json:"altitude,omitempty"`
}

// Sensory holds 1-5 sensory levels
type Sensory struct {
	Acidity   *int `json:"acidity,omitempty"`
	Sweetness *int `json:"sweetness,omitempty"`
	Body      *int `json:"body,omitempty"`
}

// BrewSuitability holds 1-5 suitability scores per brew method
type BrewSuitability struct {
	V60         *int `json:"v60,omitempty"`
	Espresso    *int `json:"espresso,omitempty"`
	FrenchPress *int `json:"french_press,omitempty"`
	ColdBrew    *int `json:"cold_brew,omitempty"`
}

// Enrichment is the structured record inferred from an item description.
// Nil pointer fields are unknown; a pointer to "" is an explicit empty answer.
type Enrichment struct {
	Origin          Origin           `json:"origin"`
	Variety         *string          `json:"variety,omitempty"`
	Process         *string          `json:"process,omitempty"`
	RoastLevel      RoastLevel       `json:"roast_level"`
	IntendedUse     IntendedUse      `json:"intended_use"`
	FlavorNotes     []string         `json:"flavor_notes,omitempty"`
	Sensory         Sensory          `json:"sensory"`
	Seasonality     Seasonality      `json:"seasonality"`
	SeasonalityNote *string          `json:"seasonality_note,omitempty"`
	HarvestSeason   *string          `json:"harvest_season,omitempty"`
	FreshnessScore  *int             `json:"freshness_score,omitempty"`
	RareVariety     bool             `json:"rare_variety"`
	MicroLot        bool             `json:"micro_lot"`
	SpecialProcess  string           `json:"special_process,omitempty"`
	Brew            BrewSuitability  `json:"brew"`
	WeightGrams     *float64         `json:"weight_grams,omitempty"`
	PricePerGram    *decimal.Decimal `json:"price_per_gram,omitempty"`
	ValueScore      float64          `json:"value_score"`
	RecommendedFor  *string          `json:"recommended_for,omitempty"`
	AvoidIf         *string          `json:"avoid_if,omitempty"`
	SourceHash      string           `json:"source_hash,omitempty"`
}

// FlavorText joins the flavor notes into one descriptive string
func (e *Enrichment) FlavorText() string {
	if e == nil {
		return ""
	}
	return strings.Join(e.FlavorNotes, ", ")
}

// Notable reports whether the coffee is rare or seasonally prime
func (e *Enrichment) Notable() bool {
	if e == nil {
		return false
	}
	return e.RareVariety || e.MicroLot || e.SpecialProcess != "" ||
		e.Seasonality == SeasonFreshArrival || e.Seasonality == SeasonPeak
}

// StringValue dereferences an optional string
func StringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
