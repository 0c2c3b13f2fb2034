package inference

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/beanlab/bean-curator/internal/domain"
)

// DefaultValueScore is the neutral value score used when the model gives none
const DefaultValueScore = 5.0

// Canonical field names of the enrichment contract
const (
	fieldCountry         = "country"
	fieldRegion          = "region"
	fieldFarm            = "farm"
	fieldAltitude        = "altitude"
	fieldVariety         = "variety"
	fieldProcess         = "process"
	fieldRoastLevel      = "roast_level"
	fieldIntendedUse     = "intended_use"
	fieldFlavorNotes     = "flavor_notes"
	fieldAcidity         = "acidity"
	fieldSweetness       = "sweetness"
	fieldBody            = "body"
	fieldSeasonality     = "seasonality"
	fieldSeasonalityNote = "seasonality_note"
	fieldNewCrop         = "new_crop"
	fieldHarvestSeason   = "harvest_season"
	fieldFreshness       = "freshness_score"
	fieldRareVariety     = "rare_variety"
	fieldMicroLot        = "micro_lot"
	fieldSpecialProcess  = "special_process"
	fieldV60             = "v60"
	fieldEspresso        = "espresso"
	fieldFrenchPress     = "french_press"
	fieldColdBrew        = "cold_brew"
	fieldWeight          = "weight"
	fieldWeightGrams     = "weight_grams"
	fieldValueScore      = "value_score"
	fieldRecommendedFor  = "recommended_for"
	fieldAvoidIf         = "avoid_if"
)

// fieldKind is the shape of value a field accepts
type fieldKind int

const (
	kindText fieldKind = iota
	kindNumber
	kindList
)

// fieldSpec lists the response keys accepted for one canonical field, in
// priority order. The canonical name always comes first.
type fieldSpec struct {
	name string
	keys []string
	kind fieldKind
}

// fieldSpecs is the fixed key set of the enrichment contract. Keys not listed
// here are ignored.
var fieldSpecs = []fieldSpec{
	{name: fieldCountry, keys: []string{"country", "origin_country", "origin"}},
	{name: fieldRegion, keys: []string{"region"}},
	{name: fieldFarm, keys: []string{"farm", "producer", "estate"}},
	{name: fieldAltitude, keys: []string{"altitude", "elevation"}},
	{name: fieldVariety, keys: []string{"variety", "varietal"}},
	{name: fieldProcess, keys: []string{"process", "processing"}},
	{name: fieldRoastLevel, keys: []string{"roast_level", "roast"}},
	{name: fieldIntendedUse, keys: []string{"intended_use", "brew_method"}},
	{name: fieldFlavorNotes, keys: []string{"flavor_notes", "flavour_notes", "tasting_notes"}, kind: kindList},
	{name: fieldAcidity, keys: []string{"acidity"}, kind: kindNumber},
	{name: fieldSweetness, keys: []string{"sweetness"}, kind: kindNumber},
	{name: fieldBody, keys: []string{"body"}, kind: kindNumber},
	{name: fieldSeasonality, keys: []string{"seasonality", "seasonality_status"}},
	{name: fieldSeasonalityNote, keys: []string{"seasonality_note"}},
	{name: fieldNewCrop, keys: []string{"new_crop"}},
	{name: fieldHarvestSeason, keys: []string{"harvest_season"}},
	{name: fieldFreshness, keys: []string{"freshness_score", "freshness"}, kind: kindNumber},
	{name: fieldRareVariety, keys: []string{"rare_variety"}},
	{name: fieldMicroLot, keys: []string{"micro_lot", "microlot"}},
	{name: fieldSpecialProcess, keys: []string{"special_process"}},
	{name: fieldV60, keys: []string{"v60", "v60_score"}, kind: kindNumber},
	{name: fieldEspresso, keys: []string{"espresso", "espresso_score"}, kind: kindNumber},
	{name: fieldFrenchPress, keys: []string{"french_press", "french_press_score"}, kind: kindNumber},
	{name: fieldColdBrew, keys: []string{"cold_brew", "cold_brew_score"}, kind: kindNumber},
	{name: fieldWeight, keys: []string{"weight", "size"}},
	{name: fieldWeightGrams, keys: []string{"weight_grams"}, kind: kindNumber},
	{name: fieldValueScore, keys: []string{"value_score", "value"}, kind: kindNumber},
	{name: fieldRecommendedFor, keys: []string{"recommended_for"}},
	{name: fieldAvoidIf, keys: []string{"avoid_if"}},
}

// unknownValues are answers that mean the model could not tell
var unknownValues = map[string]bool{
	"unknown": true,
	"n/a":     true,
	"na":      true,
	"null":    true,
	"none":    true,
	"-":       true,
}

// ExtractJSON strips markdown fences and surrounding prose from a model reply
// and returns the JSON object text
func ExtractJSON(text string) (string, bool) {
	s := strings.TrimSpace(text)
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```JSON", "")
	s = strings.ReplaceAll(s, "```", "")
	s = strings.TrimSpace(s)

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

// foldKey lower-cases a response key and turns spaces and dashes into underscores
func foldKey(k string) string {
	k = strings.ToLower(strings.TrimSpace(k))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(k)
}

// canonicalize maps a raw response onto canonical field names. Each field
// takes the first informative value in its key priority order, falling back to
// the first blank or unknown answer so an explicit empty reply is kept. Raw keys
// that fold to the same name are tried in sorted order.
func canonicalize(raw map[string]interface{}) map[string]interface{} {
	rawKeys := make([]string, 0, len(raw))
	for k := range raw {
		rawKeys = append(rawKeys, k)
	}
	sort.Strings(rawKeys)

	folded := make(map[string][]interface{}, len(raw))
	for _, k := range rawKeys {
		fk := foldKey(k)
		folded[fk] = append(folded[fk], raw[k])
	}

	out := make(map[string]interface{}, len(fieldSpecs))
	for _, spec := range fieldSpecs {
		if v, ok := pick(folded, spec, informative); ok {
			out[spec.name] = v
		} else if v, ok := pick(folded, spec, accepts); ok {
			out[spec.name] = v
		}
	}
	return out
}

func pick(folded map[string][]interface{}, spec fieldSpec, match func(interface{}, fieldKind) bool) (interface{}, bool) {
	for _, key := range spec.keys {
		for _, v := range folded[key] {
			if match(v, spec.kind) {
				return v, true
			}
		}
	}
	return nil, false
}

// accepts reports whether v has a shape the field can hold. Objects are never
// accepted, and arrays only by list fields.
func accepts(v interface{}, kind fieldKind) bool {
	switch v.(type) {
	case string, float64, bool:
		return true
	case []interface{}:
		return kind == kindList
	}
	return false
}

// informative reports whether v is an accepted value that actually answers the field
func informative(v interface{}, kind fieldKind) bool {
	if !accepts(v, kind) {
		return false
	}
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		if s == "" || isUnknown(s) {
			return false
		}
		if kind == kindNumber {
			_, ok := floatValue(s)
			return ok
		}
	case float64:
		return !math.IsNaN(t) && !math.IsInf(t, 0)
	case []interface{}:
		return len(t) > 0
	}
	return true
}

// NormalizeRecord turns a decoded model response into a typed enrichment record.
// Missing and "Unknown" answers become nil, numbers are clamped to their ranges,
// and the bag weight falls back to the item's size label.
func NormalizeRecord(raw map[string]interface{}, in Input) *domain.Enrichment {
	f := canonicalize(raw)

	e := &domain.Enrichment{
		Origin: domain.Origin{
			Country:  optString(f[fieldCountry]),
			Region:   optString(f[fieldRegion]),
			Farm:     optString(f[fieldFarm]),
			Altitude: optString(f[fieldAltitude]),
		},
		Variety:     optString(f[fieldVariety]),
		Process:     optString(f[fieldProcess]),
		RoastLevel:  domain.ParseRoastLevel(stringValue(f[fieldRoastLevel])),
		IntendedUse: domain.ParseIntendedUse(stringValue(f[fieldIntendedUse])),
		FlavorNotes: stringList(f[fieldFlavorNotes]),
		Sensory: domain.Sensory{
			Acidity:   optInt(f[fieldAcidity], 1, 5),
			Sweetness: optInt(f[fieldSweetness], 1, 5),
			Body:      optInt(f[fieldBody], 1, 5),
		},
		Seasonality:     domain.ParseSeasonality(stringValue(f[fieldSeasonality])),
		SeasonalityNote: optString(f[fieldSeasonalityNote]),
		HarvestSeason:   optString(f[fieldHarvestSeason]),
		FreshnessScore:  optInt(f[fieldFreshness], 1, 5),
		RareVariety:     boolValue(f[fieldRareVariety]),
		MicroLot:        boolValue(f[fieldMicroLot]),
		SpecialProcess:  specialProcess(f[fieldSpecialProcess]),
		Brew: domain.BrewSuitability{
			V60:         optInt(f[fieldV60], 1, 5),
			Espresso:    optInt(f[fieldEspresso], 1, 5),
			FrenchPress: optInt(f[fieldFrenchPress], 1, 5),
			ColdBrew:    optInt(f[fieldColdBrew], 1, 5),
		},
		RecommendedFor: optString(f[fieldRecommendedFor]),
		AvoidIf:        optString(f[fieldAvoidIf]),
		ValueScore:     DefaultValueScore,
	}

	if e.Seasonality == domain.SeasonUnknown && boolValue(f[fieldNewCrop]) {
		e.Seasonality = domain.SeasonFreshArrival
	}

	if v, ok := floatValue(f[fieldValueScore]); ok {
		e.ValueScore = clampFloat(v, 0, 10)
	}

	if grams, ok := weightGrams(f, in.WeightLabel); ok {
		e.WeightGrams = &grams
		if ppg, ok := domain.PricePerGram(in.Price.Amount, grams); ok && in.Price.Amount.IsPositive() {
			e.PricePerGram = &ppg
		}
	}

	return e
}

// EmptyRecord is the permissive result for an unparseable response: every
// inferred field unknown, neutral value, and only the label-derived weight
func EmptyRecord(in Input) *domain.Enrichment {
	return NormalizeRecord(nil, in)
}

func weightGrams(f map[string]interface{}, label string) (float64, bool) {
	if v, ok := floatValue(f[fieldWeightGrams]); ok && v > 0 {
		return v, true
	}
	switch w := f[fieldWeight].(type) {
	case float64:
		if w > 0 {
			return w, true
		}
	case string:
		if grams, ok := domain.ParseWeightGrams(w); ok {
			return grams, true
		}
	}
	return domain.ParseWeightGrams(label)
}

func isUnknown(s string) bool {
	return unknownValues[strings.ToLower(strings.TrimSpace(s))]
}

// optString keeps an explicit empty answer as a pointer to "" and maps unknowns to nil
func optString(v interface{}) *string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		s := strings.TrimSpace(t)
		if isUnknown(s) {
			return nil
		}
		return &s
	case float64:
		s := strconv.FormatFloat(t, 'f', -1, 64)
		return &s
	case bool:
		s := strconv.FormatBool(t)
		return &s
	case []interface{}:
		s := strings.Join(stringList(t), ", ")
		return &s
	}
	return nil
}

func stringValue(v interface{}) string {
	if s := optString(v); s != nil {
		return *s
	}
	return ""
}

func floatValue(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0, false
		}
		return t, true
	case int:
		return float64(t), true
	case string:
		s := strings.TrimSpace(t)
		if isUnknown(s) || s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func optInt(v interface{}, lo, hi int) *int {
	f, ok := floatValue(v)
	if !ok {
		return nil
	}
	n := int(math.Round(clampFloat(f, float64(lo), float64(hi))))
	return &n
}

func clampFloat(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func boolValue(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "yes", "y", "true", "1":
			return true
		}
	case float64:
		return t != 0
	}
	return false
}

func stringList(v interface{}) []string {
	var parts []string
	switch t := v.(type) {
	case string:
		if isUnknown(t) {
			return nil
		}
		parts = strings.FieldsFunc(t, func(r rune) bool {
			return r == ',' || r == ';' || r == '/' || r == '、'
		})
	case []interface{}:
		for _, item := range t {
			if s, ok := item.(string); ok {
				parts = append(parts, s)
			}
		}
	default:
		return nil
	}

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" && !isUnknown(p) {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// specialProcess returns the named special process, or "" for No and unknowns
func specialProcess(v interface{}) string {
	s := strings.TrimSpace(stringValue(v))
	switch strings.ToLower(s) {
	case "", "no", "false", "none", "standard":
		return ""
	}
	return s
}
