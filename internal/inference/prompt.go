package inference

import (
	"fmt"
	"strings"
)

// maxDescriptionRunes bounds how much of a product description is sent to the model
const maxDescriptionRunes = 800

const enrichmentSystem = "You are a specialty coffee analyst. You read coffee product listings and answer with strict JSON only."

const enrichmentFields = `{
  "country": "origin country, e.g. Ethiopia, Kenya, Colombia",
  "region": "growing region, e.g. Yirgacheffe, Huila, Kirinyaga",
  "farm": "farm, estate or cooperative name",
  "altitude": "altitude range in meters, digits only, e.g. 1600-1800",
  "variety": "variety, e.g. SL28, Geisha, Bourbon, Heirloom",
  "processing": "process, e.g. Washed, Natural, Honey, Anaerobic",
  "roast_level": "one of Light, Light-Medium, Medium, Medium-Dark, Dark",
  "brew_method": "one of Filter, Espresso, Both",
  "flavor_notes": "comma separated flavor keywords, e.g. Peach, Blackcurrant, Floral",
  "acidity": "number 1-5",
  "sweetness": "number 1-5",
  "body": "number 1-5",
  "seasonality": "one of Fresh Arrival, Peak Season, Late Harvest, Past Crop",
  "seasonality_note": "one short sentence explaining the seasonality",
  "new_crop": "Yes, No or Unknown",
  "harvest_season": "harvest months, e.g. Oct-Dec",
  "freshness_score": "number 1-5, based on roast date when available",
  "rare_variety": "Yes or No",
  "micro_lot": "Yes, No or Unknown",
  "special_process": "special process such as Anaerobic, Carbonic Maceration, Co-ferment, or No",
  "v60_score": "number 1-5",
  "espresso_score": "number 1-5",
  "french_press_score": "number 1-5",
  "cold_brew_score": "number 1-5",
  "weight": "bag size, e.g. 250g",
  "value_score": "number 0-10 judging quality against price per gram",
  "recommended_for": "one short sentence on who should buy it",
  "avoid_if": "one short sentence on who should skip it, or empty"
}`

const enrichmentRules = `Rules:
1. V60: high acidity (4-5), light roast and washed process score 4-5; natural process scores about 3.
2. Espresso: medium roast, strong body (4-5) and high sweetness score high; high acidity scores low.
3. French press: strong body and heavy mouthfeel (natural or honey process) score high.
4. Cold brew: low acidity (1-2), high sweetness and strong body score high.
5. All 1-5 scores must be numbers, never words.
6. Use "Unknown" for anything the listing does not state or imply.

Return only the JSON object, without markdown or any other text.`

// BuildEnrichmentPrompt renders the enrichment request for one item
func BuildEnrichmentPrompt(in Input) CompletionRequest {
	var b strings.Builder
	b.WriteString("Analyze this coffee listing and return the result as JSON.\n\n")
	b.WriteString("Listing:\n")
	fmt.Fprintf(&b, "- Shop: %s\n", in.Shop)
	fmt.Fprintf(&b, "- Product: %s\n", in.Name)
	fmt.Fprintf(&b, "- Price: %s\n", in.Price.String())
	if in.WeightLabel != "" {
		fmt.Fprintf(&b, "- Size: %s\n", in.WeightLabel)
	}
	fmt.Fprintf(&b, "- Description: %s\n\n", truncateRunes(in.Description, maxDescriptionRunes))
	b.WriteString("Extract these fields:\n")
	b.WriteString(enrichmentFields)
	b.WriteString("\n\n")
	b.WriteString(enrichmentRules)

	return CompletionRequest{System: enrichmentSystem, Prompt: b.String()}
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
