package report

import (
	"fmt"
	"strings"

	"github.com/beanlab/bean-curator/internal/domain"
	"github.com/beanlab/bean-curator/internal/inference"
	"github.com/beanlab/bean-curator/internal/selection"
)

const reportSystem = "You write short, friendly weekly coffee recommendation posts for home brewers. You answer with strict JSON only."

const selectionSystem = "You are a specialty coffee buyer choosing a balanced weekly lineup. You answer with strict JSON only."

func buildReportPrompt(date string, buckets []selection.BucketResult, languages []string) inference.CompletionRequest {
	var b strings.Builder
	fmt.Fprintf(&b, "Write the coffee recommendation post for the week of %s.\n\n", date)
	writeCandidates(&b, buckets, func(r selection.BucketResult) []selection.Candidate { return r.Picks })

	b.WriteString("\nReturn one JSON object keyed by language code, each with a title and a markdown body:\n")
	b.WriteString("{\n")
	for i, lang := range languages {
		sep := ","
		if i == len(languages)-1 {
			sep = ""
		}
		fmt.Fprintf(&b, "  %q: {\"title\": \"...\", \"body\": \"...\"}%s\n", lang, sep)
	}
	b.WriteString("}\n\n")
	b.WriteString("Mention every coffee above with its shop and price. Do not invent coffees. Return only the JSON object.")

	return inference.CompletionRequest{System: reportSystem, Prompt: b.String()}
}

func buildSelectionPrompt(shortlists []selection.BucketResult, picksPerBucket int) inference.CompletionRequest {
	var b strings.Builder
	fmt.Fprintf(&b, "Choose exactly %d coffees per category from the shortlists below ", picksPerBucket)
	b.WriteString("(fewer only when a shortlist is shorter). Prefer rare or seasonal lots, and prefer different shops within a category.\n\n")
	writeCandidates(&b, shortlists, func(r selection.BucketResult) []selection.Candidate { return r.Shortlist })

	b.WriteString("\nReturn JSON: {\"picks\": {\"filter\": [ids], \"espresso\": [ids]}, \"rationale\": \"one paragraph\"}. ")
	b.WriteString("Use only ids listed above and never use an id twice. Return only the JSON object.")

	return inference.CompletionRequest{System: selectionSystem, Prompt: b.String()}
}

func writeCandidates(b *strings.Builder, buckets []selection.BucketResult, list func(selection.BucketResult) []selection.Candidate) {
	for _, r := range buckets {
		fmt.Fprintf(b, "Category %s:\n", r.Bucket)
		candidates := list(r)
		if len(candidates) == 0 {
			b.WriteString("- (none)\n")
			continue
		}
		for _, c := range candidates {
			fmt.Fprintf(b, "- id %d: %s from %s, %s, score %.1f", c.Item.ID, c.Item.Name, c.Item.Shop, c.Item.Price.String(), c.Score.Final)
			if e := c.Item.Enrichment; e != nil {
				if origin := joinNonEmpty(domain.StringValue(e.Origin.Country), domain.StringValue(e.Origin.Region)); origin != "" {
					fmt.Fprintf(b, ", origin %s", origin)
				}
				if notes := e.FlavorText(); notes != "" {
					fmt.Fprintf(b, ", notes %s", notes)
				}
				if e.Notable() {
					b.WriteString(", notable lot")
				}
			}
			b.WriteString("\n")
		}
	}
}
