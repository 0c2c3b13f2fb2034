package report

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/beanlab/bean-curator/internal/domain"
	"github.com/beanlab/bean-curator/internal/selection"
)

// builtinTemplates holds a title and body template per language. Languages
// without their own pair use English.
const builtinTemplates = `
{{define "title.en"}}Coffee picks for the week of {{.Date}}{{end}}
{{define "body.en"}}This week's picks, ranked by quality, seasonality, value and versatility.
{{range .Buckets}}
## {{.Label}}
{{if .Picks}}{{range $i, $p := .Picks}}
{{inc $i}}. {{$p.Name}} ({{$p.Shop}}), {{$p.Price}}
{{- if $p.Origin}}
   Origin: {{$p.Origin}}{{end}}
{{- if $p.Process}}
   Process: {{$p.Process}}{{end}}
{{- if $p.Flavor}}
   Notes: {{$p.Flavor}}{{end}}
{{- if $p.Recommended}}
   Why: {{$p.Recommended}}{{end}}
   Score: {{$p.Score}}
{{- if $p.URL}}
   {{$p.URL}}{{end}}
{{end}}{{else}}
No eligible coffees this week.
{{end}}{{if .Degraded}}
(Fewer picks than usual: {{.Reason}})
{{end}}{{end}}{{end}}

{{define "title.zh"}}{{.Date}} 本周咖啡豆推荐{{end}}
{{define "body.zh"}}本周推荐，综合品质、产季、性价比与适配度排序。
{{range .Buckets}}
## {{.LabelZH}}
{{if .Picks}}{{range $i, $p := .Picks}}
{{inc $i}}. {{$p.Name}}（{{$p.Shop}}），{{$p.Price}}
{{- if $p.Origin}}
   产地：{{$p.Origin}}{{end}}
{{- if $p.Process}}
   处理法：{{$p.Process}}{{end}}
{{- if $p.Flavor}}
   风味：{{$p.Flavor}}{{end}}
{{- if $p.Recommended}}
   推荐理由：{{$p.Recommended}}{{end}}
   评分：{{$p.Score}}
{{- if $p.URL}}
   {{$p.URL}}{{end}}
{{end}}{{else}}
本周暂无合适的豆子。
{{end}}{{if .Degraded}}
（本类推荐不足：{{.Reason}}）
{{end}}{{end}}{{end}}
`

var templateFuncs = template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}

type reportView struct {
	Date     string
	Language string
	Buckets  []bucketView
}

type bucketView struct {
	Bucket   domain.Bucket
	Label    string
	LabelZH  string
	Picks    []pickView
	Degraded bool
	Reason   string
}

type pickView struct {
	ID          uint64
	Name        string
	Shop        string
	Price       string
	URL         string
	Origin      string
	Process     string
	Flavor      string
	Recommended string
	Score       string
}

// TemplateRenderer renders artifacts locally without calling a model
type TemplateRenderer struct {
	tmpl *template.Template
}

// NewTemplateRenderer parses the built-in templates. A non-empty path adds a
// template file whose "title" and "body" definitions are used for every language.
func NewTemplateRenderer(path string) (*TemplateRenderer, error) {
	tmpl, err := template.New("report").Funcs(templateFuncs).Parse(builtinTemplates)
	if err != nil {
		return nil, fmt.Errorf("failed to parse built-in report templates: %w", err)
	}

	if path != "" {
		raw, err := os.ReadFile(path) //nolint:gosec,G304 // This should be a trusted file
		if err != nil {
			return nil, fmt.Errorf("failed to read report template: %w", err)
		}
		if tmpl, err = tmpl.Parse(string(raw)); err != nil {
			return nil, fmt.Errorf("failed to parse report template %s: %w", path, err)
		}
	}

	return &TemplateRenderer{tmpl: tmpl}, nil
}

// Render produces one artifact per language from the bucket picks
func (r *TemplateRenderer) Render(date time.Time, buckets []selection.BucketResult, languages []string) ([]Artifact, error) {
	view := buildView(date, buckets)
	artifacts := make([]Artifact, 0, len(languages))
	for _, lang := range languages {
		view.Language = lang
		title, err := r.execute(lang, "title", view)
		if err != nil {
			return nil, err
		}
		body, err := r.execute(lang, "body", view)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, newArtifact(view.Date, lang, title, body, SourceTemplate, buckets))
	}
	return artifacts, nil
}

// execute picks the most specific template: an override, then the language, then English
func (r *TemplateRenderer) execute(lang, part string, view reportView) (string, error) {
	name := part + ".en"
	switch {
	case r.tmpl.Lookup(part) != nil:
		name = part
	case r.tmpl.Lookup(part+"."+lang) != nil:
		name = part + "." + lang
	}

	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, view); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func buildView(date time.Time, buckets []selection.BucketResult) reportView {
	view := reportView{Date: date.Format(DateLayout)}
	for _, b := range buckets {
		bv := bucketView{
			Bucket:   b.Bucket,
			Label:    bucketLabel(b.Bucket),
			LabelZH:  bucketLabelZH(b.Bucket),
			Degraded: b.Degraded,
			Reason:   b.Reason,
		}
		for _, c := range b.Picks {
			bv.Picks = append(bv.Picks, toPickView(c))
		}
		view.Buckets = append(view.Buckets, bv)
	}
	return view
}

func toPickView(c selection.Candidate) pickView {
	pv := pickView{
		ID:    c.Item.ID,
		Name:  c.Item.Name,
		Shop:  c.Item.Shop,
		Price: c.Item.Price.String(),
		URL:   c.Item.URL,
		Score: fmt.Sprintf("%.1f/10", c.Score.Final),
	}
	if e := c.Item.Enrichment; e != nil {
		pv.Origin = joinNonEmpty(domain.StringValue(e.Origin.Country), domain.StringValue(e.Origin.Region), domain.StringValue(e.Origin.Farm))
		pv.Process = joinNonEmpty(domain.StringValue(e.Variety), domain.StringValue(e.Process), e.SpecialProcess)
		pv.Flavor = e.FlavorText()
		pv.Recommended = domain.StringValue(e.RecommendedFor)
	}
	return pv
}

func newArtifact(date, lang, title, body, source string, buckets []selection.BucketResult) Artifact {
	a := Artifact{
		ID:       ArtifactID(date, lang),
		Date:     date,
		Language: lang,
		Title:    title,
		Body:     body,
		Source:   source,
	}
	for _, b := range buckets {
		a.Degraded = a.Degraded || b.Degraded
		for _, c := range b.Picks {
			a.ItemIDs = append(a.ItemIDs, c.Item.ID)
		}
	}
	return a
}

func bucketLabel(b domain.Bucket) string {
	if b == domain.BucketEspresso {
		return "Espresso"
	}
	return "Filter"
}

func bucketLabelZH(b domain.Bucket) string {
	if b == domain.BucketEspresso {
		return "意式"
	}
	return "手冲"
}

func joinNonEmpty(parts ...string) string {
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ", ")
}
