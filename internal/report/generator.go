package report

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/beanlab/bean-curator/internal/adapter"
	"github.com/beanlab/bean-curator/internal/domain"
	"github.com/beanlab/bean-curator/internal/inference"
	"github.com/beanlab/bean-curator/internal/logger"
	"github.com/beanlab/bean-curator/internal/selection"
)

// maxModelAttempts is the first call plus one retry on malformed output
const maxModelAttempts = 2

// errMalformed marks model output that parsed but did not satisfy the contract
var errMalformed = errors.New("malformed model output")

// GeneratorConfig holds report generation settings
type GeneratorConfig struct {
	Languages       []string
	BreakerFailures uint32
	BreakerOpenTime time.Duration
}

type modelGenerator struct {
	completer inference.Completer
	json      adapter.JSON
	renderer  *TemplateRenderer
	breaker   *gobreaker.CircuitBreaker[string]
	languages []string
}

// NewGenerator creates a model-backed generator. Calls go through a circuit breaker;
// when the model is unavailable or its output stays malformed the renderer is used.
func NewGenerator(completer inference.Completer, json adapter.JSON, renderer *TemplateRenderer, cfg GeneratorConfig) Generator {
	if len(cfg.Languages) == 0 {
		cfg.Languages = []string{"en"}
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 3
	}
	if cfg.BreakerOpenTime <= 0 {
		cfg.BreakerOpenTime = 5 * time.Minute
	}

	settings := gobreaker.Settings{
		Name:    "report-generator",
		Timeout: cfg.BreakerOpenTime,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	return &modelGenerator{
		completer: completer,
		json:      json,
		renderer:  renderer,
		breaker:   gobreaker.NewCircuitBreaker[string](settings),
		languages: cfg.Languages,
	}
}

type generatedText struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// GenerateReport asks the model for every language at once and validates the reply.
// Malformed output is retried once; after that, or on any call failure, the
// templates render the report.
func (g *modelGenerator) GenerateReport(ctx context.Context, date time.Time, buckets []selection.BucketResult) ([]Artifact, error) {
	day := date.Format(DateLayout)
	req := buildReportPrompt(day, buckets, g.languages)

	for attempt := 1; attempt <= maxModelAttempts; attempt++ {
		text, err := g.complete(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.WarnCtx(ctx, "Report generation call failed, using templates", zap.Error(err))
			break
		}

		byLang, err := g.parseReport(text)
		if err == nil {
			artifacts := make([]Artifact, 0, len(g.languages))
			for _, lang := range g.languages {
				t := byLang[lang]
				artifacts = append(artifacts, newArtifact(day, lang, t.Title, t.Body, SourceModel, buckets))
			}
			return artifacts, nil
		}

		logger.WarnCtx(ctx, "Malformed report output",
			zap.Int("attempt", attempt),
			zap.Error(err))
	}

	return g.renderer.Render(date, buckets, g.languages)
}

// SelectAndGenerate asks the model to pick from the shortlists. It returns an error
// when the model cannot be reached or its reply stays malformed after one retry;
// the caller then falls back to the rule-based picks.
func (g *modelGenerator) SelectAndGenerate(ctx context.Context, shortlists []selection.BucketResult, picksPerBucket int) (*AssistedSelection, error) {
	req := buildSelectionPrompt(shortlists, picksPerBucket)

	var lastErr error
	for attempt := 1; attempt <= maxModelAttempts; attempt++ {
		text, err := g.complete(ctx, req)
		if err != nil {
			return nil, err
		}

		sel, err := g.parseSelection(text)
		if err == nil {
			return sel, nil
		}
		lastErr = err
		logger.WarnCtx(ctx, "Malformed selection output",
			zap.Int("attempt", attempt),
			zap.Error(err))
	}

	return nil, lastErr
}

func (g *modelGenerator) complete(ctx context.Context, req inference.CompletionRequest) (string, error) {
	return g.breaker.Execute(func() (string, error) {
		return g.completer.Complete(ctx, req)
	})
}

func (g *modelGenerator) parseReport(text string) (map[string]generatedText, error) {
	payload, ok := inference.ExtractJSON(text)
	if !ok {
		return nil, fmt.Errorf("%w: no JSON object", errMalformed)
	}

	var raw map[string]generatedText
	if err := g.json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, fmt.Errorf("%w: %s", errMalformed, err.Error())
	}

	byLang := make(map[string]generatedText, len(raw))
	for k, v := range raw {
		byLang[strings.ToLower(strings.TrimSpace(k))] = v
	}

	for _, lang := range g.languages {
		t, ok := byLang[lang]
		if !ok {
			return nil, fmt.Errorf("%w: missing language %q", errMalformed, lang)
		}
		if strings.TrimSpace(t.Title) == "" || strings.TrimSpace(t.Body) == "" {
			return nil, fmt.Errorf("%w: empty title or body for %q", errMalformed, lang)
		}
		t.Title = strings.TrimSpace(t.Title)
		t.Body = strings.TrimSpace(t.Body)
		byLang[lang] = t
	}
	return byLang, nil
}

type selectionReply struct {
	Picks     map[string][]uint64 `json:"picks"`
	Rationale string              `json:"rationale"`
}

func (g *modelGenerator) parseSelection(text string) (*AssistedSelection, error) {
	payload, ok := inference.ExtractJSON(text)
	if !ok {
		return nil, fmt.Errorf("%w: no JSON object", errMalformed)
	}

	var reply selectionReply
	if err := g.json.Unmarshal([]byte(payload), &reply); err != nil {
		return nil, fmt.Errorf("%w: %s", errMalformed, err.Error())
	}
	if len(reply.Picks) == 0 {
		return nil, fmt.Errorf("%w: no picks", errMalformed)
	}

	sel := &AssistedSelection{
		Picks:     make(map[domain.Bucket][]uint64, len(reply.Picks)),
		Rationale: strings.TrimSpace(reply.Rationale),
	}
	for k, ids := range reply.Picks {
		bucket, err := domain.ParseBucket(k)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", errMalformed, err.Error())
		}
		sel.Picks[bucket] = ids
	}
	return sel, nil
}
