package inference

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/beanlab/bean-curator/internal/adapter"
	"github.com/beanlab/bean-curator/internal/domain"
	"github.com/beanlab/bean-curator/internal/logger"
)

type modelInferencer struct {
	completer Completer
	json      adapter.JSON
	jcs       adapter.JCS
}

// NewInferencer creates an Inferencer that prompts a Completer and normalizes its reply
func NewInferencer(completer Completer, json adapter.JSON, jcs adapter.JCS) Inferencer {
	return &modelInferencer{completer: completer, json: json, jcs: jcs}
}

// Infer prompts the model for one item and normalizes the JSON it returns
func (m *modelInferencer) Infer(ctx context.Context, in Input) (*domain.Enrichment, error) {
	text, err := m.completer.Complete(ctx, BuildEnrichmentPrompt(in))
	if err != nil {
		return nil, err
	}

	payload, ok := ExtractJSON(text)
	if !ok {
		return nil, fmt.Errorf("%w: no object in reply", ErrParseFailure)
	}

	var raw map[string]interface{}
	if err := m.json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrParseFailure, err.Error())
	}

	e := NormalizeRecord(raw, in)

	hash, err := adapter.ContentHash(m.jcs, []byte(payload))
	if err != nil {
		// The record is still usable without its provenance hash
		logger.WarnCtx(ctx, "Failed to hash model payload",
			zap.String("shop", in.Shop),
			zap.String("name", in.Name),
			zap.Error(err))
	} else {
		e.SourceHash = hash
	}

	return e, nil
}
