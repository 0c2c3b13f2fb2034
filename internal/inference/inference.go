package inference

import (
	"context"
	"errors"
	"strings"

	"github.com/beanlab/bean-curator/internal/domain"
)

var (
	// ErrRateLimited is returned when the model endpoint refuses a call for quota or load reasons
	ErrRateLimited = errors.New("model rate limited")
	// ErrParseFailure is returned when a model response does not contain a JSON object
	ErrParseFailure = errors.New("model response is not a JSON object")
)

// rateLimitMarkers are substrings of error messages that signal throttling
var rateLimitMarkers = []string{
	"quota",
	"429",
	"529",
	"rate limit",
	"rate_limit",
	"ratelimit",
	"limit exceeded",
	"too many requests",
	"overloaded",
}

// Input is what the model sees about one catalog item
type Input struct {
	Shop        string
	Name        string
	Description string
	Price       domain.Price
	WeightLabel string
}

// Inferencer infers an enrichment record from an item description
//
//go:generate mockgen -source=inference.go -destination=../mocks/inferencer.go -package=mocks -mock_names=Inferencer=MockInferencer
type Inferencer interface {
	// Infer returns the normalized enrichment for an item. A response that cannot be
	// parsed yields an error wrapping ErrParseFailure.
	Infer(ctx context.Context, in Input) (*domain.Enrichment, error)
}

// IsRateLimited reports whether err looks like a throttling signal from the model endpoint
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range rateLimitMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// IsParseFailure reports whether err is a structural response failure
func IsParseFailure(err error) bool {
	return errors.Is(err, ErrParseFailure)
}
