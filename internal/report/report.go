package report

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/beanlab/bean-curator/internal/domain"
	"github.com/beanlab/bean-curator/internal/selection"
)

// DateLayout is the layout of artifact dates
const DateLayout = "2006-01-02"

// Artifact sources
const (
	SourceModel    = "model"
	SourceTemplate = "template"
)

// artifactNamespace scopes artifact IDs derived from (date, language)
var artifactNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/beanlab/bean-curator/artifacts"))

// Artifact is one published report in one language
type Artifact struct {
	ID       string   `json:"id"`
	RunID    string   `json:"run_id,omitempty"`
	Date     string   `json:"date"`
	Language string   `json:"language"`
	Title    string   `json:"title"`
	Body     string   `json:"body"`
	Source   string   `json:"source"`
	Degraded bool     `json:"degraded"`
	ItemIDs  []uint64 `json:"item_ids"`
}

// ArtifactID returns the stable ID of the artifact for a date and language, so a
// regenerated report for the same key replaces the earlier one
func ArtifactID(date, language string) string {
	return uuid.NewSHA1(artifactNamespace, []byte(date+"/"+language)).String()
}

// AssistedSelection is a model-proposed set of picks per bucket
type AssistedSelection struct {
	Picks     map[domain.Bucket][]uint64
	Rationale string
}

// Generator produces report artifacts from picks and can propose picks from shortlists
//
//go:generate mockgen -source=report.go -destination=../mocks/report_generator.go -package=mocks -mock_names=Generator=MockGenerator
type Generator interface {
	// SelectAndGenerate asks the model to choose picksPerBucket items from every shortlist
	SelectAndGenerate(ctx context.Context, shortlists []selection.BucketResult, picksPerBucket int) (*AssistedSelection, error)
	// GenerateReport renders one artifact per configured language; it falls back to
	// local templates rather than failing when the model output is unusable
	GenerateReport(ctx context.Context, date time.Time, buckets []selection.BucketResult) ([]Artifact, error)
}
