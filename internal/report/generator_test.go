package report_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beanlab/bean-curator/internal/adapter"
	"github.com/beanlab/bean-curator/internal/domain"
	"github.com/beanlab/bean-curator/internal/inference"
	"github.com/beanlab/bean-curator/internal/mocks"
	"github.com/beanlab/bean-curator/internal/report"
	"github.com/beanlab/bean-curator/internal/selection"
)

func newTestGenerator(t *testing.T, failures uint32) (*mocks.MockCompleter, report.Generator) {
	ctrl := gomock.NewController(t)
	completer := mocks.NewMockCompleter(ctrl)
	renderer, err := report.NewTemplateRenderer("")
	require.NoError(t, err)

	g := report.NewGenerator(completer, adapter.NewJSON(), renderer, report.GeneratorConfig{
		Languages:       []string{"en", "zh"},
		BreakerFailures: failures,
		BreakerOpenTime: time.Hour,
	})
	return completer, g
}

const validReport = "```json\n" + `{"en": {"title": " Weekly beans ", "body": "Two bright Kenyans."}, "ZH": {"title": "本周", "body": "两款肯尼亚。"}}` + "\n```"

func TestGenerateReport_ModelOutput(t *testing.T) {
	completer, g := newTestGenerator(t, 3)

	completer.EXPECT().
		Complete(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req inference.CompletionRequest) (string, error) {
			assert.Contains(t, req.Prompt, "week of 2026-10-18")
			assert.Contains(t, req.Prompt, "id 1: Gichathaini from northbound, 24.00 USD")
			assert.Contains(t, req.Prompt, `"zh"`)
			return validReport, nil
		})

	artifacts, err := g.GenerateReport(context.Background(), runDate, sampleBuckets())
	require.NoError(t, err)
	require.Len(t, artifacts, 2)

	assert.Equal(t, "Weekly beans", artifacts[0].Title)
	assert.Equal(t, "Two bright Kenyans.", artifacts[0].Body)
	assert.Equal(t, report.SourceModel, artifacts[0].Source)
	assert.Equal(t, "zh", artifacts[1].Language)
	assert.Equal(t, "本周", artifacts[1].Title)
	assert.True(t, artifacts[0].Degraded)
	assert.Equal(t, []uint64{1, 3, 2}, artifacts[1].ItemIDs)
}

func TestGenerateReport_RetriesMalformedOnce(t *testing.T) {
	completer, g := newTestGenerator(t, 3)

	gomock.InOrder(
		completer.EXPECT().Complete(gomock.Any(), gomock.Any()).Return(`{"en": {"title": "only english", "body": "x"}}`, nil),
		completer.EXPECT().Complete(gomock.Any(), gomock.Any()).Return(validReport, nil),
	)

	artifacts, err := g.GenerateReport(context.Background(), runDate, sampleBuckets())
	require.NoError(t, err)
	assert.Equal(t, report.SourceModel, artifacts[0].Source)
}

func TestGenerateReport_FallsBackAfterSecondMalformed(t *testing.T) {
	completer, g := newTestGenerator(t, 3)

	completer.EXPECT().Complete(gomock.Any(), gomock.Any()).Return("sorry, I cannot help", nil).Times(1)
	completer.EXPECT().Complete(gomock.Any(), gomock.Any()).Return(`{"en": {"title": "", "body": "x"}, "zh": {"title": "t", "body": "b"}}`, nil).Times(1)

	artifacts, err := g.GenerateReport(context.Background(), runDate, sampleBuckets())
	require.NoError(t, err)
	require.Len(t, artifacts, 2)
	for _, a := range artifacts {
		assert.Equal(t, report.SourceTemplate, a.Source)
	}
	assert.Equal(t, "Coffee picks for the week of 2026-10-18", artifacts[0].Title)
}

func TestGenerateReport_CallErrorFallsBackImmediately(t *testing.T) {
	completer, g := newTestGenerator(t, 3)

	completer.EXPECT().Complete(gomock.Any(), gomock.Any()).Return("", errors.New("connection refused")).Times(1)

	artifacts, err := g.GenerateReport(context.Background(), runDate, sampleBuckets())
	require.NoError(t, err)
	assert.Equal(t, report.SourceTemplate, artifacts[0].Source)
}

func TestGenerateReport_OpenBreakerSkipsModel(t *testing.T) {
	completer, g := newTestGenerator(t, 1)

	// the first failure trips the breaker; the second run never reaches the model
	completer.EXPECT().Complete(gomock.Any(), gomock.Any()).Return("", inference.ErrRateLimited).Times(1)

	for i := 0; i < 2; i++ {
		artifacts, err := g.GenerateReport(context.Background(), runDate, sampleBuckets())
		require.NoError(t, err)
		assert.Equal(t, report.SourceTemplate, artifacts[0].Source)
	}
}

func TestGenerateReport_CancelledContext(t *testing.T) {
	completer, g := newTestGenerator(t, 3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	completer.EXPECT().Complete(gomock.Any(), gomock.Any()).Return("", context.Canceled)

	_, err := g.GenerateReport(ctx, runDate, sampleBuckets())
	assert.ErrorIs(t, err, context.Canceled)
}

func shortlists() []selection.BucketResult {
	return []selection.BucketResult{
		{
			Bucket: domain.BucketFilter,
			Shortlist: []selection.Candidate{
				candidate(1, "northbound", "Gichathaini", domain.BucketFilter, 8.4),
				candidate(3, "tidewater", "Halo Hartume", domain.BucketFilter, 7.9),
				candidate(4, "tidewater", "Finca Milan", domain.BucketFilter, 7.1),
			},
		},
		{
			Bucket:    domain.BucketEspresso,
			Shortlist: []selection.Candidate{candidate(2, "northbound", "House Blend", domain.BucketEspresso, 6.5)},
		},
	}
}

func TestSelectAndGenerate(t *testing.T) {
	completer, g := newTestGenerator(t, 3)

	completer.EXPECT().
		Complete(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req inference.CompletionRequest) (string, error) {
			assert.Contains(t, req.Prompt, "Choose exactly 2 coffees per category")
			assert.Contains(t, req.Prompt, "id 4: Finca Milan")
			return `{"picks": {"filter": [3, 1], "espresso": [2]}, "rationale": " Bright lineup. "}`, nil
		})

	sel, err := g.SelectAndGenerate(context.Background(), shortlists(), 2)
	require.NoError(t, err)
	assert.Equal(t, []uint64{3, 1}, sel.Picks[domain.BucketFilter])
	assert.Equal(t, []uint64{2}, sel.Picks[domain.BucketEspresso])
	assert.Equal(t, "Bright lineup.", sel.Rationale)
}

func TestSelectAndGenerate_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{name: "not json", reply: "I would pick the Kenyan."},
		{name: "no picks", reply: `{"rationale": "none"}`},
		{name: "unknown bucket", reply: `{"picks": {"cold_brew": [1]}}`},
		{name: "wrong id type", reply: `{"picks": {"filter": ["one"]}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			completer, g := newTestGenerator(t, 5)
			completer.EXPECT().Complete(gomock.Any(), gomock.Any()).Return(tt.reply, nil).Times(2)

			sel, err := g.SelectAndGenerate(context.Background(), shortlists(), 2)
			assert.Error(t, err)
			assert.Nil(t, sel)
		})
	}
}

func TestSelectAndGenerate_CallError(t *testing.T) {
	completer, g := newTestGenerator(t, 3)
	completer.EXPECT().Complete(gomock.Any(), gomock.Any()).Return("", errors.New("boom")).Times(1)

	_, err := g.SelectAndGenerate(context.Background(), shortlists(), 2)
	assert.EqualError(t, err, "boom")
}
