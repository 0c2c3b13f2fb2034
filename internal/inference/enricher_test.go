package inference_test

import (
	"context"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beanlab/bean-curator/internal/adapter"
	"github.com/beanlab/bean-curator/internal/domain"
	"github.com/beanlab/bean-curator/internal/inference"
	"github.com/beanlab/bean-curator/internal/mocks"
)

func TestInferencer_Infer(t *testing.T) {
	ctrl := gomock.NewController(t)
	completer := mocks.NewMockCompleter(ctrl)
	inf := inference.NewInferencer(completer, adapter.NewJSON(), adapter.NewJCS())

	completer.EXPECT().
		Complete(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req inference.CompletionRequest) (string, error) {
			assert.Contains(t, req.Prompt, "Kenya Gachatha AA")
			assert.Contains(t, req.Prompt, "24.00 USD")
			return "```json\n{\"roast_level\": \"Light\", \"value_score\": 7, \"variety\": \"SL28\"}\n```", nil
		})

	e, err := inf.Infer(context.Background(), testInput())
	require.NoError(t, err)
	assert.Equal(t, domain.RoastLight, e.RoastLevel)
	assert.Equal(t, 7.0, e.ValueScore)
	assert.Equal(t, "SL28", *e.Variety)
	assert.Len(t, e.SourceHash, 64)
}

func TestInferencer_SourceHashIgnoresKeyOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	completer := mocks.NewMockCompleter(ctrl)
	inf := inference.NewInferencer(completer, adapter.NewJSON(), adapter.NewJCS())

	gomock.InOrder(
		completer.EXPECT().Complete(gomock.Any(), gomock.Any()).Return(`{"a": 1, "b": "x"}`, nil),
		completer.EXPECT().Complete(gomock.Any(), gomock.Any()).Return(`{ "b":"x","a":1 }`, nil),
	)

	first, err := inf.Infer(context.Background(), testInput())
	require.NoError(t, err)
	second, err := inf.Infer(context.Background(), testInput())
	require.NoError(t, err)
	assert.Equal(t, first.SourceHash, second.SourceHash)
}

func TestInferencer_ParseFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	completer := mocks.NewMockCompleter(ctrl)
	inf := inference.NewInferencer(completer, adapter.NewJSON(), adapter.NewJCS())

	completer.EXPECT().Complete(gomock.Any(), gomock.Any()).Return("Sorry, I can't read that listing.", nil)
	_, err := inf.Infer(context.Background(), testInput())
	assert.True(t, inference.IsParseFailure(err))

	completer.EXPECT().Complete(gomock.Any(), gomock.Any()).Return(`{"roast_level": "Light",}`, nil)
	_, err = inf.Infer(context.Background(), testInput())
	assert.True(t, inference.IsParseFailure(err))
}

func TestInferencer_PropagatesCallErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	completer := mocks.NewMockCompleter(ctrl)
	inf := inference.NewInferencer(completer, adapter.NewJSON(), adapter.NewJCS())

	completer.EXPECT().Complete(gomock.Any(), gomock.Any()).Return("", inference.ErrRateLimited)
	_, err := inf.Infer(context.Background(), testInput())
	assert.True(t, inference.IsRateLimited(err))

	completer.EXPECT().Complete(gomock.Any(), gomock.Any()).Return("", errors.New("dial tcp: connection refused"))
	_, err = inf.Infer(context.Background(), testInput())
	require.Error(t, err)
	assert.False(t, inference.IsRateLimited(err))
	assert.False(t, inference.IsParseFailure(err))
}
