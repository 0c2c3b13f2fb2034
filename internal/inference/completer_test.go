package inference_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beanlab/bean-curator/internal/adapter"
	"github.com/beanlab/bean-curator/internal/inference"
	"github.com/beanlab/bean-curator/internal/logger"
	"github.com/beanlab/bean-curator/internal/mocks"
)

const testEndpoint = "https://api.anthropic.com/v1/messages"

func TestMain(m *testing.M) {
	if err := logger.Initialize(logger.Config{Debug: false}); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func newTestCompleter(t *testing.T) (*mocks.MockHTTPClient, inference.Completer) {
	ctrl := gomock.NewController(t)
	httpClient := mocks.NewMockHTTPClient(ctrl)
	c := inference.NewAnthropicCompleter(httpClient, adapter.NewJSON(), inference.ClientConfig{
		Endpoint: testEndpoint,
		Model:    "claude-sonnet-4-20250514",
		APIKey:   "test-key",
	})
	return httpClient, c
}

func TestAnthropicCompleter_Success(t *testing.T) {
	httpClient, c := newTestCompleter(t)

	httpClient.EXPECT().
		PostJSON(gomock.Any(), testEndpoint, gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, headers map[string]string, body []byte) ([]byte, error) {
			assert.Equal(t, "test-key", headers["x-api-key"])
			assert.Equal(t, "2023-06-01", headers["anthropic-version"])
			assert.Contains(t, string(body), `"model":"claude-sonnet-4-20250514"`)
			assert.Contains(t, string(body), `"max_tokens":1500`)
			assert.Contains(t, string(body), `"role":"user"`)
			return []byte(`{"type":"message","content":[{"type":"text","text":"  {\"country\":\"Kenya\"}  "}],"stop_reason":"end_turn"}`), nil
		})

	text, err := c.Complete(context.Background(), inference.CompletionRequest{Prompt: "hello"})
	require.NoError(t, err)
	assert.Equal(t, `{"country":"Kenya"}`, text)
}

func TestAnthropicCompleter_RateLimitStatus(t *testing.T) {
	for _, code := range []int{429, inference.StatusOverloaded} {
		httpClient, c := newTestCompleter(t)
		httpClient.EXPECT().
			PostJSON(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, &adapter.StatusError{StatusCode: code, Body: "slow down"})

		_, err := c.Complete(context.Background(), inference.CompletionRequest{Prompt: "hello"})
		require.Error(t, err)
		assert.ErrorIs(t, err, inference.ErrRateLimited)
		assert.True(t, inference.IsRateLimited(err))
	}
}

func TestAnthropicCompleter_OtherStatusIsNotRateLimited(t *testing.T) {
	httpClient, c := newTestCompleter(t)
	httpClient.EXPECT().
		PostJSON(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, &adapter.StatusError{StatusCode: 401, Body: "invalid x-api-key"})

	_, err := c.Complete(context.Background(), inference.CompletionRequest{Prompt: "hello"})
	require.Error(t, err)
	assert.False(t, inference.IsRateLimited(err))

	var statusErr *adapter.StatusError
	assert.True(t, errors.As(err, &statusErr))
}

func TestAnthropicCompleter_ErrorEnvelope(t *testing.T) {
	httpClient, c := newTestCompleter(t)
	httpClient.EXPECT().
		PostJSON(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]byte(`{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`), nil)

	_, err := c.Complete(context.Background(), inference.CompletionRequest{Prompt: "hello"})
	assert.ErrorIs(t, err, inference.ErrRateLimited)
}

func TestAnthropicCompleter_EmptyContent(t *testing.T) {
	httpClient, c := newTestCompleter(t)
	httpClient.EXPECT().
		PostJSON(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]byte(`{"type":"message","content":[],"stop_reason":"max_tokens"}`), nil)

	_, err := c.Complete(context.Background(), inference.CompletionRequest{Prompt: "hello"})
	assert.ErrorIs(t, err, inference.ErrParseFailure)
}

func TestIsRateLimited(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("You exceeded your current quota"), true},
		{errors.New("HTTP 429"), true},
		{errors.New("Rate limit reached for requests"), true},
		{errors.New("Too Many Requests"), true},
		{errors.New("server overloaded"), true},
		{errors.New("connection reset by peer"), false},
		{errors.New("invalid api key"), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, inference.IsRateLimited(tt.err), "%v", tt.err)
	}
}
