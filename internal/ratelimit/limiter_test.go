package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLimiterRejectsZeroRate(t *testing.T) {
	_, err := NewLimiter(Config{RequestsPerSecond: 0, Burst: 1})
	assert.Error(t, err)
}

func TestLimiterKeysAreIndependent(t *testing.T) {
	l, err := NewLimiter(Config{RequestsPerSecond: 0.001, Burst: 1})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, l.Wait(ctx, "shop-a.example.com"))
	// A different key has its own bucket
	require.NoError(t, l.Wait(ctx, "shop-b.example.com"))

	// The first key is exhausted and the next token is far away
	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	assert.Error(t, l.Wait(short, "shop-a.example.com"))
}
