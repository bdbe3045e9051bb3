package rate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucketFirstCallImmediate(t *testing.T) {
	tb := NewTokenBucket(1)
	defer tb.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	require.NoError(t, tb.Wait(ctx))
}

func TestTokenBucketRespectsCancellation(t *testing.T) {
	tb := NewTokenBucket(1)
	defer tb.Stop()

	// Drain the initial token.
	require.NoError(t, tb.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := tb.Wait(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTokenBucketStopReturns(t *testing.T) {
	tb := NewTokenBucket(100)
	done := make(chan struct{})
	go func() {
		tb.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
}

func TestUnlimitedNeverBlocks(t *testing.T) {
	var l Limiter = Unlimited{}
	require.NoError(t, l.Wait(context.Background()))
}
