package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fastPolicy(attempts uint64) Policy {
	return Policy{MaxAttempts: attempts, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}
}

func TestTransient(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("Get https://gmail.googleapis.com: EOF"), true},
		{errors.New("tls: wrong version number"), true},
		{errors.New("read tcp: connection reset by peer"), true},
		{errors.New("dial tcp: lookup gmail.googleapis.com: no such host"), true},
		{errors.New("googleapi: Error 429: Too Many Requests"), true},
		{errors.New("googleapi: Error 503: Backend Error"), true},
		{errors.New("context deadline exceeded"), true},
		{errors.New("googleapi: Error 403: insufficient permissions"), false},
		{errors.New("googleapi: Error 404: Not Found"), false},
		{errors.New("invalid query"), false},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, Transient(tc.err), "error: %v", tc.err)
	}
}

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := Do(context.Background(), quietLogger(), fastPolicy(4), "list", func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection reset by peer")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoStopsOnPermanentError(t *testing.T) {
	fatal := errors.New("googleapi: Error 403: insufficient permissions")
	calls := 0
	err := Do(context.Background(), quietLogger(), fastPolicy(8), "modify", func(context.Context) error {
		calls++
		return fatal
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.True(t, errors.Is(err, fatal))
}

func TestDoExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), quietLogger(), fastPolicy(4), "get", func(context.Context) error {
		calls++
		return fmt.Errorf("attempt %d: request timeout", calls)
	})
	require.Error(t, err)
	assert.Equal(t, 4, calls)
	assert.Contains(t, err.Error(), "get: ")
}

func TestDoHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, quietLogger(), fastPolicy(8), "list", func(context.Context) error {
		calls++
		cancel()
		return errors.New("request timeout")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestPolicies(t *testing.T) {
	assert.Equal(t, uint64(4), ReadPolicy().MaxAttempts)
	assert.Equal(t, uint64(8), ListMutatePolicy().MaxAttempts)
}
