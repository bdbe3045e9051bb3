// Package retry classifies Gmail API failures and reruns transient ones
// with exponential backoff.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy bounds a retried operation. Mutating calls get more attempts than
// reads because a half-applied bulk action is worse than a slow one.
type Policy struct {
	MaxAttempts     uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// ReadPolicy covers single-message metadata fetches.
func ReadPolicy() Policy {
	return Policy{MaxAttempts: 4, InitialInterval: time.Second, MaxInterval: 30 * time.Second}
}

// ListMutatePolicy covers list pagination and label mutations.
func ListMutatePolicy() Policy {
	return Policy{MaxAttempts: 8, InitialInterval: time.Second, MaxInterval: 60 * time.Second}
}

// transientTokens mark errors worth retrying. Matched case-insensitively
// against the full error chain text because the HTTP transport and the
// generated API client wrap failures inconsistently.
var transientTokens = []string{
	"ssl",
	"tls",
	"wrong version number",
	"timeout",
	"timed out",
	"deadline exceeded",
	"connection reset",
	"connection aborted",
	"connection refused",
	"no such host",
	"proxy",
	"unexpected eof",
	"eof",
	"max retries exceeded",
	"rate limit",
	"quota",
	"429",
	"500",
	"502",
	"503",
	"504",
	"backend error",
	"internal error",
}

// Transient reports whether err looks like a failure that a later attempt
// could succeed at.
func Transient(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, tok := range transientTokens {
		if strings.Contains(msg, tok) {
			return true
		}
	}
	return false
}

// Do runs op under the policy, retrying transient errors with jittered
// exponential backoff. Non-transient errors and context cancellation stop
// immediately. The returned error is the last attempt's error.
func Do(ctx context.Context, log *slog.Logger, pol Policy, name string, op func(ctx context.Context) error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = pol.InitialInterval
	bo.MaxInterval = pol.MaxInterval
	bo.Multiplier = 2
	bo.RandomizationFactor = 0.5
	bo.MaxElapsedTime = 0

	attempt := uint64(0)
	wrapped := func() error {
		attempt++
		err := op(ctx)
		if err == nil {
			return nil
		}
		if !Transient(err) {
			return backoff.Permanent(err)
		}
		log.Warn("transient failure, will retry",
			"op", name,
			"attempt", attempt,
			"max_attempts", pol.MaxAttempts,
			"error", err)
		return err
	}

	limited := backoff.WithMaxRetries(backoff.WithContext(bo, ctx), pol.MaxAttempts-1)
	if err := backoff.Retry(wrapped, limited); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
