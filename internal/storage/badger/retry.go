// -----------------------------------------------------------------------
// Commit retry - transient-only retry with exponential backoff
// -----------------------------------------------------------------------

package badger

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
)

const (
	// retryMaxAttempts caps commit attempts for transient store errors.
	retryMaxAttempts = 3
	// retryBaseDelay is the first backoff delay. It doubles per attempt.
	retryBaseDelay = 100 * time.Millisecond
)

// IsTransient reports whether a store error is worth retrying: transaction
// conflicts, connectivity problems, and timeouts. Constraint-style errors
// and everything else propagate immediately.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, badgerdb.ErrConflict) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "timeout") || strings.Contains(msg, "connection")
}

// WithRetry executes a store commit with up to retryMaxAttempts attempts,
// doubling the backoff between attempts. Only transient errors are retried;
// all other errors propagate on the first attempt.
func WithRetry(ctx context.Context, logger arbor.ILogger, op string, fn func() error) error {
	delay := retryBaseDelay
	var lastErr error

	for attempt := 1; attempt <= retryMaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !IsTransient(lastErr) {
			return lastErr
		}
		if attempt == retryMaxAttempts {
			break
		}

		logger.Warn().
			Err(lastErr).
			Str("op", op).
			Int("attempt", attempt).
			Dur("backoff", delay).
			Msg("Transient store error, retrying commit")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	return fmt.Errorf("%s failed after %d attempts: %w", op, retryMaxAttempts, lastErr)
}
