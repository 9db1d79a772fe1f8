package apiclient

import (
	"math/rand"
	"time"

	"github.com/avast/retry-go"
)

// retryableErr marks a doRequest failure as worth retrying, so RetryIf can
// tell it apart from a terminal error (like query_page's 404/SessionTimeout)
// that retry.Do must not retry.
type retryableErr struct{ err error }

func (r retryableErr) Error() string { return r.err.Error() }
func (r retryableErr) Unwrap() error { return r.err }

func retryable(err error) error {
	if err == nil {
		return nil
	}
	return retryableErr{err: err}
}

// retryIfRetryable is the RetryIf predicate for query_page's retry.Do call:
// only errors explicitly marked retryable (transport failures) get another
// attempt; a terminal error like SessionTimeout stops retrying
// immediately.
func retryIfRetryable(err error) bool {
	_, ok := err.(retryableErr)
	return ok
}

// unwrapRetryable strips the retryableErr marker so callers see the
// underlying error, not the wrapper used only to drive RetryIf.
func unwrapRetryable(err error) error {
	if re, ok := err.(retryableErr); ok {
		return re.err
	}
	return err
}

// pageDelayType returns a retry.DelayTypeFunc that doubles base per attempt
// and jitters by up to ±50%, clamped to be non-decreasing so the jittered
// schedule never produces a later delay shorter than an earlier one.
// Grounded on the original client's ExponentialBackoff::from_millis(10).
// map(jitter).take(3): three retries, 10ms base, ±50% jitter — wired
// through github.com/avast/retry-go the way the reference Go client
// (other_examples/8a1a3d97_youngsofun-databend-go__restful.go.go's
// DoRetry) wires retry.Do for this same start_query/query_page retry
// concern.
func pageDelayType(base time.Duration) retry.DelayTypeFunc {
	var prev time.Duration
	return func(n uint, err error, config *retry.Config) time.Duration {
		d := jitter(base << n)
		if d < prev {
			d = prev
		}
		prev = d
		return d
	}
}

// jitter returns a random duration in [d/2, d*3/2), so repeated retries
// against the same endpoint don't all land in lockstep.
func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	half := int64(d) / 2
	return time.Duration(half + rand.Int63n(int64(d)))
}
