package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/fivetwenty-io/ledgerdesk/internal/constants"
	"github.com/fivetwenty-io/ledgerdesk/pkg/ledger"
	"golang.org/x/time/rate"
)

type attemptTimeoutKey struct{}

// withAttemptTimeout stores the per-attempt budget in ctx for attemptTransport.
func withAttemptTimeout(ctx context.Context, timeout time.Duration) context.Context {
	return context.WithValue(ctx, attemptTimeoutKey{}, timeout)
}

// AttemptError is a single attempt that produced no HTTP response.
type AttemptError struct {
	Kind    ledger.ErrorKind
	Timeout time.Duration
	Err     error
}

func (e *AttemptError) Error() string {
	if e.Kind == ledger.KindTimeout && e.Timeout > 0 {
		return fmt.Sprintf("attempt timed out after %s", e.Timeout)
	}

	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *AttemptError) Unwrap() error {
	return e.Err
}

// attemptTransport runs one attempt, body read included, under its own
// deadline. The response body is buffered so the deadline can be released
// before the response is handed back.
type attemptTransport struct {
	next    http.RoundTripper
	limiter *rate.Limiter
}

func (t *attemptTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	parent := req.Context()

	if t.limiter != nil {
		if err := t.limiter.Wait(parent); err != nil {
			return nil, classifyAttemptError(parent, parent, 0, fmt.Errorf("waiting for rate limiter: %w", err))
		}
	}

	timeout, _ := parent.Value(attemptTimeoutKey{}).(time.Duration)
	if timeout <= 0 {
		timeout = constants.DefaultHTTPTimeout
	}

	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	resp, err := t.next.RoundTrip(req.WithContext(ctx))
	if err != nil {
		return nil, classifyAttemptError(parent, ctx, timeout, err)
	}

	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()

	if err != nil {
		return nil, classifyAttemptError(parent, ctx, timeout, fmt.Errorf("reading response body: %w", err))
	}

	resp.Body = io.NopCloser(bytes.NewReader(body))
	resp.ContentLength = int64(len(body))

	return resp, nil
}

// classifyAttemptError decides between Timeout and Network. A caller
// deadline counts as a timeout, a caller cancellation as a network failure.
func classifyAttemptError(parent, attempt context.Context, timeout time.Duration, err error) *AttemptError {
	if parentErr := parent.Err(); parentErr != nil {
		if errors.Is(parentErr, context.DeadlineExceeded) {
			return &AttemptError{Kind: ledger.KindTimeout, Err: parentErr}
		}

		return &AttemptError{Kind: ledger.KindNetwork, Err: parentErr}
	}

	if errors.Is(attempt.Err(), context.DeadlineExceeded) {
		return &AttemptError{Kind: ledger.KindTimeout, Timeout: timeout, Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &AttemptError{Kind: ledger.KindTimeout, Err: err}
	}

	return &AttemptError{Kind: ledger.KindNetwork, Err: err}
}
