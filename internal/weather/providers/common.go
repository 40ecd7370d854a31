package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/sony/gobreaker"
)

// ExtractionError kinds, one per failure mode of the outbound call.
const (
	KindTimeout   = "timeout"
	KindNetwork   = "network"
	KindBadStatus = "bad_status"
	KindMalformed = "malformed_response"
)

// ExtractionError reports why a source fetch failed. Every failure is fatal
// to the run; callers never retry.
type ExtractionError struct {
	Kind string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract: %s: %v", e.Kind, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// doRequest executes a single HTTP request through the circuit breaker. There
// is no retry or backoff: the client's timeout is the only bound on the call,
// and any failure is classified and propagated.
func doRequest(ctx context.Context, client *http.Client, cb *gobreaker.CircuitBreaker, req *http.Request) (*http.Response, error) {
	if client == nil {
		return nil, &ExtractionError{Kind: KindNetwork, Err: errors.New("http client not configured")}
	}

	req = req.WithContext(ctx)

	result, err := cb.Execute(func() (interface{}, error) {
		resp, execErr := client.Do(req)
		if execErr != nil {
			return nil, classifyTransportError(execErr)
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			resp.Body.Close()
			return nil, &ExtractionError{
				Kind: KindBadStatus,
				Err:  fmt.Errorf("unexpected status code %d from %s", resp.StatusCode, req.URL.Host),
			}
		}

		return resp, nil
	})

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &ExtractionError{Kind: KindNetwork, Err: fmt.Errorf("circuit breaker open: %w", err)}
		}
		var ee *ExtractionError
		if errors.As(err, &ee) {
			return nil, ee
		}
		return nil, &ExtractionError{Kind: KindNetwork, Err: err}
	}

	resp, ok := result.(*http.Response)
	if !ok {
		return nil, &ExtractionError{Kind: KindNetwork, Err: errors.New("unexpected result type from circuit breaker")}
	}
	return resp, nil
}

func classifyTransportError(err error) *ExtractionError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &ExtractionError{Kind: KindTimeout, Err: err}
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &ExtractionError{Kind: KindTimeout, Err: err}
	}
	return &ExtractionError{Kind: KindNetwork, Err: err}
}
