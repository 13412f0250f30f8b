package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Belphemur/TubeSubs/internal/apperrors"
	"github.com/Belphemur/TubeSubs/internal/config"
	"github.com/Belphemur/TubeSubs/internal/metrics"
	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
)

// Provider endpoints, used as metric labels
const (
	endpointWatch     = "watch"
	endpointPlayer    = "player"
	endpointTimedText = "timedtext"
)

// statusError is returned for any non-2xx response other than 429.
type statusError struct {
	URL        string
	StatusCode int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status code %d from %s", e.StatusCode, e.URL)
}

// newRetryPolicy retries transport failures and 5xx responses with an
// exponential backoff starting at delay. Rate limiting is never retried.
func newRetryPolicy(maxRetries int, delay time.Duration) retrypolicy.RetryPolicy[*http.Response] {
	if maxRetries < 0 {
		maxRetries = 0
	}

	return retrypolicy.NewBuilder[*http.Response]().
		HandleIf(func(_ *http.Response, err error) bool {
			return isRetryable(err)
		}).
		WithBackoff(delay, 10*delay).
		WithMaxRetries(maxRetries).
		ReturnLastFailure().
		OnRetry(func(e failsafe.ExecutionEvent[*http.Response]) {
			logger := config.GetLogger()
			logger.Warn().Err(e.LastError()).Int("attempt", e.Attempts()).Msg("Retrying provider request")
		}).
		Build()
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, &apperrors.ErrTooManyRequests{}) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.StatusCode >= http.StatusInternalServerError
	}
	// Transport level failure (connection reset, EOF, ...)
	return true
}

// do sends the request built by newRequest, retrying per the client's policy.
// newRequest is called once per attempt so request bodies are never reused.
// The returned response always has a 2xx status; the caller closes its body.
func (c *client) do(ctx context.Context, endpoint string, newRequest func(ctx context.Context) (*http.Request, error)) (*http.Response, error) {
	return failsafe.With[*http.Response](c.retryPolicy).WithContext(ctx).Get(func() (*http.Response, error) {
		req, err := newRequest(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept-Language", "en-US")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			metrics.ProviderRequestsTotal.WithLabelValues(endpoint, "error").Inc()
			return nil, fmt.Errorf("failed to execute request: %w", err)
		}
		metrics.ProviderRequestsTotal.WithLabelValues(endpoint, statusClass(resp.StatusCode)).Inc()

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			resp.Body.Close()
			return nil, &apperrors.ErrTooManyRequests{URL: req.URL.Redacted()}
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			resp.Body.Close()
			return nil, &statusError{URL: req.URL.Redacted(), StatusCode: resp.StatusCode}
		}
		return resp, nil
	})
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
