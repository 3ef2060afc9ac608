// Package httputil provides HTTP helpers shared by the research tools.
package httputil

import (
	"context"
	"io"
	"math"
	"net/http"
	"time"

	logx "github.com/chative/market-research/pkg/logger"
)

// RetryBaseDelay is the first backoff wait after a throttled response. Tests
// override it to avoid real sleeps.
var RetryBaseDelay = 2 * time.Second

const defaultMaxRetries = 3

// retryable reports whether a status is worth another attempt.
func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable
}

// DoWithRetry executes req and retries on 429 and 503 with exponential
// backoff starting at RetryBaseDelay. maxRetries <= 0 uses the default (3).
//
// Request bodies are replayed through req.GetBody, so requests built with
// http.NewRequest over a bytes or strings reader retry safely. After the last
// retry the final throttled response is returned for the caller to inspect.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	if client == nil {
		client = http.DefaultClient
	}

	for attempt := 0; ; attempt++ {
		attemptReq := req.Clone(ctx)
		if attempt > 0 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			attemptReq.Body = body
		}

		resp, err := client.Do(attemptReq)
		if err != nil {
			return nil, err
		}
		if !retryable(resp.StatusCode) || attempt >= maxRetries {
			return resp, nil
		}

		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		backoff := time.Duration(math.Pow(2, float64(attempt))) * RetryBaseDelay
		logx.Debug().
			Str("url", req.URL.String()).
			Int("status", resp.StatusCode).
			Dur("backoff", backoff).
			Int("attempt", attempt+1).
			Int("max_retries", maxRetries).
			Msg("Throttled, retrying")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
}
