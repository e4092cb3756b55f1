package httpx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
)

type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Do sends req, replaying the buffered body on every attempt. Once retries
// are exhausted the last response is returned as-is so callers can decode
// the server's error body. Callers must close the returned response body.
func Do(ctx context.Context, client *http.Client, req Request, policy RetryPolicy) (*http.Response, error) {
	if client == nil {
		client = http.DefaultClient
	}
	policy = policy.normalize()

	for attempt := 0; ; attempt++ {
		var body io.Reader = http.NoBody
		if req.Body != nil {
			body = bytes.NewReader(req.Body)
		}
		hreq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
		if err != nil {
			return nil, err
		}
		hreq.Header = req.Header.Clone()
		if hreq.Header == nil {
			hreq.Header = make(http.Header)
		}

		resp, err := client.Do(hreq)
		last := attempt == policy.MaxRetries
		if err != nil {
			if last || !isRetryableNetErr(err) {
				return nil, err
			}
		} else if !shouldRetry(resp.StatusCode) || last {
			return resp, nil
		}

		reason := err
		delay := policy.Delay
		if resp != nil {
			reason = fmt.Errorf("http status %d", resp.StatusCode)
			if ra, ok := retryAfter(resp.Header.Get("Retry-After")); ok && ra > delay {
				delay = ra
			}
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}
		if policy.OnRetry != nil {
			policy.OnRetry(attempt, reason)
		}
		if err := wait(ctx, delay); err != nil {
			return nil, err
		}
	}
}
