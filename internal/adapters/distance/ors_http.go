package distance

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	orsMaxAttempts  = 4
	orsFirstBackoff = 200 * time.Millisecond
	orsErrBodyLimit = 4096
)

type httpStatusError struct {
	Code int
	Body string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("ORS status %d: %s", e.Code, e.Body)
}

// orsCall describes one ORS request. Payload is marshalled once and replayed
// on every attempt.
type orsCall struct {
	method  string
	path    string
	query   url.Values
	payload any
}

// callJSON sends c with retry and decodes the JSON response into out.
func (o *ORSDistanceProvider) callJSON(ctx context.Context, c orsCall, out any) error {
	var body []byte
	if c.payload != nil {
		b, err := json.Marshal(c.payload)
		if err != nil {
			return fmt.Errorf("marshal %s body: %w", c.path, err)
		}
		body = b
	}

	endpoint := o.baseURL + c.path
	if len(c.query) > 0 {
		endpoint += "?" + c.query.Encode()
	}

	backoff := orsFirstBackoff
	for attempt := 1; ; attempt++ {
		err := o.attempt(ctx, c.method, endpoint, body, out)
		if err == nil {
			return nil
		}
		if !retryable(err) || attempt == orsMaxAttempts {
			return err
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		backoff *= 2
	}
}

func (o *ORSDistanceProvider) attempt(ctx context.Context, method, endpoint string, body []byte, out any) error {
	if o.limiter != nil {
		if err := o.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", o.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := o.session.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, orsErrBodyLimit))
		return &httpStatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// retryable reports transient failures: network errors, 429 and 5xx.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var he *httpStatusError
	if errors.As(err, &he) {
		return he.Code == http.StatusTooManyRequests || he.Code >= http.StatusInternalServerError
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
