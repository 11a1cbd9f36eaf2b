package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// getter issues GET requests with a bounded retry loop and an optional
// shared rate limiter. Retries are a fixed count with a fixed delay; there
// is deliberately no backoff growth and no recursion.
type getter struct {
	client   *http.Client
	attempts int
	delay    time.Duration
	limiter  *rate.Limiter
}

func (g *getter) getJSON(ctx context.Context, url string, header http.Header, out any) error {
	attempts := g.attempts
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(g.delay):
			}
		}
		if g.limiter != nil {
			if err := g.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		lastErr = g.tryOnce(ctx, url, header, out)
		if lastErr == nil {
			return nil
		}
	}
	return lastErr
}

func (g *getter) tryOnce(ctx context.Context, url string, header http.Header, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	for k, vals := range header {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("http %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
