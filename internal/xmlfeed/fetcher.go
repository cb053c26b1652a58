package xmlfeed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// ErrNetwork wraps every failure to retrieve feed content.
var ErrNetwork = errors.New("feed could not be fetched")

const maxFeedBytes = 64 << 20

// IFetcher retrieves raw feed content.
type IFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
	FetchDocument(ctx context.Context, url string) (Document, error)
}

type httpError struct {
	status int
}

func (e *httpError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.status)
}

// Fetcher performs GET requests with an explicit timeout and a bounded
// number of retries on transient failures.
type Fetcher struct {
	client  *http.Client
	retries int
	backoff time.Duration
}

// NewFetcher creates a Fetcher. retries is the number of extra attempts
// after the first one; backoff grows linearly with each attempt.
func NewFetcher(timeout time.Duration, retries int, backoff time.Duration) *Fetcher {
	if retries < 0 {
		retries = 0
	}
	return &Fetcher{
		client:  &http.Client{Timeout: timeout},
		retries: retries,
		backoff: backoff,
	}
}

// Fetch returns the body of url.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= f.retries; attempt++ {
		if attempt > 0 {
			log.Printf("Retrying feed fetch %s (attempt %d/%d): %v", url, attempt+1, f.retries+1, lastErr)
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %w", ErrNetwork, ctx.Err())
			case <-time.After(f.backoff * time.Duration(attempt)):
			}
		}

		body, err := f.fetchOnce(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryable(ctx, err) {
			break
		}
	}
	return nil, fmt.Errorf("%w: GET %s: %w", ErrNetwork, url, lastErr)
}

// FetchDocument fetches url and parses the body.
func (f *Fetcher) FetchDocument(ctx context.Context, url string) (Document, error) {
	body, err := f.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	return Parse(body)
}

func (f *Fetcher) fetchOnce(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/xml, text/xml;q=0.9, */*;q=0.5")
	req.Header.Set("Content-Type", "application/xml")
	req.Header.Set("User-Agent", "stays-feed-fetcher/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &httpError{status: resp.StatusCode}
	}

	return io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var he *httpError
	if errors.As(err, &he) {
		return he.status >= 500 || he.status == http.StatusTooManyRequests
	}
	return true
}
