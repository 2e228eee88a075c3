package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
)

var ErrAssetUnavailable = errors.New("asset unavailable")

const defaultMaxAssetSize = 100 << 20

// Fetcher downloads stored assets for email attachments. Every fetch is bounded
// by its own timeout; repeated server failures open the breaker.
type Fetcher struct {
	client  *http.Client
	timeout time.Duration
	maxSize int64
	cb      *gobreaker.CircuitBreaker[[]byte]
}

func NewFetcher(client *http.Client, timeout time.Duration) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{
		client:  client,
		timeout: timeout,
		maxSize: defaultMaxAssetSize,
		cb: gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
			Name:        "asset-fetch",
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			IsSuccessful: breakerNeutral,
		}),
	}
}

// breakerNeutral keeps failures that say nothing about the storage backend out
// of the breaker counts: a missing asset, or a caller deadline hit by one slow
// download.
func breakerNeutral(err error) bool {
	return err == nil ||
		errors.Is(err, ErrAssetUnavailable) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}

func (f *Fetcher) Fetch(ctx context.Context, assetURL string) ([]byte, error) {
	return f.cb.Execute(func() ([]byte, error) {
		return f.fetch(ctx, assetURL)
	})
}

func (f *Fetcher) fetch(ctx context.Context, assetURL string) ([]byte, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, assetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", assetURL, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", assetURL, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("failed to fetch %s: status %d", assetURL, resp.StatusCode)
	case resp.StatusCode >= 300:
		return nil, fmt.Errorf("%w: %s returned status %d", ErrAssetUnavailable, assetURL, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", assetURL, err)
	}
	if int64(len(data)) > f.maxSize {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrAssetUnavailable, assetURL, f.maxSize)
	}
	return data, nil
}

func (f *Fetcher) State() gobreaker.State {
	return f.cb.State()
}
