package rss

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tkrnews/newsgather/internal/region"
	"github.com/tkrnews/newsgather/internal/retry"
)

// maxFeedBytes caps a single feed download.
const maxFeedBytes = 4 << 20

// FeedsConfig overrides the built-in regional feed table.
//
//	national:
//	  - name: CBC News
//	    url: https://...
//	regions:
//	  Alberta:
//	    - name: CBC Calgary
//	      url: https://...
type FeedsConfig struct {
	National []region.Feed            `yaml:"national"`
	Regions  map[string][]region.Feed `yaml:"regions"`
}

// LoadFeeds reads a feed override table from a YAML file.
func LoadFeeds(path string) (*FeedsConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg FeedsConfig
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode feeds config %s: %w", path, err)
	}
	return &cfg, nil
}

// StatusError is a non-2xx upstream response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: HTTP %d", e.URL, e.StatusCode)
}

// fetcher downloads feed documents with retry on 429, 5xx and timeouts.
type fetcher struct {
	client *http.Client
	retry  retry.RetryConfig
	logger *slog.Logger
}

func (f *fetcher) get(ctx context.Context, url string) ([]byte, error) {
	var body []byte
	err := retry.WithRetry(ctx, f.retry, func() error {
		b, err := f.getOnce(ctx, url)
		if err != nil {
			f.logger.Debug("feed fetch attempt failed", "url", url, "error", err)
			return err
		}
		body = b
		return nil
	})
	return body, err
}

func (f *fetcher) getOnce(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, retry.Permanent(err)
	}
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		if isRetryable(err) {
			return nil, err
		}
		return nil, retry.Permanent(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		serr := &StatusError{URL: url, StatusCode: resp.StatusCode}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, serr
		}
		return nil, retry.Permanent(serr)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, err
	}
	return body, nil
}

// isRetryable treats timeouts and dropped connections as transient.
// Caller cancellation is final.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
