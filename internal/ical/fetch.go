// Package ical fetches, parses and generates iCalendar feeds.
package ical

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxFeedBytes caps how much of a feed body is read. Airbnb exports run
// to a few hundred kilobytes at most.
const maxFeedBytes = 10 << 20

// ErrUnsupportedScheme marks feed URLs that are not http, https or webcal.
var ErrUnsupportedScheme = errors.New("unsupported feed URL scheme")

// FetchError describes a failed feed download. Transient failures
// (network errors, timeouts, 5xx responses) may succeed on a later pass;
// permanent ones need the host to fix the URL.
type FetchError struct {
	URL       string
	Status    int
	Transient bool
	Err       error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetching %s: status %d", RedactURL(e.URL), e.Status)
	}
	return fmt.Sprintf("fetching %s: %v", RedactURL(e.URL), e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NormalizeFeedURL rewrites webcal:// and webcals:// URLs to https:// and
// rejects any scheme other than http and https.
func NormalizeFeedURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("parsing feed URL: %w", err)
	}

	switch strings.ToLower(u.Scheme) {
	case "webcal", "webcals":
		u.Scheme = "https"
	case "http", "https":
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}

	if u.Host == "" {
		return "", errors.New("feed URL has no host")
	}

	return u.String(), nil
}

// RedactURL hides the query string of a feed URL for logging. Airbnb
// embeds the per-listing secret there.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "(unparsable url)"
	}
	if u.RawQuery != "" {
		u.RawQuery = "redacted"
	}
	return u.String()
}

// Fetcher downloads iCalendar feeds over HTTP.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a fetcher whose requests give up after the given
// timeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Fetch downloads one feed body. webcal URLs are rewritten to https
// before the request goes out. All failures come back as a *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	fetchURL, err := NormalizeFeedURL(rawURL)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, nil)
	if err != nil {
		return nil, &FetchError{URL: fetchURL, Err: err}
	}
	req.Header.Set("Accept", "text/calendar, */*")
	req.Header.Set("User-Agent", "mvp1-calendar-sync/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: fetchURL, Transient: true, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{
			URL:       fetchURL,
			Status:    resp.StatusCode,
			Transient: resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests,
			Err:       fmt.Errorf("calendar returned status %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, &FetchError{URL: fetchURL, Transient: true, Err: fmt.Errorf("reading feed body: %w", err)}
	}

	return body, nil
}
