package scrape

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/net/html"
)

// FetchError is a listing page that could not be fetched or parsed.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("error fetching %s: %s", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

var defaultClient = &http.Client{
	Timeout: time.Second * 15,
}

// Fetcher downloads and parses listing pages, keeping parsed documents for a
// short while so a manual scrape right after a scheduled one is cheap.
type Fetcher struct {
	client    *http.Client
	userAgent string
	cache     *expirable.LRU[string, *html.Node]
}

func NewFetcher(client *http.Client, ttl time.Duration) *Fetcher {
	if client == nil {
		client = defaultClient
	}
	return &Fetcher{
		client:    client,
		userAgent: "matsubo (+https://github.com/jdholdren/matsubo)",
		cache:     expirable.NewLRU[string, *html.Node](128, nil, ttl),
	}
}

// Fetch returns the parsed document at url. Every failure is a *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*html.Node, error) {
	if doc, ok := f.cache.Get(url); ok {
		return doc, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("unexpected status code: %d", resp.StatusCode)}
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("error parsing html: %w", err)}
	}
	f.cache.Add(url, doc)

	return doc, nil
}
