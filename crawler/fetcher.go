package crawler

import "context"

// Page is a loaded page: the document as rendered and the raw href values of
// every anchor in it.
type Page struct {
	URL     string
	Content string
	Links   []string
}

// Fetcher loads a page and extracts its anchors. Implementations must honour
// ctx, which carries the per-page load timeout, and be safe for concurrent
// use.
type Fetcher interface {
	Load(ctx context.Context, pageURL string) (*Page, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, pageURL string) (*Page, error)

func (f FetcherFunc) Load(ctx context.Context, pageURL string) (*Page, error) {
	return f(ctx, pageURL)
}
