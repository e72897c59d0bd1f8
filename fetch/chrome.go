package fetch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/Gaurav-Gosain/pdfcrawl/crawler"
)

// DefaultSettle is how long a rendered page is left to run scripts after the
// DOM is ready before its anchors are read.
const DefaultSettle = 500 * time.Millisecond

// ChromeOptions configures the headless browser.
type ChromeOptions struct {
	ExecPath  string        // Chrome binary, "" = search the usual locations
	UserAgent string        // "" = browser default
	Settle    time.Duration // wait after DOM ready, negative disables
	Headful   bool          // show the browser window, for debugging
}

// Chrome renders pages in a shared headless Chrome. Every Load opens its own
// tab, so loads run concurrently.
type Chrome struct {
	browserCtx    context.Context
	cancelBrowser context.CancelFunc
	cancelAlloc   context.CancelFunc
	settle        time.Duration
}

// NewChrome launches the browser. It lives until Close is called or ctx is
// done.
func NewChrome(ctx context.Context, opts ChromeOptions) (*Chrome, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", !opts.Headful),
		chromedp.Flag("disable-gpu", true),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	// Start the browser now so a missing Chrome fails before the crawl.
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("failed to start chrome: %w", err)
	}

	settle := opts.Settle
	if settle == 0 {
		settle = DefaultSettle
	}

	return &Chrome{
		browserCtx:    browserCtx,
		cancelBrowser: cancelBrowser,
		cancelAlloc:   cancelAlloc,
		settle:        settle,
	}, nil
}

// Load navigates a new tab to pageURL, waits for the body and the settle
// delay, and returns the rendered DOM with its anchors.
func (c *Chrome) Load(ctx context.Context, pageURL string) (*crawler.Page, error) {
	tabCtx, cancel := chromedp.NewContext(c.browserCtx)
	defer cancel()
	// Tabs derive from the browser context, not ctx, so tie them together.
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var location, rendered string
	actions := []chromedp.Action{
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	}
	if c.settle > 0 {
		actions = append(actions, chromedp.Sleep(c.settle))
	}
	actions = append(actions,
		chromedp.Location(&location),
		chromedp.OuterHTML("html", &rendered, chromedp.ByQuery),
	)

	if err := chromedp.Run(tabCtx, actions...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("render %s: %w", pageURL, ctxErr)
		}
		return nil, fmt.Errorf("render %s: %w", pageURL, err)
	}

	links, err := ExtractLinks(strings.NewReader(rendered))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", pageURL, err)
	}

	return &crawler.Page{URL: location, Content: rendered, Links: links}, nil
}

// Close shuts the browser down.
func (c *Chrome) Close() error {
	c.cancelBrowser()
	c.cancelAlloc()
	return nil
}
