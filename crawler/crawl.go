// Package crawler discovers same-origin document links by crawling a site
// with a bounded number of concurrent page loads, then downloads them.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"charm.land/log/v2"
)

// DefaultLoadTimeout bounds a single page load.
const DefaultLoadTimeout = 60 * time.Second

var errNoFetcher = errors.New("no fetcher configured")

// CrawlOptions configures a traversal.
type CrawlOptions struct {
	StartURL    string
	Fetcher     Fetcher
	Concurrency int           // budget capacity, 0 = DefaultConcurrency
	LoadTimeout time.Duration // per page, 0 = DefaultLoadTimeout
	Extension   string        // document extension, "" = DefaultExtension
	Logger      *log.Logger   // optional
	OnEvent     EventFunc     // optional progress callback
}

// PageError records a page that could not be loaded.
type PageError struct {
	URL string
	Err error
}

// CrawlResult is the settled state of a traversal.
type CrawlResult struct {
	Origin    Origin
	Visited   []string // every page URL dispatched, sorted
	Documents []string // discovered document URLs, sorted
	Failed    []PageError
	Peak      int // highest number of page loads in flight at once
}

type crawl struct {
	opts     CrawlOptions
	logger   *log.Logger
	resolver *Resolver
	visited  *VisitedSet
	docs     *DocumentSet
	budget   *Budget
	frontier *Frontier

	// pending counts scheduled tasks that have not finished yet. The run is
	// complete when it drops to zero.
	pending sync.WaitGroup

	mu     sync.Mutex
	failed []PageError
}

// Crawl traverses every same-origin page reachable from opts.StartURL and
// collects same-origin document links. Each distinct page is loaded at most
// once and at most opts.Concurrency loads run at the same time. Pages that
// fail to load are recorded in the result and do not stop the crawl.
//
// Crawl returns when no task is queued or running. If ctx is cancelled first
// it returns what was found so far together with ctx.Err().
func Crawl(ctx context.Context, opts CrawlOptions) (*CrawlResult, error) {
	if opts.Fetcher == nil {
		return nil, errNoFetcher
	}
	resolver, err := NewResolver(opts.StartURL, opts.Extension)
	if err != nil {
		return nil, err
	}
	if opts.LoadTimeout <= 0 {
		opts.LoadTimeout = DefaultLoadTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	c := &crawl{
		opts:     opts,
		logger:   logger,
		resolver: resolver,
		visited:  NewVisitedSet(),
		docs:     NewDocumentSet(),
		budget:   NewBudget(opts.Concurrency),
		frontier: NewFrontier(),
	}

	c.schedule(Normalize(opts.StartURL))

	done := make(chan struct{})
	go func() {
		c.pending.Wait()
		close(done)
	}()

	// Tasks are started as seats free up, so the budget alone bounds the
	// number of loads in flight.
	var tasks sync.WaitGroup
	for {
		pageURL, ok := c.frontier.Pop(ctx, done)
		if !ok {
			break
		}
		if err := c.budget.Acquire(ctx); err != nil {
			c.pending.Done()
			break
		}
		tasks.Go(func() {
			defer c.pending.Done()
			defer c.budget.Release()
			c.visit(ctx, pageURL)
		})
	}
	tasks.Wait()

	if ctx.Err() != nil {
		// Release the tasks that will never start so the waiter exits.
		for range c.frontier.Drain() {
			c.pending.Done()
		}
		<-done
	}
	return c.result(), ctx.Err()
}

// visit loads pageURL while holding a budget seat and follows its links.
func (c *crawl) visit(ctx context.Context, pageURL string) {
	c.opts.OnEvent.emit(Event{Type: EventPageStart, URL: pageURL})

	loadCtx, cancel := context.WithTimeout(ctx, c.opts.LoadTimeout)
	page, err := c.opts.Fetcher.Load(loadCtx, pageURL)
	timedOut := errors.Is(loadCtx.Err(), context.DeadlineExceeded)
	cancel()

	if err != nil {
		if timedOut {
			err = fmt.Errorf("load timed out after %s: %w", c.opts.LoadTimeout, err)
		}
		c.recordFailure(pageURL, err)
		c.logger.Error("Failed to load page", "url", pageURL, "err", err)
		c.opts.OnEvent.emit(Event{Type: EventPageError, URL: pageURL, Err: err})
		return
	}

	base := pageURL
	if page.URL != "" {
		base = page.URL
	}
	for _, href := range page.Links {
		c.follow(base, href)
	}

	c.logger.Debug("Visited page", "url", pageURL, "links", len(page.Links))
	c.opts.OnEvent.emit(Event{Type: EventPageDone, URL: pageURL})
}

func (c *crawl) follow(pageURL, href string) {
	u, err := c.resolver.Resolve(pageURL, href)
	if err != nil {
		c.logger.Warn("Skipping link", "err", err)
		return
	}

	switch c.resolver.Classify(u) {
	case LinkDocument:
		link := u.Href(true)
		if c.docs.Add(link) {
			c.logger.Debug("Found document", "url", link, "page", pageURL)
			c.opts.OnEvent.emit(Event{Type: EventDocumentFound, URL: link})
		}
	case LinkPage:
		c.schedule(u.Href(true))
	}
}

// schedule queues pageURL unless it was scheduled before. Marking happens
// here rather than when the load finishes, so a page still in flight is
// never queued twice.
func (c *crawl) schedule(pageURL string) {
	if !c.visited.MarkIfNotVisited(pageURL) {
		return
	}
	c.pending.Add(1)
	c.frontier.Push(pageURL)
}

func (c *crawl) recordFailure(pageURL string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failed = append(c.failed, PageError{URL: pageURL, Err: err})
}

func (c *crawl) result() *CrawlResult {
	c.mu.Lock()
	failed := make([]PageError, len(c.failed))
	copy(failed, c.failed)
	c.mu.Unlock()

	return &CrawlResult{
		Origin:    c.resolver.Origin(),
		Visited:   c.visited.URLs(),
		Documents: c.docs.URLs(),
		Failed:    failed,
		Peak:      c.budget.Peak(),
	}
}
