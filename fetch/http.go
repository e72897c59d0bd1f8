package fetch

import (
	"context"
	"strings"

	"github.com/gocolly/colly/v2"

	"github.com/Gaurav-Gosain/pdfcrawl/crawler"
)

// HTTP loads pages with plain HTTP requests. It does not run scripts, so it
// only sees anchors present in the served markup. Servers that answer with
// native markdown (Accept: text/markdown) are supported too.
type HTTP struct {
	collector *colly.Collector
}

// NewHTTP returns a static loader. An empty userAgent keeps colly's default.
func NewHTTP(userAgent string) *HTTP {
	opts := []colly.CollectorOption{
		// Deduplication is the crawler's job.
		colly.AllowURLRevisit(),
	}
	if userAgent != "" {
		opts = append(opts, colly.UserAgent(userAgent))
	}
	return &HTTP{collector: colly.NewCollector(opts...)}
}

// Load fetches pageURL and collects its anchors. Each call works on its own
// clone of the collector, so Load is safe for concurrent use.
func (h *HTTP) Load(ctx context.Context, pageURL string) (*crawler.Page, error) {
	c := h.collector.Clone()
	c.Context = ctx

	page := &crawler.Page{URL: pageURL}

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html, text/markdown;q=0.9, */*;q=0.8")
	})

	c.OnResponse(func(r *colly.Response) {
		page.URL = r.Request.URL.String()
		page.Content = string(r.Body)
		if strings.Contains(r.Headers.Get("Content-Type"), "text/markdown") {
			// Native markdown has no HTML DOM for colly to walk.
			page.Links = append(page.Links, extractMarkdownLinks(page.Content)...)
		}
	})

	c.OnHTML("a[href]", func(e *colly.HTMLElement) {
		if href := strings.TrimSpace(e.Attr("href")); href != "" {
			page.Links = append(page.Links, href)
		}
	})

	if err := c.Visit(pageURL); err != nil {
		return nil, err
	}
	return page, nil
}

// Close is a no-op; it lets HTTP stand in wherever Chrome is used.
func (h *HTTP) Close() error { return nil }
