package crawler

import (
	"context"
	"io"
	"net/http"
	"time"

	"charm.land/log/v2"
	"github.com/google/uuid"
)

// RunOptions configures one crawl run: a traversal followed by a batch
// download into Dir.
type RunOptions struct {
	StartURL            string
	Dir                 string // run directory, created by the caller
	Fetcher             Fetcher
	Concurrency         int
	LoadTimeout         time.Duration
	Extension           string
	DownloadConcurrency int
	DownloadClient      *http.Client
	UserAgent           string
	ReservedNames       []string // names in Dir the downloads must leave free
	Logger              *log.Logger
	OnEvent             EventFunc
}

// Summary describes a finished run.
type Summary struct {
	RunID      string
	StartURL   string
	Dir        string
	Origin     Origin
	StartedAt  time.Time
	FinishedAt time.Time
	Crawl      *CrawlResult
	Downloads  *DownloadReport
}

// Run crawls opts.StartURL and, once the traversal has settled, downloads
// every discovered document into opts.Dir. The returned summary is non-nil
// whenever the crawl started, even if an error is returned.
func Run(ctx context.Context, opts RunOptions) (*Summary, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	summary := &Summary{
		RunID:     uuid.NewString(),
		StartURL:  opts.StartURL,
		Dir:       opts.Dir,
		StartedAt: time.Now(),
		Downloads: &DownloadReport{},
	}
	defer func() { summary.FinishedAt = time.Now() }()

	logger.Info("Starting crawl",
		"run", summary.RunID,
		"url", opts.StartURL,
		"concurrency", opts.Concurrency,
		"timeout", opts.LoadTimeout,
	)

	res, err := Crawl(ctx, CrawlOptions{
		StartURL:    opts.StartURL,
		Fetcher:     opts.Fetcher,
		Concurrency: opts.Concurrency,
		LoadTimeout: opts.LoadTimeout,
		Extension:   opts.Extension,
		Logger:      logger,
		OnEvent:     opts.OnEvent,
	})
	if res == nil {
		return nil, err
	}
	summary.Crawl = res
	summary.Origin = res.Origin
	if err != nil {
		return summary, err
	}

	logger.Info("Crawl complete",
		"pages", len(res.Visited),
		"failed", len(res.Failed),
		"documents", len(res.Documents),
	)

	dl := NewDownloader(DownloadOptions{
		Client:      opts.DownloadClient,
		Concurrency: opts.DownloadConcurrency,
		UserAgent:   opts.UserAgent,
		Reserved:    opts.ReservedNames,
		Logger:      logger,
		OnEvent:     opts.OnEvent,
	})
	report, err := dl.DownloadAll(ctx, res.Documents, opts.Dir)
	summary.Downloads = report
	return summary, err
}
