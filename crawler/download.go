package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"charm.land/log/v2"
	"golang.org/x/sync/errgroup"
)

// DefaultDownloadTimeout bounds a single document download.
const DefaultDownloadTimeout = 5 * time.Minute

// ErrUnexpectedStatus is returned for document responses outside 2xx.
var ErrUnexpectedStatus = errors.New("unexpected HTTP status")

// DownloadOptions configures a Downloader.
type DownloadOptions struct {
	Client      *http.Client // nil = client with DefaultDownloadTimeout
	Concurrency int          // simultaneous downloads, 0 = unbounded
	UserAgent   string
	Reserved    []string // file names in the target directory that downloads must not take
	Logger      *log.Logger
	OnEvent     EventFunc
}

// Download is the outcome of one download job.
type Download struct {
	URL   string
	Path  string
	Bytes int64
	Err   error
}

// DownloadReport lists every job of a batch, sorted by URL.
type DownloadReport struct {
	Downloads []Download
}

// Succeeded returns the number of documents written.
func (r *DownloadReport) Succeeded() int {
	if r == nil {
		return 0
	}
	n := 0
	for _, d := range r.Downloads {
		if d.Err == nil {
			n++
		}
	}
	return n
}

// Failed returns the jobs that did not complete.
func (r *DownloadReport) Failed() []Download {
	if r == nil {
		return nil
	}
	var out []Download
	for _, d := range r.Downloads {
		if d.Err != nil {
			out = append(out, d)
		}
	}
	return out
}

// Downloader streams documents to a directory.
type Downloader struct {
	client      *http.Client
	concurrency int
	userAgent   string
	reserved    []string
	logger      *log.Logger
	onEvent     EventFunc
}

func NewDownloader(opts DownloadOptions) *Downloader {
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: DefaultDownloadTimeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Downloader{
		client:      client,
		concurrency: opts.Concurrency,
		userAgent:   opts.UserAgent,
		reserved:    opts.Reserved,
		logger:      logger,
		onEvent:     opts.OnEvent,
	}
}

// DownloadAll fetches every URL into dir, one file per URL, named after the
// final segment of the URL path. All jobs are attempted even when some fail;
// the failures are returned joined into one error once the batch is over.
// An empty batch touches nothing on disk.
func (d *Downloader) DownloadAll(ctx context.Context, urls []string, dir string) (*DownloadReport, error) {
	report := &DownloadReport{}
	if len(urls) == 0 {
		return report, nil
	}

	sorted := slices.Clone(urls)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	names := make(map[string]struct{}, len(sorted)+len(d.reserved))
	for _, name := range d.reserved {
		names[name] = struct{}{}
	}
	report.Downloads = make([]Download, len(sorted))
	for i, u := range sorted {
		report.Downloads[i] = Download{
			URL:  u,
			Path: filepath.Join(dir, uniqueName(names, FileName(u))),
		}
	}

	var g errgroup.Group
	if d.concurrency > 0 {
		g.SetLimit(d.concurrency)
	}
	for i := range report.Downloads {
		g.Go(func() error {
			job := &report.Downloads[i]
			job.Bytes, job.Err = d.download(ctx, job.URL, job.Path)
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, job := range report.Downloads {
		if job.Err != nil {
			errs = append(errs, fmt.Errorf("download %s: %w", job.URL, job.Err))
		}
	}
	return report, errors.Join(errs...)
}

func (d *Downloader) download(ctx context.Context, docURL, dest string) (int64, error) {
	d.onEvent.emit(Event{Type: EventDownloadStart, URL: docURL, Path: dest})
	d.logger.Info("Downloading", "url", docURL, "path", dest)

	n, err := d.fetch(ctx, docURL, dest)
	if err != nil {
		d.logger.Error("Download failed", "url", docURL, "err", err)
		d.onEvent.emit(Event{Type: EventDownloadError, URL: docURL, Path: dest, Err: err})
		return n, err
	}

	d.onEvent.emit(Event{Type: EventDownloadDone, URL: docURL, Path: dest, Bytes: n})
	return n, nil
}

func (d *Downloader) fetch(ctx context.Context, docURL, dest string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, docURL, nil)
	if err != nil {
		return 0, err
	}
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
	}

	f, err := os.Create(dest)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(dest)
		return n, err
	}
	return n, nil
}

// FileName returns the final path segment of rawURL, which is the name a
// document is saved under.
func FileName(rawURL string) string {
	u, err := urlParser.Parse(rawURL)
	if err != nil {
		return "document"
	}
	name := path.Base(u.Pathname())
	if decoded, err := url.PathUnescape(name); err == nil {
		name = decoded
	}
	// Decoded paths may still smuggle a separator on some platforms.
	name = filepath.Base(filepath.FromSlash(name))
	if name == "." || name == "/" || name == string(filepath.Separator) || name == "" {
		return "document"
	}
	return name
}

// uniqueName reserves name in taken, appending -1, -2, ... before the
// extension when it is already used.
func uniqueName(taken map[string]struct{}, name string) string {
	if _, ok := taken[name]; !ok {
		taken[name] = struct{}{}
		return name
	}
	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s-%d%s", stem, i, ext)
		if _, ok := taken[candidate]; !ok {
			taken[candidate] = struct{}{}
			return candidate
		}
	}
}
