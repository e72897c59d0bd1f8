package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"charm.land/log/v2"
	"github.com/spf13/cobra"

	"github.com/Gaurav-Gosain/pdfcrawl/crawler"
	"github.com/Gaurav-Gosain/pdfcrawl/fetch"
	"github.com/Gaurav-Gosain/pdfcrawl/output"
	"github.com/Gaurav-Gosain/pdfcrawl/tui"
)

var errMissingURL = errors.New("please provide a URL as a command-line argument")

func NewRootCmd() *cobra.Command {
	flags := defaultConfig()

	cmd := &cobra.Command{
		Use:   "pdfcrawl <url>",
		Short: "Crawl a website and download every PDF it links to",
		Long: "Crawls every page on the same origin as the start URL, rendering each one in headless Chrome,\n" +
			"collects links to PDF documents and downloads them into a timestamped directory.",
		Example: `  # Download every PDF linked from a site
  pdfcrawl https://example.com

  # Static HTTP loading, 20 pages at a time
  pdfcrawl --renderer http -c 20 https://example.com

  # Collect .docx files into ./out
  pdfcrawl --ext .docx -o ./out https://example.com`,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errMissingURL
			}
			return nil
		},
		RunE: func(c *cobra.Command, args []string) error {
			cfg, err := resolveConfig(c, &flags)
			if err != nil {
				return err
			}
			return run(c.Context(), cfg, args[0])
		},
		// Allow the positional URL even though fang adds subcommands.
		TraverseChildren: true,
	}

	bindFlags(cmd, &flags)

	return cmd
}

func bindFlags(cmd *cobra.Command, flags *config) {
	f := cmd.Flags()
	f.StringVar(&flags.ConfigFile, "config", "", "Config file (default: $XDG_CONFIG_HOME/"+configName+")")
	f.StringVarP(&flags.DownloadsDir, "downloads-dir", "o", flags.DownloadsDir, "Root directory for run directories")
	f.IntVarP(&flags.Concurrency, "concurrency", "c", flags.Concurrency, "Maximum pages loading at once")
	f.DurationVarP(&flags.Timeout, "timeout", "t", flags.Timeout, "Page load timeout")
	f.StringVar(&flags.Extension, "ext", flags.Extension, "Extension of documents to download")
	f.IntVar(&flags.DownloadConcurrency, "download-concurrency", flags.DownloadConcurrency, "Maximum simultaneous downloads (0 = unlimited)")
	f.DurationVar(&flags.DownloadTimeout, "download-timeout", flags.DownloadTimeout, "Timeout per document download (0 = none)")
	f.StringVar(&flags.Renderer, "renderer", flags.Renderer, "Page loader: chrome (runs scripts) or http (static)")
	f.StringVar(&flags.ChromePath, "chrome-path", flags.ChromePath, "Chrome executable (default: auto-detect)")
	f.DurationVar(&flags.Settle, "settle", flags.Settle, "Time scripts get to run after the page is ready (chrome only)")
	f.StringVar(&flags.UserAgent, "user-agent", flags.UserAgent, "User-Agent header for page loads and downloads")
	f.BoolVar(&flags.NoReport, "no-report", flags.NoReport, "Do not write "+output.ReportFile+" into the run directory")
	f.IntVarP(&flags.WordWrap, "word-wrap", "w", flags.WordWrap, "Word wrap width for the terminal summary")
	f.BoolVarP(&flags.Verbose, "verbose", "v", flags.Verbose, "Enable debug logging")
}

func newLogger(verbose bool) *log.Logger {
	logger := log.New(os.Stderr)
	logger.SetLevel(log.InfoLevel)
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

type pageLoader interface {
	crawler.Fetcher
	io.Closer
}

func newFetcher(ctx context.Context, cfg *config) (pageLoader, error) {
	if cfg.Renderer == rendererHTTP {
		return fetch.NewHTTP(cfg.UserAgent), nil
	}
	chrome, err := fetch.NewChrome(ctx, fetch.ChromeOptions{
		ExecPath:  cfg.ChromePath,
		UserAgent: cfg.UserAgent,
		Settle:    cfg.Settle,
	})
	if err != nil {
		return nil, err
	}
	return chrome, nil
}

func run(ctx context.Context, cfg *config, startURL string) error {
	logger := newLogger(cfg.Verbose)
	if cfg.ConfigFile != "" {
		logger.Debug("Loaded config", "path", cfg.ConfigFile)
	}

	// Reject a bad URL before launching a browser or touching the disk.
	if _, err := crawler.NewResolver(startURL, cfg.Extension); err != nil {
		return err
	}

	fetcher, err := newFetcher(ctx, cfg)
	if err != nil {
		return err
	}
	defer fetcher.Close()

	dir, err := output.NewRunDir(cfg.DownloadsDir, time.Now())
	if err != nil {
		return err
	}

	var reserved []string
	if !cfg.NoReport {
		reserved = append(reserved, output.ReportFile)
	}

	summary, runErr := tui.RunWithProgress(ctx, crawler.RunOptions{
		StartURL:            startURL,
		Dir:                 dir,
		Fetcher:             fetcher,
		Concurrency:         cfg.Concurrency,
		LoadTimeout:         cfg.Timeout,
		Extension:           cfg.Extension,
		DownloadConcurrency: cfg.DownloadConcurrency,
		DownloadClient:      &http.Client{Timeout: cfg.DownloadTimeout},
		UserAgent:           cfg.UserAgent,
		ReservedNames:       reserved,
		Logger:              logger,
	})
	if summary == nil {
		return fmt.Errorf("crawl failed: %w", runErr)
	}

	if !cfg.NoReport {
		if path, err := output.SaveReport(summary); err != nil {
			logger.Warn("Could not write report", "err", err)
		} else {
			logger.Debug("Wrote report", "path", path)
		}
	}
	if err := output.RenderTerminal(os.Stdout, summary, cfg.WordWrap); err != nil {
		logger.Warn("Could not render summary", "err", err)
	}

	if runErr != nil {
		logger.Error("An error occurred", "err", runErr)
		return runErr
	}
	logger.Info("Download completed", "dir", dir, "documents", summary.Downloads.Succeeded())
	return nil
}
