package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Gaurav-Gosain/pdfcrawl/crawler"
	"github.com/Gaurav-Gosain/pdfcrawl/fetch"
	"github.com/Gaurav-Gosain/pdfcrawl/output"
)

const (
	rendererChrome = "chrome"
	rendererHTTP   = "http"

	// configName is looked up relative to the XDG config directories.
	configName = "pdfcrawl/config.yaml"
)

type config struct {
	ConfigFile          string        `yaml:"-"`
	DownloadsDir        string        `yaml:"downloads_dir"`
	Concurrency         int           `yaml:"concurrency"`
	Timeout             time.Duration `yaml:"timeout"`
	Extension           string        `yaml:"extension"`
	DownloadConcurrency int           `yaml:"download_concurrency"`
	DownloadTimeout     time.Duration `yaml:"download_timeout"`
	Renderer            string        `yaml:"renderer"`
	ChromePath          string        `yaml:"chrome_path"`
	Settle              time.Duration `yaml:"settle"`
	UserAgent           string        `yaml:"user_agent"`
	NoReport            bool          `yaml:"no_report"`
	WordWrap            int           `yaml:"word_wrap"`
	Verbose             bool          `yaml:"verbose"`
}

func defaultConfig() config {
	return config{
		DownloadsDir:    output.DefaultRoot,
		Concurrency:     crawler.DefaultConcurrency,
		Timeout:         crawler.DefaultLoadTimeout,
		Extension:       crawler.DefaultExtension,
		DownloadTimeout: crawler.DefaultDownloadTimeout,
		Renderer:        rendererChrome,
		Settle:          fetch.DefaultSettle,
		WordWrap:        80,
	}
}

// findConfigFile returns the explicit path if given, otherwise the first
// config.yaml found in the XDG config directories, or "" when there is none.
func findConfigFile(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file: %w", err)
		}
		return explicit, nil
	}
	path, err := xdg.SearchConfigFile(configName)
	if err != nil {
		return "", nil
	}
	return path, nil
}

// loadConfigFile overlays the YAML file at path onto cfg. Keys missing from
// the file keep their current value.
func loadConfigFile(path string, cfg *config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

// resolveConfig builds the effective configuration: defaults, then the config
// file, then every flag the user set explicitly.
func resolveConfig(c *cobra.Command, flags *config) (*config, error) {
	cfg := defaultConfig()

	path, err := findConfigFile(flags.ConfigFile)
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := loadConfigFile(path, &cfg); err != nil {
			return nil, err
		}
		cfg.ConfigFile = path
	}

	changed := c.Flags().Changed
	if changed("downloads-dir") {
		cfg.DownloadsDir = flags.DownloadsDir
	}
	if changed("concurrency") {
		cfg.Concurrency = flags.Concurrency
	}
	if changed("timeout") {
		cfg.Timeout = flags.Timeout
	}
	if changed("ext") {
		cfg.Extension = flags.Extension
	}
	if changed("download-concurrency") {
		cfg.DownloadConcurrency = flags.DownloadConcurrency
	}
	if changed("download-timeout") {
		cfg.DownloadTimeout = flags.DownloadTimeout
	}
	if changed("renderer") {
		cfg.Renderer = flags.Renderer
	}
	if changed("chrome-path") {
		cfg.ChromePath = flags.ChromePath
	}
	if changed("settle") {
		cfg.Settle = flags.Settle
	}
	if changed("user-agent") {
		cfg.UserAgent = flags.UserAgent
	}
	if changed("no-report") {
		cfg.NoReport = flags.NoReport
	}
	if changed("word-wrap") {
		cfg.WordWrap = flags.WordWrap
	}
	if changed("verbose") {
		cfg.Verbose = flags.Verbose
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *config) validate() error {
	var errs []error
	if c.Concurrency <= 0 {
		errs = append(errs, fmt.Errorf("concurrency must be positive, got %d", c.Concurrency))
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %s", c.Timeout))
	}
	if c.DownloadConcurrency < 0 {
		errs = append(errs, fmt.Errorf("download concurrency must not be negative, got %d", c.DownloadConcurrency))
	}
	if c.DownloadTimeout < 0 {
		errs = append(errs, fmt.Errorf("download timeout must not be negative, got %s", c.DownloadTimeout))
	}
	if c.Extension == "" {
		errs = append(errs, errors.New("extension must not be empty"))
	}
	if c.DownloadsDir == "" {
		errs = append(errs, errors.New("downloads directory must not be empty"))
	}
	switch c.Renderer {
	case rendererChrome, rendererHTTP:
	default:
		errs = append(errs, fmt.Errorf("unknown renderer %q (want %q or %q)", c.Renderer, rendererChrome, rendererHTTP))
	}
	return errors.Join(errs...)
}
