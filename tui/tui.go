package tui

import (
	"context"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"strings"
	"time"

	"charm.land/bubbles/v2/progress"
	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"charm.land/log/v2"
	"github.com/charmbracelet/x/ansi"

	"github.com/Gaurav-Gosain/pdfcrawl/crawler"
)

// Tokyo Night palette.
var (
	subtle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#565f89"))
	title     = lipgloss.NewStyle().Foreground(lipgloss.Color("#1a1b26")).Background(lipgloss.Color("#7aa2f7")).Bold(true).Padding(0, 1)
	activeTab = lipgloss.NewStyle().Foreground(lipgloss.Color("#7aa2f7")).Bold(true)
	green     = lipgloss.NewStyle().Foreground(lipgloss.Color("#9ece6a"))
	yellow    = lipgloss.NewStyle().Foreground(lipgloss.Color("#e0af68"))
	red       = lipgloss.NewStyle().Foreground(lipgloss.Color("#f7768e"))
	purple    = lipgloss.NewStyle().Foreground(lipgloss.Color("#bb9af7"))
	statNum   = lipgloss.NewStyle().Foreground(lipgloss.Color("#7dcfff")).Bold(true)
	label     = lipgloss.NewStyle().Foreground(lipgloss.Color("#565f89")).Width(11)
)

// holdDone is how long the finished view stays up before the TUI exits.
const holdDone = 700 * time.Millisecond

// maxActive caps the in-flight list so the log keeps most of the screen.
const maxActive = 5

type (
	crawlEventMsg crawler.Event
	runDoneMsg    struct{}
	finishMsg     struct{}
)

type phase int

const (
	phaseCrawl phase = iota
	phaseDownload
)

func (p phase) String() string {
	if p == phaseDownload {
		return "download"
	}
	return "crawl"
}

type model struct {
	spinner  spinner.Model
	progress progress.Model
	phase    phase
	finished bool
	done     bool
	quit     bool
	width    int
	height   int

	// URLs in flight in the current phase, in start order.
	active []string
	recent []string

	pagesStarted   int
	pagesFinished  int
	pageErrors     int
	docsFound      int
	downloadsBegun int
	downloadsEnded int
	downloadErrors int
	bytesSaved     int64
}

func newModel() model {
	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(activeTab),
	)

	p := progress.New(
		progress.WithColors(lipgloss.Color("#7aa2f7"), lipgloss.Color("#bb9af7")),
		progress.WithWidth(40),
	)

	return model{spinner: s, progress: p}
}

func (m model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.SetWidth(min(max(msg.Width-24, 20), 60))
		return m, nil

	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quit = true
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd

	case crawlEventMsg:
		return m.handleEvent(crawler.Event(msg))

	case runDoneMsg:
		m.finished = true
		m.active = nil
		return m, tea.Batch(
			m.progress.SetPercent(1.0),
			tea.Tick(holdDone, func(time.Time) tea.Msg { return finishMsg{} }),
		)

	case finishMsg:
		m.done = true
		return m, tea.Quit
	}

	return m, nil
}

func (m *model) start(url string) {
	m.active = append(m.active, url)
}

func (m *model) stop(url string) {
	for i, u := range m.active {
		if u == url {
			m.active = append(m.active[:i], m.active[i+1:]...)
			return
		}
	}
}

func (m *model) record(line string) {
	m.recent = append(m.recent, line)
	// Only the tail is ever drawn.
	if len(m.recent) > 200 {
		m.recent = m.recent[len(m.recent)-200:]
	}
}

func (m *model) urlWidth() int {
	if m.width == 0 {
		return 60
	}
	return max(20, m.width-16)
}

func (m model) handleEvent(e crawler.Event) (tea.Model, tea.Cmd) {
	url := ansi.Truncate(e.URL, m.urlWidth(), "...")

	switch e.Type {
	case crawler.EventPageStart:
		m.pagesStarted++
		m.start(e.URL)

	case crawler.EventPageDone:
		m.pagesFinished++
		m.stop(e.URL)

	case crawler.EventPageError:
		m.pagesFinished++
		m.pageErrors++
		m.stop(e.URL)
		m.record(red.Render("✗ page ") + url + " " + subtle.Render(errText(e.Err)))

	case crawler.EventDocumentFound:
		m.docsFound++
		m.record(purple.Render("+ found ") + url)

	case crawler.EventDownloadStart:
		if m.phase == phaseCrawl {
			// Downloads only begin after the crawl settled.
			m.phase = phaseDownload
			m.active = nil
		}
		m.downloadsBegun++
		m.start(e.URL)

	case crawler.EventDownloadDone:
		m.downloadsEnded++
		m.bytesSaved += e.Bytes
		m.stop(e.URL)
		m.record(green.Render("✓ saved ") + ansi.Truncate(e.Path, m.urlWidth(), "..."))

	case crawler.EventDownloadError:
		m.downloadsEnded++
		m.downloadErrors++
		m.stop(e.URL)
		m.record(red.Render("✗ fetch ") + url + " " + subtle.Render(errText(e.Err)))
	}

	return m, m.progress.SetPercent(m.percent())
}

func errText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return ansi.Truncate(err.Error(), 45, "...")
}

func (m model) percent() float64 {
	switch m.phase {
	case phaseDownload:
		if m.docsFound > 0 {
			return float64(m.downloadsEnded) / float64(m.docsFound)
		}
	default:
		if m.pagesStarted > 0 {
			return float64(m.pagesFinished) / float64(m.pagesStarted)
		}
	}
	return 0
}

// tabs renders the phase strip, e.g. "● crawl ─ ○ download".
func (m model) tabs() string {
	var parts []string
	for _, p := range []phase{phaseCrawl, phaseDownload} {
		switch {
		case p < m.phase || (p == m.phase && m.finished):
			parts = append(parts, green.Render("✓ "+p.String()))
		case p == m.phase:
			parts = append(parts, activeTab.Render("● "+p.String()))
		default:
			parts = append(parts, subtle.Render("○ "+p.String()))
		}
	}
	return strings.Join(parts, subtle.Render(" ─ "))
}

func (m model) pageStats() string {
	s := label.Render("pages") +
		statNum.Render(fmt.Sprintf("%d", m.pagesFinished)) +
		subtle.Render(fmt.Sprintf("/%d loaded", m.pagesStarted))
	if m.pageErrors > 0 {
		s += red.Render(fmt.Sprintf("  %d failed", m.pageErrors))
	}
	return s
}

func (m model) docStats() string {
	s := label.Render("documents") +
		purple.Render(fmt.Sprintf("%d found", m.docsFound))
	if m.phase == phaseDownload {
		s += subtle.Render("  ") +
			statNum.Render(fmt.Sprintf("%d", m.downloadsEnded-m.downloadErrors)) +
			subtle.Render(fmt.Sprintf("/%d saved", m.docsFound)) +
			yellow.Render(fmt.Sprintf("  %s", humanBytes(m.bytesSaved)))
		if m.downloadErrors > 0 {
			s += red.Render(fmt.Sprintf("  %d failed", m.downloadErrors))
		}
	}
	return s
}

func humanBytes(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

func (m model) View() tea.View {
	if m.done {
		return tea.NewView("")
	}

	h := m.height
	if h == 0 {
		h = 24
	}

	indicator := m.spinner.View()
	if m.finished {
		indicator = green.Render("✓")
	}

	lines := []string{
		"",
		"  " + title.Render("pdfcrawl") + "  " + m.tabs(),
		"",
		"  " + indicator + " " + m.progress.View(),
		"  " + m.pageStats(),
		"  " + m.docStats(),
		"",
	}

	if len(m.active) > 0 {
		lines = append(lines, subtle.Render(fmt.Sprintf("  in flight (%d)", len(m.active))))
		shown := m.active[:min(len(m.active), maxActive)]
		for _, u := range shown {
			lines = append(lines, subtle.Render("    → ")+ansi.Truncate(u, m.urlWidth(), "..."))
		}
		if rest := len(m.active) - len(shown); rest > 0 {
			lines = append(lines, subtle.Render(fmt.Sprintf("    ...and %d more", rest)))
		}
		lines = append(lines, "")
	}

	if room := h - len(lines) - 1; room > 0 && len(m.recent) > 0 {
		lines = append(lines, subtle.Render("  recent"))
		tail := m.recent[max(0, len(m.recent)-(room-1)):]
		for _, r := range tail {
			lines = append(lines, "    "+r)
		}
	}

	if len(lines) > h {
		lines = lines[:h]
	}

	v := tea.NewView(strings.Join(lines, "\n"))
	v.AltScreen = true
	return v
}

// IsTTY reports whether stderr is connected to a terminal.
func IsTTY() bool {
	fi, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

type runResult struct {
	summary *crawler.Summary
	err     error
}

// RunWithProgress runs a crawl with a TUI progress display.
// Falls back to log-based output when no TTY is available. Quitting the TUI
// cancels the run and returns what was collected so far.
func RunWithProgress(ctx context.Context, opts crawler.RunOptions) (*crawler.Summary, error) {
	if !IsTTY() {
		return runWithLogs(ctx, opts)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	prog := tea.NewProgram(newModel())

	// Mute Go's standard logger and stderr during TUI to prevent
	// library output (chromedp, colly, etc.) from corrupting
	// the Bubble Tea alt screen. Restore after.
	origStdlogOutput := stdlog.Writer()
	stdlog.SetOutput(io.Discard)
	origStderr := os.Stderr
	devNull, _ := os.Open(os.DevNull)
	if devNull != nil {
		os.Stderr = devNull
	}

	opts.Logger = log.New(io.Discard)
	opts.OnEvent = func(e crawler.Event) {
		prog.Send(crawlEventMsg(e))
	}

	results := make(chan runResult, 1)
	go func() {
		summary, err := crawler.Run(ctx, opts)
		results <- runResult{summary: summary, err: err}
		prog.Send(runDoneMsg{})
	}()

	finalModel, err := prog.Run()

	// Restore stderr and standard logger.
	os.Stderr = origStderr
	stdlog.SetOutput(origStdlogOutput)
	if devNull != nil {
		_ = devNull.Close()
	}

	if err != nil {
		cancel()
		<-results
		return nil, fmt.Errorf("TUI error: %w", err)
	}
	if fm, ok := finalModel.(model); ok && fm.quit {
		cancel()
	}

	res := <-results
	return res.summary, res.err
}

func runWithLogs(ctx context.Context, opts crawler.RunOptions) (*crawler.Summary, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stderr)
		logger.SetLevel(log.InfoLevel)
		opts.Logger = logger
	}

	opts.OnEvent = func(e crawler.Event) {
		switch e.Type {
		case crawler.EventPageStart:
			logger.Info("Visiting", "url", e.URL)
		case crawler.EventPageDone:
			logger.Debug("Visited", "url", e.URL)
		case crawler.EventDocumentFound:
			logger.Info("Found", "url", e.URL)
		case crawler.EventDownloadDone:
			logger.Info("Saved", "url", e.URL, "path", e.Path, "bytes", e.Bytes)
		}
		// Page and download errors are logged by the crawler itself.
	}

	summary, err := crawler.Run(ctx, opts)
	if summary != nil {
		logger.Info("Run complete",
			"pages", len(summary.Crawl.Visited),
			"documents", summary.Downloads.Succeeded(),
			"dir", summary.Dir,
		)
	}
	return summary, err
}
