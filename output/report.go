package output

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"charm.land/glamour/v2"
	"github.com/nao1215/markdown"

	"github.com/Gaurav-Gosain/pdfcrawl/crawler"
)

// ReportFile is the name of the run report written into the run directory.
const ReportFile = "report.md"

// WriteReport writes a markdown summary of the run to w.
func WriteReport(w io.Writer, s *crawler.Summary) error {
	md := markdown.NewMarkdown(w)

	md.H1("pdfcrawl run report")
	md.PlainText("")
	writeOverview(md, s)
	writeDownloads(md, s)
	writeFailedPages(md, s)

	return md.Build()
}

// SaveReport writes the report to ReportFile inside the run directory and
// returns its path. An existing file of that name is never overwritten.
func SaveReport(s *crawler.Summary) (string, error) {
	path := filepath.Join(s.Dir, ReportFile)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create report: %w", err)
	}
	if err := WriteReport(f, s); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}

// RenderTerminal renders the run report to w using glamour.
func RenderTerminal(w io.Writer, s *crawler.Summary, wordWrap int) error {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithEnvironmentConfig(),
		glamour.WithWordWrap(wordWrap),
	)
	if err != nil {
		return fmt.Errorf("failed to create renderer: %w", err)
	}

	var buf bytes.Buffer
	if err := WriteReport(&buf, s); err != nil {
		return err
	}
	rendered, err := renderer.Render(buf.String())
	if err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	_, err = io.WriteString(w, rendered)
	return err
}

func writeOverview(md *markdown.Markdown, s *crawler.Summary) {
	var visited, failed, found int
	if s.Crawl != nil {
		visited = len(s.Crawl.Visited)
		failed = len(s.Crawl.Failed)
		found = len(s.Crawl.Documents)
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run", "`" + s.RunID + "`"},
			{"Start URL", s.StartURL},
			{"Origin", s.Origin.String()},
			{"Directory", "`" + s.Dir + "`"},
			{"Started", s.StartedAt.Format(time.RFC3339)},
			{"Duration", s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond).String()},
			{"Pages visited", strconv.Itoa(visited)},
			{"Pages failed", strconv.Itoa(failed)},
			{"Documents found", strconv.Itoa(found)},
			{"Documents saved", strconv.Itoa(s.Downloads.Succeeded())},
		},
	})
	md.PlainText("")
}

func writeDownloads(md *markdown.Markdown, s *crawler.Summary) {
	md.H2("Documents")
	md.PlainText("")

	if s.Downloads == nil || len(s.Downloads.Downloads) == 0 {
		md.PlainText("No documents found.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(s.Downloads.Downloads))
	for _, d := range s.Downloads.Downloads {
		status := "saved"
		if d.Err != nil {
			status = "failed: " + escapeCell(d.Err.Error())
		}
		rows = append(rows, []string{
			d.URL,
			"`" + filepath.Base(d.Path) + "`",
			formatBytes(d.Bytes),
			status,
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Document", "File", "Size", "Status"},
		Rows:   rows,
	})
	md.PlainText("")
}

func writeFailedPages(md *markdown.Markdown, s *crawler.Summary) {
	if s.Crawl == nil || len(s.Crawl.Failed) == 0 {
		return
	}

	md.H2("Failed pages")
	md.PlainText("")

	rows := make([][]string, 0, len(s.Crawl.Failed))
	for _, f := range s.Crawl.Failed {
		rows = append(rows, []string{f.URL, escapeCell(f.Err.Error())})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Page", "Error"},
		Rows:   rows,
	})
	md.PlainText("")
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", `\|`)
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
