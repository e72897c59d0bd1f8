package crawler

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	t.Parallel()

	t.Run("crawls then downloads", func(t *testing.T) {
		t.Parallel()

		srv, _ := newDocServer(t, 0)
		root := srv.URL + "/"
		site := newFakeSite(map[string][]string{
			root:               {"/about", "/guide.pdf", "https://elsewhere.test/x.pdf"},
			srv.URL + "/about": {"/", "manual.pdf", "/guide.pdf#page=2"},
		})
		dir := t.TempDir()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		summary, err := Run(ctx, RunOptions{
			StartURL:    root,
			Dir:         dir,
			Fetcher:     site,
			Concurrency: 2,
		})
		require.NoError(t, err)
		require.NotNil(t, summary)

		_, err = uuid.Parse(summary.RunID)
		assert.NoError(t, err)
		assert.Equal(t, dir, summary.Dir)
		assert.False(t, summary.FinishedAt.Before(summary.StartedAt))
		assert.Equal(t, []string{srv.URL + "/guide.pdf", srv.URL + "/manual.pdf"}, summary.Crawl.Documents)
		assert.Equal(t, 2, summary.Downloads.Succeeded())

		body, err := os.ReadFile(filepath.Join(dir, "manual.pdf"))
		require.NoError(t, err)
		assert.Equal(t, "%PDF /manual.pdf", string(body))
	})

	t.Run("no documents", func(t *testing.T) {
		t.Parallel()

		root := "https://example.com/"
		site := newFakeSite(map[string][]string{root: {"/a"}, "https://example.com/a": nil})
		dir := t.TempDir()

		summary, err := Run(context.Background(), RunOptions{StartURL: root, Dir: dir, Fetcher: site})
		require.NoError(t, err)
		assert.Empty(t, summary.Crawl.Documents)
		assert.Zero(t, summary.Downloads.Succeeded())

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("invalid start URL", func(t *testing.T) {
		t.Parallel()

		summary, err := Run(context.Background(), RunOptions{
			StartURL: "not a url",
			Dir:      t.TempDir(),
			Fetcher:  newFakeSite(nil),
		})
		assert.Nil(t, summary)
		assert.ErrorIs(t, err, ErrInvalidStartURL)
	})

	t.Run("cancelled crawl skips downloads", func(t *testing.T) {
		t.Parallel()

		srv, _ := newDocServer(t, 0)
		root := srv.URL + "/"
		site := newFakeSite(map[string][]string{root: {"/doc.pdf", "/slow"}})
		site.hang[srv.URL+"/slow"] = true
		dir := t.TempDir()

		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()
		summary, err := Run(ctx, RunOptions{
			StartURL:    root,
			Dir:         dir,
			Fetcher:     site,
			LoadTimeout: time.Minute,
		})
		require.ErrorIs(t, err, context.DeadlineExceeded)
		require.NotNil(t, summary)
		assert.Equal(t, []string{srv.URL + "/doc.pdf"}, summary.Crawl.Documents)
		assert.NoFileExists(t, filepath.Join(dir, "doc.pdf"))
	})
}
