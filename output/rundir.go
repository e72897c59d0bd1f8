package output

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultRoot is the directory run directories are created in.
const DefaultRoot = "downloads"

var stampReplacer = strings.NewReplacer(":", "-", ".", "-")

// RunDirName formats t as an ISO-8601 UTC timestamp with millisecond
// precision, with ':' and '.' replaced by '-' so it is a valid file name on
// every platform (2026-10-18T09-15-02-123Z).
func RunDirName(t time.Time) string {
	return stampReplacer.Replace(t.UTC().Format("2006-01-02T15:04:05.000Z"))
}

// NewRunDir creates root if needed and a fresh timestamped directory inside
// it. Two runs never share a directory: when the name is taken a numeric
// suffix is added.
func NewRunDir(root string, now time.Time) (string, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", fmt.Errorf("failed to create downloads directory: %w", err)
	}

	base := filepath.Join(root, RunDirName(now))
	dir := base
	for i := 1; ; i++ {
		err := os.Mkdir(dir, 0o755)
		if err == nil {
			return dir, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("failed to create run directory: %w", err)
		}
		dir = fmt.Sprintf("%s-%d", base, i)
	}
}
