package scan

import (
	"bufio"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"strings"
)

// Entry is one scan in a batch file: the user that scanned and the raw text.
type Entry struct {
	Line     int
	Username string
	Content  string
}

// Loader reads a gzipped batch of scans.
type Loader interface {
	Load(ctx context.Context, path string) ([]Entry, error)
}

// readBatch decodes a gzip stream of "username<TAB>content" lines.
// Blank lines and lines starting with # are skipped.
func readBatch(ctx context.Context, r io.Reader) ([]Entry, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gz.Close()

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	entries := make([]Entry, 0)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo%10_000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}

		username, content, ok := strings.Cut(line, "\t")
		username = strings.TrimSpace(username)
		content = strings.TrimSpace(content)
		if !ok || username == "" || content == "" {
			return nil, fmt.Errorf("line %d: expected username<TAB>content", lineNo)
		}

		entries = append(entries, Entry{Line: lineNo, Username: username, Content: content})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read batch: %w", err)
	}

	return entries, nil
}
