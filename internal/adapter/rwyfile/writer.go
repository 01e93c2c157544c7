// Package rwyfile rewrites the active runway lines of controller client
// .rwy files.
package rwyfile

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/vatnor/runway-selector/internal/domain"
	"github.com/vatnor/runway-selector/internal/observability"
)

// Writer applies assignments to every *.rwy file in a directory.
// It implements pipeline.RunwaySink.
type Writer struct {
	dir     string
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewWriter creates a Writer for dir.
func NewWriter(dir string, metrics *observability.Metrics, logger *slog.Logger) *Writer {
	return &Writer{dir: dir, metrics: metrics, logger: logger}
}

// Files lists the .rwy files the writer would touch.
func (w *Writer) Files() ([]string, error) {
	files, err := filepath.Glob(filepath.Join(w.dir, "*.rwy"))
	if err != nil {
		return nil, fmt.Errorf("list rwy files: %w", err)
	}
	return files, nil
}

// WriteAssignments replaces the ACTIVE_RUNWAY lines of each assigned airport
// in every .rwy file. Lines for other airports are left untouched.
func (w *Writer) WriteAssignments(ctx context.Context, assignments []domain.Assignment) error {
	if len(assignments) == 0 {
		return nil
	}
	files, err := w.Files()
	if err != nil {
		return err
	}
	if len(files) == 0 {
		w.logger.Warn("no .rwy files found", "dir", w.dir)
		return nil
	}

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := rewrite(path, assignments); err != nil {
			return err
		}
		w.metrics.RwyFilesWritten.Inc()
		w.logger.Debug("rwy file updated", "path", path, "airports", len(assignments))
	}
	return nil
}

func rewrite(path string, assignments []domain.Assignment) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	out := Apply(data, assignments)

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".rwy-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after a successful rename

	if _, err := tmp.Write(out); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), info.Mode().Perm()); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// Apply returns content with the assigned airports' ACTIVE_RUNWAY lines
// replaced. Departure lines end in ":1" and arrival lines in ":0". New lines
// use CRLF when the file already does.
func Apply(content []byte, assignments []domain.Assignment) []byte {
	prefixes := make([]string, len(assignments))
	for i, a := range assignments {
		prefixes[i] = "ACTIVE_RUNWAY:" + a.ICAO + ":"
	}
	eol := "\n"
	if bytes.Contains(content, []byte("\r\n")) {
		eol = "\r\n"
	}

	var buf bytes.Buffer
	buf.Grow(len(content))
	lines := bytes.Split(content, []byte("\n"))
	if n := len(lines); len(lines[n-1]) == 0 {
		lines = lines[:n-1]
	}
	for _, line := range lines {
		if hasAnyPrefix(string(line), prefixes) {
			continue
		}
		buf.Write(line)
		if !bytes.HasSuffix(line, []byte("\r")) && eol == "\r\n" {
			buf.WriteByte('\r')
		}
		buf.WriteByte('\n')
	}

	for _, a := range assignments {
		for _, r := range a.Departure {
			fmt.Fprintf(&buf, "ACTIVE_RUNWAY:%s:%s:1%s", a.ICAO, r, eol)
		}
		for _, r := range a.Arrival {
			fmt.Fprintf(&buf, "ACTIVE_RUNWAY:%s:%s:0%s", a.ICAO, r, eol)
		}
	}
	return buf.Bytes()
}

func hasAnyPrefix(line string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}
