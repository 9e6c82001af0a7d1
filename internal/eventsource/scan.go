// Package eventsource recovers balance events from service log files.
package eventsource

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/cleared-dev/ledgeraudit/internal/model"
)

var gzipMagic = []byte{0x1f, 0x8b}

// logExts are the file extensions Scan reads.
var logExts = []string{".log", ".txt", ".gz"}

// Options configures Scan.
type Options struct {
	Logger *slog.Logger
}

// FileInfo describes a log file found under the scan root.
type FileInfo struct {
	Path string
	Size int64
}

// Files returns the candidate log files under dir, in lexical order.
func Files(dir string) ([]FileInfo, error) {
	var files []FileInfo
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isLogFile(d.Name()) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}
		files = append(files, FileInfo{Path: path, Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking log dir: %w", err)
	}
	return files, nil
}

func isLogFile(name string) bool {
	name = strings.ToLower(name)
	return slices.ContainsFunc(logExts, func(ext string) bool { return strings.HasSuffix(name, ext) })
}

// Scan parses every log file under dir and returns the normalized events
// sorted by (userId, timestamp, id, messageId). Events without a timestamp
// sort first within their user. Files that cannot be read are logged and
// skipped.
func Scan(ctx context.Context, dir string, opts Options) ([]model.Event, error) {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving log dir: %w", err)
	}
	log.Info("scanning log directory", "dir", abs)

	files, err := Files(abs)
	if err != nil {
		return nil, err
	}

	var events []model.Event
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		evs, err := parseFile(f.Path)
		if err != nil {
			log.Warn("skipping log file", "path", f.Path, "error", err)
			continue
		}
		log.Debug("parsed log file", "path", f.Path, "bytes", f.Size, "events", len(evs))
		events = append(events, evs...)
	}

	normalize(events)
	log.Info("parsed events", "dir", abs, "files", len(files), "events", len(events))
	return events, nil
}

func parseFile(path string) ([]model.Event, error) {
	rc, err := open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return Parse(rc)
}

// open returns a reader over the file, decompressing it when it starts
// with the gzip magic number whatever its extension.
func open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	br := bufio.NewReader(f)
	magic, _ := br.Peek(len(gzipMagic))
	if !bytes.Equal(magic, gzipMagic) {
		return readCloser{Reader: br, closers: []io.Closer{f}}, nil
	}
	zr, err := gzip.NewReader(br)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("opening gzip %s: %w", path, err)
	}
	return readCloser{Reader: zr, closers: []io.Closer{zr, f}}, nil
}

type readCloser struct {
	io.Reader
	closers []io.Closer
}

func (r readCloser) Close() error {
	var first error
	for _, c := range r.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// normalize fills defaults, upper-cases type and source, and sorts.
func normalize(events []model.Event) {
	for i := range events {
		e := &events[i]
		if strings.TrimSpace(e.Currency) == "" {
			e.Currency = model.UnknownCurrency
		}
		e.Type = strings.ToUpper(e.Type)
		e.Source = strings.ToUpper(e.Source)
	}
	slices.SortStableFunc(events, func(a, b model.Event) int {
		return cmpOr(
			strings.Compare(a.UserID, b.UserID),
			a.Timestamp.Compare(b.Timestamp),
			strings.Compare(a.ID, b.ID),
			strings.Compare(a.MessageID, b.MessageID),
		)
	})
}

// cmpOr returns the first non-zero comparison result, or 0
// (equivalent to cmp.Or for ints, which requires Go 1.22).
func cmpOr(vals ...int) int {
	for _, v := range vals {
		if v != 0 {
			return v
		}
	}
	return 0
}
