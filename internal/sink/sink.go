// Package sink renders and stores finished scan reports.
package sink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/wonny/patternscan/internal/contracts"
)

// Output formats
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatHTML = "html"
)

// RenderFunc writes a report in one presentation format
type RenderFunc func(w io.Writer, r *contracts.Report) error

// RendererFor returns the renderer of a format name
func RendererFor(format string) (RenderFunc, error) {
	switch format {
	case FormatText, "":
		return RenderText, nil
	case FormatJSON:
		return RenderJSON, nil
	case FormatHTML:
		return RenderHTML, nil
	default:
		return nil, fmt.Errorf("unknown output format %q (text|json|html)", format)
	}
}

// WriterSink renders reports onto an io.Writer
type WriterSink struct {
	w      io.Writer
	render RenderFunc
}

// NewWriter creates a sink writing to w
func NewWriter(w io.Writer, render RenderFunc) *WriterSink {
	return &WriterSink{w: w, render: render}
}

// Write renders the report
func (s *WriterSink) Write(ctx context.Context, r *contracts.Report) error {
	return s.render(s.w, r)
}

// FileSink renders reports into a file, replacing it atomically
type FileSink struct {
	path        string
	render      RenderFunc
	perStrategy bool
}

// NewFile creates a sink writing to path
func NewFile(path string, render RenderFunc) *FileSink {
	return &FileSink{path: path, render: render}
}

// NewStrategyFile creates a sink that keeps one file per strategy,
// see StrategyPath
func NewStrategyFile(path string, render RenderFunc) *FileSink {
	return &FileSink{path: path, render: render, perStrategy: true}
}

// StrategyPath inserts the strategy id before the extension:
// scan_report.html → scan_report_ma5.html
func StrategyPath(path, strategy string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_" + strategy + ext
}

// Path returns the output path of a report
func (s *FileSink) Path(r *contracts.Report) string {
	if s.perStrategy {
		return StrategyPath(s.path, r.Strategy)
	}
	return s.path
}

// Write renders into path.tmp and renames it over path
func (s *FileSink) Write(ctx context.Context, r *contracts.Report) error {
	path := s.Path(r)
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := s.render(f, r); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("render report: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// Multi fans one report out to several sinks
type Multi []contracts.ResultSink

// Write calls every sink and joins their errors; one failing sink does
// not stop the others
func (m Multi) Write(ctx context.Context, r *contracts.Report) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, r); err != nil {
			errs = append(errs, fmt.Errorf("%T: %w", s, err))
		}
	}
	return errors.Join(errs...)
}
