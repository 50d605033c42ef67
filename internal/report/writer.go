package report

import (
	"fmt"
	"io"

	"github.com/v0xg/menucrawl/internal/crawler"
	"github.com/v0xg/menucrawl/internal/menu"
)

// Writer outputs a crawled menu in one format.
type Writer interface {
	// Write renders snap. rep may be nil when the snapshot was loaded from
	// the archive rather than crawled.
	Write(snap *menu.Snapshot, rep *crawler.Report) error
}

// Formats lists the names accepted by New
var Formats = []string{"json", "markdown", "table"}

// New returns the Writer for format
func New(format string, output io.Writer) (Writer, error) {
	switch format {
	case "json":
		return NewJSONWriter(output, WithIndent("", "  ")), nil
	case "markdown", "md":
		return NewMarkdownWriter(output), nil
	case "table":
		return NewTableWriter(output), nil
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

func status(rep *crawler.Report) string {
	switch {
	case rep == nil:
		return "archived"
	case rep.Interrupted:
		return "interrupted (partial results)"
	case rep.Shortfall > 0:
		return fmt.Sprintf("partial: %d day(s) missing", rep.Shortfall)
	default:
		return "complete"
	}
}

func calories(f menu.Food) string {
	if f.Calories == 0 {
		return ""
	}
	return fmt.Sprintf("%d", f.Calories)
}
