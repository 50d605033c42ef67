package report

import (
	"encoding/json"
	"io"

	"github.com/v0xg/menucrawl/internal/crawler"
	"github.com/v0xg/menucrawl/internal/menu"
)

// Document is the JSON shape of an exported crawl
type Document struct {
	*menu.Snapshot
	Report *crawler.Report `json:"report,omitempty"`
}

// JSONWriter outputs the snapshot for tool integration.
type JSONWriter struct {
	baseWriter

	indent       bool
	indentPrefix string
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *JSONWriter) Write(snap *menu.Snapshot, rep *crawler.Report) error {
	enc := json.NewEncoder(w.output)
	if w.indent {
		enc.SetIndent(w.indentPrefix, w.indentString)
	}
	return enc.Encode(Document{Snapshot: snap, Report: rep})
}
