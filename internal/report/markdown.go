package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"

	"github.com/v0xg/menucrawl/internal/crawler"
	"github.com/v0xg/menucrawl/internal/menu"
)

// MarkdownWriter outputs the menu as a document: one section per day, one
// subsection per dining period and a table per station.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

func (w *MarkdownWriter) Write(snap *menu.Snapshot, rep *crawler.Report) error {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, snap, rep)
	for _, d := range snap.Days {
		w.writeDay(md, d)
	}

	return md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, snap *menu.Snapshot, rep *crawler.Report) {
	md.H1("Menu")
	md.PlainText("")

	rows := [][]string{
		{"Site", markdown.Code(snap.Site)},
		{"Captured", snap.CapturedAt.Format("2006-01-02 15:04:05 MST")},
		{"Days", strconv.Itoa(len(snap.Days))},
		{"Foods", strconv.Itoa(snap.FoodCount())},
		{"Status", status(rep)},
	}
	md.Table(markdown.TableSet{Header: []string{"Property", "Value"}, Rows: rows})
	md.PlainText("")

	if rep != nil && len(rep.Days.Missing) > 0 {
		md.Warning("Not all days were scraped: " + strings.Join(rep.Days.Missing, ", "))
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeDay(md *markdown.Markdown, d menu.DayMenu) {
	md.H2(d.Label)
	md.PlainText("")

	if len(d.Periods) == 0 {
		md.Note("No dining periods were listed for this day.")
		md.PlainText("")
		return
	}

	for _, p := range d.Periods {
		md.H3(p.Label)
		md.PlainText("")
		for _, st := range p.Stations {
			md.PlainText(markdown.Bold(st.Label))
			md.PlainText("")
			md.Table(markdown.TableSet{
				Header: []string{"Food", "Calories", "Description", "Tags"},
				Rows:   foodRows(st.Foods),
			})
			md.PlainText("")
		}
	}
}

func foodRows(foods []menu.Food) [][]string {
	rows := make([][]string, 0, len(foods))
	for _, f := range foods {
		rows = append(rows, []string{f.Name, calories(f), f.Description, strings.Join(f.Tags, ", ")})
	}
	return rows
}
