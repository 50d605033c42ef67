package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/v0xg/menucrawl/internal/crawler"
	"github.com/v0xg/menucrawl/internal/menu"
)

// TableWriter renders the menu as terminal tables, one per day.
type TableWriter struct {
	baseWriter
}

// NewTableWriter creates a TableWriter that outputs to the given writer.
func NewTableWriter(output io.Writer) *TableWriter {
	return &TableWriter{baseWriter: newBaseWriter(output)}
}

func newTable(output io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(output)
	return t
}

func (w *TableWriter) Write(snap *menu.Snapshot, rep *crawler.Report) error {
	for _, d := range snap.Days {
		t := newTable(w.output)
		t.SetTitle(d.Label)
		t.AppendHeader(table.Row{"Period", "Station", "Food", "Calories", "Tags"})
		t.SetColumnConfigs([]table.ColumnConfig{
			{Number: 1, AutoMerge: true},
			{Number: 2, AutoMerge: true},
			{Number: 4, Align: text.AlignRight},
		})

		n := 0
		for _, p := range d.Periods {
			for _, st := range p.Stations {
				for _, f := range st.Foods {
					t.AppendRow(table.Row{p.Label, st.Label, f.Name, calories(f), strings.Join(f.Tags, ", ")})
					n++
				}
			}
		}
		t.AppendFooter(table.Row{"", "", fmt.Sprintf("%d foods", n), "", ""})
		t.Render()

		if _, err := fmt.Fprintln(w.output); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintf(w.output, "%s: %d day(s), %d foods, %s\n", snap.Site, len(snap.Days), snap.FoodCount(), status(rep))
	return err
}
