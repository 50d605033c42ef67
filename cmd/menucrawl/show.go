package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/v0xg/menucrawl/internal/config"
	"github.com/v0xg/menucrawl/internal/report"
	"github.com/v0xg/menucrawl/internal/store"
)

var (
	showDay     string
	showStation string
	showFormat  string
	showSite    string
	historyN    int
)

func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [run-id]",
		Short: "Print an archived snapshot (latest by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runShow,
	}
	cmd.Flags().StringVar(&showDay, "day", "", `Only this day, e.g. "18 Tue"`)
	cmd.Flags().StringVar(&showStation, "station", "", "Only this station (approximate names are accepted)")
	cmd.Flags().StringVar(&showFormat, "format", config.DefaultFormat, "Output format: json, markdown, table")
	cmd.Flags().StringVar(&showSite, "site", "", "Latest run of this site instead of any site")
	return cmd
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List archived runs",
		Args:  cobra.NoArgs,
		RunE:  runHistory,
	}
	cmd.Flags().IntVarP(&historyN, "limit", "n", 20, "Number of runs to list")
	return cmd
}

func openArchive() (*store.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	st, err := store.Open(cfg.Store.Dir, store.Options{})
	if err != nil {
		if errors.Is(err, store.ErrNoRuns) {
			return nil, fmt.Errorf("%w: crawl with --save first", err)
		}
		return nil, err
	}
	return st, nil
}

func runShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	st, err := openArchive()
	if err != nil {
		return err
	}
	defer st.Close()

	var run *store.Run
	if len(args) > 0 {
		run, err = st.GetRun(ctx, args[0])
	} else {
		run, err = st.LatestRun(ctx, showSite)
	}
	if err != nil {
		return err
	}
	logVerbose("Run %s captured %s", run.ID, run.CapturedAt.Local().Format(time.RFC1123))

	station := ""
	if showStation != "" {
		m, err := st.FindStation(ctx, run.ID, showStation)
		if err != nil {
			return err
		}
		if m.Label != showStation {
			fmt.Fprintf(os.Stderr, "→ Showing station %q (%.0f%% match)\n", m.Label, m.Similarity*100)
		}
		station = m.Label
	}

	w, err := report.New(showFormat, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	return w.Write(run.Snapshot.Filter(showDay, station), nil)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	st, err := openArchive()
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.ListRuns(cmd.Context(), historyN)
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(cmd.OutOrStdout())
	t.AppendHeader(table.Row{"ID", "Site", "Captured", "Days", "Foods", "Status"})
	for _, r := range runs {
		status := "complete"
		switch {
		case r.Shortfall > 0:
			status = fmt.Sprintf("partial (%d missing)", r.Shortfall)
		case !r.Complete:
			status = "interrupted"
		}
		t.AppendRow(table.Row{r.ID[:8], r.Site, r.CapturedAt.Local().Format("2006-01-02 15:04"), r.Days, r.Foods, status})
	}
	t.Render()
	return nil
}
