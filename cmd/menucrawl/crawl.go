package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/v0xg/menucrawl/internal/annotate"
	"github.com/v0xg/menucrawl/internal/browser"
	"github.com/v0xg/menucrawl/internal/config"
	"github.com/v0xg/menucrawl/internal/crawler"
	"github.com/v0xg/menucrawl/internal/menu"
	"github.com/v0xg/menucrawl/internal/report"
	"github.com/v0xg/menucrawl/internal/sitesim"
	"github.com/v0xg/menucrawl/internal/store"
	"github.com/v0xg/menucrawl/internal/telemetry"
)

var (
	fixture        string
	output         string
	format         string
	save           bool
	annotateWith   string
	model          string
	diagnosticsDir string
	profile        string
	headless       bool
)

func newCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [url]",
		Short: "Crawl the menu page and print the snapshot",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runCrawl,
	}

	cmd.Flags().StringVar(&fixture, "fixture", "", "Crawl a saved HTML fixture instead of launching a browser")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().StringVar(&format, "format", config.DefaultFormat, "Output format: json, markdown, table")
	cmd.Flags().BoolVar(&save, "save", false, "Archive the snapshot in the run database")
	cmd.Flags().StringVar(&annotateWith, "annotate", "", "Add dietary tags with an AI provider: claude, openai")
	cmd.Flags().StringVar(&model, "model", "", "Specific model override")
	cmd.Flags().StringVar(&diagnosticsDir, "diagnostics-dir", "", "Save a screenshot whenever a wait times out")
	cmd.Flags().StringVar(&profile, "profile", "", "Chrome/Chromium profile directory for authenticated sessions (close browser first)")
	cmd.Flags().BoolVar(&headless, "headless", true, "Run the browser without a window")
	return cmd
}

// applyCrawlFlags overrides config values with the flags set on the command line
func applyCrawlFlags(cmd *cobra.Command, cfg *config.Config, args []string) {
	flags := cmd.Flags()
	if len(args) > 0 {
		cfg.Site = args[0]
	}
	if flags.Changed("output") {
		cfg.Output.Path = output
	}
	if flags.Changed("format") {
		cfg.Output.Format = format
	}
	if flags.Changed("save") {
		cfg.Store.Save = save
	}
	if flags.Changed("annotate") {
		cfg.Annotate.Provider = annotateWith
	}
	if flags.Changed("model") {
		cfg.Annotate.Model = model
	}
	if flags.Changed("diagnostics-dir") {
		cfg.Output.DiagnosticsDir = diagnosticsDir
	}
	if flags.Changed("profile") {
		cfg.Browser.ProfileDir = profile
	}
	if flags.Changed("headless") {
		cfg.Browser.Show = !headless
	}
}

func runCrawl(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyCrawlFlags(cmd, cfg, args)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	logger := slog.Default()

	tel, err := telemetry.Setup(ctx, telemetry.Config{
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Headers:     cfg.Telemetry.Headers,
		ServiceName: cfg.Telemetry.ServiceName,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("telemetry setup failed: %w", err)
	}
	defer func() {
		if err := tel.Shutdown(context.Background()); err != nil {
			logger.Warn("failed to flush traces", "err", err)
		}
	}()

	// Progress shares stdout only when the report goes to a file.
	var progress io.Writer = os.Stdout
	if cfg.Output.Path == "" {
		progress = os.Stderr
	}

	logVerbose("Starting menucrawl %s", version)
	logVerbose("  Site: %s", cfg.Site)
	logVerbose("  Format: %s", cfg.Output.Format)

	// Step 1: Open the menu page
	page, closePage, err := openPage(ctx, cfg, progress, logger)
	if err != nil {
		return err
	}
	defer closePage()

	// Step 2: Walk every day, period and station
	fmt.Fprint(progress, "→ Crawling menu... ")
	c := crawler.New(page, cfg.Crawler(), crawler.WithLogger(logger), crawler.WithSite(cfg.Site))
	snap, rep := c.Run(ctx)
	switch {
	case rep.Interrupted:
		fmt.Fprintf(progress, "interrupted (%d days, %d foods)\n", len(snap.Days), snap.FoodCount())
	case rep.Shortfall > 0:
		fmt.Fprintf(progress, "partial (%d days, %d foods, missing %v)\n", len(snap.Days), snap.FoodCount(), rep.Days.Missing)
	default:
		fmt.Fprintf(progress, "done (%d days, %d foods in %s)\n", len(snap.Days), snap.FoodCount(), rep.Duration.Round(time.Millisecond))
	}

	// Step 3: Optional dietary tags
	if cfg.Annotate.Provider != "" && ctx.Err() == nil {
		snap, err = annotateSnapshot(ctx, cfg, snap, progress, logger)
		if err != nil {
			return err
		}
	}

	// Step 4: Write the report
	if err := writeReport(cfg, snap, &rep, progress); err != nil {
		return err
	}

	// Step 5: Archive
	if cfg.Store.Save {
		if err := saveRun(context.WithoutCancel(ctx), cfg, snap, &rep, progress); err != nil {
			return err
		}
	}
	return nil
}

func openPage(ctx context.Context, cfg *config.Config, progress io.Writer, logger *slog.Logger) (crawler.Page, func(), error) {
	if fixture != "" {
		fmt.Fprintf(progress, "→ Loading fixture %s... ", fixture)
		fx, err := sitesim.LoadFile(fixture)
		if err != nil {
			fmt.Fprintln(progress, "failed")
			return nil, nil, fmt.Errorf("load fixture: %w", err)
		}
		fmt.Fprintf(progress, "done (%d days)\n", len(fx.Days))
		if cfg.Site == config.DefaultSite {
			abs, _ := filepath.Abs(fixture)
			cfg.Site = "file://" + abs
		}
		return sitesim.New(fx, cfg.Selectors), func() {}, nil
	}

	fmt.Fprintf(progress, "→ Opening %s... ", cfg.Site)
	b, err := browser.Launch(ctx, cfg.Site, browser.Options{
		Width:          cfg.Browser.Width,
		Height:         cfg.Browser.Height,
		Timeout:        cfg.Timeouts.Load.Std(),
		Headless:       !cfg.Browser.Show,
		ProfileDir:     cfg.Browser.ProfileDir,
		ReadySelector:  cfg.Selectors.Day,
		DiagnosticsDir: cfg.Output.DiagnosticsDir,
		Logger:         logger,
	})
	if err != nil {
		fmt.Fprintln(progress, "failed")
		return nil, nil, fmt.Errorf("open menu page failed: %w", err)
	}
	info, err := b.Info(ctx)
	if err != nil {
		logger.Debug("page info unavailable", "err", err)
	}
	fmt.Fprintf(progress, "done (%s)\n", info.Title)
	logVerbose("  URL: %s", info.URL)

	return b, func() {
		if err := b.Close(); err != nil {
			logger.Debug("close browser", "err", err)
		}
	}, nil
}

func annotateSnapshot(ctx context.Context, cfg *config.Config, snap *menu.Snapshot, progress io.Writer, logger *slog.Logger) (*menu.Snapshot, error) {
	fmt.Fprintf(progress, "→ Tagging foods via %s... ", cfg.Annotate.Provider)
	p, err := annotate.NewProvider(cfg.Annotate.Provider, cfg.Annotate.Model)
	if err != nil {
		fmt.Fprintln(progress, "failed")
		return nil, fmt.Errorf("AI provider init failed: %w", err)
	}
	tagged, err := annotate.Apply(ctx, p, snap, annotate.Options{Logger: logger})
	if err != nil {
		fmt.Fprintln(progress, "failed")
		return nil, fmt.Errorf("annotation failed: %w", err)
	}
	fmt.Fprintf(progress, "done (%d distinct foods)\n", len(annotate.Items(snap)))
	return tagged, nil
}

func writeReport(cfg *config.Config, snap *menu.Snapshot, rep *crawler.Report, progress io.Writer) error {
	if cfg.Output.Path == "" {
		return renderReport(cfg.Output.Format, os.Stdout, snap, rep)
	}

	fmt.Fprintf(progress, "→ Writing %s... ", cfg.Output.Path)
	f, err := os.Create(cfg.Output.Path)
	if err != nil {
		fmt.Fprintln(progress, "failed")
		return fmt.Errorf("create output: %w", err)
	}
	if err := renderReport(cfg.Output.Format, f, snap, rep); err != nil {
		_ = f.Close()
		fmt.Fprintln(progress, "failed")
		return err
	}
	if err := f.Close(); err != nil {
		fmt.Fprintln(progress, "failed")
		return fmt.Errorf("close output: %w", err)
	}
	fmt.Fprintln(progress, "done")
	return nil
}

func renderReport(format string, out io.Writer, snap *menu.Snapshot, rep *crawler.Report) error {
	w, err := report.New(format, out)
	if err != nil {
		return err
	}
	if err := w.Write(snap, rep); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func saveRun(ctx context.Context, cfg *config.Config, snap *menu.Snapshot, rep *crawler.Report, progress io.Writer) error {
	fmt.Fprint(progress, "→ Archiving run... ")
	st, err := store.Open(cfg.Store.Dir, store.DefaultOptions())
	if err != nil {
		fmt.Fprintln(progress, "failed")
		return err
	}
	defer st.Close()

	run, err := st.SaveRun(ctx, snap, rep)
	if err != nil {
		fmt.Fprintln(progress, "failed")
		return err
	}
	fmt.Fprintf(progress, "done (%s)\n", run.ID[:8])
	logVerbose("  Database: %s", st.Path())
	return nil
}
