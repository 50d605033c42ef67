package crawler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/v0xg/menucrawl/internal/menu"
)

var tracer = otel.Tracer("github.com/v0xg/menucrawl/internal/crawler")

// Level names as they appear in logs and reports
const (
	LevelDay     = "day"
	LevelPeriod  = "period"
	LevelStation = "station"
)

// Selectors identify each traversal level on the page. The defaults match
// the Dynamify storefront used by the dining hall.
type Selectors struct {
	Day              string `yaml:"day" json:"day"`
	DayScope         string `yaml:"day_scope" json:"day_scope"`
	DayClass         string `yaml:"day_class" json:"day_class"`
	DaySelectedClass string `yaml:"day_selected_class" json:"day_selected_class"`

	Period            string `yaml:"period" json:"period"`
	PeriodScope       string `yaml:"period_scope" json:"period_scope"`
	PeriodActiveClass string `yaml:"period_active_class" json:"period_active_class"`

	Station       string `yaml:"station" json:"station"`
	StationScope  string `yaml:"station_scope" json:"station_scope"`
	ItemCardClass string `yaml:"item_card_class" json:"item_card_class"`
}

// Timeouts bound each level's change wait
type Timeouts struct {
	Day     time.Duration
	Period  time.Duration
	Station time.Duration
}

// Settle is the fixed pause after a successful transition before the next
// level's first observation is armed. It papers over rendering that is still
// in flight when the change fires and is a known source of flakiness.
type Settle struct {
	Day     time.Duration
	Period  time.Duration
	Station time.Duration
}

// Config configures a Crawler
type Config struct {
	Selectors Selectors
	Timeouts  Timeouts
	Settle    Settle
}

// DefaultSelectors returns the selectors of the dining hall storefront
func DefaultSelectors() Selectors {
	return Selectors{
		Day:              ".cal-day-child",
		DayScope:         ".menu-subcategories-parent",
		DayClass:         "cal-day-child",
		DaySelectedClass: "selected",

		Period:            ".button-bar.menu-category-selection .menu-category-box",
		PeriodScope:       ".button-bar.menu-category-selection",
		PeriodActiveClass: "button-category",

		Station:       ".menu-subcategories-child",
		StationScope:  "#items-div",
		ItemCardClass: "menu-item-card",
	}
}

// DefaultConfig returns the selectors, timeouts and settle delays observed to
// work against the live site.
func DefaultConfig() Config {
	return Config{
		Selectors: DefaultSelectors(),
		Timeouts: Timeouts{
			Day:     10 * time.Second,
			Period:  3 * time.Second,
			Station: 5 * time.Second,
		},
		Settle: Settle{
			Day:    500 * time.Millisecond,
			Period: 200 * time.Millisecond,
		},
	}
}

// Report summarizes a crawl
type Report struct {
	Days        WalkStats     `json:"days"`
	Periods     WalkStats     `json:"periods"`
	Stations    WalkStats     `json:"stations"`
	Shortfall   int           `json:"shortfall"`
	Interrupted bool          `json:"interrupted,omitempty"`
	Duration    time.Duration `json:"duration"`
}

// Complete reports whether every discovered day was scraped
func (r Report) Complete() bool {
	return r.Shortfall == 0 && !r.Interrupted
}

// Crawler walks day → period → station on a Page and aggregates the foods.
type Crawler struct {
	page   Page
	cfg    Config
	logger *slog.Logger
	site   string
	now    func() time.Time

	// days persists across Run calls; lower levels are per parent.
	days *Visited
}

// Option customizes a Crawler
type Option func(*Crawler)

// WithLogger sets the logger used for progress and recoverable failures
func WithLogger(l *slog.Logger) Option {
	return func(c *Crawler) { c.logger = l }
}

// WithSite records the crawled URL in the snapshot
func WithSite(site string) Option {
	return func(c *Crawler) { c.site = site }
}

// WithClock overrides the snapshot timestamp source
func WithClock(now func() time.Time) Option {
	return func(c *Crawler) { c.now = now }
}

// New creates a Crawler over page
func New(page Page, cfg Config, opts ...Option) *Crawler {
	c := &Crawler{
		page:   page,
		cfg:    cfg,
		logger: slog.Default(),
		now:    time.Now,
		days:   NewVisited(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run crawls every day not yet visited by this Crawler and returns the
// snapshot with a report. It never fails: days that time out or error are
// skipped and the partial snapshot is returned. Calling Run again only
// visits days that appeared since the previous call.
func (c *Crawler) Run(ctx context.Context) (*menu.Snapshot, Report) {
	ctx, span := tracer.Start(ctx, "crawler.Run")
	defer span.End()

	start := time.Now()
	b := menu.NewBuilder(c.site)
	var report Report

	sel := c.cfg.Selectors
	dayStats, err := Walk(ctx, c.page, Level{Name: LevelDay, Selector: sel.Day}, c.days, c.logger,
		func(ctx context.Context, n Node, label string) (Outcome, error) {
			day, stats, outcome, err := c.crawlDay(ctx, n)
			report.Periods.Add(stats.periods)
			report.Stations.Add(stats.stations)
			if outcome == Succeeded {
				b.AddDay(day.label, day.periods)
				c.logger.Info("day scraped", "day", day.label, "periods", len(day.periods))
			}
			return outcome, err
		})
	report.Days = dayStats
	if err != nil {
		report.Interrupted = true
		c.logger.Error("crawl stopped early", "err", err)
	}

	report.Shortfall = dayStats.Discovered - dayStats.Skipped - dayStats.Succeeded
	if report.Shortfall > 0 {
		c.logger.Warn("not all days were scraped",
			"discovered", dayStats.Discovered-dayStats.Skipped,
			"scraped", dayStats.Succeeded,
			"missing", dayStats.Missing)
	}
	report.Duration = time.Since(start)

	span.SetAttributes(
		attribute.Int("menucrawl.days", dayStats.Succeeded),
		attribute.Int("menucrawl.shortfall", report.Shortfall),
	)

	return b.Build(c.now()), report
}

type dayResult struct {
	label   string
	periods []menu.PeriodMenu
}

type childStats struct {
	periods  WalkStats
	stations WalkStats
}

func (c *Crawler) crawlDay(ctx context.Context, n Node) (dayResult, childStats, Outcome, error) {
	ctx, span := tracer.Start(ctx, "crawler.day")
	defer span.End()

	var stats childStats

	label, ok, err := ChangeWait(ctx, c.page, n, c.daySpec(n))
	if err != nil {
		return dayResult{}, stats, Failed, err
	}
	if !ok {
		c.capture(ctx, LevelDay, n)
		return dayResult{}, stats, Unavailable, nil
	}
	span.SetAttributes(attribute.String("menucrawl.day", label))

	if err := sleep(ctx, c.cfg.Settle.Day); err != nil {
		return dayResult{label: label}, stats, Succeeded, err
	}

	// Period and station elements are reused for every day, so their
	// visited sets belong to this frame.
	var periods []menu.PeriodMenu
	pStats, err := Walk(ctx, c.page, Level{Name: LevelPeriod, Selector: c.cfg.Selectors.Period}, NewVisited(), c.logger,
		func(ctx context.Context, pn Node, plabel string) (Outcome, error) {
			p, sStats, outcome, err := c.crawlPeriod(ctx, pn, plabel)
			stats.stations.Add(sStats)
			if outcome == Succeeded {
				periods = append(periods, p)
			}
			return outcome, err
		})
	stats.periods = pStats

	return dayResult{label: label, periods: periods}, stats, Succeeded, c.levelErr(LevelPeriod, err)
}

func (c *Crawler) crawlPeriod(ctx context.Context, n Node, label string) (menu.PeriodMenu, WalkStats, Outcome, error) {
	ctx, span := tracer.Start(ctx, "crawler.period")
	defer span.End()

	period, ok, err := ChangeWait(ctx, c.page, n, c.periodSpec(label))
	if err != nil {
		return menu.PeriodMenu{}, WalkStats{}, Failed, err
	}
	if !ok {
		c.capture(ctx, LevelPeriod, n)
		return menu.PeriodMenu{}, WalkStats{}, Unavailable, nil
	}
	span.SetAttributes(attribute.String("menucrawl.period", period))

	out := menu.PeriodMenu{Label: period}
	if err := sleep(ctx, c.cfg.Settle.Period); err != nil {
		return out, WalkStats{}, Succeeded, err
	}

	stats, err := Walk(ctx, c.page, Level{Name: LevelStation, Selector: c.cfg.Selectors.Station}, NewVisited(), c.logger,
		func(ctx context.Context, sn Node, slabel string) (Outcome, error) {
			st, outcome, err := c.crawlStation(ctx, sn, slabel)
			if outcome == Succeeded {
				out.Stations = append(out.Stations, st)
			}
			return outcome, err
		})

	return out, stats, Succeeded, c.levelErr(LevelStation, err)
}

func (c *Crawler) crawlStation(ctx context.Context, n Node, label string) (menu.StationMenu, Outcome, error) {
	ctx, span := tracer.Start(ctx, "crawler.station")
	defer span.End()
	span.SetAttributes(attribute.String("menucrawl.station", label))

	texts, ok, err := ChangeWait(ctx, c.page, n, c.stationSpec())
	if err != nil {
		return menu.StationMenu{}, Failed, err
	}
	if !ok {
		c.capture(ctx, LevelStation, n)
		return menu.StationMenu{}, Unavailable, nil
	}

	st := menu.StationMenu{Label: label, Foods: make([]menu.Food, 0, len(texts))}
	for _, t := range texts {
		st.Foods = append(st.Foods, menu.ParseFood(t))
	}
	c.logger.Debug("station scraped", "station", label, "foods", len(st.Foods))

	if err := sleep(ctx, c.cfg.Settle.Station); err != nil {
		return st, Succeeded, err
	}
	return st, Succeeded, nil
}

// levelErr logs a failure to list a level and drops it so the parent still
// counts as scraped with an empty branch. Cancellation is passed through.
func (c *Crawler) levelErr(level string, err error) error {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	c.logger.Error("error listing "+level+"s", "stage", level, "err", err)
	return nil
}

func (c *Crawler) capture(ctx context.Context, level string, n Node) {
	d, ok := c.page.(Diagnostics)
	if !ok {
		return
	}
	name := level + "-" + n.Key()
	if err := d.Capture(ctx, name); err != nil {
		c.logger.Debug("capture diagnostics", "name", name, "err", err)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
