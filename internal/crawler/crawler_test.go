package crawler_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/v0xg/menucrawl/internal/crawler"
	"github.com/v0xg/menucrawl/internal/menu"
	"github.com/v0xg/menucrawl/internal/sitesim"
)

var capturedAt = time.Date(2025, 11, 18, 9, 30, 0, 0, time.UTC)

func testConfig() crawler.Config {
	cfg := crawler.DefaultConfig()
	cfg.Timeouts = crawler.Timeouts{
		Day:     300 * time.Millisecond,
		Period:  300 * time.Millisecond,
		Station: 300 * time.Millisecond,
	}
	cfg.Settle = crawler.Settle{}
	return cfg
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func loadSite(t *testing.T, path string, cfg crawler.Config) *sitesim.Site {
	t.Helper()
	fx, err := sitesim.LoadFile(path)
	require.NoError(t, err)
	return sitesim.New(fx, cfg.Selectors, sitesim.WithDelay(time.Millisecond))
}

func parseSite(t *testing.T, doc string, cfg crawler.Config) *sitesim.Site {
	t.Helper()
	fx, err := sitesim.Load(strings.NewReader(doc))
	require.NoError(t, err)
	return sitesim.New(fx, cfg.Selectors, sitesim.WithDelay(time.Millisecond))
}

func newCrawler(site *sitesim.Site, cfg crawler.Config, logger *slog.Logger) *crawler.Crawler {
	return crawler.New(site, cfg,
		crawler.WithLogger(logger),
		crawler.WithSite("https://dining.example/menu"),
		crawler.WithClock(func() time.Time { return capturedAt }),
	)
}

func food(name string, kcal int, desc string) menu.Food {
	return menu.Food{Name: name, Calories: kcal, Description: desc}
}

func TestRun_TwoDays(t *testing.T) {
	cfg := testConfig()
	site := loadSite(t, "testdata/two_days.html", cfg)

	snap, report := newCrawler(site, cfg, quietLogger()).Run(context.Background())
	site.Wait()

	want := &menu.Snapshot{
		Site:       "https://dining.example/menu",
		CapturedAt: capturedAt,
		Days: []menu.DayMenu{
			{Label: "18 Tue", Periods: []menu.PeriodMenu{
				{Label: "Breakfast", Stations: []menu.StationMenu{{Label: "Grill", Foods: []menu.Food{
					food("Scrambled Eggs", 180, "Cage-free eggs with chives"),
					food("Turkey Sausage", 90, ""),
				}}}},
				{Label: "Lunch", Stations: []menu.StationMenu{{Label: "Grill", Foods: []menu.Food{
					food("Cheeseburger", 540, ""),
					food("Veggie Burger", 410, "Black bean patty"),
				}}}},
			}},
			{Label: "19 Wed", Periods: []menu.PeriodMenu{
				{Label: "Breakfast", Stations: []menu.StationMenu{{Label: "Grill", Foods: []menu.Food{
					food("Pancakes", 350, ""),
					food("Hash Browns", 220, ""),
				}}}},
				{Label: "Lunch", Stations: []menu.StationMenu{{Label: "Grill", Foods: []menu.Food{
					food("Grilled Chicken", 300, ""),
					food("Fries", 380, ""),
				}}}},
			}},
		},
	}

	ignoreRaw := cmpopts.IgnoreFields(menu.Food{}, "Raw")
	if diff := cmp.Diff(want, snap, ignoreRaw); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}

	assert.True(t, report.Complete())
	assert.Equal(t, 2, report.Days.Succeeded)
	assert.Equal(t, 4, report.Periods.Succeeded)
	assert.Equal(t, 4, report.Stations.Succeeded)
	assert.Equal(t, 8, snap.FoodCount())

	// The preselected day and its active period are read without a click.
	assert.Equal(t, []string{
		"station-grill",
		"period-lunch", "station-grill",
		"day-1",
		"period-breakfast", "station-grill",
		"period-lunch", "station-grill",
	}, site.Clicks())
	assert.Zero(t, site.ActiveSubscriptions())
}

func TestRun_ObservationsNeverOverlap(t *testing.T) {
	cfg := testConfig()
	site := loadSite(t, "testdata/two_days.html", cfg)

	newCrawler(site, cfg, quietLogger()).Run(context.Background())
	site.Wait()

	open := 0
	var last string
	for _, ev := range site.Events() {
		switch {
		case strings.HasPrefix(ev, "observe "):
			open++
			require.Equal(t, 1, open, "observation armed while another is open")
		case strings.HasPrefix(ev, "click "):
			require.Equal(t, 1, open, "click %q without an armed observation", ev)
			require.True(t, strings.HasPrefix(last, "observe "), "click %q must follow its observe, got %q", ev, last)
		case strings.HasPrefix(ev, "close "):
			open--
		}
		last = ev
	}
	assert.Zero(t, open)
}

func TestRun_SecondRunIsIdempotent(t *testing.T) {
	cfg := testConfig()
	site := loadSite(t, "testdata/two_days.html", cfg)
	c := newCrawler(site, cfg, quietLogger())

	first, _ := c.Run(context.Background())
	site.Wait()
	clicks := len(site.Clicks())

	second, report := c.Run(context.Background())
	site.Wait()

	assert.Len(t, first.Days, 2)
	assert.Empty(t, second.Days)
	assert.Equal(t, clicks, len(site.Clicks()), "no node is clicked twice")
	assert.Equal(t, 2, report.Days.Skipped)
	assert.True(t, report.Complete())
}

const fourDays = `
<section data-day="18 Tue"><section data-period="Lunch" data-active="true"><section data-station="Deli">
  <article class="item"><h3>Turkey Club</h3><p>610 Cal</p></article></section></section></section>
<section data-day="19 Wed"><section data-period="Lunch" data-active="true"><section data-station="Deli">
  <article class="item"><h3>Tuna Melt</h3><p>520 Cal</p></article></section></section></section>
<section data-day="20 Thu" data-unavailable="true"><section data-period="Lunch" data-active="true"><section data-station="Deli">
  <article class="item"><h3>Reuben</h3><p>700 Cal</p></article></section></section></section>
<section data-day="21 Fri"><section data-period="Lunch" data-active="true"><section data-station="Deli">
  <article class="item"><h3>BLT</h3><p>450 Cal</p></article></section></section></section>
`

func TestRun_UnavailableDayIsSkipped(t *testing.T) {
	cfg := testConfig()
	cfg.Timeouts.Day = 40 * time.Millisecond
	site := parseSite(t, fourDays, cfg)

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	snap, report := newCrawler(site, cfg, logger).Run(context.Background())
	site.Wait()

	labels := make([]string, 0, len(snap.Days))
	for _, d := range snap.Days {
		labels = append(labels, d.Label)
	}
	assert.Equal(t, []string{"18 Tue", "19 Wed", "21 Fri"}, labels)
	assert.Nil(t, snap.Lookup("20 Thu", "Lunch", "Deli"))
	assert.Equal(t, "BLT", snap.Lookup("21 Fri", "Lunch", "Deli")[0].Name)

	assert.Equal(t, 1, report.Shortfall)
	assert.Equal(t, 1, report.Days.Unavailable)
	assert.Equal(t, []string{"day 20 Thu"}, report.Days.Missing)
	assert.False(t, report.Complete())

	out := logs.String()
	assert.Contains(t, out, "day is not available")
	assert.Contains(t, out, "not all days were scraped")
	assert.Zero(t, site.ActiveSubscriptions())
}

const unavailableStation = `
<section data-day="18 Tue" data-selected="true">
  <section data-period="Dinner" data-active="true">
    <section data-station="Pizza" data-unavailable="true">
      <article class="item"><h3>Pepperoni</h3><p>300 Cal</p></article>
    </section>
    <section data-station="Salad Bar">
      <article class="item"><h3>Caesar Salad</h3><p>250 Cal</p></article>
    </section>
  </section>
</section>
`

func TestRun_UnavailableStationIsSkipped(t *testing.T) {
	cfg := testConfig()
	cfg.Timeouts.Station = 40 * time.Millisecond
	site := parseSite(t, unavailableStation, cfg)

	snap, report := newCrawler(site, cfg, quietLogger()).Run(context.Background())
	site.Wait()

	require.Len(t, snap.Days, 1)
	stations := snap.Days[0].Periods[0].Stations
	require.Len(t, stations, 1)
	assert.Equal(t, "Salad Bar", stations[0].Label)
	assert.Equal(t, 1, report.Stations.Unavailable)
	assert.True(t, report.Complete(), "a missing station does not make the day a shortfall")
}

func TestRun_ObservationErrorLeavesEmptyBranch(t *testing.T) {
	// The site keeps its real layout; only the crawler looks in the wrong place.
	site := loadSite(t, "testdata/two_days.html", testConfig())
	cfg := testConfig()
	cfg.Selectors.StationScope = "#no-such-container"

	var logs bytes.Buffer
	snap, report := newCrawler(site, cfg, slog.New(slog.NewTextHandler(&logs, nil))).Run(context.Background())
	site.Wait()

	require.Len(t, snap.Days, 2)
	for _, d := range snap.Days {
		require.Len(t, d.Periods, 2)
		for _, p := range d.Periods {
			assert.Empty(t, p.Stations)
		}
	}
	assert.Zero(t, snap.FoodCount())
	assert.Equal(t, 4, report.Stations.Failed)
	assert.Contains(t, logs.String(), "error observing station")
	assert.Zero(t, site.ActiveSubscriptions())
}

func TestRun_CancelledStopsEarly(t *testing.T) {
	cfg := testConfig()
	site := loadSite(t, "testdata/two_days.html", cfg)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	snap, report := newCrawler(site, cfg, quietLogger()).Run(ctx)
	site.Wait()

	assert.Empty(t, snap.Days)
	assert.True(t, report.Interrupted)
	assert.Empty(t, site.Clicks())
}

func TestWalk_SharedVisitedSkipsNodes(t *testing.T) {
	cfg := testConfig()
	site := loadSite(t, "testdata/two_days.html", cfg)
	visited := crawler.NewVisited()
	level := crawler.Level{Name: crawler.LevelDay, Selector: cfg.Selectors.Day}

	var seen []string
	visit := func(_ context.Context, _ crawler.Node, label string) (crawler.Outcome, error) {
		seen = append(seen, label)
		return crawler.Succeeded, nil
	}

	stats, err := crawler.Walk(context.Background(), site, level, visited, quietLogger(), visit)
	require.NoError(t, err)
	assert.Equal(t, []string{"18 Tue", "19 Wed"}, seen)
	assert.Equal(t, 2, stats.Succeeded)
	assert.Equal(t, 2, visited.Len())

	stats, err = crawler.Walk(context.Background(), site, level, visited, quietLogger(), visit)
	require.NoError(t, err)
	assert.Len(t, seen, 2)
	assert.Equal(t, 2, stats.Skipped)
	assert.Zero(t, stats.Processed())
}
