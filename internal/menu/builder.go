package menu

import "time"

// Builder assembles a Snapshot as the crawl bubbles results up from the leaves.
type Builder struct {
	site string
	days []DayMenu
}

// NewBuilder creates a builder for the given site
func NewBuilder(site string) *Builder {
	return &Builder{site: site}
}

// AddDay appends a day with its periods in document order
func (b *Builder) AddDay(label string, periods []PeriodMenu) {
	b.days = append(b.days, DayMenu{Label: label, Periods: periods})
}

// Len returns the number of days added so far
func (b *Builder) Len() int {
	return len(b.days)
}

// Build returns an independent copy of everything added so far; later calls
// to AddDay do not affect a snapshot already returned.
func (b *Builder) Build(capturedAt time.Time) *Snapshot {
	s := &Snapshot{Site: b.site, CapturedAt: capturedAt, Days: b.days}
	return s.clone()
}
