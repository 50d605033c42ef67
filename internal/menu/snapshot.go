package menu

import (
	"strings"
	"time"
)

// Snapshot is the aggregated result of one crawl: Day → Period → Station → foods.
// Levels are kept as ordered slices so document order survives serialization.
type Snapshot struct {
	Site       string    `json:"site"`
	CapturedAt time.Time `json:"capturedAt"`
	Days       []DayMenu `json:"days"`
}

// DayMenu holds the dining periods served on one day
type DayMenu struct {
	Label   string       `json:"label"`
	Periods []PeriodMenu `json:"periods"`
}

// PeriodMenu holds the stations open during one dining period
type PeriodMenu struct {
	Label    string        `json:"label"`
	Stations []StationMenu `json:"stations"`
}

// StationMenu holds the foods served at one station
type StationMenu struct {
	Label string `json:"label"`
	Foods []Food `json:"foods"`
}

// Food is a single menu item parsed from the text of its card
type Food struct {
	Name        string   `json:"name"`
	Calories    int      `json:"calories,omitempty"`
	Description string   `json:"description,omitempty"`
	Raw         string   `json:"raw,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// Map returns the plain nested mapping view of the snapshot.
func (s *Snapshot) Map() map[string]map[string]map[string][]Food {
	out := make(map[string]map[string]map[string][]Food, len(s.Days))
	for _, d := range s.Days {
		periods := make(map[string]map[string][]Food, len(d.Periods))
		for _, p := range d.Periods {
			stations := make(map[string][]Food, len(p.Stations))
			for _, st := range p.Stations {
				stations[st.Label] = st.Foods
			}
			periods[p.Label] = stations
		}
		out[d.Label] = periods
	}
	return out
}

// Lookup returns the foods served at a station, or nil if any level is missing.
func (s *Snapshot) Lookup(day, period, station string) []Food {
	for _, d := range s.Days {
		if d.Label != day {
			continue
		}
		for _, p := range d.Periods {
			if p.Label != period {
				continue
			}
			for _, st := range p.Stations {
				if st.Label == station {
					return st.Foods
				}
			}
		}
	}
	return nil
}

// FoodCount returns the total number of food records across all levels
func (s *Snapshot) FoodCount() int {
	n := 0
	s.EachStation(func(_, _ string, st StationMenu) {
		n += len(st.Foods)
	})
	return n
}

// EachStation calls fn for every station in document order
func (s *Snapshot) EachStation(fn func(day, period string, st StationMenu)) {
	for _, d := range s.Days {
		for _, p := range d.Periods {
			for _, st := range p.Stations {
				fn(d.Label, p.Label, st)
			}
		}
	}
}

// WithTags returns a copy of the snapshot where every food whose name has an
// entry in tags carries those tags. The receiver is left untouched.
func (s *Snapshot) WithTags(tags map[string][]string) *Snapshot {
	out := s.clone()
	for di := range out.Days {
		for pi := range out.Days[di].Periods {
			for si := range out.Days[di].Periods[pi].Stations {
				foods := out.Days[di].Periods[pi].Stations[si].Foods
				for fi := range foods {
					if t, ok := tags[foods[fi].Name]; ok {
						foods[fi].Tags = append([]string(nil), t...)
					}
				}
			}
		}
	}
	return out
}

func (s *Snapshot) clone() *Snapshot {
	out := &Snapshot{Site: s.Site, CapturedAt: s.CapturedAt}
	out.Days = make([]DayMenu, len(s.Days))
	for di, d := range s.Days {
		out.Days[di] = cloneDay(d)
	}
	return out
}

func cloneDay(d DayMenu) DayMenu {
	out := DayMenu{Label: d.Label, Periods: make([]PeriodMenu, len(d.Periods))}
	for pi, p := range d.Periods {
		out.Periods[pi] = clonePeriod(p)
	}
	return out
}

func clonePeriod(p PeriodMenu) PeriodMenu {
	out := PeriodMenu{Label: p.Label, Stations: make([]StationMenu, len(p.Stations))}
	for si, st := range p.Stations {
		out.Stations[si] = cloneStation(st)
	}
	return out
}

func cloneStation(st StationMenu) StationMenu {
	out := StationMenu{Label: st.Label, Foods: make([]Food, len(st.Foods))}
	for fi, f := range st.Foods {
		f.Tags = append([]string(nil), f.Tags...)
		out.Foods[fi] = f
	}
	return out
}

// Filter returns a copy holding only the given day and station. Labels are
// compared after NormalizeLabel, ignoring case; an empty argument keeps that
// level whole. Periods left without stations are dropped.
func (s *Snapshot) Filter(day, station string) *Snapshot {
	out := &Snapshot{Site: s.Site, CapturedAt: s.CapturedAt, Days: []DayMenu{}}
	for _, d := range s.Days {
		if day != "" && !sameLabel(d.Label, day) {
			continue
		}
		if station == "" {
			out.Days = append(out.Days, cloneDay(d))
			continue
		}
		kept := DayMenu{Label: d.Label, Periods: []PeriodMenu{}}
		for _, p := range d.Periods {
			var sts []StationMenu
			for _, st := range p.Stations {
				if sameLabel(st.Label, station) {
					sts = append(sts, cloneStation(st))
				}
			}
			if len(sts) > 0 {
				kept.Periods = append(kept.Periods, PeriodMenu{Label: p.Label, Stations: sts})
			}
		}
		out.Days = append(out.Days, kept)
	}
	return out
}

func sameLabel(a, b string) bool {
	return strings.EqualFold(NormalizeLabel(a), NormalizeLabel(b))
}
