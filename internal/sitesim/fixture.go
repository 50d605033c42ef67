package sitesim

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Fixture is the menu a simulated site serves.
//
// Fixture documents nest sections by level:
//
//	<section data-day="18 Tue" data-selected="true">
//	  <section data-period="Breakfast" data-active="true">
//	    <section data-station="Grill">
//	      <article class="item"><h3>Eggs</h3><p>180 Cal</p></article>
//	    </section>
//	  </section>
//	</section>
//
// Any level may carry data-unavailable="true"; clicking such a node never
// produces a change.
type Fixture struct {
	Days []FixtureDay
}

type FixtureDay struct {
	Label       string
	Selected    bool
	Unavailable bool
	Periods     []FixturePeriod
}

type FixturePeriod struct {
	Label       string
	Active      bool
	Unavailable bool
	Stations    []FixtureStation
}

type FixtureStation struct {
	Label       string
	Unavailable bool
	Items       []string
}

// LoadFile reads a fixture document from disk
func LoadFile(path string) (*Fixture, error) {
	f, err := os.Open(path) //nolint:gosec // fixture path comes from the user
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// Load parses a fixture document
func Load(r io.Reader) (*Fixture, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}

	fx := &Fixture{}
	doc.Find("section[data-day]").Each(func(_ int, day *goquery.Selection) {
		d := FixtureDay{
			Label:       attr(day, "data-day"),
			Selected:    flag(day, "data-selected"),
			Unavailable: flag(day, "data-unavailable"),
		}
		day.ChildrenFiltered("section[data-period]").Each(func(_ int, period *goquery.Selection) {
			p := FixturePeriod{
				Label:       attr(period, "data-period"),
				Active:      flag(period, "data-active"),
				Unavailable: flag(period, "data-unavailable"),
			}
			period.ChildrenFiltered("section[data-station]").Each(func(_ int, station *goquery.Selection) {
				st := FixtureStation{
					Label:       attr(station, "data-station"),
					Unavailable: flag(station, "data-unavailable"),
				}
				station.ChildrenFiltered("article.item").Each(func(_ int, item *goquery.Selection) {
					st.Items = append(st.Items, itemText(item))
				})
				p.Stations = append(p.Stations, st)
			})
			d.Periods = append(d.Periods, p)
		})
		fx.Days = append(fx.Days, d)
	})

	if len(fx.Days) == 0 {
		return nil, fmt.Errorf("parse fixture: no section[data-day] elements")
	}
	return fx, nil
}

// itemText renders a card the way innerText does for block children:
// one block per child element, separated by a blank line.
func itemText(item *goquery.Selection) string {
	children := item.Children()
	if children.Length() == 0 {
		return strings.TrimSpace(item.Text())
	}
	var blocks []string
	children.Each(func(_ int, c *goquery.Selection) {
		if t := strings.TrimSpace(c.Text()); t != "" {
			blocks = append(blocks, t)
		}
	})
	return strings.Join(blocks, "\n\n")
}

func attr(s *goquery.Selection, name string) string {
	v, _ := s.Attr(name)
	return strings.TrimSpace(v)
}

func flag(s *goquery.Selection, name string) bool {
	v, ok := s.Attr(name)
	return ok && (v == "" || strings.EqualFold(v, "true"))
}
