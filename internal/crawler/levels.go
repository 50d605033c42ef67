package crawler

import (
	"context"

	"github.com/v0xg/menucrawl/internal/menu"
)

// daySpec waits for the clicked day to gain the selected class. The day's
// text becomes its label.
func (c *Crawler) daySpec(n Node) WaitSpec[string] {
	sel := c.cfg.Selectors
	key := n.Key()
	return WaitSpec[string]{
		Scope: sel.DayScope,
		Options: ObserveOptions{
			Attributes:      true,
			AttributeFilter: []string{"class"},
			Subtree:         true,
		},
		Ready: func(ctx context.Context, n Node) (string, bool, error) {
			return textIfClass(ctx, n, sel.DaySelectedClass)
		},
		Match: func(batch []MutationRecord) (string, bool) {
			for _, r := range batch {
				if r.Key != "" && r.Key != key {
					continue
				}
				if r.HasClass(sel.DayClass) && r.HasClass(sel.DaySelectedClass) {
					return menu.NormalizeLabel(r.Text), true
				}
			}
			return "", false
		},
		Timeout: c.cfg.Timeouts.Day,
	}
}

// periodSpec waits for the dining-period button labelled label to become
// the active category.
func (c *Crawler) periodSpec(label string) WaitSpec[string] {
	sel := c.cfg.Selectors
	return WaitSpec[string]{
		Scope: sel.PeriodScope,
		Options: ObserveOptions{
			Attributes:      true,
			AttributeFilter: []string{"class"},
			Subtree:         true,
		},
		Ready: func(ctx context.Context, n Node) (string, bool, error) {
			return textIfClass(ctx, n, sel.PeriodActiveClass)
		},
		Match: func(batch []MutationRecord) (string, bool) {
			for _, r := range batch {
				if r.HasClass(sel.PeriodActiveClass) && menu.NormalizeLabel(r.Text) == label {
					return label, true
				}
			}
			return "", false
		},
		Timeout: c.cfg.Timeouts.Period,
	}
}

// stationSpec waits for food cards to be inserted into the items container
// and returns the text of every inserted card in order. Stations are always
// clicked: the container does not reveal which station it currently shows.
func (c *Crawler) stationSpec() WaitSpec[[]string] {
	sel := c.cfg.Selectors
	return WaitSpec[[]string]{
		Scope: sel.StationScope,
		Options: ObserveOptions{
			ChildList: true,
			Subtree:   true,
		},
		Match: func(batch []MutationRecord) ([]string, bool) {
			var texts []string
			seen := make(map[string]bool)
			for _, r := range batch {
				if r.Removed != 0 || r.Added == 0 || !r.HasClass(sel.ItemCardClass) {
					continue
				}
				if r.Key != "" {
					if seen[r.Key] {
						continue
					}
					seen[r.Key] = true
				}
				texts = append(texts, r.Text)
			}
			return texts, len(texts) > 0
		},
		Timeout: c.cfg.Timeouts.Station,
	}
}

func textIfClass(ctx context.Context, n Node, class string) (string, bool, error) {
	ok, err := n.HasClass(ctx, class)
	if err != nil || !ok {
		return "", false, err
	}
	text, err := n.Text(ctx)
	if err != nil {
		return "", false, err
	}
	return menu.NormalizeLabel(text), true, nil
}
