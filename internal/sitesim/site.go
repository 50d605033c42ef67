package sitesim

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/v0xg/menucrawl/internal/crawler"
)

// Site simulates the dining storefront: the same selectors as the live page,
// state changes on click, and mutation batches delivered asynchronously to
// observers of the affected scope.
type Site struct {
	fx    *Fixture
	sel   crawler.Selectors
	delay time.Duration

	mu      sync.Mutex
	day     int // selected day index, -1 for none
	period  string
	subs    map[int]*subscription
	nextSub int
	events  []string
	clicks  []string
	wg      sync.WaitGroup
}

// Option customizes a Site
type Option func(*Site)

// WithDelay sets how long after a click its mutations are delivered
func WithDelay(d time.Duration) Option {
	return func(s *Site) { s.delay = d }
}

// New creates a simulated site serving fx through the given selectors
func New(fx *Fixture, sel crawler.Selectors, opts ...Option) *Site {
	s := &Site{
		fx:    fx,
		sel:   sel,
		delay: 5 * time.Millisecond,
		day:   -1,
		subs:  make(map[int]*subscription),
	}
	for i, d := range fx.Days {
		if d.Selected {
			s.selectDay(i)
			break
		}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Clicks returns the keys of every clicked node in click order
func (s *Site) Clicks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.clicks...)
}

// Events returns the observe/click/close log in order
func (s *Site) Events() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}

// ActiveSubscriptions returns the number of observation sessions not yet closed
func (s *Site) ActiveSubscriptions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Wait blocks until every pending mutation delivery has finished
func (s *Site) Wait() {
	s.wg.Wait()
}

// Query implements crawler.Page
func (s *Site) Query(_ context.Context, selector string) ([]crawler.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var nodes []crawler.Node
	switch selector {
	case s.sel.Day:
		for i, d := range s.fx.Days {
			nodes = append(nodes, &node{site: s, kind: kindDay, key: dayKey(i), text: d.Label, day: i})
		}
	case s.sel.Period:
		if s.day < 0 {
			return nil, nil
		}
		for _, p := range s.fx.Days[s.day].Periods {
			nodes = append(nodes, &node{site: s, kind: kindPeriod, key: periodKey(p.Label), text: p.Label, day: s.day, period: p.Label})
		}
	case s.sel.Station:
		p := s.currentPeriod()
		if p == nil {
			return nil, nil
		}
		for _, st := range p.Stations {
			nodes = append(nodes, &node{site: s, kind: kindStation, key: stationKey(st.Label), text: st.Label, day: s.day, period: p.Label, station: st.Label})
		}
	}
	return nodes, nil
}

// Observe implements crawler.Page
func (s *Site) Observe(_ context.Context, scope string, opts crawler.ObserveOptions) (crawler.Subscription, error) {
	switch scope {
	case s.sel.DayScope, s.sel.PeriodScope, s.sel.StationScope:
	default:
		return nil, fmt.Errorf("no element matches %q", scope)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSub++
	sub := &subscription{
		site:  s,
		id:    s.nextSub,
		scope: scope,
		opts:  opts,
		ch:    make(chan []crawler.MutationRecord, 8),
		done:  make(chan struct{}),
	}
	s.subs[sub.id] = sub
	s.events = append(s.events, "observe "+scope)
	return sub, nil
}

func (s *Site) click(n *node) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clicks = append(s.clicks, n.key)
	s.events = append(s.events, "click "+n.key)

	switch n.kind {
	case kindDay:
		d := s.fx.Days[n.day]
		if d.Unavailable || s.day == n.day {
			return nil
		}
		var batch []crawler.MutationRecord
		if s.day >= 0 {
			batch = append(batch, crawler.MutationRecord{
				Type: "attributes", AttributeName: "class",
				Key: dayKey(s.day), Classes: []string{s.sel.DayClass}, Text: s.fx.Days[s.day].Label,
			})
		}
		s.selectDay(n.day)
		batch = append(batch, crawler.MutationRecord{
			Type: "attributes", AttributeName: "class",
			Key: n.key, Classes: []string{s.sel.DayClass, s.sel.DaySelectedClass}, Text: d.Label,
		})
		s.emit(s.sel.DayScope, batch)

	case kindPeriod:
		if s.day != n.day {
			return fmt.Errorf("period %q is detached", n.period)
		}
		p := s.findPeriod(n.period)
		if p == nil || p.Unavailable || s.period == n.period {
			return nil
		}
		s.period = n.period
		s.emit(s.sel.PeriodScope, []crawler.MutationRecord{{
			Type: "attributes", AttributeName: "class",
			Key: n.key, Classes: []string{"menu-category-box", s.sel.PeriodActiveClass}, Text: p.Label,
		}})

	case kindStation:
		p := s.currentPeriod()
		if p == nil || s.day != n.day || p.Label != n.period {
			return fmt.Errorf("station %q is detached", n.station)
		}
		for _, st := range p.Stations {
			if st.Label != n.station || st.Unavailable {
				continue
			}
			batch := make([]crawler.MutationRecord, 0, len(st.Items))
			for i, item := range st.Items {
				batch = append(batch, crawler.MutationRecord{
					Type: "childList", Added: 1,
					Key:     fmt.Sprintf("item-%d-%s-%s-%d", n.day, slug(n.period), slug(n.station), i),
					Classes: []string{s.sel.ItemCardClass},
					Text:    item,
				})
			}
			if len(batch) > 0 {
				s.emit(s.sel.StationScope, batch)
			}
		}
	}
	return nil
}

// emit delivers batch to current observers of scope after the site's delay.
// Called with s.mu held.
func (s *Site) emit(scope string, batch []crawler.MutationRecord) {
	var targets []*subscription
	for _, sub := range s.subs {
		if sub.scope != scope || !sub.accepts(batch[0].Type) {
			continue
		}
		targets = append(targets, sub)
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		time.Sleep(s.delay)
		for _, sub := range targets {
			sub.deliver(batch)
		}
	}()
}

func (s *Site) selectDay(i int) {
	s.day = i
	s.period = ""
	for _, p := range s.fx.Days[i].Periods {
		if p.Active {
			s.period = p.Label
			break
		}
	}
}

func (s *Site) findPeriod(label string) *FixturePeriod {
	if s.day < 0 {
		return nil
	}
	for i := range s.fx.Days[s.day].Periods {
		if s.fx.Days[s.day].Periods[i].Label == label {
			return &s.fx.Days[s.day].Periods[i]
		}
	}
	return nil
}

func (s *Site) currentPeriod() *FixturePeriod {
	if s.period == "" {
		return nil
	}
	return s.findPeriod(s.period)
}

func (s *Site) hasClass(n *node, class string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch n.kind {
	case kindDay:
		return class == s.sel.DayClass || (class == s.sel.DaySelectedClass && s.day == n.day)
	case kindPeriod:
		return class == "menu-category-box" || (class == s.sel.PeriodActiveClass && s.day == n.day && s.period == n.period)
	default:
		return class == "menu-subcategories-child"
	}
}

type subscription struct {
	site  *Site
	id    int
	scope string
	opts  crawler.ObserveOptions
	ch    chan []crawler.MutationRecord
	done  chan struct{}
	once  sync.Once
}

func (sub *subscription) accepts(recordType string) bool {
	if recordType == "childList" {
		return sub.opts.ChildList
	}
	return sub.opts.Attributes
}

func (sub *subscription) deliver(batch []crawler.MutationRecord) {
	select {
	case <-sub.done:
	case sub.ch <- batch:
	}
}

func (sub *subscription) Records() <-chan []crawler.MutationRecord {
	return sub.ch
}

func (sub *subscription) Close() error {
	sub.once.Do(func() {
		close(sub.done)
		s := sub.site
		s.mu.Lock()
		delete(s.subs, sub.id)
		s.events = append(s.events, "close "+sub.scope)
		s.mu.Unlock()
	})
	return nil
}

type nodeKind int

const (
	kindDay nodeKind = iota
	kindPeriod
	kindStation
)

type node struct {
	site    *Site
	kind    nodeKind
	key     string
	text    string
	day     int
	period  string
	station string
}

func (n *node) Key() string { return n.key }

func (n *node) Text(context.Context) (string, error) { return n.text, nil }

func (n *node) HasClass(_ context.Context, class string) (bool, error) {
	return n.site.hasClass(n, class), nil
}

func (n *node) Click(context.Context) error { return n.site.click(n) }

func dayKey(i int) string { return fmt.Sprintf("day-%d", i) }

func periodKey(label string) string { return "period-" + slug(label) }

func stationKey(label string) string { return "station-" + slug(label) }

func slug(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), "-"))
}
