package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/ysmood/gson"

	"github.com/v0xg/menucrawl/internal/crawler"
)

// installObserverJS attaches a MutationObserver to the scope root and
// forwards every batch, serialized, to the exposed binding window[name].
const installObserverJS = `(scope, name, opts) => {
	const root = document.querySelector(scope);
	if (!root) return false;

	const describe = (el, m, added, removed) => ({
		type: m.type,
		attribute: m.attributeName || '',
		added: added,
		removed: removed,
		key: (el.dataset && el.dataset.menucrawlKey) || '',
		classes: el.classList ? Array.from(el.classList) : [],
		text: el.innerText || el.textContent || '',
	});

	const obs = new MutationObserver(list => {
		const batch = [];
		for (const m of list) {
			if (m.type !== 'childList') {
				batch.push(describe(m.target, m, 0, 0));
				continue;
			}
			const els = Array.from(m.addedNodes).filter(n => n.nodeType === Node.ELEMENT_NODE);
			if (els.length === 0) {
				batch.push(describe(m.target, m, m.addedNodes.length, m.removedNodes.length));
				continue;
			}
			for (const el of els) {
				batch.push(describe(el, m, m.addedNodes.length, m.removedNodes.length));
			}
		}
		if (batch.length > 0) window[name](batch);
	});
	obs.observe(root, opts);
	window['__menucrawlObs_' + name] = obs;
	return true;
}`

const disconnectObserverJS = `(name) => {
	const obs = window['__menucrawlObs_' + name];
	if (obs) {
		obs.disconnect();
		delete window['__menucrawlObs_' + name];
	}
}`

// Observe implements crawler.Page
func (b *Browser) Observe(ctx context.Context, scope string, opts crawler.ObserveOptions) (crawler.Subscription, error) {
	name := fmt.Sprintf("__menucrawlBatch%d", b.seq.Add(1))
	sub := &subscription{
		b:    b,
		name: name,
		ch:   make(chan []crawler.MutationRecord, 16),
		done: make(chan struct{}),
	}

	stop, err := b.page.Expose(name, func(req gson.JSON) (interface{}, error) {
		batch, err := decodeBatch(req)
		if err != nil {
			b.logger.Debug("drop mutation batch", "scope", scope, "err", err)
			return nil, err
		}
		sub.deliver(batch)
		return nil, nil
	})
	if err != nil {
		return nil, fmt.Errorf("expose %s: %w", name, err)
	}
	sub.stop = stop

	res, err := b.page.Context(ctx).Eval(installObserverJS, scope, name, opts)
	if err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("install observer: %w", err)
	}
	if !res.Value.Bool() {
		_ = sub.Close()
		return nil, fmt.Errorf("no element matches %q", scope)
	}
	return sub, nil
}

func decodeBatch(req gson.JSON) ([]crawler.MutationRecord, error) {
	// Values handed over by Expose are already parsed, so decode their
	// serialized form.
	var batch []crawler.MutationRecord
	if err := json.Unmarshal([]byte(req.JSON("", "")), &batch); err != nil {
		return nil, fmt.Errorf("decode mutation batch: %w", err)
	}
	return batch, nil
}

type subscription struct {
	b    *Browser
	name string
	stop func() error
	ch   chan []crawler.MutationRecord
	done chan struct{}
	once sync.Once
	err  error
}

func (s *subscription) deliver(batch []crawler.MutationRecord) {
	select {
	case <-s.done:
	case s.ch <- batch:
	}
}

func (s *subscription) Records() <-chan []crawler.MutationRecord {
	return s.ch
}

// Close disconnects the observer and removes the binding. It is safe to
// call more than once.
func (s *subscription) Close() error {
	s.once.Do(func() {
		close(s.done)
		_, err := s.b.page.Eval(disconnectObserverJS, s.name)
		if s.stop != nil {
			err = errors.Join(err, s.stop())
		}
		s.err = err
	})
	return s.err
}
