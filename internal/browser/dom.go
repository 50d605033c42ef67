package browser

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/v0xg/menucrawl/internal/crawler"
)

// keyAttr holds the identity assigned to every element handed to the crawler.
// Mutation records report it back so a record can be tied to its node.
const keyAttr = "data-menucrawl-key"

const assignKeyJS = `function () {
	if (!this.dataset.menucrawlKey) {
		window.__menucrawlSeq = (window.__menucrawlSeq || 0) + 1;
		this.dataset.menucrawlKey = 'mc-' + window.__menucrawlSeq;
	}
	return this.dataset.menucrawlKey;
}`

// Query implements crawler.Page. It does not wait: an empty level is an
// empty slice.
func (b *Browser) Query(ctx context.Context, selector string) ([]crawler.Node, error) {
	els, err := b.page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}

	nodes := make([]crawler.Node, 0, len(els))
	for _, el := range els {
		res, err := el.Context(ctx).Eval(assignKeyJS)
		if err != nil {
			return nil, fmt.Errorf("assign %s: %w", keyAttr, err)
		}
		nodes = append(nodes, &node{b: b, el: el, key: res.Value.Str()})
	}
	return nodes, nil
}

type node struct {
	b   *Browser
	el  *rod.Element
	key string
}

func (n *node) Key() string { return n.key }

func (n *node) Text(ctx context.Context) (string, error) {
	return n.el.Context(ctx).Text()
}

func (n *node) HasClass(ctx context.Context, class string) (bool, error) {
	res, err := n.el.Context(ctx).Eval(`function (c) { return this.classList.contains(c) }`, class)
	if err != nil {
		return false, err
	}
	return res.Value.Bool(), nil
}

// Click dispatches a real mouse click and falls back to element.click() when
// the element cannot be clicked natively, e.g. it is covered or off screen.
func (n *node) Click(ctx context.Context) error {
	clickCtx, cancel := context.WithTimeout(ctx, n.b.opts.ClickTimeout)
	defer cancel()

	err := n.el.Context(clickCtx).Click(proto.InputMouseButtonLeft, 1)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	n.b.logger.Debug("native click failed, using script", "key", n.key, "err", err)

	if _, jsErr := n.el.Context(ctx).Eval(`function () { this.click() }`); jsErr != nil {
		return errors.Join(err, jsErr)
	}
	return nil
}
