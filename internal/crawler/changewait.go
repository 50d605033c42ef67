package crawler

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// WaitSpec describes one click-and-wait step.
type WaitSpec[T any] struct {
	// Scope is the selector of the subtree to observe.
	Scope   string
	Options ObserveOptions

	// Ready reports whether the node is already in the target state. When it
	// is, its value is returned without clicking. Nil means never ready.
	Ready func(ctx context.Context, n Node) (T, bool, error)

	// Match inspects one batch of mutation records.
	Match func(batch []MutationRecord) (T, bool)

	// Timeout bounds the wait after the click. Zero waits until ctx is done.
	Timeout time.Duration
}

// ChangeWait clicks node and suspends until a mutation batch within the
// observed scope satisfies spec.Match. It returns matched == false with a nil
// error when the timeout expires first. Exactly one subscription is opened
// per call, and it is closed before ChangeWait returns.
func ChangeWait[T any](ctx context.Context, page Page, node Node, spec WaitSpec[T]) (value T, matched bool, err error) {
	ctx, span := tracer.Start(ctx, "crawler.ChangeWait")
	span.SetAttributes(
		attribute.String("menucrawl.scope", spec.Scope),
		attribute.String("menucrawl.node", node.Key()),
	)
	defer func() {
		span.SetAttributes(attribute.Bool("menucrawl.matched", matched))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	var zero T

	if spec.Ready != nil {
		v, ok, err := spec.Ready(ctx, node)
		if err != nil {
			return zero, false, fmt.Errorf("%w: read state of %s: %w", ErrObserve, node.Key(), err)
		}
		if ok {
			span.SetAttributes(attribute.Bool("menucrawl.short_circuit", true))
			return v, true, nil
		}
	}

	sub, err := page.Observe(ctx, spec.Scope, spec.Options)
	if err != nil {
		return zero, false, fmt.Errorf("%w: %s: %w", ErrObserve, spec.Scope, err)
	}
	defer sub.Close()

	if err := node.Click(ctx); err != nil {
		return zero, false, fmt.Errorf("click %s: %w", node.Key(), err)
	}

	var timeout <-chan time.Time
	if spec.Timeout > 0 {
		timer := time.NewTimer(spec.Timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	records := sub.Records()
	for {
		select {
		case batch, ok := <-records:
			if !ok {
				return zero, false, fmt.Errorf("%w: %s: subscription closed", ErrObserve, spec.Scope)
			}
			if v, ok := spec.Match(batch); ok {
				return v, true, nil
			}
		case <-timeout:
			return zero, false, nil
		case <-ctx.Done():
			return zero, false, ctx.Err()
		}
	}
}
