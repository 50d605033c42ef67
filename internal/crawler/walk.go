package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/v0xg/menucrawl/internal/menu"
)

// Visited is the set of node keys already processed at one level.
// Keys are only ever added.
type Visited struct {
	keys map[string]struct{}
}

// NewVisited returns an empty visited set
func NewVisited() *Visited {
	return &Visited{keys: make(map[string]struct{})}
}

func (v *Visited) Has(key string) bool {
	_, ok := v.keys[key]
	return ok
}

func (v *Visited) Mark(key string) {
	v.keys[key] = struct{}{}
}

func (v *Visited) Len() int {
	return len(v.keys)
}

// Outcome is the result of visiting one node
type Outcome int

const (
	// Succeeded means the node's change was observed and its subtree walked.
	Succeeded Outcome = iota
	// Unavailable means the wait timed out; the node is skipped.
	Unavailable
	// Failed means observation or clicking failed; the node is skipped.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Succeeded:
		return "succeeded"
	case Unavailable:
		return "unavailable"
	default:
		return "failed"
	}
}

// Level names one tier of the selection hierarchy and how to find its nodes
type Level struct {
	Name     string
	Selector string
}

// WalkStats counts what happened at one level
type WalkStats struct {
	Discovered  int      `json:"discovered"`
	Skipped     int      `json:"skipped"`
	Succeeded   int      `json:"succeeded"`
	Unavailable int      `json:"unavailable"`
	Failed      int      `json:"failed"`
	Missing     []string `json:"missing,omitempty"`
}

// Processed is the number of nodes visited during the walk
func (s WalkStats) Processed() int {
	return s.Succeeded + s.Unavailable + s.Failed
}

// Add accumulates other into s
func (s *WalkStats) Add(other WalkStats) {
	s.Discovered += other.Discovered
	s.Skipped += other.Skipped
	s.Succeeded += other.Succeeded
	s.Unavailable += other.Unavailable
	s.Failed += other.Failed
	s.Missing = append(s.Missing, other.Missing...)
}

// VisitFunc processes one node. label is the node's normalized text at discovery.
type VisitFunc func(ctx context.Context, n Node, label string) (Outcome, error)

// Walk visits the nodes of one level strictly in document order. Each visit
// finishes before the next node is touched. Nodes already in visited are
// skipped; every visited node is marked, whatever its outcome. Timeouts and
// node errors are logged and do not stop the walk. The returned error is
// non-nil only when the level could not be listed or ctx was cancelled.
func Walk(ctx context.Context, page Page, level Level, visited *Visited, logger *slog.Logger, visit VisitFunc) (WalkStats, error) {
	var stats WalkStats

	nodes, err := page.Query(ctx, level.Selector)
	if err != nil {
		return stats, fmt.Errorf("%w: list %s: %w", ErrObserve, level.Name, err)
	}
	stats.Discovered = len(nodes)

	for i, n := range nodes {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		key := n.Key()
		if key == "" {
			key = fmt.Sprintf("%s#%d", level.Name, i)
		}
		if visited.Has(key) {
			stats.Skipped++
			continue
		}

		text, err := n.Text(ctx)
		if err != nil {
			logger.Error("read node text", "stage", level.Name, "key", key, "err", err)
		}
		label := menu.NormalizeLabel(text)

		outcome, err := visit(ctx, n, label)
		visited.Mark(key)
		cancelled := errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)

		switch outcome {
		case Succeeded:
			stats.Succeeded++
		case Unavailable:
			stats.Unavailable++
			stats.Missing = append(stats.Missing, level.Name+" "+label)
			logger.Warn(level.Name+" is not available", "stage", level.Name, "label", label)
		default:
			stats.Failed++
			stats.Missing = append(stats.Missing, level.Name+" "+label)
			if !cancelled {
				logger.Error("error observing "+level.Name, "stage", level.Name, "label", label, "err", err)
			}
		}

		if cancelled {
			return stats, err
		}
	}

	return stats, nil
}
