// Package annotate adds dietary tags to crawled foods using an LLM provider.
package annotate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/v0xg/menucrawl/internal/menu"
)

// DefaultBatchSize is the number of distinct foods sent per request
const DefaultBatchSize = 40

type Options struct {
	BatchSize int
	Logger    *slog.Logger
}

// Items returns the distinct foods of snap keyed by name, in first-seen order.
func Items(snap *menu.Snapshot) []Item {
	seen := map[string]bool{}
	var items []Item
	snap.EachStation(func(_, _ string, st menu.StationMenu) {
		for _, f := range st.Foods {
			if f.Name == "" || seen[f.Name] {
				continue
			}
			seen[f.Name] = true
			items = append(items, Item{Name: f.Name, Description: f.Description, Calories: f.Calories})
		}
	})
	return items
}

// Apply tags every distinct food in snap and returns the tagged copy. Names
// the provider returns that were not asked for are ignored. snap is never
// modified.
func Apply(ctx context.Context, p Provider, snap *menu.Snapshot, opts Options) (*menu.Snapshot, error) {
	size := opts.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	items := Items(snap)
	asked := make(map[string]bool, len(items))
	for _, it := range items {
		asked[it.Name] = true
	}

	tags := make(map[string][]string, len(items))
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		logger.Debug("annotating foods", "from", start, "to", end, "total", len(items))
		tagged, err := p.Tag(ctx, items[start:end])
		if err != nil {
			return nil, fmt.Errorf("failed to annotate foods %d-%d: %w", start+1, end, err)
		}
		for _, t := range tagged {
			if !asked[t.Name] {
				logger.Debug("ignoring unrequested food", "name", t.Name)
				continue
			}
			tags[t.Name] = normalizeTags(t.Tags)
		}
	}

	return snap.WithTags(tags), nil
}
