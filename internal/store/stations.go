package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/antzucaro/matchr"
)

// MinStationSimilarity is the Jaro-Winkler score a station label must reach
// to be returned by FindStation.
const MinStationSimilarity = 0.8

// StationMatch is a stored station label resolved from a typed query
type StationMatch struct {
	Label      string
	Similarity float64
}

// Stations returns the distinct station labels archived for run, or for
// every run when runID is empty.
func (s *Store) Stations(ctx context.Context, runID string) ([]string, error) {
	query := `SELECT DISTINCT station FROM foods`
	var args []any
	if runID != "" {
		query += ` WHERE run_id = ?`
		args = append(args, runID)
	}
	query += ` ORDER BY station`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list stations: %w", err)
	}
	defer rows.Close()

	var labels []string
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, err
		}
		labels = append(labels, label)
	}
	return labels, rows.Err()
}

// FindStation resolves a loosely typed station name ("salad", "grill
// station") against the labels archived for runID.
func (s *Store) FindStation(ctx context.Context, runID, query string) (StationMatch, error) {
	labels, err := s.Stations(ctx, runID)
	if err != nil {
		return StationMatch{}, err
	}
	best, ok := closestLabel(query, labels)
	if !ok {
		return StationMatch{}, fmt.Errorf("%w: %q", ErrNoStation, query)
	}
	return best, nil
}

// closestLabel returns the most similar label. An exact case-insensitive
// match or a label that starts with the query always wins.
func closestLabel(query string, labels []string) (StationMatch, bool) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return StationMatch{}, false
	}

	var best StationMatch
	for _, label := range labels {
		l := strings.ToLower(label)
		if l == q {
			return StationMatch{Label: label, Similarity: 1}, true
		}

		similarity := matchr.JaroWinkler(q, l, false)
		if strings.HasPrefix(l, q) && similarity < MinStationSimilarity {
			similarity = MinStationSimilarity
		}
		if similarity > best.Similarity {
			best = StationMatch{Label: label, Similarity: similarity}
		}
	}
	return best, best.Similarity >= MinStationSimilarity
}
