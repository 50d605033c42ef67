package annotate

import (
	"encoding/json"
	"fmt"
	"strings"
)

// parseTagsJSON extracts and parses a JSON array from a response that may
// contain surrounding text or a code fence.
func parseTagsJSON(response string) ([]Tagged, error) {
	var tagged []Tagged
	if err := json.Unmarshal([]byte(response), &tagged); err == nil {
		return tagged, nil
	}

	start := strings.Index(response, "[")
	if start == -1 {
		return nil, fmt.Errorf("no JSON array found in response")
	}

	end := -1
	depth := 0
	inString := false
	escaped := false
scan:
	for i := start; i < len(response); i++ {
		c := response[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '[':
			depth++
		case c == ']':
			depth--
			if depth == 0 {
				end = i + 1
				break scan
			}
		}
	}
	if end == -1 {
		return nil, fmt.Errorf("no matching closing bracket found")
	}

	if err := json.Unmarshal([]byte(response[start:end]), &tagged); err != nil {
		return nil, fmt.Errorf("failed to parse extracted JSON: %w", err)
	}
	return tagged, nil
}

// normalizeTags lower-cases tags, drops anything outside Vocabulary and
// returns the rest in Vocabulary order.
func normalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		seen[strings.ToLower(strings.TrimSpace(t))] = true
	}
	out := []string{}
	for _, v := range Vocabulary {
		if seen[v] {
			out = append(out, v)
		}
	}
	return out
}
