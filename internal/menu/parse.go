package menu

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var caloriesPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^\s*(\d[\d,]*)\s*(?:k?cal|calories)\b`),
	regexp.MustCompile(`(?i)^\s*(?:calories|kcal|cal)\s*:?\s*(\d[\d,]*)\s*$`),
}

// ParseFood splits the rendered text of a food card into a Food record.
// Cards render as blank-line separated blocks: the first block is the name,
// a block like "180 Cal" carries the calories, everything else is description.
func ParseFood(raw string) Food {
	f := Food{Raw: strings.TrimSpace(raw)}

	blocks := SplitBlocks(raw)
	if len(blocks) == 0 {
		return f
	}
	f.Name = NormalizeLabel(blocks[0])

	var desc []string
	for _, b := range blocks[1:] {
		if f.Calories == 0 {
			if kcal, ok := parseKcal(b); ok {
				f.Calories = kcal
				continue
			}
		}
		desc = append(desc, NormalizeLabel(b))
	}
	f.Description = strings.Join(desc, " ")

	return f
}

// SplitBlocks splits text on blank lines, dropping empty blocks.
func SplitBlocks(raw string) []string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	var out []string
	for _, part := range strings.Split(raw, "\n\n") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// NormalizeLabel turns element text into a stable label: NFC normalized,
// newline separated fields joined by a space, runs of whitespace collapsed.
func NormalizeLabel(s string) string {
	s = norm.NFC.String(s)
	return strings.Join(strings.Fields(s), " ")
}

func parseKcal(s string) (int, bool) {
	for _, re := range caloriesPatterns {
		m := re.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}
