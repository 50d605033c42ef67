package annotate

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Vocabulary lists the tags a provider may return, in display order.
var Vocabulary = []string{
	"vegetarian",
	"vegan",
	"gluten-free",
	"dairy-free",
	"contains-nuts",
	"contains-shellfish",
	"high-protein",
	"spicy",
}

var systemPrompt = `You label dining hall menu items with dietary tags.

You will receive a JSON array of foods. Each food has a "name" and may have a
"description" and "calories".

For every food, output an object with:
- "name": the food name exactly as given
- "tags": zero or more of: ` + strings.Join(Vocabulary, ", ") + `

Only use a tag when the name or description makes it likely. When unsure,
leave the tag out. Foods with no applicable tags get "tags": [].

Example output:
[
  {"name": "Black Bean Burger", "tags": ["vegetarian", "high-protein"]},
  {"name": "Water", "tags": ["vegan", "gluten-free", "dairy-free"]}
]

Respond ONLY with the JSON array, no explanation or markdown.`

func buildUserPrompt(items []Item) (string, error) {
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal foods: %w", err)
	}
	return "Foods:\n" + string(data), nil
}

// maxTokens sizes the response budget to the batch
func maxTokens(items int) int64 {
	return int64(256 + 48*items)
}
