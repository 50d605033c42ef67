package annotate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/v0xg/menucrawl/internal/logging"
	"github.com/v0xg/menucrawl/internal/menu"
)

type fakeProvider struct {
	batches [][]Item
	reply   func(items []Item) []Tagged
	err     error
}

func (f *fakeProvider) Tag(_ context.Context, items []Item) ([]Tagged, error) {
	f.batches = append(f.batches, items)
	if f.err != nil {
		return nil, f.err
	}
	return f.reply(items), nil
}

func testSnapshot() *menu.Snapshot {
	b := menu.NewBuilder("https://dining.example/menu")
	b.AddDay("18 Tue", []menu.PeriodMenu{
		{Label: "Lunch", Stations: []menu.StationMenu{
			{Label: "Grill", Foods: []menu.Food{
				{Name: "Black Bean Burger", Calories: 420},
				{Name: "Water"},
			}},
			{Label: "Salad Bar", Foods: []menu.Food{
				{Name: "Water"},
				{Name: "Caesar Salad", Description: "romaine, parmesan"},
			}},
		}},
	})
	return b.Build(time.Date(2025, 11, 18, 9, 30, 0, 0, time.UTC))
}

func TestItems(t *testing.T) {
	items := Items(testSnapshot())

	assert.Equal(t, []Item{
		{Name: "Black Bean Burger", Calories: 420},
		{Name: "Water"},
		{Name: "Caesar Salad", Description: "romaine, parmesan"},
	}, items)
}

func TestApply(t *testing.T) {
	snap := testSnapshot()
	p := &fakeProvider{reply: func(items []Item) []Tagged {
		out := []Tagged{{Name: "Unrequested", Tags: []string{"vegan"}}}
		for _, it := range items {
			switch it.Name {
			case "Black Bean Burger":
				out = append(out, Tagged{Name: it.Name, Tags: []string{"High-Protein", "vegetarian", "made-up"}})
			case "Water":
				out = append(out, Tagged{Name: it.Name, Tags: []string{"vegan", " vegan "}})
			}
		}
		return out
	}}

	got, err := Apply(context.Background(), p, snap, Options{BatchSize: 2, Logger: logging.NewNop()})
	require.NoError(t, err)

	require.Len(t, p.batches, 2)
	assert.Len(t, p.batches[0], 2)
	assert.Len(t, p.batches[1], 1)

	grill := got.Lookup("18 Tue", "Lunch", "Grill")
	assert.Equal(t, []string{"vegetarian", "high-protein"}, grill[0].Tags)
	assert.Equal(t, []string{"vegan"}, grill[1].Tags)
	salad := got.Lookup("18 Tue", "Lunch", "Salad Bar")
	assert.Equal(t, []string{"vegan"}, salad[0].Tags)
	assert.Empty(t, salad[1].Tags)

	assert.Empty(t, snap.Lookup("18 Tue", "Lunch", "Grill")[0].Tags, "input snapshot is not modified")
}

func TestApply_ProviderError(t *testing.T) {
	p := &fakeProvider{err: errors.New("rate limited")}

	_, err := Apply(context.Background(), p, testSnapshot(), Options{Logger: logging.NewNop()})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
	assert.Contains(t, err.Error(), "foods 1-3")
}

func TestApply_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &fakeProvider{}

	_, err := Apply(ctx, p, testSnapshot(), Options{Logger: logging.NewNop()})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, p.batches)
}

func TestParseTagsJSON(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     []Tagged
		wantErr  bool
	}{
		{
			name:     "plain array",
			response: `[{"name": "Water", "tags": ["vegan"]}]`,
			want:     []Tagged{{Name: "Water", Tags: []string{"vegan"}}},
		},
		{
			name:     "fenced with prose",
			response: "Here you go:\n```json\n[{\"name\": \"Fries\", \"tags\": []}]\n```\nEnjoy.",
			want:     []Tagged{{Name: "Fries", Tags: []string{}}},
		},
		{
			name:     "bracket inside a name",
			response: `Sure: [{"name": "Soup [GF]", "tags": ["gluten-free"]}] done`,
			want:     []Tagged{{Name: "Soup [GF]", Tags: []string{"gluten-free"}}},
		},
		{name: "no array", response: "I cannot help with that.", wantErr: true},
		{name: "unterminated", response: `[{"name": "Water"`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseTagsJSON(tt.response)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewProvider(t *testing.T) {
	t.Setenv("MENUCRAWL_ANTHROPIC_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("MENUCRAWL_OPENAI_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	_, err := NewProvider("gemini", "")
	assert.ErrorContains(t, err, "unknown provider")

	_, err = NewProvider("claude", "")
	assert.ErrorContains(t, err, "ANTHROPIC_API_KEY")

	t.Setenv("OPENAI_API_KEY", "sk-test")
	p, err := NewProvider("openai", "")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", p.(*OpenAIProvider).model)

	t.Setenv("MENUCRAWL_ANTHROPIC_KEY", "sk-ant-test")
	p, err = NewProvider("anthropic", "claude-test")
	require.NoError(t, err)
	assert.Equal(t, "claude-test", p.(*ClaudeProvider).model)
}
