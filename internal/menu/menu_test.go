package menu

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFood(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Food
	}{
		{
			name: "name calories description",
			raw:  "Scrambled Eggs\n\n180 Cal\n\nFluffy eggs with chives",
			want: Food{Name: "Scrambled Eggs", Calories: 180, Description: "Fluffy eggs with chives"},
		},
		{
			name: "labelled calories",
			raw:  "Lentil Soup\n\nCalories: 1,210",
			want: Food{Name: "Lentil Soup", Calories: 1210},
		},
		{
			name: "no calories",
			raw:  "Fresh Fruit\n\nSeasonal selection\n\nServed chilled",
			want: Food{Name: "Fresh Fruit", Description: "Seasonal selection Served chilled"},
		},
		{
			name: "name only",
			raw:  "  Toast  ",
			want: Food{Name: "Toast"},
		},
		{
			name: "crlf line endings",
			raw:  "Pancakes\r\n\r\n350 kcal",
			want: Food{Name: "Pancakes", Calories: 350},
		},
		{
			name: "empty",
			raw:  "",
			want: Food{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseFood(tt.raw)
			got.Raw = ""
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeLabel(t *testing.T) {
	assert.Equal(t, "18 Tue", NormalizeLabel("18\nTue"))
	assert.Equal(t, "Grill Station", NormalizeLabel("  Grill \t  Station\n"))
	// decomposed e + combining acute composes to a single rune
	assert.Equal(t, "Caf\u00e9", NormalizeLabel("Cafe\u0301"))
}

func fixtureSnapshot() *Snapshot {
	b := NewBuilder("https://example.test/store/1")
	b.AddDay("18 Tue", []PeriodMenu{{
		Label: "Breakfast",
		Stations: []StationMenu{{
			Label: "Grill",
			Foods: []Food{{Name: "Eggs", Calories: 180}, {Name: "Bacon", Calories: 90}},
		}},
	}})
	b.AddDay("19 Wed", []PeriodMenu{{
		Label: "Lunch",
		Stations: []StationMenu{{
			Label: "Deli",
			Foods: []Food{{Name: "Turkey Club"}},
		}},
	}})
	return b.Build(time.Date(2026, 3, 18, 9, 0, 0, 0, time.UTC))
}

func TestSnapshotViews(t *testing.T) {
	s := fixtureSnapshot()

	want := map[string]map[string]map[string][]Food{
		"18 Tue": {"Breakfast": {"Grill": {{Name: "Eggs", Calories: 180}, {Name: "Bacon", Calories: 90}}}},
		"19 Wed": {"Lunch": {"Deli": {{Name: "Turkey Club"}}}},
	}
	if diff := cmp.Diff(want, s.Map()); diff != "" {
		t.Errorf("Map() mismatch (-want +got):\n%s", diff)
	}

	assert.Len(t, s.Lookup("18 Tue", "Breakfast", "Grill"), 2)
	assert.Nil(t, s.Lookup("18 Tue", "Dinner", "Grill"))
	assert.Equal(t, 3, s.FoodCount())
}

func TestBuilderReturnsIndependentSnapshot(t *testing.T) {
	b := NewBuilder("site")
	b.AddDay("Mon", []PeriodMenu{{Label: "Lunch"}})
	first := b.Build(time.Time{})

	b.AddDay("Tue", nil)
	first.Days[0].Label = "changed"
	second := b.Build(time.Time{})

	require.Len(t, first.Days, 1)
	require.Len(t, second.Days, 2)
	assert.Equal(t, "Mon", second.Days[0].Label)
}

func TestWithTagsLeavesReceiverUntouched(t *testing.T) {
	s := fixtureSnapshot()
	tagged := s.WithTags(map[string][]string{"Eggs": {"vegetarian"}})

	assert.Equal(t, []string{"vegetarian"}, tagged.Lookup("18 Tue", "Breakfast", "Grill")[0].Tags)
	assert.Empty(t, s.Lookup("18 Tue", "Breakfast", "Grill")[0].Tags)
	assert.Empty(t, tagged.Lookup("18 Tue", "Breakfast", "Grill")[1].Tags)
}

func TestFilter(t *testing.T) {
	s := fixtureSnapshot()

	byDay := s.Filter("18\ntue", "")
	require.Len(t, byDay.Days, 1)
	assert.Equal(t, "18 Tue", byDay.Days[0].Label)
	assert.Equal(t, 2, byDay.FoodCount())

	byStation := s.Filter("", "deli")
	require.Len(t, byStation.Days, 2)
	assert.Empty(t, byStation.Days[0].Periods, "day without the station keeps its label only")
	assert.Len(t, byStation.Lookup("19 Wed", "Lunch", "Deli"), 1)

	assert.Empty(t, s.Filter("20 Thu", "").Days)
	assert.Equal(t, s.Map(), s.Filter("", "").Map())

	byStation.Days[1].Periods[0].Stations[0].Foods[0].Name = "changed"
	assert.Equal(t, "Turkey Club", s.Lookup("19 Wed", "Lunch", "Deli")[0].Name)
}
