package response

import (
	"testing"

	"github.com/dtnitsch/news-insight/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlice(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		container Container
		want      string
		wantOK    bool
	}{
		{
			name:      "array wrapped in prose",
			raw:       `Here you go: [1, 2] done`,
			container: Array,
			want:      `[1, 2]`,
			wantOK:    true,
		},
		{
			name:      "markdown fence",
			raw:       "```json\n{\"a\": 1}\n```",
			container: Object,
			want:      `{"a": 1}`,
			wantOK:    true,
		},
		{
			name:      "nested arrays keep outermost pair",
			raw:       `x [[1], [2]] y [3]`,
			container: Array,
			want:      `[[1], [2]]`,
			wantOK:    true,
		},
		{
			name:      "brackets inside strings are ignored",
			raw:       `[{"phrase": "a ] b"}] trailing ]`,
			container: Array,
			want:      `[{"phrase": "a ] b"}]`,
			wantOK:    true,
		},
		{
			name:      "unbalanced falls back to last close",
			raw:       `[1, [2] end`,
			container: Array,
			want:      `[1, [2]`,
			wantOK:    true,
		},
		{
			name:      "no brackets",
			raw:       `just prose`,
			container: Array,
			wantOK:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Slice(tt.raw, tt.container)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHighlights_ProseWrappedJSON(t *testing.T) {
	raw := `Here is the JSON: [{"phrase":"x","category":"LOADED_LANGUAGE"}] Thanks!`

	res := Highlights(raw)

	require.Len(t, res.Items, 1)
	assert.Equal(t, models.HighlightPhrase{Phrase: "x", Category: models.CategoryLoadedLanguage}, res.Items[0])
	assert.Equal(t, raw, res.Raw)
}

func TestHighlights_PureProse(t *testing.T) {
	res := Highlights("I could not find any loaded language in this text.")

	assert.NotNil(t, res.Items)
	assert.Empty(t, res.Items)
	assert.False(t, res.Parsed())
}

func TestHighlights_DropsInvalidItemsIndividually(t *testing.T) {
	raw := `[
		{"phrase": "brutal crackdown", "category": "LOADED_LANGUAGE"},
		{"phrase": "", "category": "WEAK_SOURCE"},
		{"phrase": "everyone knows", "category": "MADE_UP"},
		{"phrase": "experts say", "category": "weak_source"},
		"not an object"
	]`

	res := Highlights(raw)

	require.Len(t, res.Items, 2)
	assert.Equal(t, "brutal crackdown", res.Items[0].Phrase)
	assert.Equal(t, models.CategoryWeakSource, res.Items[1].Category)
	assert.Equal(t, 3, res.Dropped)
}

func TestHighlights_ObjectWrapper(t *testing.T) {
	res := Highlights(`{"phrases": [{"phrase": "nobody believes", "category": "ABSOLUTE_GENERALIZATION"}]}`)

	require.Len(t, res.Items, 1)
	assert.Equal(t, models.CategoryAbsoluteGeneralization, res.Items[0].Category)
}

func TestHighlights_MalformedJSON(t *testing.T) {
	res := Highlights(`[{"phrase": "x", "category": "LOADED_LANGUAGE"`)

	assert.Empty(t, res.Items)
}

func TestBiases(t *testing.T) {
	t.Run("items object with percentage score", func(t *testing.T) {
		res := Biases(`{"items": [{"label": "Framing", "detail": "one-sided quotes", "score": 62}]}`)

		require.Len(t, res.Items, 1)
		assert.InDelta(t, 0.62, res.Items[0].Score, 1e-9)
	})

	t.Run("prose becomes single label", func(t *testing.T) {
		res := Biases("The article leans on emotional adjectives.")

		require.Len(t, res.Items, 1)
		assert.Equal(t, "The article leans on emotional adjectives.", res.Items[0].Label)
	})

	t.Run("empty response", func(t *testing.T) {
		res := Biases("   ")

		assert.Empty(t, res.Items)
	})
}

func TestClaims(t *testing.T) {
	raw := "```json\n[" +
		`{"short_claim": "Unemployment fell to 3.9%", "confidence": 0.8, "how_to_verify": "Check BLS release"},` +
		`{"short_claim": "  ", "confidence": 0.3},` +
		`{"short_claim": "Turnout was a record", "confidence": 1.7}` +
		"]\n```"

	res := Claims(raw)

	require.Len(t, res.Items, 2)
	assert.Equal(t, "Check BLS release", res.Items[0].HowToVerify)
	assert.Equal(t, 1.0, res.Items[1].Confidence)
	assert.Equal(t, 1, res.Dropped)
}

func TestCalendarEvents(t *testing.T) {
	raw := `Events: [
		{"date": "2025-03-14", "event": "Budget vote", "duration_hours": 2},
		{"date": "March 20, 2025", "event": "Hearing"},
		{"date": "next-ish week", "event": "Summit"},
		{"event": "No date"},
		{"date": "2025-04-01"}
	]`

	res := CalendarEvents(raw)

	require.Len(t, res.Items, 3)
	assert.Equal(t, models.CalendarEvent{Date: "2025-03-14", Event: "Budget vote", DurationHours: 2}, res.Items[0])
	assert.Equal(t, "2025-03-20", res.Items[1].Date)
	assert.Equal(t, 1.0, res.Items[1].DurationHours)
	assert.Equal(t, "next-ish week", res.Items[2].Date)
	assert.Equal(t, 2, res.Dropped)
}

func TestCorrections(t *testing.T) {
	res := Corrections(`{"corrections": [{"offset": 4, "length": 3, "correction": "the", "explanation": "typo"}, {"offset": -1, "length": 2}]}`)

	require.Len(t, res.Items, 1)
	assert.Equal(t, 4, res.Items[0].Offset)
	assert.Equal(t, 1, res.Dropped)
}
