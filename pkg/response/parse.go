package response

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/dtnitsch/news-insight/models"
)

// Result is a parsed record set. Raw always holds the model text so display
// paths can fall back to it; Dropped counts items that failed validation.
type Result[T any] struct {
	Items   []T
	Raw     string
	Dropped int
}

// Parsed reports whether at least one valid item was found.
func (r Result[T]) Parsed() bool {
	return len(r.Items) > 0
}

// each decodes every raw item into T and keeps those accepted by keep.
func each[T any](raw string, items []json.RawMessage, keep func(*T) bool) Result[T] {
	res := Result[T]{Raw: raw, Items: []T{}}
	for _, item := range items {
		var v T
		if err := json.Unmarshal(item, &v); err != nil || !keep(&v) {
			res.Dropped++
			continue
		}
		res.Items = append(res.Items, v)
	}
	return res
}

// Highlights parses phrase/category pairs. Items with an empty phrase or
// an unknown category are dropped individually.
func Highlights(raw string) Result[models.HighlightPhrase] {
	items, ok := rawItems(raw, "phrases", "items")
	if !ok {
		return Result[models.HighlightPhrase]{Raw: raw, Items: []models.HighlightPhrase{}}
	}
	return each(raw, items, func(p *models.HighlightPhrase) bool {
		p.Phrase = strings.TrimSpace(p.Phrase)
		p.Category = models.Category(strings.ToUpper(strings.TrimSpace(string(p.Category))))
		return p.Phrase != "" && p.Category.IsValid()
	})
}

// Biases parses bias items. Scores given on a 0-100 scale are normalised.
// When nothing parses, the whole response becomes a single label so the
// popup still has something to show.
func Biases(raw string) Result[models.BiasItem] {
	items, ok := rawItems(raw, "items", "biases")
	res := Result[models.BiasItem]{Raw: raw, Items: []models.BiasItem{}}
	if ok {
		res = each(raw, items, func(b *models.BiasItem) bool {
			b.Label = strings.TrimSpace(b.Label)
			b.Score = normalisePercent(b.Score)
			return b.Label != ""
		})
	}
	if !res.Parsed() {
		if text := strings.TrimSpace(raw); text != "" {
			res.Items = []models.BiasItem{{Label: text}}
		}
	}
	return res
}

// Claims parses claim items. Confidence is clamped to [0,1].
func Claims(raw string) Result[models.Claim] {
	items, ok := rawItems(raw, "items", "claims")
	if !ok {
		return Result[models.Claim]{Raw: raw, Items: []models.Claim{}}
	}
	return each(raw, items, func(c *models.Claim) bool {
		c.ShortClaim = strings.TrimSpace(c.ShortClaim)
		c.Confidence = clamp01(c.Confidence)
		return c.ShortClaim != ""
	})
}

// CalendarEvents parses date/event records. Both fields are required;
// duration defaults to one hour. Dates are normalised when dateparse
// understands them and kept verbatim otherwise.
func CalendarEvents(raw string) Result[models.CalendarEvent] {
	items, ok := rawItems(raw, "events", "items")
	if !ok {
		return Result[models.CalendarEvent]{Raw: raw, Items: []models.CalendarEvent{}}
	}
	return each(raw, items, func(e *models.CalendarEvent) bool {
		e.Date = strings.TrimSpace(e.Date)
		e.Event = strings.TrimSpace(e.Event)
		if e.Date == "" || e.Event == "" {
			return false
		}
		if e.DurationHours <= 0 {
			e.DurationHours = 1
		}
		e.Date = normaliseDate(e.Date)
		return true
	})
}

// Corrections parses proofreader corrections. Corrections that change
// nothing (zero length, empty replacement) are dropped.
func Corrections(raw string) Result[models.Correction] {
	items, ok := rawItems(raw, "corrections", "items")
	if !ok {
		return Result[models.Correction]{Raw: raw, Items: []models.Correction{}}
	}
	return each(raw, items, func(c *models.Correction) bool {
		return c.Offset >= 0 && c.Length >= 0 && (c.Length > 0 || c.Correction != "")
	})
}

// normalisePercent accepts both 0-1 and 0-100 scales.
func normalisePercent(v float64) float64 {
	if v > 1 && v <= 100 {
		v /= 100
	}
	return clamp01(v)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

func normaliseDate(s string) string {
	t, err := dateparse.ParseAny(s)
	if err != nil {
		return s
	}
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return t.Format(time.DateOnly)
	}
	return t.Format(time.RFC3339)
}
