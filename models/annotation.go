package models

import "encoding/json"

// Category classifies a highlighted phrase.
type Category string

const (
	CategoryLoadedLanguage         Category = "LOADED_LANGUAGE"
	CategoryAbsoluteGeneralization Category = "ABSOLUTE_GENERALIZATION"
	CategoryWeakSource             Category = "WEAK_SOURCE"
)

// Categories returns every highlight category in display order.
func Categories() []Category {
	return []Category{
		CategoryLoadedLanguage,
		CategoryAbsoluteGeneralization,
		CategoryWeakSource,
	}
}

// IsValid checks if a category is one of the known highlight categories.
func (c Category) IsValid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// BiasItem is one potential bias found in an article.
type BiasItem struct {
	Label  string  `json:"label" yaml:"label"`
	Detail string  `json:"detail" yaml:"detail"`
	Score  float64 `json:"score" yaml:"score"` // 0-1
}

// BiasReport wraps bias items so the response shape stays {items: [...]}.
type BiasReport struct {
	Items []BiasItem `json:"items" yaml:"items"`
}

// Claim is a verifiable factual claim. Nothing is verified locally.
type Claim struct {
	ShortClaim  string  `json:"short_claim" yaml:"short_claim"`
	Confidence  float64 `json:"confidence" yaml:"confidence"` // 0-1
	HowToVerify string  `json:"how_to_verify" yaml:"how_to_verify"`
}

// ClaimReport wraps claims so the response shape stays {items: [...]}.
type ClaimReport struct {
	Items []Claim `json:"items" yaml:"items"`
}

// HighlightPhrase is a phrase the model wants highlighted.
type HighlightPhrase struct {
	Phrase   string   `json:"phrase" yaml:"phrase"`
	Category Category `json:"category" yaml:"category"`
}

// HighlightResult is the HIGHLIGHT_LANGUAGE response data.
type HighlightResult struct {
	Phrases []HighlightPhrase `json:"phrases" yaml:"phrases"`
}

// Correction is a single proofreader correction. Offset and Length count
// characters (runes) of the original text.
type Correction struct {
	Offset      int    `json:"offset" yaml:"offset"`
	Length      int    `json:"length" yaml:"length"`
	Correction  string `json:"correction" yaml:"correction"`
	Explanation string `json:"explanation,omitempty" yaml:"explanation,omitempty"`
}

// ProofreadSegment is one piece of a proofread text. Plain segments carry
// only Text; corrected segments also carry the Original they replace.
type ProofreadSegment struct {
	Text        string `json:"text" yaml:"text"`
	Original    string `json:"original,omitempty" yaml:"original,omitempty"`
	Explanation string `json:"explanation,omitempty" yaml:"explanation,omitempty"`
	Corrected   bool   `json:"corrected,omitempty" yaml:"corrected,omitempty"`
}

// correctedSegment is the wire form of a corrected segment. Original is
// kept even when empty (an insertion) so clients can rebuild the source
// text from text or original.
type correctedSegment struct {
	Text        string `json:"text" yaml:"text"`
	Original    string `json:"original" yaml:"original"`
	Explanation string `json:"explanation,omitempty" yaml:"explanation,omitempty"`
	Corrected   bool   `json:"corrected" yaml:"corrected"`
}

func (s ProofreadSegment) MarshalJSON() ([]byte, error) {
	type plain ProofreadSegment
	if !s.Corrected {
		return json.Marshal(plain(s))
	}
	return json.Marshal(correctedSegment(s))
}

func (s ProofreadSegment) MarshalYAML() (any, error) {
	type plain ProofreadSegment
	if !s.Corrected {
		return plain(s), nil
	}
	return correctedSegment(s), nil
}

// Source returns the original text covered by the segment.
func (s ProofreadSegment) Source() string {
	if s.Corrected {
		return s.Original
	}
	return s.Text
}

// CalendarEvent is a dated event mentioned in an article.
type CalendarEvent struct {
	Date          string  `json:"date" yaml:"date"`
	Event         string  `json:"event" yaml:"event"`
	DurationHours float64 `json:"duration_hours" yaml:"duration_hours"`
}

// AnalysisResult is the RUN_ANALYSIS response data.
type AnalysisResult struct {
	Summary string      `json:"summary" yaml:"summary"`
	Biases  BiasReport  `json:"biases" yaml:"biases"`
	Claims  ClaimReport `json:"claims" yaml:"claims"`
}
