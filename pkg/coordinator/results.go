package coordinator

import "github.com/dtnitsch/news-insight/models"

// WebpageAnalysis is the ANALYSE_WEBPAGE result.
type WebpageAnalysis struct {
	Analysis string `json:"analysis" yaml:"analysis"`
}

// RewriteResult is the RUN_REWRITER result. HTML marks the rewritten span
// with the original text as its tooltip.
type RewriteResult struct {
	Original  string `json:"original" yaml:"original"`
	Rewritten string `json:"rewritten" yaml:"rewritten"`
	HTML      string `json:"html" yaml:"html"`
}

// CalendarResult is the EXTRACT_CALENDAR_EVENTS result.
type CalendarResult struct {
	URL    string                 `json:"url,omitempty" yaml:"url,omitempty"`
	Events []models.CalendarEvent `json:"events" yaml:"events"`
	Cached bool                   `json:"cached" yaml:"cached"`
}

// ImageAnalysis is the ANALYSE_IMAGE result.
type ImageAnalysis struct {
	ImageURL    string `json:"imageUrl" yaml:"image_url"`
	Description string `json:"description" yaml:"description"`
	Cached      bool   `json:"cached" yaml:"cached"`
}

// Answer is the ASK_WEBPAGE result.
type Answer struct {
	Question string `json:"question" yaml:"question"`
	Answer   string `json:"answer" yaml:"answer"`
}

// AnnotatedDocument is the result of highlighting a whole page.
type AnnotatedDocument struct {
	HTML       string `json:"html" yaml:"html"`
	Paragraphs int    `json:"paragraphs" yaml:"paragraphs"`
	Markers    int    `json:"markers" yaml:"markers"`
}
