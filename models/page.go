package models

import (
	"strings"
	"time"
)

// PageContent is the canonical text view of a page used as the unit of analysis.
// It is produced once per page load and never mutated afterwards.
type PageContent struct {
	Title         string    `json:"title" yaml:"title"`
	Author        string    `json:"author" yaml:"author"`
	PublishedTime string    `json:"publishedTime" yaml:"published_time"`
	URL           string    `json:"url" yaml:"url"`
	Text          string    `json:"text" yaml:"text"`
	CollectedAt   time.Time `json:"collectedAt" yaml:"collected_at"`
}

// HasText reports whether the page carries any non-whitespace text.
func (p *PageContent) HasText() bool {
	return p != nil && strings.TrimSpace(p.Text) != ""
}

// TextPayload is the payload of requests that operate on a bare string
// (HIGHLIGHT_LANGUAGE, RUN_PROOFREADER, RUN_REWRITER).
type TextPayload struct {
	Text string `json:"text" yaml:"text"`
}

// ImagePayload identifies an image on a page.
type ImagePayload struct {
	ImageURL string `json:"imageUrl" yaml:"image_url"`
	PageURL  string `json:"pageUrl,omitempty" yaml:"page_url,omitempty"`
}

// QuestionPayload asks a free-form question about a page.
type QuestionPayload struct {
	Question string       `json:"question" yaml:"question"`
	Page     *PageContent `json:"page,omitempty" yaml:"page,omitempty"`
}
