package coordinator

import (
	"fmt"
	"strings"

	"github.com/dtnitsch/news-insight/models"
	"github.com/dtnitsch/news-insight/pkg/gateway"
)

const summaryContext = "This article is intended for a curious audience."

func pageHeader(page *models.PageContent) string {
	var b strings.Builder
	if page.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", page.Title)
	}
	if page.URL != "" {
		fmt.Fprintf(&b, "URL: %s\n", page.URL)
	}
	return b.String()
}

func summaryFallbackPrompt(page *models.PageContent) string {
	return fmt.Sprintf(`SUMMARIZE:
Summarize the following news article in 4-6 bullet points with a neutral tone. Cover who, what, when, where, why and how.

%sText:
%s`, pageHeader(page), page.Text)
}

func biasPrompt(page *models.PageContent) string {
	return fmt.Sprintf(`Identify potential biases, loaded language and missing perspectives in the article.
Return JSON {"items":[{"label":"","detail":"","score":0}]} where score is the subjectivity from 0 to 1.

%sText:
%s`, pageHeader(page), page.Text)
}

func biasSchema() *gateway.Schema {
	return gateway.ListSchema("items", gateway.ObjectSchema(map[string]*gateway.Schema{
		"label":  gateway.String(),
		"detail": gateway.String(),
		"score":  gateway.Number(),
	}))
}

func claimsPrompt(page *models.PageContent) string {
	return fmt.Sprintf(`Extract up to 8 verifiable factual claims from the article.
Return JSON {"items":[{"short_claim":"","confidence":0,"how_to_verify":""}]} with confidence from 0 to 1 and concise verification steps. Do not invent sources.

Text:
%s`, page.Text)
}

func claimsSchema() *gateway.Schema {
	return gateway.ListSchema("items", gateway.ObjectSchema(map[string]*gateway.Schema{
		"short_claim":   gateway.String(),
		"confidence":    gateway.Number(),
		"how_to_verify": gateway.String(),
	}))
}

func highlightPrompt(text string, categories []models.Category) string {
	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = string(c)
	}
	return fmt.Sprintf(`Find clear, high-impact phrases in the text that fall into one of these categories: %s.
LOADED_LANGUAGE: emotionally charged wording meant to sway the reader.
ABSOLUTE_GENERALIZATION: sweeping claims that something is always or never true.
WEAK_SOURCE: claims attributed to vague or anonymous sources.
Copy each phrase exactly as it appears. Prefer phrases of three or more words.
Return JSON {"phrases":[{"phrase":"","category":""}]}.

Text:
%s`, strings.Join(names, ", "), text)
}

func highlightSchema(categories []models.Category) *gateway.Schema {
	enum := make([]string, len(categories))
	for i, c := range categories {
		enum[i] = string(c)
	}
	return gateway.ListSchema("phrases", gateway.ObjectSchema(map[string]*gateway.Schema{
		"phrase":   gateway.String(),
		"category": {Type: gateway.TypeString, Enum: enum},
	}))
}

func webpageAnalysisPrompt(page *models.PageContent) string {
	return fmt.Sprintf(`Analyze this webpage and give a brief assessment of potential bias indicators and the key factual claims that would benefit from verification. Focus on objectivity.

%s
Content:
%s`, pageHeader(page), page.Text)
}

func rewritePrompt(text string) string {
	return "Rewrite the following text in neutral, precise language without loaded terms. Keep the meaning. Return only the rewritten text.\n\n" + text
}

func calendarPrompt(page *models.PageContent) string {
	published := page.PublishedTime
	if published == "" {
		published = "unknown"
	}
	return fmt.Sprintf(`List upcoming dated events mentioned in the article (meetings, votes, launches, deadlines).
Resolve relative dates against the publication date %s. Use ISO 8601 dates.
Return JSON {"events":[{"date":"","event":"","duration_hours":1}]}. Return {"events":[]} when there are none.

%sText:
%s`, published, pageHeader(page), page.Text)
}

func calendarSchema() *gateway.Schema {
	return gateway.ListSchema("events", gateway.ObjectSchema(map[string]*gateway.Schema{
		"date":           gateway.String(),
		"event":          gateway.String(),
		"duration_hours": gateway.Number(),
	}))
}

func imagePrompt(page *models.PageContent) string {
	p := "Describe this news image in two or three sentences. Point out anything that could frame the story, such as cropping, captions or emotional imagery."
	if page != nil && page.Title != "" {
		p += "\nThe image appears in an article titled: " + page.Title
	}
	return p
}

func questionPrompt(question string, page *models.PageContent) string {
	return fmt.Sprintf(`Answer the question using only the webpage below. If the page does not contain the answer, say so. Then suggest one follow-up question a critical reader should ask.

Question: %s

%sContent:
%s`, question, pageHeader(page), page.Text)
}
