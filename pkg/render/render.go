// Package render turns analysis results into sanitized HTML for the popup
// and the CLI's html output.
package render

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/dtnitsch/news-insight/models"
)

var bulletPattern = regexp.MustCompile(`^\s*(?:[*\-•]|\d+[.)])\s+(.+)$`)

// Renderer holds the sanitizing policies.
type Renderer struct {
	policy *bluemonday.Policy
	strict *bluemonday.Policy
}

func New() *Renderer {
	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("class", "data-annotation", "data-tooltip").OnElements("mark", "span", "div", "section", "p", "ul", "ol")
	policy.RequireNoFollowOnLinks(true)
	policy.AddTargetBlankToFullyQualifiedLinks(true)

	return &Renderer{
		policy: policy,
		strict: bluemonday.StrictPolicy(),
	}
}

// Sanitize strips unsafe markup but keeps annotation markers.
func (r *Renderer) Sanitize(content string) string {
	if content == "" {
		return ""
	}
	return r.policy.Sanitize(content)
}

// PlainText removes all markup from model output.
func (r *Renderer) PlainText(content string) string {
	return strings.TrimSpace(html.UnescapeString(r.strict.Sanitize(content)))
}

// Summary renders a model summary. Markdown-style bullet lines become a
// list; other lines become paragraphs.
func (r *Renderer) Summary(summary string) string {
	var b strings.Builder
	inList := false
	for _, line := range strings.Split(summary, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if m := bulletPattern.FindStringSubmatch(line); m != nil {
			if !inList {
				b.WriteString("<ul>")
				inList = true
			}
			b.WriteString("<li>" + inline(m[1]) + "</li>")
			continue
		}
		if inList {
			b.WriteString("</ul>")
			inList = false
		}
		b.WriteString("<p>" + inline(line) + "</p>")
	}
	if inList {
		b.WriteString("</ul>")
	}
	return r.Sanitize(b.String())
}

var boldPattern = regexp.MustCompile(`\*\*(.+?)\*\*`)

// inline escapes text and keeps **bold** emphasis.
func inline(s string) string {
	return boldPattern.ReplaceAllString(html.EscapeString(s), "<strong>$1</strong>")
}

// Biases renders bias items as a list.
func (r *Renderer) Biases(report models.BiasReport) string {
	var b strings.Builder
	b.WriteString(`<ul class="biases">`)
	for _, item := range report.Items {
		b.WriteString("<li>" + html.EscapeString(item.Label))
		if item.Detail != "" {
			b.WriteString(": " + html.EscapeString(item.Detail))
		}
		if item.Score > 0 {
			fmt.Fprintf(&b, " (score %.2f)", item.Score)
		}
		b.WriteString("</li>")
	}
	b.WriteString("</ul>")
	return r.Sanitize(b.String())
}

// Claims renders claims as an ordered list with verification hints.
func (r *Renderer) Claims(report models.ClaimReport) string {
	var b strings.Builder
	b.WriteString(`<ol class="claims">`)
	for _, c := range report.Items {
		b.WriteString("<li>" + html.EscapeString(c.ShortClaim))
		fmt.Fprintf(&b, " <em>(confidence %.0f%%)</em>", c.Confidence*100)
		if c.HowToVerify != "" {
			b.WriteString("<br>Verify: " + html.EscapeString(c.HowToVerify))
		}
		b.WriteString("</li>")
	}
	b.WriteString("</ol>")
	return r.Sanitize(b.String())
}

// Article renders extracted page content as a standalone section.
func (r *Renderer) Article(page *models.PageContent) string {
	var b strings.Builder
	b.WriteString("<article>")
	b.WriteString("<h1>" + html.EscapeString(page.Title) + "</h1>")
	var meta []string
	if page.Author != "" {
		meta = append(meta, html.EscapeString(page.Author))
	}
	if page.PublishedTime != "" {
		meta = append(meta, html.EscapeString(page.PublishedTime))
	}
	if len(meta) > 0 {
		b.WriteString(`<p class="meta">` + strings.Join(meta, " | ") + "</p>")
	}
	for _, para := range strings.Split(page.Text, "\n") {
		if para = strings.TrimSpace(para); para != "" {
			b.WriteString("<p>" + html.EscapeString(para) + "</p>")
		}
	}
	b.WriteString("</article>")
	return r.Sanitize(b.String())
}

// Report renders a full analysis page.
func (r *Renderer) Report(page *models.PageContent, result models.AnalysisResult) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>")
	title := "News Insight"
	if page != nil && page.Title != "" {
		title = page.Title
	}
	b.WriteString(html.EscapeString(title))
	b.WriteString("</title></head><body>\n")
	b.WriteString("<h1>" + html.EscapeString(title) + "</h1>\n")
	if page != nil && page.URL != "" {
		fmt.Fprintf(&b, "<p><a href=\"%s\">%s</a></p>\n", html.EscapeString(page.URL), html.EscapeString(page.URL))
	}
	b.WriteString("<h2>Summary</h2>\n" + r.Summary(result.Summary) + "\n")
	b.WriteString("<h2>Biases</h2>\n" + r.Biases(result.Biases) + "\n")
	b.WriteString("<h2>Claims</h2>\n" + r.Claims(result.Claims) + "\n")
	b.WriteString("</body></html>\n")
	return b.String()
}
