// Package parser derives PageContent from a page's HTML. Extraction is a
// pure function of the document plus the supplied collection time.
package parser

import (
	"bufio"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/dtnitsch/news-insight/models"
	"github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
)

const (
	// DefaultMinArticleLength is the text length a semantic container must
	// exceed before it is preferred over the longest-paragraph fallback.
	DefaultMinArticleLength = 400
	// DefaultMinParagraphLength is the shortest paragraph worth highlighting.
	DefaultMinParagraphLength = 50
)

var (
	warmupTitle     = regexp.MustCompile(`(?i)warmup`)
	warmupURL       = regexp.MustCompile(`warmup`)
	warmupGoogleURL = regexp.MustCompile(`(?i)google\.com/warmup`)
)

// IsWarmup reports whether a title/URL pair belongs to a placeholder page
// that must never be treated as content.
func IsWarmup(title, rawURL string) bool {
	return warmupTitle.MatchString(title) || warmupURL.MatchString(rawURL) || warmupGoogleURL.MatchString(rawURL)
}

// Usable reports whether page can be cached and analysed: it must carry
// text and must not be a warm-up page.
func Usable(page *models.PageContent) bool {
	return page.HasText() && !IsWarmup(page.Title, page.URL)
}

type Parser struct {
	MinArticleLength   int
	MinParagraphLength int
}

// New returns a parser with the default thresholds.
func New() *Parser {
	return &Parser{
		MinArticleLength:   DefaultMinArticleLength,
		MinParagraphLength: DefaultMinParagraphLength,
	}
}

// Extract builds PageContent from raw HTML. It returns models.ErrNoContent
// for warm-up pages and pages without text.
func (p *Parser) Extract(rawURL, rawHTML string, collectedAt time.Time) (*models.PageContent, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	page := &models.PageContent{
		URL:         rawURL,
		CollectedAt: collectedAt.UTC(),
	}
	page.Title, page.Author, page.PublishedTime = metadata(doc)
	if page.Author == "" || page.PublishedTime == "" {
		fillFromReadability(page, rawURL, rawHTML)
	}
	page.Text = p.mainText(doc)

	if !Usable(page) {
		return nil, models.ErrNoContent
	}
	return page, nil
}

// metadata reads title, author and published time from meta tags, falling
// back to <title>, rel=author and <time datetime>. Missing values are "".
func metadata(doc *goquery.Document) (title, author, published string) {
	title = attr(doc.Find(`meta[property="og:title"], meta[name="twitter:title"]`), "content")
	if title == "" {
		title = normalizeText(doc.Find("title").First().Text())
	}

	author = attr(doc.Find(`meta[name="author"]`), "content")
	if author == "" {
		author = normalizeText(doc.Find(`[rel="author"]`).First().Text())
	}

	published = attr(doc.Find(`meta[property="article:published_time"]`), "content")
	if published == "" {
		published = attr(doc.Find("time[datetime]"), "datetime")
	}
	return title, author, published
}

func attr(s *goquery.Selection, name string) string {
	v, _ := s.First().Attr(name)
	return strings.TrimSpace(v)
}

// fillFromReadability fills author and published time from go-readability
// when the page's own markup did not provide them. Failures are ignored.
func fillFromReadability(page *models.PageContent, rawURL, rawHTML string) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return
	}
	rp := readability.NewParser()
	article, err := rp.Parse(strings.NewReader(rawHTML), parsedURL)
	if err != nil {
		return
	}
	if page.Author == "" {
		page.Author = normalizeText(article.Byline)
	}
	if page.PublishedTime == "" && article.PublishedTime != nil {
		page.PublishedTime = article.PublishedTime.UTC().Format(time.RFC3339)
	}
}

// mainText prefers the first semantic container (article, then main) whose
// text exceeds MinArticleLength, otherwise the longest paragraph.
func (p *Parser) mainText(doc *goquery.Document) string {
	for _, sel := range []string{"article", "main"} {
		node := doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		text := innerText(node)
		if utf8.RuneCountInString(text) > p.MinArticleLength {
			return text
		}
	}

	longest := ""
	doc.Find("p").Each(func(i int, s *goquery.Selection) {
		text := normalizeText(s.Text())
		if utf8.RuneCountInString(text) > utf8.RuneCountInString(longest) {
			longest = text
		}
	})
	return longest
}

// Paragraph is a <p> block eligible for phrase highlighting.
type Paragraph struct {
	Index int
	Text  string
	HTML  string
}

// Paragraphs lists the document's paragraphs whose text is at least
// MinParagraphLength characters long, in document order.
func (p *Parser) Paragraphs(doc *goquery.Document) []Paragraph {
	var out []Paragraph
	doc.Find("p").Each(func(i int, s *goquery.Selection) {
		text := normalizeText(s.Text())
		if utf8.RuneCountInString(text) < p.MinParagraphLength {
			return
		}
		inner, err := s.Html()
		if err != nil {
			return
		}
		out = append(out, Paragraph{Index: i, Text: text, HTML: inner})
	})
	return out
}

var blockElements = map[string]struct{}{
	"p": {}, "div": {}, "section": {}, "article": {}, "main": {}, "header": {}, "footer": {},
	"h1": {}, "h2": {}, "h3": {}, "h4": {}, "h5": {}, "h6": {},
	"li": {}, "ul": {}, "ol": {}, "blockquote": {}, "pre": {}, "figure": {}, "figcaption": {},
	"table": {}, "tr": {}, "br": {}, "hr": {},
}

var skippedElements = map[string]struct{}{
	"script": {}, "style": {}, "noscript": {}, "template": {},
}

// innerText approximates the rendered text of a selection: block elements
// start new lines, whitespace inside a line is collapsed, and script-like
// elements are skipped.
func innerText(s *goquery.Selection) string {
	var b strings.Builder
	for _, n := range s.Nodes {
		writeText(&b, n)
	}
	return normalizeLines(b.String())
}

func writeText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		if _, skip := skippedElements[n.Data]; skip {
			return
		}
	}

	_, block := blockElements[n.Data]
	if block && n.Type == html.ElementNode {
		b.WriteByte('\n')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c)
	}
	if block && n.Type == html.ElementNode {
		b.WriteByte('\n')
	}
}

// normalizeLines collapses whitespace within each line and drops blank lines.
func normalizeLines(input string) string {
	var lines []string
	scanner := bufio.NewScanner(strings.NewReader(input))
	scanner.Buffer(make([]byte, 0, 64*1024), len(input)+1)
	for scanner.Scan() {
		if line := strings.Join(strings.Fields(scanner.Text()), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// normalizeText cleans up a string by trimming space and removing excess newlines.
func normalizeText(input string) string {
	return strings.Join(strings.Fields(input), " ")
}
