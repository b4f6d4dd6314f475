package splicer

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dtnitsch/news-insight/models"
	"golang.org/x/net/html"
)

// run is one token of the fragment. Text runs carry their unescaped text.
type run struct {
	raw    string
	text   string
	isText bool
	// locked text is either inside an existing marker or not rendered
	// (script, style); it is never matched.
	locked bool
	spans  []span
}

type span struct {
	start, end int // offsets into run.text
	category   models.Category
	marker     Marker
}

// document is the text-run model of an HTML fragment.
type document struct {
	runs  []*run
	texts []*run
	// marked holds the lower-cased text of every existing marker.
	marked map[string]struct{}
}

func parseRuns(fragment string) (*document, error) {
	doc := &document{marked: make(map[string]struct{})}
	z := html.NewTokenizer(strings.NewReader(fragment))

	var markStack []bool
	annotationDepth := 0
	hiddenDepth := 0
	var current strings.Builder

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if errors.Is(z.Err(), io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to tokenize HTML: %w", z.Err())
		}

		r := &run{raw: string(z.Raw())}
		switch tt {
		case html.TextToken:
			r.isText = true
			r.text = string(z.Text())
			r.locked = annotationDepth > 0 || hiddenDepth > 0
			if annotationDepth > 0 {
				current.WriteString(r.text)
			}

		case html.StartTagToken:
			name, hasAttr := z.TagName()
			switch string(name) {
			case "mark":
				isAnnotation := hasAttr && hasAnnotationAttr(z)
				markStack = append(markStack, isAnnotation)
				if isAnnotation {
					annotationDepth++
				}
			case "script", "style", "noscript", "template":
				hiddenDepth++
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "mark":
				if n := len(markStack); n > 0 {
					if markStack[n-1] {
						annotationDepth--
						if annotationDepth == 0 {
							doc.marked[strings.ToLower(strings.TrimSpace(current.String()))] = struct{}{}
							current.Reset()
						}
					}
					markStack = markStack[:n-1]
				}
			case "script", "style", "noscript", "template":
				if hiddenDepth > 0 {
					hiddenDepth--
				}
			}
		}
		doc.runs = append(doc.runs, r)
		if r.isText {
			doc.texts = append(doc.texts, r)
		}
	}

	return doc, nil
}

func hasAnnotationAttr(z *html.Tokenizer) bool {
	for {
		key, _, more := z.TagAttr()
		if string(key) == annotationAttr {
			return true
		}
		if !more {
			return false
		}
	}
}

func (r *run) overlaps(start, end int) bool {
	for _, s := range r.spans {
		if start < s.end && s.start < end {
			return true
		}
	}
	return false
}

// annotate wraps the first eligible occurrence of phrase. Matches never
// cross a text run, so each run is searched on its own and tag edges count
// as word boundaries. A phrase that is already marked anywhere in the
// fragment is left alone.
func (d *document) annotate(p models.HighlightPhrase, m Marker) bool {
	key := strings.ToLower(strings.TrimSpace(p.Phrase))
	if key == "" {
		return false
	}
	if _, done := d.marked[key]; done {
		return false
	}

	re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(strings.TrimSpace(p.Phrase)) + `\b`)
	if err != nil {
		return false
	}

	for _, r := range d.texts {
		if r.locked {
			continue
		}
		for _, loc := range re.FindAllStringIndex(r.text, -1) {
			if r.overlaps(loc[0], loc[1]) {
				continue
			}
			r.spans = append(r.spans, span{start: loc[0], end: loc[1], category: p.Category, marker: m})
			d.marked[key] = struct{}{}
			return true
		}
	}
	return false
}

func (d *document) render() string {
	var b strings.Builder
	for _, r := range d.runs {
		if len(r.spans) == 0 {
			b.WriteString(r.raw)
			continue
		}
		sort.Slice(r.spans, func(i, j int) bool { return r.spans[i].start < r.spans[j].start })
		pos := 0
		for _, s := range r.spans {
			b.WriteString(html.EscapeString(r.text[pos:s.start]))
			writeMarker(&b, "mark", s.marker, string(s.category), r.text[s.start:s.end])
			pos = s.end
		}
		b.WriteString(html.EscapeString(r.text[pos:]))
	}
	return b.String()
}

func writeMarker(b *strings.Builder, tag string, m Marker, annotation, text string) {
	fmt.Fprintf(b, `<%s class="%s" %s="%s" data-tooltip="%s">%s</%s>`,
		tag,
		html.EscapeString(m.Class),
		annotationAttr,
		html.EscapeString(annotation),
		html.EscapeString(m.Tooltip),
		html.EscapeString(text),
		tag,
	)
}

// Highlight wraps phrases of enabled categories in <mark> markers. Each
// phrase is searched case-insensitively on word boundaries in the visible
// text only; the first occurrence that lies inside a single text node and
// outside every existing marker is wrapped. Phrases not found are skipped.
// It returns the annotated fragment and the number of markers added.
func Highlight(fragment string, phrases []models.HighlightPhrase, settings models.Settings) (string, int, error) {
	doc, err := parseRuns(fragment)
	if err != nil {
		return fragment, 0, err
	}

	added := 0
	for _, p := range phrases {
		if !settings.HighlightCategoryEnabled(p.Category) {
			continue
		}
		m, ok := MarkerFor(p.Category)
		if !ok {
			continue
		}
		if doc.annotate(p, m) {
			added++
		}
	}

	if added == 0 {
		return fragment, 0, nil
	}
	return doc.render(), added, nil
}

// HighlightSelection applies Highlight to the inner HTML of every node in s.
func HighlightSelection(s *goquery.Selection, phrases []models.HighlightPhrase, settings models.Settings) (int, error) {
	total := 0
	var firstErr error
	s.Each(func(i int, node *goquery.Selection) {
		inner, err := node.Html()
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return
		}
		out, n, err := Highlight(inner, phrases, settings)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return
		}
		if n > 0 {
			node.SetHtml(out)
			total += n
		}
	})
	return total, firstErr
}
