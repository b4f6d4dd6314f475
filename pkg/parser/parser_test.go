package parser

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/dtnitsch/news-insight/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var collected = time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

func longParagraph(word string) string {
	return strings.TrimSpace(strings.Repeat(word+" ", 90))
}

func TestExtract_PrefersArticle(t *testing.T) {
	body := longParagraph("council")
	html := `<html><head>
		<title>Fallback title</title>
		<meta property="og:title" content="Council passes budget">
		<meta name="author" content="Jane Reporter">
		<meta property="article:published_time" content="2025-04-30T08:00:00Z">
	</head><body>
		<nav>Home | World</nav>
		<article><h1>Council passes budget</h1><p>` + body + `</p><script>var x = 1;</script></article>
		<p>Short footer paragraph.</p>
	</body></html>`

	page, err := New().Extract("https://news.example.com/budget", html, collected)

	require.NoError(t, err)
	assert.Equal(t, "Council passes budget", page.Title)
	assert.Equal(t, "Jane Reporter", page.Author)
	assert.Equal(t, "2025-04-30T08:00:00Z", page.PublishedTime)
	assert.Equal(t, "https://news.example.com/budget", page.URL)
	assert.Equal(t, collected, page.CollectedAt)
	assert.Equal(t, "Council passes budget\n"+body, page.Text)
	assert.NotContains(t, page.Text, "var x")
}

func TestExtract_FallsBackToLongestParagraph(t *testing.T) {
	html := `<html><head><title>Brief</title></head><body>
		<article><p>Too short to count.</p></article>
		<p>A medium paragraph with a few words.</p>
		<div><p>The   longest paragraph on the page, with
		some extra whitespace inside it.</p></div>
	</body></html>`

	page, err := New().Extract("https://example.com/brief", html, collected)

	require.NoError(t, err)
	assert.Equal(t, "Brief", page.Title)
	assert.Equal(t, "The longest paragraph on the page, with some extra whitespace inside it.", page.Text)
	assert.Equal(t, "", page.Author)
}

func TestExtract_MainLandmark(t *testing.T) {
	body := longParagraph("harbor")
	html := `<html><body><main><p>` + body + `</p></main></body></html>`

	page, err := New().Extract("https://example.com/harbor", html, collected)

	require.NoError(t, err)
	assert.Equal(t, body, page.Text)
}

func TestExtract_TimeElementFallback(t *testing.T) {
	html := `<html><body><p>Some paragraph text.</p><time datetime="2025-01-02">Jan 2</time></body></html>`

	page, err := New().Extract("https://example.com/t", html, collected)

	require.NoError(t, err)
	assert.Equal(t, "2025-01-02", page.PublishedTime)
}

func TestExtract_NoContent(t *testing.T) {
	tests := []struct {
		name string
		url  string
		html string
	}{
		{
			name: "empty body",
			url:  "https://example.com/empty",
			html: `<html><head><title>Empty</title></head><body></body></html>`,
		},
		{
			name: "warmup title",
			url:  "https://example.com/page",
			html: `<html><head><title>WarmUp</title></head><body><p>hello</p></body></html>`,
		},
		{
			name: "warmup url",
			url:  "https://x.com/warmup",
			html: `<html><head><title>ok</title></head><body><p>hello</p></body></html>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := New().Extract(tt.url, tt.html, collected)
			assert.Nil(t, page)
			assert.True(t, errors.Is(err, models.ErrNoContent))
		})
	}
}

func TestIsWarmup(t *testing.T) {
	tests := []struct {
		title string
		url   string
		want  bool
	}{
		{"warmup", "https://x.com/warmup", true},
		{"Daily News", "https://www.google.com/WarmUp", true},
		{"Daily News", "https://example.com/WARMUP", false},
		{"Daily News", "https://example.com/story", false},
		{"Stadium warmup routine", "https://example.com/sports", true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IsWarmup(tt.title, tt.url), "%s %s", tt.title, tt.url)
	}
}

func TestUsable(t *testing.T) {
	assert.False(t, Usable(&models.PageContent{Title: "warmup", URL: "https://x.com/warmup", Text: "hello"}))
	assert.False(t, Usable(&models.PageContent{Title: "News", URL: "https://x.com/a", Text: "  \n "}))
	assert.False(t, Usable(nil))
	assert.True(t, Usable(&models.PageContent{Title: "News", URL: "https://x.com/a", Text: "hello"}))
}

func TestParagraphs(t *testing.T) {
	html := `<html><body>
		<p>tiny</p>
		<p>This paragraph is long enough to be analysed for <b>loaded</b> language today.</p>
	</body></html>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)

	paras := New().Paragraphs(doc)

	require.Len(t, paras, 1)
	assert.Equal(t, 1, paras[0].Index)
	assert.Contains(t, paras[0].HTML, "<b>loaded</b>")
	assert.Equal(t, "This paragraph is long enough to be analysed for loaded language today.", paras[0].Text)
}
