package render

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dtnitsch/news-insight/models"
)

func TestSummary(t *testing.T) {
	r := New()

	tests := []struct {
		name    string
		summary string
		want    string
	}{
		{"bullets then prose", "* one\n* two\nClosing", "<ul><li>one</li><li>two</li></ul><p>Closing</p>"},
		{"dash and numbered", "- a\n2. b", "<ul><li>a</li><li>b</li></ul>"},
		{"bold", "- **Who**: council", "<ul><li><strong>Who</strong>: council</li></ul>"},
		{"blank lines skipped", "\n\nOnly\n\n", "<p>Only</p>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Summary(tt.summary))
		})
	}
}

func TestSummary_EscapesMarkup(t *testing.T) {
	out := New().Summary(`* <script>alert(1)</script> <img src=x onerror=alert(1)>`)
	assert.NotContains(t, out, "<script")
	assert.NotContains(t, out, "<img")
}

func TestSanitize_KeepsAnnotations(t *testing.T) {
	in := `<p>He said <mark class="unbias-highlight-loaded" data-annotation="LOADED_LANGUAGE" data-tooltip="Loaded" onclick="x()">brutal</mark></p>`
	out := New().Sanitize(in)
	assert.Contains(t, out, `class="unbias-highlight-loaded"`)
	assert.Contains(t, out, `data-tooltip="Loaded"`)
	assert.Contains(t, out, `data-annotation="LOADED_LANGUAGE"`)
	assert.NotContains(t, out, "onclick")
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "Hi & you", New().PlainText("<b>Hi</b> &amp; you"))
}

func TestBiasesAndClaims(t *testing.T) {
	r := New()

	biases := r.Biases(models.BiasReport{Items: []models.BiasItem{
		{Label: "Framing", Detail: "one-sided <quotes>", Score: 0.62},
	}})
	assert.Contains(t, biases, "Framing: one-sided &lt;quotes&gt; (score 0.62)")
	assert.Contains(t, biases, `<ul class="biases">`)

	claims := r.Claims(models.ClaimReport{Items: []models.Claim{
		{ShortClaim: "Budget rose 5%", Confidence: 0.8, HowToVerify: "Check the city budget"},
	}})
	assert.Contains(t, claims, "Budget rose 5%")
	assert.Contains(t, claims, "confidence 80%")
	assert.Contains(t, claims, "Verify: Check the city budget")
}

func TestReport(t *testing.T) {
	out := New().Report(
		&models.PageContent{Title: "Council <votes>", URL: "https://example.com/a"},
		models.AnalysisResult{Summary: "- point"},
	)
	assert.Contains(t, out, "<title>Council &lt;votes&gt;</title>")
	assert.Contains(t, out, "<li>point</li>")
	assert.Contains(t, out, `href="https://example.com/a"`)
}

func TestArticle(t *testing.T) {
	out := New().Article(&models.PageContent{
		Title:  "Budget",
		Author: "A. Writer",
		Text:   "First paragraph.\n\nSecond <b>paragraph</b>.",
	})
	assert.Contains(t, out, "<h1>Budget</h1>")
	assert.Contains(t, out, `<p class="meta">A. Writer</p>`)
	assert.Contains(t, out, "<p>First paragraph.</p>")
	assert.Contains(t, out, "<p>Second &lt;b&gt;paragraph&lt;/b&gt;.</p>")
}
