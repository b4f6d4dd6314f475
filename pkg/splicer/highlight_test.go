package splicer

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/dtnitsch/news-insight/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func phrase(p string, c models.Category) models.HighlightPhrase {
	return models.HighlightPhrase{Phrase: p, Category: c}
}

func TestHighlight_WrapsFirstMatch(t *testing.T) {
	in := `Officials announced a brutal crackdown. Another brutal crackdown followed.`

	out, n, err := Highlight(in, []models.HighlightPhrase{phrase("Brutal Crackdown", models.CategoryLoadedLanguage)}, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, strings.Count(out, "<mark "))
	assert.True(t, strings.HasPrefix(out, `Officials announced a <mark class="unbias-highlight-loaded" data-annotation="LOADED_LANGUAGE" data-tooltip="`))
	assert.Contains(t, out, `>brutal crackdown</mark>. Another brutal crackdown followed.`)
}

func TestHighlight_WordBoundaries(t *testing.T) {
	in := `The bravest experts sayings were not experts say.`

	out, n, err := Highlight(in, []models.HighlightPhrase{phrase("experts say", models.CategoryWeakSource)}, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Contains(t, out, `were not <mark class="unbias-highlight-weak"`)
	assert.Contains(t, out, `The bravest experts sayings`)
}

func TestHighlight_SkipsMarkupAndHiddenText(t *testing.T) {
	in := `<a href="/experts-say" title="experts say">link</a><script>var s = "experts say";</script> and experts say so.`

	out, n, err := Highlight(in, []models.HighlightPhrase{phrase("experts say", models.CategoryWeakSource)}, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Contains(t, out, `<a href="/experts-say" title="experts say">link</a><script>var s = "experts say";</script> and <mark`)
}

func TestHighlight_TagEdgesAreWordBoundaries(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "footnote reference",
			in:   `It was a total disaster<sup>1</sup> today.`,
			want: `It was a <mark class="unbias-highlight-loaded" data-annotation="LOADED_LANGUAGE"`,
		},
		{
			name: "adjacent list items",
			in:   `<li>total disaster</li><li>next</li>`,
			want: `<li><mark class="unbias-highlight-loaded"`,
		},
		{
			name: "tight inline span",
			in:   `<span>a</span>total disaster<b>x</b>`,
			want: `<span>a</span><mark class="unbias-highlight-loaded"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, n, err := Highlight(tt.in, []models.HighlightPhrase{phrase("total disaster", models.CategoryLoadedLanguage)}, nil)

			require.NoError(t, err)
			assert.Equal(t, 1, n)
			assert.Contains(t, out, tt.want)
			assert.Contains(t, out, `>total disaster</mark>`)
		})
	}
}

func TestHighlight_PreservesStructure(t *testing.T) {
	in := `<b>Nobody</b> believes it &amp; <i>sources claim</i> otherwise.`
	phrases := []models.HighlightPhrase{
		phrase("Nobody believes", models.CategoryAbsoluteGeneralization),
		phrase("sources claim", models.CategoryWeakSource),
	}

	out, n, err := Highlight(in, phrases, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, n, "phrase spanning an element boundary is skipped")
	assert.Equal(t, `<b>Nobody</b> believes it &amp; <i><mark class="unbias-highlight-weak" data-annotation="WEAK_SOURCE" data-tooltip="Vague &amp; Uncertain Language: Words that hedge or obscure claims, often from anonymous sources.">sources claim</mark></i> otherwise.`, out)
}

func TestHighlight_LaterPhrasesDoNotMatchInjectedAttributes(t *testing.T) {
	in := `Critics call it loaded language and an emotional response.`
	phrases := []models.HighlightPhrase{
		phrase("loaded language", models.CategoryLoadedLanguage),
		phrase("emotional", models.CategoryLoadedLanguage),
		phrase("language", models.CategoryLoadedLanguage),
	}

	out, n, err := Highlight(in, phrases, nil)

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, strings.Count(out, "</mark>"))

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, in, doc.Text())
}

func TestHighlight_Idempotent(t *testing.T) {
	in := `<p>Experts say the plan is a disaster. Everyone knows experts say that. It is a disaster.</p>`
	phrases := []models.HighlightPhrase{
		phrase("experts say", models.CategoryWeakSource),
		phrase("disaster", models.CategoryLoadedLanguage),
		phrase("everyone knows", models.CategoryAbsoluteGeneralization),
		phrase("not present", models.CategoryLoadedLanguage),
	}

	once, n1, err := Highlight(in, phrases, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, n1)

	twice, n2, err := Highlight(once, phrases, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n2)
	assert.Equal(t, once, twice)
	assert.Equal(t, 3, strings.Count(twice, "<mark "))
}

func TestHighlight_DisabledCategory(t *testing.T) {
	in := `Sources claim a brutal crackdown.`
	settings := models.DefaultSettings()
	settings[models.FlagHighlightWeakSources] = false

	out, n, err := Highlight(in, []models.HighlightPhrase{
		phrase("sources claim", models.CategoryWeakSource),
		phrase("brutal crackdown", models.CategoryLoadedLanguage),
	}, settings)

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NotContains(t, out, "unbias-highlight-weak")
	assert.Contains(t, out, "unbias-highlight-loaded")
}

func TestHighlight_NoMatchReturnsInputUnchanged(t *testing.T) {
	in := `Plain&nbsp;text with <em>markup</em>.`

	out, n, err := Highlight(in, []models.HighlightPhrase{phrase("absent phrase", models.CategoryLoadedLanguage)}, nil)

	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, in, out)
}

func TestHighlight_ExistingForeignMarkIsMatchable(t *testing.T) {
	in := `<mark>so-called expert</mark> opinion`

	out, n, err := Highlight(in, []models.HighlightPhrase{phrase("so-called expert", models.CategoryLoadedLanguage)}, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Contains(t, out, `<mark><mark class="unbias-highlight-loaded"`)
}

func TestHighlightSelection(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<html><body><p>They say experts say a lot.</p><p>No match here.</p><p>Experts say more.</p></body></html>`))
	require.NoError(t, err)

	n, err := HighlightSelection(doc.Find("p"), []models.HighlightPhrase{phrase("experts say", models.CategoryWeakSource)}, nil)

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, doc.Find("mark.unbias-highlight-weak").Length())
}
