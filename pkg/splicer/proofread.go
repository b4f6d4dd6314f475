package splicer

import (
	"sort"
	"strings"

	"github.com/dtnitsch/news-insight/models"
	"golang.org/x/net/html"
)

// Segments splits text into plain and corrected segments. Corrections are
// applied in ascending offset order; ones that fall outside the text or
// overlap an earlier correction are dropped. Gaps between corrections and
// the tail after the last one become plain segments, so concatenating each
// segment's Source() reproduces text exactly.
func Segments(text string, corrections []models.Correction) []models.ProofreadSegment {
	if len(corrections) == 0 {
		return []models.ProofreadSegment{{Text: text}}
	}

	runes := []rune(text)
	sorted := make([]models.Correction, len(corrections))
	copy(sorted, corrections)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Offset < sorted[j].Offset })

	segments := make([]models.ProofreadSegment, 0, 2*len(sorted)+1)
	last := 0
	for _, c := range sorted {
		end := c.Offset + c.Length
		if c.Offset < last || c.Length < 0 || end > len(runes) {
			continue
		}
		if c.Offset > last {
			segments = append(segments, models.ProofreadSegment{Text: string(runes[last:c.Offset])})
		}
		segments = append(segments, models.ProofreadSegment{
			Text:        c.Correction,
			Original:    string(runes[c.Offset:end]),
			Explanation: c.Explanation,
			Corrected:   true,
		})
		last = end
	}
	if last < len(runes) || len(segments) == 0 {
		segments = append(segments, models.ProofreadSegment{Text: string(runes[last:])})
	}
	return segments
}

// Original concatenates the source text of segments.
func Original(segments []models.ProofreadSegment) string {
	var b strings.Builder
	for _, s := range segments {
		b.WriteString(s.Source())
	}
	return b.String()
}

// Corrected concatenates the corrected text of segments.
func Corrected(segments []models.ProofreadSegment) string {
	var b strings.Builder
	for _, s := range segments {
		b.WriteString(s.Text)
	}
	return b.String()
}

// RenderSegments renders segments as HTML. Corrected segments become
// <span> markers whose tooltip carries the original text and explanation.
func RenderSegments(segments []models.ProofreadSegment) string {
	var b strings.Builder
	for _, s := range segments {
		if !s.Corrected {
			b.WriteString(html.EscapeString(s.Text))
			continue
		}
		tooltip := "Original: " + s.Original
		if s.Explanation != "" {
			tooltip += ". " + s.Explanation
		}
		writeMarker(&b, "span", Marker{Class: ProofreadClass, Tooltip: tooltip}, "proofread", s.Text)
	}
	return b.String()
}

// RenderRewrite renders rewritten text as a single marker whose tooltip
// holds the original.
func RenderRewrite(original, rewritten string) string {
	var b strings.Builder
	writeMarker(&b, "span", Marker{Class: RewriteClass, Tooltip: "Original: " + original}, "rewrite", rewritten)
	return b.String()
}
