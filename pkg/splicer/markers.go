// Package splicer inserts annotation markers into HTML and text without
// corrupting document structure or annotating a region twice.
package splicer

import "github.com/dtnitsch/news-insight/models"

// Marker is the class and tooltip attached to an annotated span.
type Marker struct {
	Class   string
	Tooltip string
}

const (
	// annotationAttr identifies markers inserted by this package; text inside
	// them is never matched again.
	annotationAttr = "data-annotation"

	ProofreadClass = "unbias-proofread"
	RewriteClass   = "unbias-rewritten"
)

var categoryMarkers = map[models.Category]Marker{
	models.CategoryLoadedLanguage: {
		Class:   "unbias-highlight-loaded",
		Tooltip: "Loaded & Emotional Language: Words designed to provoke strong emotional responses instead of rational ones.",
	},
	models.CategoryAbsoluteGeneralization: {
		Class:   "unbias-highlight-absolute",
		Tooltip: "Absolutes & Hyperbole: Sweeping, all-or-nothing generalizations that are often unprovable.",
	},
	models.CategoryWeakSource: {
		Class:   "unbias-highlight-weak",
		Tooltip: "Vague & Uncertain Language: Words that hedge or obscure claims, often from anonymous sources.",
	},
}

// MarkerFor returns the marker used for a highlight category.
func MarkerFor(c models.Category) (Marker, bool) {
	m, ok := categoryMarkers[c]
	return m, ok
}
