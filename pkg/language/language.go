// Package language picks the output language for generated text from the
// article itself.
package language

import (
	"strings"

	"github.com/pemistahl/lingua-go"
)

// Default is used when detection is inconclusive.
const Default = "en"

// Supported lists the output languages summaries can be written in.
var Supported = []lingua.Language{lingua.English, lingua.Spanish, lingua.Japanese}

// Detector maps text to a supported ISO 639-1 code.
type Detector struct {
	detector lingua.LanguageDetector
}

// NewDetector builds a detector restricted to the supported languages.
// Building loads language models, so create one per process.
func NewDetector() *Detector {
	d := lingua.NewLanguageDetectorBuilder().
		FromLanguages(Supported...).
		WithLowAccuracyMode().
		Build()
	return &Detector{detector: d}
}

// Detect returns the ISO 639-1 code of text, or Default.
func (d *Detector) Detect(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return Default
	}
	lang, ok := d.detector.DetectLanguageOf(sample(text))
	if !ok {
		return Default
	}
	return strings.ToLower(lang.IsoCode639_1().String())
}

const sampleRunes = 2000

// sample keeps detection cost flat on long articles.
func sample(text string) string {
	r := []rune(text)
	if len(r) <= sampleRunes {
		return text
	}
	return string(r[:sampleRunes])
}
