package models

// Feature flag names stored under extensionSettings.
const (
	FlagHighlightLoadedLanguage = "highlightLoadedLanguage"
	FlagHighlightAbsolutes      = "highlightAbsolutes"
	FlagHighlightWeakSources    = "highlightWeakSources"
	FlagSummaryGeneration       = "summaryGeneration"
	FlagBiasDetection           = "biasDetection"
	FlagClaimsExtraction        = "claimsExtraction"
	FlagAIAnalysis              = "aiAnalysis"
	FlagContentRewriting        = "contentRewriting"
	FlagCriticalThinking        = "criticalThinking"
	FlagCalendarEvents          = "calendarEvents"
)

// AllFlags returns every known feature flag.
func AllFlags() []string {
	return []string{
		FlagHighlightLoadedLanguage,
		FlagHighlightAbsolutes,
		FlagHighlightWeakSources,
		FlagSummaryGeneration,
		FlagBiasDetection,
		FlagClaimsExtraction,
		FlagAIAnalysis,
		FlagContentRewriting,
		FlagCriticalThinking,
		FlagCalendarEvents,
	}
}

// IsKnownFlag checks if a flag name is a known feature flag.
func IsKnownFlag(name string) bool {
	for _, f := range AllFlags() {
		if f == name {
			return true
		}
	}
	return false
}

// Settings maps feature-flag names to their state. A flag that is absent
// counts as enabled.
type Settings map[string]bool

// DefaultSettings returns a fresh settings map with every flag enabled.
func DefaultSettings() Settings {
	s := make(Settings, len(AllFlags()))
	for _, f := range AllFlags() {
		s[f] = true
	}
	return s
}

// Enabled reports whether a flag is on. Only an explicit false disables it.
func (s Settings) Enabled(flag string) bool {
	v, ok := s[flag]
	return !ok || v
}

// Clone returns a copy that can be mutated independently.
func (s Settings) Clone() Settings {
	c := make(Settings, len(s))
	for k, v := range s {
		c[k] = v
	}
	return c
}

// CategoryFlag maps a highlight category to the flag that gates it.
func CategoryFlag(c Category) string {
	switch c {
	case CategoryLoadedLanguage:
		return FlagHighlightLoadedLanguage
	case CategoryAbsoluteGeneralization:
		return FlagHighlightAbsolutes
	case CategoryWeakSource:
		return FlagHighlightWeakSources
	default:
		return ""
	}
}

// HighlightCategoryEnabled reports whether highlighting of c is on.
func (s Settings) HighlightCategoryEnabled(c Category) bool {
	flag := CategoryFlag(c)
	return flag != "" && s.Enabled(flag)
}

// AnyHighlightEnabled reports whether at least one highlight category is on.
func (s Settings) AnyHighlightEnabled() bool {
	for _, c := range Categories() {
		if s.HighlightCategoryEnabled(c) {
			return true
		}
	}
	return false
}
