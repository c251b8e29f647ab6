// Package voice defines the voice record model shared by every Vocero
// subsystem: the directory that discovers voices, the resolver that matches
// free-text queries against them, the categorizer that groups them for
// listing UIs, and the engines that ultimately speak with them.
//
// A [Voice] is a plain value. The directory owns the authoritative list;
// everything else receives copies and must not assume identity.
package voice

import "strings"

// Gender is the inferred gender of a voice. It is derived from name and
// description heuristics and is never authoritative.
type Gender string

const (
	Male          Gender = "male"
	Female        Gender = "female"
	GenderUnknown Gender = "unknown"
)

// Quality is a coarse fidelity ranking of a voice. The tiers are ordered
// from lowest to highest fidelity except [QualitySiri], which marks the
// vendor's assistant-branded voice family and sits outside the ordering.
type Quality string

const (
	QualityBasic    Quality = "basic"
	QualityEnhanced Quality = "enhanced"
	QualityPremium  Quality = "premium"
	QualitySiri     Quality = "siri"
	QualityNeural   Quality = "neural"
)

// IsValid reports whether q is a recognised quality tier.
func (q Quality) IsValid() bool {
	switch q {
	case QualityBasic, QualityEnhanced, QualityPremium, QualitySiri, QualityNeural:
		return true
	}
	return false
}

// Language is a lowercase ISO 639-1 language code ("es", "en", …) or
// [LanguageUnknown] when the source listing gave no usable hint.
type Language string

const (
	Spanish         Language = "es"
	English         Language = "en"
	French          Language = "fr"
	German          Language = "de"
	Italian         Language = "it"
	Portuguese      Language = "pt"
	Japanese        Language = "ja"
	Chinese         Language = "zh"
	Korean          Language = "ko"
	LanguageUnknown Language = "unknown"
)

// Voice describes one synthesis voice exposed by some engine.
//
// ID plus Engine are unique within one directory snapshot; Name is never
// empty (it falls back to ID at parse time).
type Voice struct {
	// ID is the stable identifier reported by the source engine, unique
	// within that engine's namespace (e.g. "Jorge", "es_speaker_03").
	ID string

	// Name is the human-readable display name. Defaults to ID.
	Name string

	// Language is the resolved language tag, or [LanguageUnknown].
	Language Language

	// Locale is an optional region-qualified tag in canonical ll_CC form
	// (e.g. "es_MX"). Empty when undetectable.
	Locale string

	// Gender is inferred from name/description patterns.
	Gender Gender

	// Quality is the inferred fidelity tier.
	Quality Quality

	// Engine names the synthesis engine that produced this record
	// ("native" or "ai").
	Engine string

	// RawDescription is the original listing text the record was parsed
	// from, retained for re-parsing and debugging.
	RawDescription string
}

// CanonicalLocale converts a locale tag to the canonical ll_CC convention:
// lowercase language, underscore separator, uppercase country. Tags without
// a region component are lowercased as-is. Empty input yields empty output.
func CanonicalLocale(locale string) string {
	if locale == "" {
		return ""
	}
	locale = strings.ReplaceAll(locale, "-", "_")
	parts := strings.SplitN(locale, "_", 2)
	if len(parts) == 1 {
		return strings.ToLower(parts[0])
	}
	return strings.ToLower(parts[0]) + "_" + strings.ToUpper(parts[1])
}
