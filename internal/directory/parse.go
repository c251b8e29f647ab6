package directory

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/MrWong99/vocero/pkg/voice"
)

// The inference tables below are deliberately data, not code: each is an
// ordered list of case-insensitive substring rules applied to the folded
// "id + description" text of a listing line. First matching rule wins.
// Parsing never fails — unmatched attributes degrade to unknown/defaults.

// langRule maps description substrings to a language code.
type langRule struct {
	substrings []string
	lang       voice.Language
}

// languageRules resolve the record language from free text. Checked in
// order; the first rule with any matching substring wins.
var languageRules = []langRule{
	{[]string{"spanish", "espanol"}, voice.Spanish},
	{[]string{"english"}, voice.English},
	{[]string{"french", "francais"}, voice.French},
	{[]string{"german", "deutsch"}, voice.German},
	{[]string{"italian", "italiano"}, voice.Italian},
	{[]string{"portuguese", "portugues"}, voice.Portuguese},
	{[]string{"japanese"}, voice.Japanese},
	{[]string{"chinese", "mandarin"}, voice.Chinese},
	{[]string{"korean"}, voice.Korean},
}

// localeRule maps description substrings to a canonical locale, scoped to
// one language so that "united" can imply en_US without firing on Spanish
// voices.
type localeRule struct {
	lang       voice.Language
	substrings []string
	locale     string
}

var localeRules = []localeRule{
	{voice.Spanish, []string{"es_es", "spain", "espana"}, "es_ES"},
	{voice.Spanish, []string{"es_mx", "mexico"}, "es_MX"},
	{voice.Spanish, []string{"es_ar", "argentina"}, "es_AR"},
	{voice.Spanish, []string{"es_cl", "chile"}, "es_CL"},
	{voice.Spanish, []string{"es_co", "colombia"}, "es_CO"},
	{voice.English, []string{"en_us", "united states", "united"}, "en_US"},
	{voice.English, []string{"en_gb", "kingdom", "british"}, "en_GB"},
}

// qualityRule maps description substrings to a quality tier. Siri is listed
// first so the assistant-branded family is never mistaken for a generic tier.
type qualityRule struct {
	substrings []string
	quality    voice.Quality
}

var qualityRules = []qualityRule{
	{[]string{"siri"}, voice.QualitySiri},
	{[]string{"premium"}, voice.QualityPremium},
	{[]string{"enhanced"}, voice.QualityEnhanced},
	{[]string{"neural2", "neural"}, voice.QualityNeural},
}

// Gender name patterns carried over from the legacy voice detector: known
// voice names plus generic gendered words, matched against the folded
// id + description text. Male patterns are checked first.
var (
	malePatterns = []string{
		"jorge", "juan", "diego", "carlos", "alberto", "rey", "rocko",
		"reed", "grandpa", "male", "man", "boy", "hombre", "masculino",
	}
	femalePatterns = []string{
		"monica", "paulina", "angelica", "maria", "sandy", "flo",
		"shelley", "grandma", "marisol", "isabela", "soledad",
		"francisca", "jimena", "female", "woman", "girl", "lady",
		"mujer", "femenino",
	}
)

// localeToken matches a region-qualified locale column such as "es_ES" or
// "en-US" as emitted by `say -v ?`.
var localeToken = regexp.MustCompile(`^[a-zA-Z]{2}[_-][a-zA-Z]{2,3}$`)

// ParseListing parses raw listing lines into voice records for the given
// engine. Blank lines and lines without an ID token are skipped. Malformed
// input never fails; attributes that cannot be inferred degrade to
// unknown/defaults.
func ParseListing(engine string, lines []string) []voice.Voice {
	voices := make([]voice.Voice, 0, len(lines))
	for _, line := range lines {
		v, ok := parseLine(engine, line)
		if !ok {
			continue
		}
		voices = append(voices, v)
	}
	return voices
}

// parseLine parses a single listing line. The voice ID is everything before
// the locale column (`say -v ?` names may contain spaces, e.g. "Paulina
// (Enhanced)"); without a locale column the first token is the ID. The
// remainder of the line is kept as the free-text description.
func parseLine(engine, line string) (voice.Voice, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return voice.Voice{}, false
	}

	fields := strings.Fields(trimmed)
	id := fields[0]
	locale := ""
	for i := 1; i < len(fields); i++ {
		if localeToken.MatchString(fields[i]) {
			id = strings.Join(fields[:i], " ")
			locale = fields[i]
			break
		}
		// The comment marker ends the name region; AI studio speakers
		// have multi-word names with no locale column at all.
		if strings.HasPrefix(fields[i], "#") {
			id = strings.Join(fields[:i], " ")
			break
		}
	}

	v := voice.Voice{
		ID:             id,
		Name:           displayName(id),
		Language:       voice.LanguageUnknown,
		Gender:         voice.GenderUnknown,
		Quality:        voice.QualityBasic,
		Engine:         engine,
		RawDescription: strings.TrimSpace(strings.TrimPrefix(trimmed, id)),
	}

	// A locale column straight from the listing beats any description
	// heuristic.
	if locale != "" {
		v.Locale = voice.CanonicalLocale(locale)
		v.Language = languageFromLocale(v.Locale)
	}

	folded := voice.Normalize(id + " " + v.RawDescription)

	if v.Language == voice.LanguageUnknown {
		for _, rule := range languageRules {
			if containsAny(folded, rule.substrings) {
				v.Language = rule.lang
				break
			}
		}
	}
	if v.Locale == "" {
		for _, rule := range localeRules {
			if rule.lang == v.Language && containsAny(folded, rule.substrings) {
				v.Locale = rule.locale
				break
			}
		}
	}
	for _, rule := range qualityRules {
		if containsAny(folded, rule.substrings) {
			v.Quality = rule.quality
			break
		}
	}
	// Gender words are matched on whole tokens: "male" is a substring of
	// "female" and "man" of "woman", so substring checks would misfire.
	tokens := strings.Fields(folded)
	switch {
	case containsToken(tokens, malePatterns):
		v.Gender = voice.Male
	case containsToken(tokens, femalePatterns):
		v.Gender = voice.Female
	}

	return v, true
}

// languageFromLocale maps the language part of a canonical locale to a
// known [voice.Language], or unknown for codes outside the table.
func languageFromLocale(locale string) voice.Language {
	code, _, _ := strings.Cut(locale, "_")
	switch voice.Language(code) {
	case voice.Spanish, voice.English, voice.French, voice.German,
		voice.Italian, voice.Portuguese, voice.Japanese, voice.Chinese,
		voice.Korean:
		return voice.Language(code)
	}
	return voice.LanguageUnknown
}

// displayName converts a voice ID to a readable name: underscores become
// spaces and each word is capitalised ("bad_news" → "Bad News").
func displayName(id string) string {
	words := strings.Fields(strings.ReplaceAll(id, "_", " "))
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// containsAny reports whether folded contains any of the given substrings.
// Both sides must already be normalized.
func containsAny(folded string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(folded, p) {
			return true
		}
	}
	return false
}

// containsToken reports whether any token equals one of the given patterns.
// Trailing punctuation on tokens (commas in descriptions) is ignored.
func containsToken(tokens, patterns []string) bool {
	for _, tok := range tokens {
		tok = strings.TrimFunc(tok, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		})
		for _, p := range patterns {
			if tok == p {
				return true
			}
		}
	}
	return false
}
