// Package resolver matches free-text voice queries against a candidate list
// using a strict, ordered tie-break ladder. Matching is total: any non-empty
// candidate list yields a result, falling back to language and finally to
// plain list order.
package resolver

import (
	"sort"
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/MrWong99/vocero/pkg/voice"
)

// Tier identifies which rung of the matching ladder produced a result.
type Tier string

const (
	TierExact    Tier = "exact"
	TierPrefix   Tier = "prefix"
	TierPartial  Tier = "partial"
	TierLanguage Tier = "language"
	TierFirst    Tier = "first"
)

// Resolve finds the best match for query among candidates.
//
// The ladder runs strictly in order, and each tier scans the whole candidate
// list before the next tier is attempted: exact id/name equality, then
// id/name prefix, then name substring, then the first candidate speaking
// fallback (when non-unknown), then the first candidate outright. A blank
// query skips the text tiers, since an empty prefix would match everything.
//
// Comparison happens on accent-folded lowercase text, so "Mónica" and
// "monica" are the same query. The returned record is always a member of
// candidates; the only error is [voice.NotFoundError] on an empty list.
func Resolve(query string, candidates []voice.Voice, fallback voice.Language) (voice.Voice, Tier, error) {
	if len(candidates) == 0 {
		return voice.Voice{}, "", &voice.NotFoundError{Query: query}
	}

	q := voice.Normalize(strings.TrimSpace(query))
	if q != "" {
		for _, c := range candidates {
			if voice.Normalize(c.ID) == q || voice.Normalize(c.Name) == q {
				return c, TierExact, nil
			}
		}
		for _, c := range candidates {
			if strings.HasPrefix(voice.Normalize(c.ID), q) || strings.HasPrefix(voice.Normalize(c.Name), q) {
				return c, TierPrefix, nil
			}
		}
		for _, c := range candidates {
			if strings.Contains(voice.Normalize(c.Name), q) {
				return c, TierPartial, nil
			}
		}
	}

	if fallback != "" && fallback != voice.LanguageUnknown {
		for _, c := range candidates {
			if c.Language == fallback {
				return c, TierLanguage, nil
			}
		}
	}

	return candidates[0], TierFirst, nil
}

// Validate reports whether query matches a candidate through the text tiers
// alone. It distinguishes "this voice really exists" from a resolution that
// silently substituted a fallback.
func Validate(query string, candidates []voice.Voice) bool {
	_, tier, err := Resolve(query, candidates, "")
	if err != nil {
		return false
	}
	switch tier {
	case TierExact, TierPrefix, TierPartial:
		return true
	}
	return false
}

// Suggest returns up to max candidate names ranked by string similarity to
// query, for use in not-found diagnostics. Ties break by list order so the
// output is deterministic.
func Suggest(query string, candidates []voice.Voice, max int) []string {
	if max <= 0 || len(candidates) == 0 {
		return nil
	}

	q := voice.Normalize(strings.TrimSpace(query))
	type scored struct {
		name  string
		score float64
		pos   int
	}
	ranked := make([]scored, 0, len(candidates))
	for i, c := range candidates {
		s := matchr.JaroWinkler(q, voice.Normalize(c.Name), false)
		ranked = append(ranked, scored{name: c.Name, score: s, pos: i})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].pos < ranked[j].pos
	})

	if max > len(ranked) {
		max = len(ranked)
	}
	out := make([]string, 0, max)
	for _, r := range ranked[:max] {
		out = append(out, r.name)
	}
	return out
}
