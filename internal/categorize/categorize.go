// Package categorize assigns voice records to presentation buckets for
// listing UIs.
//
// Every record lands in exactly one primary bucket, chosen by a fixed
// precedence: the vendor-special Siri family first, then a language bucket,
// then a quality bucket, then "other". Secondary views cross-list records
// along the quality and gender axes independently of the primary grouping.
package categorize

import (
	"strings"

	"github.com/MrWong99/vocero/pkg/voice"
)

// Bucket names for the primary grouping. BucketOther collects every record
// no other rule claims; categorization never fails.
const (
	BucketSiri  = "siri"
	BucketOther = "other"
)

// languageBuckets maps known languages to their primary bucket name.
// Checked after the Siri rule and before quality.
var languageBuckets = map[voice.Language]string{
	voice.Spanish:    "spanish",
	voice.English:    "english",
	voice.French:     "french",
	voice.German:     "german",
	voice.Italian:    "italian",
	voice.Portuguese: "portuguese",
	voice.Japanese:   "japanese",
	voice.Chinese:    "chinese",
	voice.Korean:     "korean",
}

// qualityBuckets maps non-basic quality tiers to their primary bucket name,
// used when a record has no recognised language.
var qualityBuckets = map[voice.Quality]string{
	voice.QualityEnhanced: "enhanced",
	voice.QualityPremium:  "premium",
	voice.QualityNeural:   "neural",
}

// Two independent textual rule sets, applied to the folded description when
// the record's parsed attributes are inconclusive. Kept as data so they can
// be tested and extended without touching control flow.
var (
	siriTextRules = []string{"siri"}

	languageTextRules = []struct {
		substrings []string
		bucket     string
	}{
		{[]string{"spanish", "espanol"}, "spanish"},
		{[]string{"english"}, "english"},
	}

	qualityTextRules = []struct {
		substrings []string
		bucket     string
	}{
		{[]string{"premium"}, "premium"},
		{[]string{"enhanced"}, "enhanced"},
		{[]string{"neural"}, "neural"},
	}
)

// Views holds the categorised voice listing: the exhaustive primary
// partition plus the secondary cross-listing views.
type Views struct {
	// Primary partitions the input: every record appears in exactly one
	// bucket, and the union of all buckets equals the input set.
	Primary map[string][]voice.Voice

	// ByQuality cross-lists records by quality tier, independent of the
	// primary grouping. Basic-tier records are omitted.
	ByQuality map[string][]voice.Voice

	// ByGender cross-lists records with an inferred gender.
	ByGender map[string][]voice.Voice
}

// Categorize assigns each record to its primary bucket and builds the
// secondary views. It is a pure function: the input is not modified and
// repeated calls yield identical results.
func Categorize(records []voice.Voice) Views {
	v := Views{
		Primary:   make(map[string][]voice.Voice),
		ByQuality: make(map[string][]voice.Voice),
		ByGender:  make(map[string][]voice.Voice),
	}

	for _, r := range records {
		bucket := primaryBucket(r)
		v.Primary[bucket] = append(v.Primary[bucket], r)

		if name, ok := qualityBuckets[r.Quality]; ok {
			v.ByQuality[name] = append(v.ByQuality[name], r)
		} else if r.Quality == voice.QualitySiri {
			v.ByQuality[BucketSiri] = append(v.ByQuality[BucketSiri], r)
		}

		switch r.Gender {
		case voice.Male:
			v.ByGender["male"] = append(v.ByGender["male"], r)
		case voice.Female:
			v.ByGender["female"] = append(v.ByGender["female"], r)
		}
	}
	return v
}

// primaryBucket applies the fixed precedence: vendor-special > language >
// quality > other. Attribute checks run first; the textual rules catch
// records whose attributes were not inferable at parse time.
func primaryBucket(r voice.Voice) string {
	folded := voice.Normalize(r.Name + " " + r.RawDescription)

	if r.Quality == voice.QualitySiri || containsAny(folded, siriTextRules) {
		return BucketSiri
	}

	if name, ok := languageBuckets[r.Language]; ok {
		return name
	}
	for _, rule := range languageTextRules {
		if containsAny(folded, rule.substrings) {
			return rule.bucket
		}
	}

	if name, ok := qualityBuckets[r.Quality]; ok {
		return name
	}
	for _, rule := range qualityTextRules {
		if containsAny(folded, rule.substrings) {
			return rule.bucket
		}
	}

	return BucketOther
}

func containsAny(folded string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(folded, p) {
			return true
		}
	}
	return false
}
