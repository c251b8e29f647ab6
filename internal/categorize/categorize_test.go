package categorize_test

import (
	"testing"

	"github.com/MrWong99/vocero/internal/categorize"
	"github.com/MrWong99/vocero/pkg/voice"
)

func sample() []voice.Voice {
	return []voice.Voice{
		{ID: "Jorge", Name: "Jorge", Language: voice.Spanish, Locale: "es_ES", Gender: voice.Male, Quality: voice.QualityBasic, Engine: "native"},
		{ID: "Monica", Name: "Monica", Language: voice.Spanish, Locale: "es_ES", Gender: voice.Female, Quality: voice.QualityBasic, Engine: "native"},
		{ID: "Samantha", Name: "Samantha", Language: voice.English, Locale: "en_US", Gender: voice.Female, Quality: voice.QualityEnhanced, Engine: "native"},
		{ID: "Siri_Voice_1", Name: "Siri Voice 1", Language: voice.English, Locale: "en_US", Quality: voice.QualitySiri, Engine: "native"},
		{ID: "Ava", Name: "Ava", Language: voice.LanguageUnknown, Quality: voice.QualityPremium, Engine: "native", RawDescription: "premium"},
		{ID: "mystery", Name: "Mystery", Language: voice.LanguageUnknown, Quality: voice.QualityBasic, Engine: "ai"},
	}
}

func TestCategorize_Precedence(t *testing.T) {
	t.Parallel()
	v := categorize.Categorize(sample())

	// Siri wins over its English language bucket.
	if got := len(v.Primary[categorize.BucketSiri]); got != 1 {
		t.Fatalf("siri bucket size = %d, want 1", got)
	}
	if v.Primary[categorize.BucketSiri][0].ID != "Siri_Voice_1" {
		t.Errorf("siri bucket holds %q", v.Primary[categorize.BucketSiri][0].ID)
	}

	// Language wins over quality: enhanced Samantha still lands in english.
	names := ids(v.Primary["english"])
	if len(names) != 1 || names[0] != "Samantha" {
		t.Errorf("english bucket = %v, want [Samantha]", names)
	}
	if got := ids(v.Primary["spanish"]); len(got) != 2 {
		t.Errorf("spanish bucket = %v, want 2 entries", got)
	}

	// No language, premium quality: quality bucket.
	if got := ids(v.Primary["premium"]); len(got) != 1 || got[0] != "Ava" {
		t.Errorf("premium bucket = %v, want [Ava]", got)
	}

	// Nothing matched: other.
	if got := ids(v.Primary[categorize.BucketOther]); len(got) != 1 || got[0] != "mystery" {
		t.Errorf("other bucket = %v, want [mystery]", got)
	}
}

func TestCategorize_PrimaryIsPartition(t *testing.T) {
	t.Parallel()
	in := sample()
	v := categorize.Categorize(in)

	seen := map[string]int{}
	total := 0
	for _, bucket := range v.Primary {
		for _, r := range bucket {
			seen[r.ID]++
			total++
		}
	}
	if total != len(in) {
		t.Fatalf("primary buckets hold %d records, input has %d", total, len(in))
	}
	for id, n := range seen {
		if n != 1 {
			t.Errorf("record %q appears in %d buckets", id, n)
		}
	}
}

func TestCategorize_SecondaryViews(t *testing.T) {
	t.Parallel()
	v := categorize.Categorize(sample())

	if got := ids(v.ByQuality["enhanced"]); len(got) != 1 || got[0] != "Samantha" {
		t.Errorf("ByQuality[enhanced] = %v, want [Samantha]", got)
	}
	if got := ids(v.ByQuality["premium"]); len(got) != 1 || got[0] != "Ava" {
		t.Errorf("ByQuality[premium] = %v, want [Ava]", got)
	}
	if got := ids(v.ByQuality[categorize.BucketSiri]); len(got) != 1 {
		t.Errorf("ByQuality[siri] = %v, want 1 entry", got)
	}
	// Basic-tier records are not cross-listed.
	for name, bucket := range v.ByQuality {
		for _, r := range bucket {
			if r.Quality == voice.QualityBasic {
				t.Errorf("basic voice %q cross-listed under %q", r.ID, name)
			}
		}
	}

	if got := len(v.ByGender["female"]); got != 2 {
		t.Errorf("ByGender[female] size = %d, want 2", got)
	}
	if got := ids(v.ByGender["male"]); len(got) != 1 || got[0] != "Jorge" {
		t.Errorf("ByGender[male] = %v, want [Jorge]", got)
	}
}

func TestCategorize_Deterministic(t *testing.T) {
	t.Parallel()
	in := sample()
	a := categorize.Categorize(in)
	b := categorize.Categorize(in)
	for name, bucket := range a.Primary {
		other := b.Primary[name]
		if len(other) != len(bucket) {
			t.Fatalf("bucket %q differs between runs", name)
		}
		for i := range bucket {
			if bucket[i].ID != other[i].ID {
				t.Errorf("bucket %q order differs at %d", name, i)
			}
		}
	}
}

func TestCategorize_Empty(t *testing.T) {
	t.Parallel()
	v := categorize.Categorize(nil)
	if len(v.Primary) != 0 || len(v.ByQuality) != 0 || len(v.ByGender) != 0 {
		t.Errorf("empty input produced non-empty views: %+v", v)
	}
}

func ids(records []voice.Voice) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}
