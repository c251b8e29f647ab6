package selector_test

import (
	"context"
	"errors"
	"testing"

	"github.com/MrWong99/vocero/internal/directory"
	"github.com/MrWong99/vocero/internal/engine"
	"github.com/MrWong99/vocero/internal/resolver"
	"github.com/MrWong99/vocero/internal/selector"
	"github.com/MrWong99/vocero/pkg/voice"
)

// fakeEngine is an engine stub with controllable availability.
type fakeEngine struct {
	name   string
	down   error
	probes int
}

func (f *fakeEngine) Name() string { return f.name }

func (f *fakeEngine) Available(context.Context) error {
	f.probes++
	return f.down
}

func (f *fakeEngine) Synthesize(_ context.Context, _ engine.Request, v voice.Voice) (*engine.SpeechResult, error) {
	return &engine.SpeechResult{Engine: f.name, Voice: v, Played: true}, nil
}

func newFixture(t *testing.T, nativeDown, aiDown error) (*selector.Selector, *fakeEngine, *fakeEngine) {
	t.Helper()
	dir := directory.New([]directory.Source{
		&directory.StaticSource{EngineName: "native", Lines: []string{
			"Jorge    es_ES  # Hola, me llamo Jorge.",
			"Samantha en_US  # Hello, my name is Samantha.",
		}},
		&directory.StaticSource{EngineName: "ai", Lines: []string{
			"Ana Florence # xtts studio speaker, spanish female",
			"Kazuhiko # xtts studio speaker, japanese male",
		}},
	})
	native := &fakeEngine{name: "native", down: nativeDown}
	ai := &fakeEngine{name: "ai", down: aiDown}
	return selector.New(dir, []engine.Engine{native, ai}), native, ai
}

func TestSelect_ExplicitPreference(t *testing.T) {
	t.Parallel()
	s, _, _ := newFixture(t, nil, nil)

	res, err := s.Select(context.Background(), engine.Request{Text: "x", Engine: engine.PreferAI})
	if err != nil {
		t.Fatal(err)
	}
	if res.Engine.Name() != "ai" || res.Reason != selector.ReasonExplicit {
		t.Errorf("engine/reason = %s/%s, want ai/explicit", res.Engine.Name(), res.Reason)
	}
	if res.Voice.Engine != "ai" {
		t.Errorf("resolved voice %q belongs to %q, want ai", res.Voice.ID, res.Voice.Engine)
	}
}

func TestSelect_ExplicitUnavailableFails(t *testing.T) {
	t.Parallel()
	s, _, _ := newFixture(t, nil, errors.New("connection refused"))

	_, err := s.Select(context.Background(), engine.Request{Text: "x", Engine: engine.PreferAI})
	var na *engine.NotAvailableError
	if !errors.As(err, &na) {
		t.Fatalf("err = %v, want NotAvailableError", err)
	}
	if na.Engine != "ai" {
		t.Errorf("NotAvailableError.Engine = %q, want ai", na.Engine)
	}
}

func TestSelect_CloningForcesAI(t *testing.T) {
	t.Parallel()
	s, _, _ := newFixture(t, nil, nil)

	// Premium quality would also pick ai, but the reason must come from
	// the cloning rule, which ranks higher.
	req := engine.Request{Text: "x", ReferenceAudio: "/samples/me.wav", Quality: engine.QualityPremium}
	res, err := s.Select(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if res.Engine.Name() != "ai" || res.Reason != selector.ReasonCloning {
		t.Errorf("engine/reason = %s/%s, want ai/cloning", res.Engine.Name(), res.Reason)
	}
}

func TestSelect_CloningWithoutAIFails(t *testing.T) {
	t.Parallel()
	s, _, _ := newFixture(t, nil, errors.New("down"))

	_, err := s.Select(context.Background(), engine.Request{Text: "x", ReferenceAudio: "/samples/me.wav"})
	var na *engine.NotAvailableError
	if !errors.As(err, &na) {
		t.Fatalf("err = %v, want NotAvailableError", err)
	}
}

func TestSelect_QualityRules(t *testing.T) {
	t.Parallel()
	s, _, _ := newFixture(t, nil, nil)

	res, err := s.Select(context.Background(), engine.Request{Text: "x", Quality: engine.QualityPremium})
	if err != nil {
		t.Fatal(err)
	}
	if res.Engine.Name() != "ai" || res.Reason != selector.ReasonQualityPremium {
		t.Errorf("premium engine/reason = %s/%s", res.Engine.Name(), res.Reason)
	}

	res, err = s.Select(context.Background(), engine.Request{Text: "x", Quality: engine.QualityFast})
	if err != nil {
		t.Fatal(err)
	}
	if res.Engine.Name() != "native" || res.Reason != selector.ReasonQualityFast {
		t.Errorf("fast engine/reason = %s/%s", res.Engine.Name(), res.Reason)
	}
}

func TestSelect_PremiumFallsBackWhenAIDown(t *testing.T) {
	t.Parallel()
	s, _, _ := newFixture(t, nil, errors.New("down"))

	res, err := s.Select(context.Background(), engine.Request{Text: "x", Quality: engine.QualityPremium})
	if err != nil {
		t.Fatal(err)
	}
	if res.Engine.Name() != "native" || res.Reason != selector.ReasonDefaultNative {
		t.Errorf("engine/reason = %s/%s, want native/default-native", res.Engine.Name(), res.Reason)
	}
}

func TestSelect_AIPreferredLanguage(t *testing.T) {
	t.Parallel()
	s, _, _ := newFixture(t, nil, nil)

	res, err := s.Select(context.Background(), engine.Request{Text: "x", Language: voice.Japanese})
	if err != nil {
		t.Fatal(err)
	}
	if res.Engine.Name() != "ai" || res.Reason != selector.ReasonLanguageAI {
		t.Errorf("engine/reason = %s/%s, want ai/language-ai", res.Engine.Name(), res.Reason)
	}
	if res.Voice.ID != "Kazuhiko" || res.Tier != resolver.TierLanguage {
		t.Errorf("voice/tier = %s/%s, want Kazuhiko/language", res.Voice.ID, res.Tier)
	}
}

func TestSelect_DefaultNative(t *testing.T) {
	t.Parallel()
	s, native, ai := newFixture(t, nil, nil)

	res, err := s.Select(context.Background(), engine.Request{Text: "x", VoiceQuery: "jorge", Language: voice.Spanish})
	if err != nil {
		t.Fatal(err)
	}
	if res.Engine.Name() != "native" || res.Reason != selector.ReasonDefaultNative {
		t.Errorf("engine/reason = %s/%s, want native/default-native", res.Engine.Name(), res.Reason)
	}
	if res.Voice.ID != "Jorge" || res.Tier != resolver.TierExact {
		t.Errorf("voice/tier = %s/%s, want Jorge/exact", res.Voice.ID, res.Tier)
	}
	if native.probes > 1 || ai.probes > 1 {
		t.Errorf("probes native=%d ai=%d, want at most one each", native.probes, ai.probes)
	}
}

func TestSelect_FallbackToOnlyEngine(t *testing.T) {
	t.Parallel()
	s, _, _ := newFixture(t, errors.New("no say command"), nil)

	res, err := s.Select(context.Background(), engine.Request{Text: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Engine.Name() != "ai" || res.Reason != selector.ReasonFallbackOnly {
		t.Errorf("engine/reason = %s/%s, want ai/fallback-only", res.Engine.Name(), res.Reason)
	}
}

func TestSelect_NoEngineAvailable(t *testing.T) {
	t.Parallel()
	s, _, _ := newFixture(t, errors.New("down"), errors.New("down"))

	_, err := s.Select(context.Background(), engine.Request{Text: "x"})
	if !errors.Is(err, engine.ErrNoEngineAvailable) {
		t.Fatalf("err = %v, want ErrNoEngineAvailable", err)
	}
}

func TestSelect_CandidatesFilteredByEngine(t *testing.T) {
	t.Parallel()
	s, _, _ := newFixture(t, nil, nil)

	// Samantha only exists on the native engine; an explicit ai request
	// must not resolve to her.
	res, err := s.Select(context.Background(), engine.Request{Text: "x", VoiceQuery: "samantha", Engine: engine.PreferAI})
	if err != nil {
		t.Fatal(err)
	}
	if res.Voice.Engine != "ai" {
		t.Errorf("resolved voice %q from engine %q, want ai", res.Voice.ID, res.Voice.Engine)
	}
}
