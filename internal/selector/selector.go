// Package selector picks the synthesis engine for a request and resolves
// the concrete voice it will speak with. The decision ladder is fixed:
// explicit preference, cloning requirement, quality tier, language
// allow-list, then the native default.
package selector

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/MrWong99/vocero/internal/directory"
	"github.com/MrWong99/vocero/internal/engine"
	"github.com/MrWong99/vocero/internal/resolver"
	"github.com/MrWong99/vocero/pkg/voice"
)

// Reason is the machine-readable code for the selection rule that fired.
type Reason string

const (
	ReasonExplicit       Reason = "explicit"
	ReasonCloning        Reason = "cloning"
	ReasonQualityPremium Reason = "quality-premium"
	ReasonQualityFast    Reason = "quality-fast"
	ReasonLanguageAI     Reason = "language-ai"
	ReasonDefaultNative  Reason = "default-native"
	ReasonFallbackOnly   Reason = "fallback-only"
)

// DefaultAIPreferredLanguages lists languages known to render poorly on the
// native engine; requests targeting them go to the AI engine when it is up.
var DefaultAIPreferredLanguages = []voice.Language{
	"ar", "zh", "ja", "ko", "hi", "th", "vi",
}

// Result is one selection outcome: the chosen engine, the resolved voice,
// the rule that fired, and the resolution tier that produced the voice.
// Consumed once per request, never persisted.
type Result struct {
	Engine engine.Engine
	Voice  voice.Voice
	Reason Reason
	Tier   resolver.Tier
}

// ---- options ----

// Option configures a Selector.
type Option func(*Selector)

// WithAIPreferredLanguages replaces the language allow-list that steers
// requests to the AI engine.
func WithAIPreferredLanguages(langs []voice.Language) Option {
	return func(s *Selector) {
		s.aiPreferred = make(map[voice.Language]bool, len(langs))
		for _, l := range langs {
			s.aiPreferred[l] = true
		}
	}
}

// WithLogger sets the logger. Defaults to [slog.Default].
func WithLogger(log *slog.Logger) Option {
	return func(s *Selector) {
		s.log = log
	}
}

// ---- Selector ----

// Selector owns the engine decision for every synthesis request. Safe for
// concurrent use; it holds no per-request state.
type Selector struct {
	dir         *directory.Directory
	engines     map[string]engine.Engine
	aiPreferred map[voice.Language]bool
	log         *slog.Logger
}

// New creates a Selector over the given directory and engines. Engines are
// keyed by their Name; registering two engines with the same name is a
// programming error.
func New(dir *directory.Directory, engines []engine.Engine, opts ...Option) *Selector {
	s := &Selector{
		dir:     dir,
		engines: make(map[string]engine.Engine, len(engines)),
		log:     slog.Default(),
	}
	for _, e := range engines {
		s.engines[e.Name()] = e
	}
	WithAIPreferredLanguages(DefaultAIPreferredLanguages)(s)
	for _, o := range opts {
		o(s)
	}
	return s
}

// Select picks the engine for req and resolves the voice it will use. An
// explicit preference for an unreachable engine fails with
// [*engine.NotAvailableError] instead of silently substituting the other
// backend; the auto rules only ever choose reachable engines.
func (s *Selector) Select(ctx context.Context, req engine.Request) (*Result, error) {
	// Availability probes hit external processes/servers, so each engine
	// is probed at most once per selection.
	probed := make(map[string]bool, len(s.engines))
	avail := func(name string) bool {
		if up, ok := probed[name]; ok {
			return up
		}
		e, ok := s.engines[name]
		up := ok && e.Available(ctx) == nil
		probed[name] = up
		return up
	}

	var (
		chosen string
		reason Reason
	)
	switch {
	case req.Engine != "" && req.Engine != engine.PreferAuto:
		chosen = string(req.Engine)
		if !avail(chosen) {
			return nil, &engine.NotAvailableError{Engine: chosen}
		}
		reason = ReasonExplicit
	case req.NeedsCloning():
		if !avail("ai") {
			return nil, &engine.NotAvailableError{Engine: "ai", Err: fmt.Errorf("voice cloning requires the ai engine")}
		}
		chosen, reason = "ai", ReasonCloning
	case req.Quality == engine.QualityPremium && avail("ai"):
		chosen, reason = "ai", ReasonQualityPremium
	case req.Quality == engine.QualityFast && avail("native"):
		chosen, reason = "native", ReasonQualityFast
	case s.aiPreferred[req.Language] && avail("ai"):
		chosen, reason = "ai", ReasonLanguageAI
	case avail("native"):
		chosen, reason = "native", ReasonDefaultNative
	case avail("ai"):
		chosen, reason = "ai", ReasonFallbackOnly
	default:
		return nil, engine.ErrNoEngineAvailable
	}

	all, err := s.dir.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	candidates := make([]voice.Voice, 0, len(all))
	for _, v := range all {
		if v.Engine == chosen {
			candidates = append(candidates, v)
		}
	}

	v, tier, err := resolver.Resolve(req.VoiceQuery, candidates, req.Language)
	if err != nil {
		return nil, err
	}

	s.log.Debug("engine selected",
		"engine", chosen,
		"reason", string(reason),
		"voice", v.ID,
		"tier", string(tier),
	)
	return &Result{Engine: s.engines[chosen], Voice: v, Reason: reason, Tier: tier}, nil
}
