// Package app is the facade every front-end (CLI, REST, MCP) talks to.
//
// It wires the voice directory, resolver, selector, and engines together
// and exposes the two core operations — [App.ResolveVoice] and
// [App.SelectAndSynthesize] — plus the listing, categorisation, stats, and
// cloning calls the front-ends build their surfaces on.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/MrWong99/vocero/internal/categorize"
	"github.com/MrWong99/vocero/internal/config"
	"github.com/MrWong99/vocero/internal/directory"
	"github.com/MrWong99/vocero/internal/engine"
	"github.com/MrWong99/vocero/internal/observe"
	"github.com/MrWong99/vocero/internal/resolver"
	"github.com/MrWong99/vocero/internal/selector"
	"github.com/MrWong99/vocero/pkg/voice"
)

// suggestLimit caps the fuzzy candidate list attached to resolution errors.
const suggestLimit = 5

// Cloner is implemented by engines that can register a new voice from
// reference audio samples.
type Cloner interface {
	Clone(ctx context.Context, samples [][]byte) (string, error)
}

// Filter narrows a voice listing. Zero values mean "no constraint"; Search
// matches voice names and descriptions case- and accent-insensitively.
type Filter struct {
	Gender   voice.Gender
	Language voice.Language
	Quality  voice.Quality
	Search   string
}

// ---- options ----

// Option configures an [App] during construction.
type Option func(*App)

// WithDefaults sets the request defaults applied to every synthesis request
// before validation.
func WithDefaults(d config.DefaultsConfig) Option {
	return func(a *App) { a.defaults = d }
}

// WithMetrics sets the metrics sink. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithLogger sets the logger. Defaults to [slog.Default].
func WithLogger(log *slog.Logger) Option {
	return func(a *App) { a.log = log }
}

// WithSelectorOptions forwards options to the underlying [selector.Selector].
func WithSelectorOptions(opts ...selector.Option) Option {
	return func(a *App) { a.selOpts = append(a.selOpts, opts...) }
}

// ---- App ----

// App orchestrates one directory, one selector, and the registered engines.
// Safe for concurrent use.
type App struct {
	dir     *directory.Directory
	engines []engine.Engine
	sel     *selector.Selector
	selOpts []selector.Option
	metrics *observe.Metrics
	log     *slog.Logger

	mu       sync.RWMutex
	defaults config.DefaultsConfig
}

// New creates an App over the given directory and engines.
func New(dir *directory.Directory, engines []engine.Engine, opts ...Option) *App {
	a := &App{
		dir:     dir,
		engines: engines,
		log:     slog.Default(),
	}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	opts2 := append([]selector.Option{selector.WithLogger(a.log)}, a.selOpts...)
	a.sel = selector.New(dir, engines, opts2...)
	return a
}

// SetDefaults replaces the request defaults at runtime, typically from a
// config reload.
func (a *App) SetDefaults(d config.DefaultsConfig) {
	a.mu.Lock()
	a.defaults = d
	a.mu.Unlock()
}

// Engines returns the registered engines in registration order.
func (a *App) Engines() []engine.Engine { return a.engines }

// Directory returns the voice directory backing this App.
func (a *App) Directory() *directory.Directory { return a.dir }

// ---- core operations ----

// ResolveVoice resolves a free-text voice query against the directory.
// engineHint, when non-empty, restricts candidates to that engine's voices;
// languageHint feeds the resolver's language-fallback tier. A failed
// resolution carries fuzzy suggestions in the returned error.
func (a *App) ResolveVoice(ctx context.Context, query, engineHint string, languageHint voice.Language) (voice.Voice, error) {
	all, err := a.dir.GetAll(ctx)
	if err != nil {
		return voice.Voice{}, fmt.Errorf("app: resolve voice: %w", err)
	}

	candidates := all
	if engineHint != "" {
		candidates = candidates[:0:0]
		for _, v := range all {
			if v.Engine == engineHint {
				candidates = append(candidates, v)
			}
		}
	}

	v, tier, err := resolver.Resolve(query, candidates, languageHint)
	if err != nil {
		return voice.Voice{}, &voice.NotFoundError{
			Query:      query,
			Candidates: resolver.Suggest(query, all, suggestLimit),
		}
	}
	a.metrics.RecordResolution(ctx, string(tier))
	return v, nil
}

// SelectAndSynthesize validates the request, picks an engine and a voice,
// and runs the synthesis. The returned [selector.Result] explains the
// selection; the [engine.SpeechResult] carries the audio or output path.
func (a *App) SelectAndSynthesize(ctx context.Context, req engine.Request) (*engine.SpeechResult, *selector.Result, error) {
	a.applyDefaults(&req)
	if err := req.Validate(); err != nil {
		return nil, nil, err
	}

	sel, err := a.sel.Select(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	a.metrics.RecordResolution(ctx, string(sel.Tier))
	a.metrics.RecordSelection(ctx, sel.Engine.Name(), string(sel.Reason))

	start := time.Now()
	res, err := sel.Engine.Synthesize(ctx, req, sel.Voice)
	a.metrics.RecordSynthesis(ctx, sel.Engine.Name(), time.Since(start).Seconds(), err)
	if err != nil {
		return nil, sel, err
	}

	a.log.InfoContext(ctx, "synthesis complete",
		"engine", sel.Engine.Name(),
		"voice", sel.Voice.ID,
		"reason", string(sel.Reason),
		"output", res.OutputPath,
	)
	return res, sel, nil
}

// ---- listing operations ----

// Voices returns the directory's voices narrowed by f, preserving snapshot
// order. When a search term matches nothing as a substring, fuzzy name
// suggestions are used instead so that near-miss spellings still list.
func (a *App) Voices(ctx context.Context, f Filter) ([]voice.Voice, error) {
	all, err := a.dir.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("app: list voices: %w", err)
	}

	out := make([]voice.Voice, 0, len(all))
	for _, v := range all {
		if f.Gender != "" && v.Gender != f.Gender {
			continue
		}
		if f.Language != "" && v.Language != f.Language {
			continue
		}
		if f.Quality != "" && v.Quality != f.Quality {
			continue
		}
		out = append(out, v)
	}

	if q := voice.Normalize(strings.TrimSpace(f.Search)); q != "" {
		matched := out[:0:0]
		for _, v := range out {
			if strings.Contains(voice.Normalize(v.Name), q) ||
				strings.Contains(voice.Normalize(v.RawDescription), q) {
				matched = append(matched, v)
			}
		}
		if len(matched) == 0 {
			matched = a.fuzzyMatches(f.Search, out)
		}
		out = matched
	}
	return out, nil
}

// fuzzyMatches returns the candidates whose names rank as fuzzy suggestions
// for query, in suggestion order.
func (a *App) fuzzyMatches(query string, candidates []voice.Voice) []voice.Voice {
	names := resolver.Suggest(query, candidates, suggestLimit)
	byName := make(map[string]voice.Voice, len(candidates))
	for _, v := range candidates {
		byName[v.Name] = v
	}
	out := make([]voice.Voice, 0, len(names))
	for _, n := range names {
		if v, ok := byName[n]; ok {
			out = append(out, v)
		}
	}
	return out
}

// Categories returns the categorised presentation views over the full
// directory listing.
func (a *App) Categories(ctx context.Context) (categorize.Views, error) {
	all, err := a.dir.GetAll(ctx)
	if err != nil {
		return categorize.Views{}, fmt.Errorf("app: categorize voices: %w", err)
	}
	return categorize.Categorize(all), nil
}

// Stats refreshes the directory if needed and reports snapshot statistics.
func (a *App) Stats(ctx context.Context) (directory.Stats, error) {
	if _, err := a.dir.GetAll(ctx); err != nil {
		return directory.Stats{}, fmt.Errorf("app: voice stats: %w", err)
	}
	return a.dir.Stats(), nil
}

// RefreshVoices forces a directory refresh, bypassing the TTL.
func (a *App) RefreshVoices(ctx context.Context) error {
	start := time.Now()
	err := a.dir.Refresh(ctx, true)
	a.metrics.RecordRefresh(ctx, time.Since(start).Seconds(), err)
	if err != nil {
		return fmt.Errorf("app: refresh voices: %w", err)
	}
	return nil
}

// ---- cloning ----

// CloneVoice registers a new voice on the first engine that supports
// cloning and invalidates the directory so the next listing includes it.
// Returns the name the engine assigned to the cloned voice.
func (a *App) CloneVoice(ctx context.Context, samples [][]byte) (string, error) {
	for _, e := range a.engines {
		c, ok := e.(Cloner)
		if !ok {
			continue
		}
		cloned, err := c.Clone(ctx, samples)
		if err != nil {
			return "", fmt.Errorf("app: clone voice: %w", err)
		}
		a.dir.Invalidate()
		a.log.InfoContext(ctx, "voice cloned", "engine", e.Name(), "voice", cloned)
		return cloned, nil
	}
	return "", fmt.Errorf("app: clone voice: %w", engine.ErrNoEngineAvailable)
}

// applyDefaults fills unset request fields from the configured defaults.
func (a *App) applyDefaults(req *engine.Request) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if req.VoiceQuery == "" {
		req.VoiceQuery = a.defaults.Voice
	}
	if req.Language == "" || req.Language == voice.LanguageUnknown {
		req.Language = a.defaults.Language
	}
	if req.Rate == 0 && a.defaults.Rate != 0 {
		req.Rate = a.defaults.Rate
	}
	if req.Volume == 0 && a.defaults.Volume != 0 {
		req.Volume = a.defaults.Volume
	}
	if req.Pitch == 0 && a.defaults.Pitch != 0 {
		req.Pitch = a.defaults.Pitch
	}
	if req.Format == "" && req.OutputPath != "" && a.defaults.Format != "" {
		req.Format = engine.Format(a.defaults.Format)
	}
}
