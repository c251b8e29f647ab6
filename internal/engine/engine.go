// Package engine defines the synthesis engine contract shared by the
// OS-native and AI backends, the synthesis request model with its
// validation rules, and the error types surfaced to front-ends.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MrWong99/vocero/pkg/voice"
)

// ---- preference and quality enums ----

// Preference is the caller's explicit engine choice.
type Preference string

const (
	PreferAuto   Preference = "auto"
	PreferNative Preference = "native"
	PreferAI     Preference = "ai"
)

// IsValid reports whether p is a recognised preference.
func (p Preference) IsValid() bool {
	switch p {
	case PreferAuto, PreferNative, PreferAI:
		return true
	}
	return false
}

// RequestQuality is the caller's desired speed/fidelity trade-off. It is
// distinct from [voice.Quality]: this value steers engine selection, not
// voice matching.
type RequestQuality string

const (
	QualityFast     RequestQuality = "fast"
	QualityBalanced RequestQuality = "balanced"
	QualityPremium  RequestQuality = "premium"
)

// IsValid reports whether q is a recognised request quality.
func (q RequestQuality) IsValid() bool {
	switch q {
	case QualityFast, QualityBalanced, QualityPremium:
		return true
	}
	return false
}

// Format is the audio container for file output.
type Format string

const (
	FormatWAV  Format = "wav"
	FormatAIFF Format = "aiff"
)

// IsValid reports whether f is a recognised output format.
func (f Format) IsValid() bool {
	switch f {
	case FormatWAV, FormatAIFF:
		return true
	}
	return false
}

// ---- request ----

// Prosody bounds. A zero multiplier means "engine default" and is treated
// as 1.0; non-zero values must fall inside the bound for their parameter.
const (
	MinRate   = 0.5
	MaxRate   = 2.0
	MinVolume = 0.0
	MaxVolume = 2.0
	MinPitch  = 0.5
	MaxPitch  = 2.0
)

// Request carries everything a front-end knows about one synthesis call.
// The zero value of each optional field means "use the default".
type Request struct {
	// Text is the utterance to speak. Required.
	Text string `json:"text"`

	// VoiceQuery is a free-text voice name ("jorge", "Mónica"). May be
	// empty, in which case resolution falls back by language.
	VoiceQuery string `json:"voice,omitempty"`

	// Language is the target language for fallback resolution and for
	// AI-preferred engine selection.
	Language voice.Language `json:"language,omitempty"`

	// Quality is the speed/fidelity trade-off. Empty means balanced.
	Quality RequestQuality `json:"quality,omitempty"`

	// Engine is the explicit engine preference. Empty means auto.
	Engine Preference `json:"engine,omitempty"`

	// Rate, Volume and Pitch are prosody multipliers. Zero means the
	// engine default (1.0).
	Rate   float64 `json:"rate,omitempty"`
	Volume float64 `json:"volume,omitempty"`
	Pitch  float64 `json:"pitch,omitempty"`

	// ReferenceAudio is a path to a speaker sample WAV. Setting it makes
	// the request a voice-cloning request, which only the AI engine can
	// serve.
	ReferenceAudio string `json:"reference_audio,omitempty"`

	// OutputPath writes the audio to a file instead of playing it.
	OutputPath string `json:"output_path,omitempty"`

	// Format is the container for file output. Empty means wav.
	Format Format `json:"format,omitempty"`

	// Play forces playback even when OutputPath is set.
	Play bool `json:"play,omitempty"`
}

// NeedsCloning reports whether the request carries a speaker sample and
// therefore requires the AI engine.
func (r Request) NeedsCloning() bool {
	return r.ReferenceAudio != ""
}

// EffectiveRate returns the rate multiplier with the zero default applied.
func (r Request) EffectiveRate() float64 {
	if r.Rate == 0 {
		return 1.0
	}
	return r.Rate
}

// EffectiveVolume returns the volume multiplier with the zero default
// applied. Only the exact zero value means default; values inside the
// bound but near zero are honoured as near-silence.
func (r Request) EffectiveVolume() float64 {
	if r.Volume == 0 {
		return 1.0
	}
	return r.Volume
}

// EffectivePitch returns the pitch multiplier with the zero default applied.
func (r Request) EffectivePitch() float64 {
	if r.Pitch == 0 {
		return 1.0
	}
	return r.Pitch
}

// Validate checks every field and reports all violations at once.
func (r Request) Validate() error {
	var errs []error
	if strings.TrimSpace(r.Text) == "" {
		errs = append(errs, errors.New("text must not be empty"))
	}
	if r.Engine != "" && !r.Engine.IsValid() {
		errs = append(errs, fmt.Errorf("engine preference %q is not one of auto, native, ai", r.Engine))
	}
	if r.Quality != "" && !r.Quality.IsValid() {
		errs = append(errs, fmt.Errorf("quality %q is not one of fast, balanced, premium", r.Quality))
	}
	if r.Format != "" && !r.Format.IsValid() {
		errs = append(errs, fmt.Errorf("format %q is not one of wav, aiff", r.Format))
	}
	if r.Rate != 0 && (r.Rate < MinRate || r.Rate > MaxRate) {
		errs = append(errs, fmt.Errorf("rate %.2f outside [%.1f, %.1f]", r.Rate, MinRate, MaxRate))
	}
	if r.Volume != 0 && (r.Volume < MinVolume || r.Volume > MaxVolume) {
		errs = append(errs, fmt.Errorf("volume %.2f outside [%.1f, %.1f]", r.Volume, MinVolume, MaxVolume))
	}
	if r.Pitch != 0 && (r.Pitch < MinPitch || r.Pitch > MaxPitch) {
		errs = append(errs, fmt.Errorf("pitch %.2f outside [%.1f, %.1f]", r.Pitch, MinPitch, MaxPitch))
	}
	if r.Format == FormatAIFF && r.OutputPath == "" {
		errs = append(errs, errors.New("aiff format requires an output path"))
	}
	if len(errs) > 0 {
		return &InvalidRequestError{Err: errors.Join(errs...)}
	}
	return nil
}

// ---- result ----

// SpeechResult reports the outcome of one synthesis call.
type SpeechResult struct {
	// Engine names the backend that served the request.
	Engine string `json:"engine"`

	// Voice is the concrete voice the resolver picked.
	Voice voice.Voice `json:"voice"`

	// OutputPath is the written file, empty for playback-only requests.
	OutputPath string `json:"output_path,omitempty"`

	// Audio holds the synthesised bytes when the engine produced them
	// in-process. The AI engine always does; the native engine only when
	// writing to a file. Nil for direct device playback.
	Audio []byte `json:"-"`

	// Played reports whether the audio reached the speakers.
	Played bool `json:"played"`
}

// ---- engine contract ----

// Engine is one synthesis backend. Implementations are safe for concurrent
// use; a single instance serves all requests.
type Engine interface {
	// Name returns the stable backend identifier ("native" or "ai"),
	// matching the Engine field on voice records it can speak with.
	Name() string

	// Available probes whether the backend can serve requests right now.
	// A nil error means available.
	Available(ctx context.Context) error

	// Synthesize speaks req.Text with v. The voice must belong to this
	// engine. Synthesis failures return a [*SynthesisError] carrying the
	// backend's diagnostic text verbatim.
	Synthesize(ctx context.Context, req Request, v voice.Voice) (*SpeechResult, error)
}

// ---- errors ----

// ErrNoEngineAvailable is returned by selection when no backend can serve
// the request at all.
var ErrNoEngineAvailable = errors.New("engine: no synthesis engine available")

// InvalidRequestError wraps all validation failures of one request.
type InvalidRequestError struct {
	Err error
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("engine: invalid request: %v", e.Err)
}

func (e *InvalidRequestError) Unwrap() error { return e.Err }

// NotAvailableError reports that an explicitly requested engine cannot
// serve requests right now.
type NotAvailableError struct {
	Engine string
	Err    error
}

func (e *NotAvailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("engine: %s engine not available: %v", e.Engine, e.Err)
	}
	return fmt.Sprintf("engine: %s engine not available", e.Engine)
}

func (e *NotAvailableError) Unwrap() error { return e.Err }

// SynthesisError reports a failed synthesis call. Diagnostic carries the
// backend's own error text (process stderr, HTTP body) verbatim so the
// user sees what the engine saw.
type SynthesisError struct {
	Engine     string
	Diagnostic string
	Err        error
}

func (e *SynthesisError) Error() string {
	if e.Diagnostic != "" {
		return fmt.Sprintf("engine: %s synthesis failed: %s", e.Engine, strings.TrimSpace(e.Diagnostic))
	}
	return fmt.Sprintf("engine: %s synthesis failed: %v", e.Engine, e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }
