// Package xtts implements the AI synthesis engine backed by a Coqui XTTS
// v2 API server. Synthesis is one POST /tts_to_audio/ call per request;
// the voice catalogue comes from GET /studio_speakers and new speakers can
// be cloned from WAV samples via POST /clone_speaker.
//
// The same type doubles as the "ai" voice source for the directory.
package xtts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"os/exec"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/MrWong99/vocero/internal/directory"
	"github.com/MrWong99/vocero/internal/engine"
	"github.com/MrWong99/vocero/pkg/voice"
)

// Compile-time interface assertions.
var (
	_ engine.Engine    = (*Engine)(nil)
	_ directory.Source = (*Engine)(nil)
)

// ---- constants ----

const (
	defaultLanguage = "es"
	defaultTimeout  = 60 * time.Second
	probeTimeout    = 5 * time.Second

	ttsEndpoint            = "/tts_to_audio/"
	studioSpeakersEndpoint = "/studio_speakers"
	cloneSpeakerEndpoint   = "/clone_speaker"
)

// ---- options ----

// Option configures an Engine.
type Option func(*Engine)

// WithLanguage sets the language code sent to the server when a request
// does not carry one. Defaults to "es".
func WithLanguage(lang string) Option {
	return func(e *Engine) {
		e.language = lang
	}
}

// WithTimeout sets the per-request HTTP timeout. Defaults to 60 s; XTTS
// synthesis on CPU can take tens of seconds for long utterances.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.httpClient.Timeout = d
	}
}

// ---- Engine ----

// playFunc plays a WAV file through the local audio device. Replaced in
// tests.
type playFunc func(ctx context.Context, path string) error

// Engine talks to one XTTS server. Safe for concurrent use; requests share
// the HTTP client.
type Engine struct {
	serverURL  string
	language   string
	httpClient *http.Client
	play       playFunc
}

// New creates an engine targeting the XTTS server at serverURL (e.g.
// "http://localhost:8020"). serverURL must be non-empty.
func New(serverURL string, opts ...Option) (*Engine, error) {
	if serverURL == "" {
		return nil, errors.New("xtts: serverURL must not be empty")
	}
	e := &Engine{
		serverURL: strings.TrimRight(serverURL, "/"),
		language:  defaultLanguage,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		play: playFile,
	}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

// Name implements [engine.Engine].
func (e *Engine) Name() string { return "ai" }

// Engine implements [directory.Source].
func (e *Engine) Engine() string { return "ai" }

// Available probes the server's speaker catalogue endpoint.
func (e *Engine) Available(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if _, err := e.studioSpeakers(ctx); err != nil {
		return &engine.NotAvailableError{Engine: "ai", Err: err}
	}
	return nil
}

// ---- wire types ----

// ttsRequest is the JSON body sent to POST /tts_to_audio/.
type ttsRequest struct {
	Text       string `json:"text"`
	SpeakerWav string `json:"speaker_wav"`
	Language   string `json:"language"`
}

// cloneSpeakerResponse is the JSON body returned by POST /clone_speaker.
type cloneSpeakerResponse struct {
	Name   string `json:"name"`
	Status string `json:"status,omitempty"`
}

// ---- voice listing ----

// Listing implements [directory.Source], reshaping the speaker catalogue
// into "name # description" lines for the directory parser.
func (e *Engine) Listing(ctx context.Context) ([]string, error) {
	names, err := e.studioSpeakers(ctx)
	if err != nil {
		return nil, err
	}
	lines := make([]string, 0, len(names))
	for _, name := range names {
		lines = append(lines, name+" # xtts studio speaker")
	}
	return lines, nil
}

// studioSpeakers fetches the speaker catalogue and returns the names
// sorted for deterministic output.
func (e *Engine) studioSpeakers(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.serverURL+studioSpeakersEndpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("xtts: create list request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("xtts: GET %s: %w", studioSpeakersEndpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("xtts: GET %s returned status %d", studioSpeakersEndpoint, resp.StatusCode)
	}

	// Only the keys matter; speaker embeddings stay undecoded.
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("xtts: decode studio speakers: %w", err)
	}

	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// ---- synthesis ----

// Synthesize implements [engine.Engine]. The speaker is the resolved
// voice ID, or the request's reference WAV when cloning. The server
// answers with a complete WAV file; prosody multipliers are not supported
// by the XTTS API and are ignored.
func (e *Engine) Synthesize(ctx context.Context, req engine.Request, v voice.Voice) (*engine.SpeechResult, error) {
	if req.Format == engine.FormatAIFF {
		return nil, &engine.SynthesisError{
			Engine:     "ai",
			Diagnostic: "the ai engine only produces wav audio, use format wav",
		}
	}

	speaker := v.ID
	if req.ReferenceAudio != "" {
		speaker = req.ReferenceAudio
	}
	lang := e.language
	if req.Language != "" && req.Language != voice.LanguageUnknown {
		lang = string(req.Language)
	}

	wav, err := e.synthesize(ctx, req.Text, speaker, lang)
	if err != nil {
		return nil, err
	}

	res := &engine.SpeechResult{Engine: "ai", Voice: v, Audio: wav}
	if req.OutputPath != "" {
		if err := os.WriteFile(req.OutputPath, wav, 0o644); err != nil {
			return nil, fmt.Errorf("xtts: write %s: %w", req.OutputPath, err)
		}
		res.OutputPath = req.OutputPath
		if !req.Play {
			return res, nil
		}
	}

	path := res.OutputPath
	if path == "" {
		tmp, err := os.CreateTemp("", "vocero-*.wav")
		if err != nil {
			return nil, fmt.Errorf("xtts: temp playback file: %w", err)
		}
		defer os.Remove(tmp.Name())
		if _, err := tmp.Write(wav); err != nil {
			tmp.Close()
			return nil, fmt.Errorf("xtts: write playback file: %w", err)
		}
		tmp.Close()
		path = tmp.Name()
	}
	if err := e.play(ctx, path); err != nil {
		return nil, &engine.SynthesisError{Engine: "ai", Diagnostic: err.Error(), Err: err}
	}
	res.Played = true
	return res, nil
}

// synthesize performs one POST /tts_to_audio/ call and returns the raw
// WAV bytes. Non-200 responses carry the server's body text verbatim.
func (e *Engine) synthesize(ctx context.Context, text, speaker, lang string) ([]byte, error) {
	body := ttsRequest{
		Text:       text,
		SpeakerWav: speaker,
		Language:   lang,
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("xtts: marshal tts request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.serverURL+ttsEndpoint, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("xtts: create tts request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/wav")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, &engine.SynthesisError{Engine: "ai", Err: fmt.Errorf("POST %s: %w", ttsEndpoint, err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		diag, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &engine.SynthesisError{
			Engine:     "ai",
			Diagnostic: string(diag),
			Err:        fmt.Errorf("POST %s returned status %d", ttsEndpoint, resp.StatusCode),
		}
	}

	wav, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &engine.SynthesisError{Engine: "ai", Err: fmt.Errorf("read response: %w", err)}
	}
	return wav, nil
}

// ---- cloning ----

// Clone registers a new named speaker on the server from WAV samples
// uploaded via POST /clone_speaker, and returns the speaker name the
// server assigned. At least one sample is required.
func (e *Engine) Clone(ctx context.Context, samples [][]byte) (string, error) {
	if len(samples) == 0 {
		return "", errors.New("xtts: Clone requires at least one audio sample")
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for i, sample := range samples {
		fw, err := mw.CreateFormFile("wav_files", fmt.Sprintf("sample_%02d.wav", i))
		if err != nil {
			return "", fmt.Errorf("xtts: create form file: %w", err)
		}
		if _, err := fw.Write(sample); err != nil {
			return "", fmt.Errorf("xtts: write form file: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("xtts: close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.serverURL+cloneSpeakerEndpoint, &body)
	if err != nil {
		return "", fmt.Errorf("xtts: create clone request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("xtts: POST %s: %w", cloneSpeakerEndpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		diag, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("xtts: POST %s returned status %d: %s", cloneSpeakerEndpoint, resp.StatusCode, bytes.TrimSpace(diag))
	}

	var cloneResp cloneSpeakerResponse
	if err := json.NewDecoder(resp.Body).Decode(&cloneResp); err != nil {
		return "", fmt.Errorf("xtts: decode clone response: %w", err)
	}
	if cloneResp.Name == "" {
		return "", errors.New("xtts: clone response missing name")
	}
	return cloneResp.Name, nil
}

// ---- playback ----

// playFile plays a WAV file with the platform audio player.
func playFile(ctx context.Context, path string) error {
	var name string
	switch runtime.GOOS {
	case "darwin":
		name = "afplay"
	default:
		name = "aplay"
	}
	cmd := exec.CommandContext(ctx, name, path)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w (%s)", name, err, bytes.TrimSpace(stderr.Bytes()))
	}
	return nil
}
