// Package mcpserver exposes vocero as a Model Context Protocol server over
// stdio, using the official MCP Go SDK
// (github.com/modelcontextprotocol/go-sdk).
//
// Four tools are registered:
//
//   - speak       — synthesise and play text on the host machine.
//   - save_audio  — synthesise text into an audio file.
//   - list_voices — list available voices, grouped by category.
//   - voice_info  — resolve a voice query and describe the match.
package mcpserver

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/MrWong99/vocero/internal/app"
	"github.com/MrWong99/vocero/internal/engine"
	"github.com/MrWong99/vocero/internal/resolver"
	"github.com/MrWong99/vocero/pkg/voice"
)

// serverName and serverVersion identify this server during the MCP
// initialize handshake.
const (
	serverName    = "vocero"
	serverVersion = "1.0.0"
)

// Option configures a [Server].
type Option func(*Server)

// WithLogger sets the logger. Defaults to [slog.Default].
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) { s.log = log }
}

// Server wraps an [app.App] behind MCP tools.
type Server struct {
	app *app.App
	log *slog.Logger
	mcp *mcpsdk.Server
}

// New creates a Server with all tools registered.
func New(a *app.App, opts ...Option) *Server {
	s := &Server{
		app: a,
		log: slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}

	s.mcp = mcpsdk.NewServer(
		&mcpsdk.Implementation{Name: serverName, Version: serverVersion},
		nil,
	)
	mcpsdk.AddTool(s.mcp, &mcpsdk.Tool{
		Name:        "speak",
		Description: "Synthesise text to speech and play it on this machine.",
	}, s.speak)
	mcpsdk.AddTool(s.mcp, &mcpsdk.Tool{
		Name:        "save_audio",
		Description: "Synthesise text to speech and save it to an audio file.",
	}, s.saveAudio)
	mcpsdk.AddTool(s.mcp, &mcpsdk.Tool{
		Name:        "list_voices",
		Description: "List available synthesis voices, grouped by category.",
	}, s.listVoices)
	mcpsdk.AddTool(s.mcp, &mcpsdk.Tool{
		Name:        "voice_info",
		Description: "Resolve a voice name and describe the matching voice.",
	}, s.voiceInfo)

	return s
}

// Run serves MCP over stdin/stdout until ctx is cancelled or the client
// disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.log.Info("mcp server running on stdio")
	if err := s.mcp.Run(ctx, &mcpsdk.StdioTransport{}); err != nil {
		return fmt.Errorf("mcpserver: %w", err)
	}
	return nil
}

// ---- speak / save_audio ----

// speakInput is the argument schema shared by speak and save_audio.
type speakInput struct {
	Text     string  `json:"text" jsonschema:"the text to speak"`
	Voice    string  `json:"voice,omitempty" jsonschema:"voice name to use, matched fuzzily"`
	Language string  `json:"language,omitempty" jsonschema:"ISO 639-1 language code, e.g. es or en"`
	Engine   string  `json:"engine,omitempty" jsonschema:"engine preference: auto, native or ai"`
	Quality  string  `json:"quality,omitempty" jsonschema:"quality target: fast, balanced or premium"`
	Rate     float64 `json:"rate,omitempty" jsonschema:"speech rate multiplier, 0.5 to 2.0"`
	Volume   float64 `json:"volume,omitempty" jsonschema:"volume multiplier, 0.0 to 2.0"`
	Pitch    float64 `json:"pitch,omitempty" jsonschema:"pitch multiplier, 0.5 to 2.0"`

	// ReferenceAudio switches synthesis to voice cloning on the AI engine.
	ReferenceAudio string `json:"reference_audio,omitempty" jsonschema:"path to a reference WAV for voice cloning"`
}

// saveAudioInput extends speakInput with the output location.
type saveAudioInput struct {
	speakInput
	OutputPath string `json:"output_path" jsonschema:"file path to write the audio to"`
	Format     string `json:"format,omitempty" jsonschema:"output container: wav or aiff"`
}

// speakOutput reports the outcome of a synthesis tool call.
type speakOutput struct {
	Engine     string `json:"engine"`
	Voice      string `json:"voice"`
	Reason     string `json:"reason"`
	OutputPath string `json:"output_path,omitempty"`
}

func (in speakInput) request() engine.Request {
	return engine.Request{
		Text:           in.Text,
		VoiceQuery:     in.Voice,
		Language:       voice.Language(in.Language),
		Engine:         engine.Preference(in.Engine),
		Quality:        engine.RequestQuality(in.Quality),
		Rate:           in.Rate,
		Volume:         in.Volume,
		Pitch:          in.Pitch,
		ReferenceAudio: in.ReferenceAudio,
	}
}

func (s *Server) speak(ctx context.Context, _ *mcpsdk.CallToolRequest, in speakInput) (*mcpsdk.CallToolResult, speakOutput, error) {
	req := in.request()
	req.Play = true

	res, sel, err := s.app.SelectAndSynthesize(ctx, req)
	if err != nil {
		return nil, speakOutput{}, err
	}

	out := speakOutput{
		Engine: res.Engine,
		Voice:  res.Voice.Name,
		Reason: string(sel.Reason),
	}
	return textResult(fmt.Sprintf("Spoke %d characters with voice %q on the %s engine.",
		len(in.Text), res.Voice.Name, res.Engine)), out, nil
}

func (s *Server) saveAudio(ctx context.Context, _ *mcpsdk.CallToolRequest, in saveAudioInput) (*mcpsdk.CallToolResult, speakOutput, error) {
	req := in.request()
	req.OutputPath = in.OutputPath
	req.Format = engine.Format(in.Format)

	res, sel, err := s.app.SelectAndSynthesize(ctx, req)
	if err != nil {
		return nil, speakOutput{}, err
	}

	out := speakOutput{
		Engine:     res.Engine,
		Voice:      res.Voice.Name,
		Reason:     string(sel.Reason),
		OutputPath: res.OutputPath,
	}
	return textResult(fmt.Sprintf("Saved audio for voice %q to %s.", res.Voice.Name, res.OutputPath)), out, nil
}

// ---- list_voices ----

// listVoicesInput narrows the listing; all fields are optional.
type listVoicesInput struct {
	Language string `json:"language,omitempty" jsonschema:"filter by ISO 639-1 language code"`
	Gender   string `json:"gender,omitempty" jsonschema:"filter by gender: male or female"`
	Quality  string `json:"quality,omitempty" jsonschema:"filter by quality tier"`
	Search   string `json:"search,omitempty" jsonschema:"free-text name search"`
}

// listVoicesOutput carries the filtered records for structured consumers.
type listVoicesOutput struct {
	Count  int           `json:"count"`
	Voices []voice.Voice `json:"voices"`
}

func (s *Server) listVoices(ctx context.Context, _ *mcpsdk.CallToolRequest, in listVoicesInput) (*mcpsdk.CallToolResult, listVoicesOutput, error) {
	filtered, err := s.app.Voices(ctx, app.Filter{
		Gender:   voice.Gender(in.Gender),
		Language: voice.Language(in.Language),
		Quality:  voice.Quality(in.Quality),
		Search:   in.Search,
	})
	if err != nil {
		return nil, listVoicesOutput{}, err
	}

	views, err := s.app.Categories(ctx)
	if err != nil {
		return nil, listVoicesOutput{}, err
	}

	keep := make(map[string]bool, len(filtered))
	for _, v := range filtered {
		keep[v.Engine+"\x00"+v.ID] = true
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d voices available:\n", len(filtered))
	for _, bucket := range sortedBuckets(views.Primary) {
		var lines []string
		for _, v := range views.Primary[bucket] {
			if !keep[v.Engine+"\x00"+v.ID] {
				continue
			}
			lines = append(lines, "  - "+describeVoice(v))
		}
		if len(lines) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n%s:\n%s\n", bucket, strings.Join(lines, "\n"))
	}

	return textResult(b.String()), listVoicesOutput{Count: len(filtered), Voices: filtered}, nil
}

// ---- voice_info ----

// voiceInfoInput names the voice to look up.
type voiceInfoInput struct {
	Voice    string `json:"voice" jsonschema:"voice name or query to resolve"`
	Engine   string `json:"engine,omitempty" jsonschema:"restrict the lookup to one engine: native or ai"`
	Language string `json:"language,omitempty" jsonschema:"fallback language if no name matches"`
}

// voiceInfoOutput describes the resolved voice.
type voiceInfoOutput struct {
	Voice voice.Voice `json:"voice"`

	// ExactMatch is false when the voice was substituted via a language
	// or first-candidate fallback.
	ExactMatch bool `json:"exact_match"`
}

func (s *Server) voiceInfo(ctx context.Context, _ *mcpsdk.CallToolRequest, in voiceInfoInput) (*mcpsdk.CallToolResult, voiceInfoOutput, error) {
	v, err := s.app.ResolveVoice(ctx, in.Voice, in.Engine, voice.Language(in.Language))
	if err != nil {
		return nil, voiceInfoOutput{}, err
	}

	all, err := s.app.Voices(ctx, app.Filter{})
	if err != nil {
		return nil, voiceInfoOutput{}, err
	}
	out := voiceInfoOutput{
		Voice:      v,
		ExactMatch: resolver.Validate(in.Voice, all),
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s (engine %s)\n", v.Name, v.Engine)
	fmt.Fprintf(&b, "  language: %s", v.Language)
	if v.Locale != "" {
		fmt.Fprintf(&b, " (%s)", v.Locale)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "  quality: %s\n", v.Quality)
	if v.Gender != voice.GenderUnknown {
		fmt.Fprintf(&b, "  gender: %s\n", v.Gender)
	}
	if !out.ExactMatch {
		fmt.Fprintf(&b, "  note: no exact match for %q; this is a fallback\n", in.Voice)
	}
	return textResult(b.String()), out, nil
}

// ---- helpers ----

func textResult(text string) *mcpsdk.CallToolResult {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: text}},
	}
}

func sortedBuckets(primary map[string][]voice.Voice) []string {
	buckets := make([]string, 0, len(primary))
	for b := range primary {
		buckets = append(buckets, b)
	}
	sort.Strings(buckets)
	return buckets
}

func describeVoice(v voice.Voice) string {
	parts := []string{v.Name}
	if v.Locale != "" {
		parts = append(parts, "["+v.Locale+"]")
	} else if v.Language != voice.LanguageUnknown {
		parts = append(parts, "["+string(v.Language)+"]")
	}
	if v.Quality != voice.QualityBasic {
		parts = append(parts, "("+string(v.Quality)+")")
	}
	return strings.Join(parts, " ")
}
