// Command vocero is a text-to-speech front-end unifying the OS-native voice
// engine (say/espeak) and an XTTS AI voice-cloning server.
//
// Modes:
//
//	vocero [flags] <text>   speak text (default mode)
//	vocero -list            print available voices, grouped by category
//	vocero -serve           run the REST API server
//	vocero -mcp             run the MCP stdio server
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/MrWong99/vocero/internal/api"
	"github.com/MrWong99/vocero/internal/app"
	"github.com/MrWong99/vocero/internal/config"
	"github.com/MrWong99/vocero/internal/directory"
	"github.com/MrWong99/vocero/internal/engine"
	"github.com/MrWong99/vocero/internal/engine/native"
	"github.com/MrWong99/vocero/internal/engine/xtts"
	"github.com/MrWong99/vocero/internal/mcpserver"
	"github.com/MrWong99/vocero/internal/observe"
	"github.com/MrWong99/vocero/internal/resilience"
	"github.com/MrWong99/vocero/internal/selector"
	"github.com/MrWong99/vocero/pkg/voice"
)

const defaultConfigPath = "config.yaml"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", defaultConfigPath, "path to the YAML configuration file")
	serve := flag.Bool("serve", false, "run the REST API server")
	mcpMode := flag.Bool("mcp", false, "run the MCP stdio server")
	list := flag.Bool("list", false, "list available voices, grouped by category")

	voiceQuery := flag.String("voice", "", "voice name to use, matched fuzzily")
	lang := flag.String("lang", "", "target language code (e.g. es, en)")
	enginePref := flag.String("engine", "", "engine preference: auto, native or ai")
	quality := flag.String("quality", "", "quality target: fast, balanced or premium")
	rate := flag.Float64("rate", 0, "speech rate multiplier (0.5-2.0)")
	volume := flag.Float64("volume", 0, "volume multiplier (0.0-2.0)")
	pitch := flag.Float64("pitch", 0, "pitch multiplier (0.5-2.0)")
	clone := flag.String("clone", "", "reference WAV path for voice cloning")
	output := flag.String("o", "", "write audio to this file instead of playing")
	format := flag.String("format", "", "output container: wav or aiff")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		// A missing default config is fine; the built-in defaults apply.
		if errors.Is(err, os.ErrNotExist) && *configPath == defaultConfigPath {
			cfg = config.Default()
		} else {
			fmt.Fprintf(os.Stderr, "vocero: %v\n", err)
			return 1
		}
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logLevel := new(slog.LevelVar)
	logLevel.Set(slogLevel(cfg.Server.LogLevel))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	// ── Engines and directory ─────────────────────────────────────────────────
	application, err := buildApp(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "vocero: %v\n", err)
		return 1
	}

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch {
	case *mcpMode:
		return runMCP(ctx, application)
	case *serve:
		return runServe(ctx, cfg, *configPath, logLevel, application)
	case *list:
		return runList(ctx, application)
	}

	// ── Speak mode ────────────────────────────────────────────────────────────
	text := strings.TrimSpace(strings.Join(flag.Args(), " "))
	if text == "" {
		fmt.Fprintln(os.Stderr, "vocero: no text given; run with -h for usage")
		return 2
	}

	req := engine.Request{
		Text:           text,
		VoiceQuery:     *voiceQuery,
		Language:       voice.Language(*lang),
		Engine:         engine.Preference(*enginePref),
		Quality:        engine.RequestQuality(*quality),
		Rate:           *rate,
		Volume:         *volume,
		Pitch:          *pitch,
		ReferenceAudio: *clone,
		OutputPath:     *output,
		Format:         engine.Format(*format),
		Play:           *output == "",
	}

	res, sel, err := application.SelectAndSynthesize(ctx, req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "vocero: %v\n", err)
		return 1
	}
	if res.OutputPath != "" {
		fmt.Printf("saved %s audio for voice %q to %s\n", res.Engine, res.Voice.Name, res.OutputPath)
	} else {
		slog.Debug("spoke text", "engine", res.Engine, "voice", res.Voice.ID, "reason", string(sel.Reason))
	}
	return 0
}

// ── Modes ─────────────────────────────────────────────────────────────────────

func runMCP(ctx context.Context, a *app.App) int {
	if err := mcpserver.New(a).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("mcp server error", "err", err)
		return 1
	}
	return 0
}

func runServe(ctx context.Context, cfg *config.Config, configPath string, logLevel *slog.LevelVar, a *app.App) int {
	shutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}

	// Hot-reload log level and request defaults while the server runs. A
	// missing config file just disables reloading.
	if w, werr := config.NewWatcher(configPath, func(old, new *config.Config) {
		d := config.Diff(old, new)
		if d.LogLevelChanged {
			logLevel.Set(slogLevel(d.NewLogLevel))
			slog.Info("log level changed", "level", d.NewLogLevel)
		}
		if d.DefaultsChanged {
			a.SetDefaults(d.NewDefaults)
			slog.Info("request defaults changed")
		}
		if d.SelectionChanged {
			slog.Warn("selection config changed; restart to apply")
		}
	}); werr == nil {
		defer w.Stop()
	} else if !errors.Is(werr, os.ErrNotExist) {
		slog.Warn("config watcher disabled", "err", werr)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	srv := api.New(a)
	if err := srv.ListenAndServe(ctx, cfg.Server.ListenAddr); err != nil {
		slog.Error("rest server error", "err", err)
		return 1
	}
	return 0
}

func runList(ctx context.Context, a *app.App) int {
	views, err := a.Categories(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "vocero: %v\n", err)
		return 1
	}

	total := 0
	for _, vs := range views.Primary {
		total += len(vs)
	}
	fmt.Printf("%d voices available:\n", total)

	buckets := make([]string, 0, len(views.Primary))
	for b := range views.Primary {
		buckets = append(buckets, b)
	}
	sort.Strings(buckets)

	for _, bucket := range buckets {
		fmt.Printf("\n%s:\n", bucket)
		for _, v := range views.Primary[bucket] {
			fmt.Printf("  %s\n", describeVoice(v))
		}
	}
	return 0
}

// ── Wiring ────────────────────────────────────────────────────────────────────

// buildApp constructs the engines, directory and facade from cfg. The native
// engine is skipped with a warning when no TTS command exists on this host;
// the AI engine is only built when a server URL is configured.
func buildApp(cfg *config.Config) (*app.App, error) {
	var (
		engines []engine.Engine
		sources []directory.Source
	)

	var nativeOpts []native.Option
	if cfg.Engines.Native.Command != "" {
		nativeOpts = append(nativeOpts, native.WithCommand(cfg.Engines.Native.Command))
	}
	if n, err := native.New(nativeOpts...); err != nil {
		slog.Warn("native engine unavailable", "err", err)
	} else {
		engines = append(engines, n)
		sources = append(sources, n)
	}

	if cfg.Engines.AI.ServerURL != "" {
		var aiOpts []xtts.Option
		if cfg.Engines.AI.Language != "" {
			aiOpts = append(aiOpts, xtts.WithLanguage(cfg.Engines.AI.Language))
		}
		if cfg.Engines.AI.TimeoutSeconds > 0 {
			aiOpts = append(aiOpts, xtts.WithTimeout(time.Duration(cfg.Engines.AI.TimeoutSeconds)*time.Second))
		}
		x, err := xtts.New(cfg.Engines.AI.ServerURL, aiOpts...)
		if err != nil {
			return nil, err
		}
		// The AI server lives across the network; a breaker keeps a dead
		// server from stalling every selection on connection timeouts.
		guarded := resilience.Guard(x, resilience.CircuitBreakerConfig{Name: "ai"})
		engines = append(engines, guarded)
		sources = append(sources, guarded)
	}

	if len(engines) == 0 {
		return nil, engine.ErrNoEngineAvailable
	}

	var dirOpts []directory.Option
	if cfg.Directory.TTLSeconds > 0 {
		dirOpts = append(dirOpts, directory.WithTTL(time.Duration(cfg.Directory.TTLSeconds)*time.Second))
	}
	if cfg.Directory.SourceTimeoutSeconds > 0 {
		dirOpts = append(dirOpts, directory.WithSourceTimeout(time.Duration(cfg.Directory.SourceTimeoutSeconds)*time.Second))
	}
	dir := directory.New(sources, dirOpts...)

	appOpts := []app.Option{app.WithDefaults(cfg.Defaults)}
	if len(cfg.Selection.AIPreferredLanguages) > 0 {
		appOpts = append(appOpts, app.WithSelectorOptions(
			selector.WithAIPreferredLanguages(cfg.Selection.AIPreferredLanguages),
		))
	}
	return app.New(dir, engines, appOpts...), nil
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
	parts = append(parts, "via "+v.Engine)
	return strings.Join(parts, " ")
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
