// Package native implements the OS-native synthesis engine: `say` on macOS
// and `espeak-ng` (or `espeak`) on Linux, invoked as external commands.
//
// The same type doubles as a voice source for the directory, listing voices
// via `say -v ?` or `espeak-ng --voices`.
package native

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
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
	// probeTimeout bounds the `--version` availability check.
	probeTimeout = 5 * time.Second

	// sayWPM and espeakWPM are the baseline words-per-minute each command
	// uses at rate 1.0; the request multiplier scales them.
	sayWPM    = 200
	espeakWPM = 175

	// wavDataFormat is passed to `say -o` so the output is a linear PCM
	// WAV instead of the default AIFF container.
	wavDataFormat = "--data-format=LEF32@16000"
)

// ---- options ----

// Option configures an Engine.
type Option func(*Engine)

// WithCommand forces the TTS binary instead of platform detection. The
// basename decides the dialect: "say" speaks the macOS flag set, anything
// else the espeak flag set.
func WithCommand(cmd string) Option {
	return func(e *Engine) {
		e.command = cmd
	}
}

// ---- Engine ----

// runFunc executes one external command and returns its separated output
// streams. Replaced in tests.
type runFunc func(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)

// Engine shells out to the platform TTS command. Safe for concurrent use;
// every call spawns its own process.
type Engine struct {
	command string
	run     runFunc
}

// New detects the platform TTS command and returns the engine. On macOS
// that is `say`; on Linux `espeak-ng` is preferred, falling back to
// `espeak`. An error is returned when no command can be found, unless
// [WithCommand] pins one explicitly.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{run: runCommand}
	for _, o := range opts {
		o(e)
	}
	if e.command == "" {
		cmd, err := detectCommand()
		if err != nil {
			return nil, err
		}
		e.command = cmd
	}
	return e, nil
}

func detectCommand() (string, error) {
	switch runtime.GOOS {
	case "darwin":
		return "say", nil
	case "linux":
		for _, cmd := range []string{"espeak-ng", "espeak"} {
			if _, err := exec.LookPath(cmd); err == nil {
				return cmd, nil
			}
		}
		return "", errors.New("native: no TTS command found, install espeak-ng")
	}
	return "", fmt.Errorf("native: unsupported platform %s", runtime.GOOS)
}

// isSay reports whether the configured command speaks the macOS dialect.
func (e *Engine) isSay() bool {
	return filepath.Base(e.command) == "say"
}

// Name implements [engine.Engine].
func (e *Engine) Name() string { return "native" }

// Engine implements [directory.Source].
func (e *Engine) Engine() string { return "native" }

// Available probes the TTS command with `--version`.
func (e *Engine) Available(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if _, _, err := e.run(ctx, e.command, "--version"); err != nil {
		return &engine.NotAvailableError{Engine: "native", Err: err}
	}
	return nil
}

// ---- voice listing ----

// Listing implements [directory.Source]. `say -v ?` lines pass through
// unchanged; `espeak --voices` columns are reshaped into the same
// "id [locale] # description" form the directory parser reads.
func (e *Engine) Listing(ctx context.Context) ([]string, error) {
	if e.isSay() {
		stdout, stderr, err := e.run(ctx, e.command, "-v", "?")
		if err != nil {
			return nil, fmt.Errorf("native: list voices: %w (%s)", err, bytes.TrimSpace(stderr))
		}
		return splitLines(stdout), nil
	}

	stdout, stderr, err := e.run(ctx, e.command, "--voices")
	if err != nil {
		return nil, fmt.Errorf("native: list voices: %w (%s)", err, bytes.TrimSpace(stderr))
	}
	raw := splitLines(stdout)
	if len(raw) > 0 {
		// First line is the column header.
		raw = raw[1:]
	}
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		// Columns: Pty Language Age/Gender VoiceName File [Other Languages]
		fields := strings.Fields(line)
		if len(fields) < 5 {
			continue
		}
		lang, gender, name := fields[1], fields[2], fields[4]
		var b strings.Builder
		b.WriteString(name)
		if strings.ContainsAny(lang, "-_") {
			b.WriteString(" " + lang)
		}
		b.WriteString(" #")
		switch gender {
		case "M":
			b.WriteString(" male")
		case "F":
			b.WriteString(" female")
		}
		b.WriteString(" " + lang)
		lines = append(lines, b.String())
	}
	return lines, nil
}

func splitLines(out []byte) []string {
	var lines []string
	for _, line := range strings.Split(string(out), "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// ---- synthesis ----

// Synthesize implements [engine.Engine]. With an output path the command
// writes the file directly; a second playback run is made when Play is
// also set. All command failures surface the process stderr verbatim.
func (e *Engine) Synthesize(ctx context.Context, req engine.Request, v voice.Voice) (*engine.SpeechResult, error) {
	args, err := e.synthArgs(req, v.ID, true)
	if err != nil {
		return nil, err
	}

	if _, stderr, err := e.run(ctx, e.command, args...); err != nil {
		return nil, &engine.SynthesisError{Engine: "native", Diagnostic: string(stderr), Err: err}
	}

	res := &engine.SpeechResult{Engine: "native", Voice: v}
	if req.OutputPath == "" {
		res.Played = true
		return res, nil
	}

	res.OutputPath = req.OutputPath
	if audio, err := os.ReadFile(req.OutputPath); err == nil {
		res.Audio = audio
	}

	if req.Play {
		playArgs, err := e.synthArgs(req, v.ID, false)
		if err != nil {
			return nil, err
		}
		if _, stderr, err := e.run(ctx, e.command, playArgs...); err != nil {
			return nil, &engine.SynthesisError{Engine: "native", Diagnostic: string(stderr), Err: err}
		}
		res.Played = true
	}
	return res, nil
}

// synthArgs builds the command line for one synthesis run. withOutput
// false drops the file flags, producing the playback variant of the same
// request.
func (e *Engine) synthArgs(req engine.Request, voiceID string, withOutput bool) ([]string, error) {
	var args []string
	rate := req.EffectiveRate()
	vol := req.EffectiveVolume()
	pitch := req.EffectivePitch()

	if e.isSay() {
		if voiceID != "" {
			args = append(args, "-v", voiceID)
		}
		if rate != 1.0 {
			args = append(args, "-r", strconv.Itoa(int(rate*sayWPM)))
		}
		if vol != 1.0 {
			args = append(args, "--volume", strconv.Itoa(clamp(int(vol*100), 0, 255)))
		}
		// say has no pitch control.
		if withOutput && req.OutputPath != "" {
			args = append(args, "-o", req.OutputPath)
			if wantsWAV(req) {
				args = append(args, wavDataFormat)
			}
		}
	} else {
		if voiceID != "" {
			args = append(args, "-v", voiceID)
		}
		if rate != 1.0 {
			args = append(args, "-s", strconv.Itoa(int(rate*espeakWPM)))
		}
		if vol != 1.0 {
			args = append(args, "-a", strconv.Itoa(clamp(int(vol*100), 0, 200)))
		}
		if pitch != 1.0 {
			args = append(args, "-p", strconv.Itoa(clamp(int(pitch*50), 0, 99)))
		}
		if withOutput && req.OutputPath != "" {
			if req.Format == engine.FormatAIFF {
				return nil, &engine.SynthesisError{
					Engine:     "native",
					Diagnostic: "espeak can only write wav files, use format wav",
				}
			}
			args = append(args, "-w", req.OutputPath)
		}
	}

	return append(args, req.Text), nil
}

// wantsWAV reports whether the request asks for a WAV container, either
// explicitly or through the output file extension.
func wantsWAV(req engine.Request) bool {
	if req.Format == engine.FormatWAV {
		return true
	}
	return req.Format == "" && strings.EqualFold(filepath.Ext(req.OutputPath), ".wav")
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// runCommand is the production runFunc.
func runCommand(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}
