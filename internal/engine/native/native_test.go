package native

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MrWong99/vocero/internal/directory"
	"github.com/MrWong99/vocero/internal/engine"
	"github.com/MrWong99/vocero/pkg/voice"
)

// capture records every command the engine would have executed.
type capture struct {
	calls  [][]string
	stdout []byte
	stderr []byte
	err    error
}

func (c *capture) run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	c.calls = append(c.calls, append([]string{name}, args...))
	return c.stdout, c.stderr, c.err
}

func newTest(t *testing.T, command string, c *capture) *Engine {
	t.Helper()
	e, err := New(WithCommand(command))
	if err != nil {
		t.Fatal(err)
	}
	e.run = c.run
	return e
}

func TestSynthesize_SayArgs(t *testing.T) {
	t.Parallel()
	c := &capture{}
	e := newTest(t, "say", c)

	req := engine.Request{Text: "hola mundo", Rate: 1.5, Volume: 0.5}
	res, err := e.Synthesize(context.Background(), req, voice.Voice{ID: "Jorge"})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Played || res.OutputPath != "" {
		t.Errorf("playback result = %+v", res)
	}

	want := []string{"say", "-v", "Jorge", "-r", "300", "--volume", "50", "hola mundo"}
	if got := strings.Join(c.calls[0], " "); got != strings.Join(want, " ") {
		t.Errorf("command = %q, want %q", got, strings.Join(want, " "))
	}
}

func TestSynthesize_SayDefaultsOmitFlags(t *testing.T) {
	t.Parallel()
	c := &capture{}
	e := newTest(t, "say", c)

	_, err := e.Synthesize(context.Background(), engine.Request{Text: "hola"}, voice.Voice{ID: "Monica"})
	if err != nil {
		t.Fatal(err)
	}
	got := strings.Join(c.calls[0], " ")
	if strings.Contains(got, "-r") || strings.Contains(got, "--volume") {
		t.Errorf("default prosody emitted flags: %q", got)
	}
}

func TestSynthesize_SayFileOutput(t *testing.T) {
	t.Parallel()
	c := &capture{}
	e := newTest(t, "say", c)

	out := filepath.Join(t.TempDir(), "out.wav")
	req := engine.Request{Text: "hola", OutputPath: out, Format: engine.FormatWAV}
	res, err := e.Synthesize(context.Background(), req, voice.Voice{ID: "Jorge"})
	if err != nil {
		t.Fatal(err)
	}
	if res.OutputPath != out || res.Played {
		t.Errorf("file result = %+v", res)
	}
	got := strings.Join(c.calls[0], " ")
	if !strings.Contains(got, "-o "+out) || !strings.Contains(got, "--data-format=LEF32@16000") {
		t.Errorf("file output args missing: %q", got)
	}
}

func TestSynthesize_SayFileThenPlay(t *testing.T) {
	t.Parallel()
	c := &capture{}
	e := newTest(t, "say", c)

	out := filepath.Join(t.TempDir(), "out.aiff")
	req := engine.Request{Text: "hola", OutputPath: out, Format: engine.FormatAIFF, Play: true}
	res, err := e.Synthesize(context.Background(), req, voice.Voice{ID: "Jorge"})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Played || res.OutputPath != out {
		t.Errorf("file+play result = %+v", res)
	}
	if len(c.calls) != 2 {
		t.Fatalf("expected write + playback runs, got %d calls", len(c.calls))
	}
	if playback := strings.Join(c.calls[1], " "); strings.Contains(playback, "-o ") {
		t.Errorf("playback run carries output flags: %q", playback)
	}
}

func TestSynthesize_EspeakArgs(t *testing.T) {
	t.Parallel()
	c := &capture{}
	e := newTest(t, "espeak-ng", c)

	out := filepath.Join(t.TempDir(), "out.wav")
	req := engine.Request{Text: "hallo", Rate: 2.0, Volume: 1.5, Pitch: 0.5, OutputPath: out}
	_, err := e.Synthesize(context.Background(), req, voice.Voice{ID: "spanish"})
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"espeak-ng", "-v", "spanish", "-s", "350", "-a", "150", "-p", "25", "-w", out, "hallo"}
	if got := strings.Join(c.calls[0], " "); got != strings.Join(want, " ") {
		t.Errorf("command = %q, want %q", got, strings.Join(want, " "))
	}
}

func TestSynthesize_EspeakRejectsAIFF(t *testing.T) {
	t.Parallel()
	c := &capture{}
	e := newTest(t, "espeak", c)

	req := engine.Request{Text: "x", OutputPath: "/tmp/out.aiff", Format: engine.FormatAIFF}
	_, err := e.Synthesize(context.Background(), req, voice.Voice{ID: "spanish"})
	var synth *engine.SynthesisError
	if !errors.As(err, &synth) {
		t.Fatalf("err = %v, want SynthesisError", err)
	}
	if len(c.calls) != 0 {
		t.Error("command ran despite unsupported format")
	}
}

func TestSynthesize_StderrCarriedVerbatim(t *testing.T) {
	t.Parallel()
	c := &capture{stderr: []byte("Voice `Nope' not found.\n"), err: errors.New("exit status 1")}
	e := newTest(t, "say", c)

	_, err := e.Synthesize(context.Background(), engine.Request{Text: "x"}, voice.Voice{ID: "Nope"})
	var synth *engine.SynthesisError
	if !errors.As(err, &synth) {
		t.Fatalf("err = %v, want SynthesisError", err)
	}
	if !strings.Contains(synth.Diagnostic, "Voice `Nope' not found.") {
		t.Errorf("diagnostic = %q", synth.Diagnostic)
	}
}

func TestListing_Say(t *testing.T) {
	t.Parallel()
	c := &capture{stdout: []byte("Jorge    es_ES  # Hola, me llamo Jorge.\nSamantha en_US  # Hello!\n")}
	e := newTest(t, "say", c)

	lines, err := e.Listing(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if got := strings.Join(c.calls[0], " "); got != "say -v ?" {
		t.Errorf("listing command = %q", got)
	}
	if !strings.HasPrefix(lines[0], "Jorge") {
		t.Errorf("lines passed through changed: %q", lines[0])
	}
}

func TestListing_EspeakReshaped(t *testing.T) {
	t.Parallel()
	c := &capture{stdout: []byte(
		"Pty Language Age/Gender VoiceName          File          Other Languages\n" +
			" 5  es             M  spanish              es\n" +
			" 5  en-gb          M  english              en\n" +
			" 5  es-la          M  spanish-latin-am     es-la\n" +
			"bad line\n")}
	e := newTest(t, "espeak-ng", c)

	lines, err := e.Listing(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3: %v", len(lines), lines)
	}

	// Reshaped lines parse into full records.
	records := directoryParse(t, lines)
	if records[0].ID != "spanish" || records[0].Language != voice.Spanish || records[0].Gender != voice.Male {
		t.Errorf("spanish record = %+v", records[0])
	}
	if records[1].Locale != "en_GB" || records[1].Language != voice.English {
		t.Errorf("en-gb record = %+v", records[1])
	}
	if records[2].Language != voice.Spanish {
		t.Errorf("latin american record = %+v", records[2])
	}
}

func TestAvailable(t *testing.T) {
	t.Parallel()
	c := &capture{}
	e := newTest(t, "say", c)
	if err := e.Available(context.Background()); err != nil {
		t.Fatal(err)
	}

	bad := &capture{err: errors.New("executable file not found")}
	e = newTest(t, "say", bad)
	err := e.Available(context.Background())
	var na *engine.NotAvailableError
	if !errors.As(err, &na) {
		t.Fatalf("err = %v, want NotAvailableError", err)
	}
}

func directoryParse(t *testing.T, lines []string) []voice.Voice {
	t.Helper()
	records := directory.ParseListing("native", lines)
	if len(records) != len(lines) {
		t.Fatalf("parsed %d of %d lines", len(records), len(lines))
	}
	return records
}
