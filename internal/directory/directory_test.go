package directory_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrWong99/vocero/internal/directory"
	"github.com/MrWong99/vocero/pkg/voice"
)

// countingSource counts Listing calls and optionally delays each one, to
// exercise refresh coalescing.
type countingSource struct {
	engine string
	lines  []string
	delay  time.Duration
	calls  atomic.Int64
}

func (s *countingSource) Engine() string { return s.engine }

func (s *countingSource) Listing(ctx context.Context) ([]string, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.lines, nil
}

func TestGetAll_ReturnsCopy(t *testing.T) {
	t.Parallel()
	d := directory.New([]directory.Source{
		&directory.StaticSource{EngineName: "native", Lines: []string{"Jorge es_ES # voz"}},
	})

	first, err := d.GetAll(context.Background())
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	first[0].ID = "mutated"

	second, err := d.GetAll(context.Background())
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if second[0].ID != "Jorge" {
		t.Errorf("snapshot leaked a mutable reference: got ID %q", second[0].ID)
	}
}

// TestRefresh_FirstSourceWinsOnConflict verifies the deliberate
// registration-order tie-break for duplicate voice IDs.
func TestRefresh_FirstSourceWinsOnConflict(t *testing.T) {
	t.Parallel()
	d := directory.New([]directory.Source{
		&directory.StaticSource{EngineName: "native", Lines: []string{"Jorge es_ES # native Jorge"}},
		&directory.StaticSource{EngineName: "ai", Lines: []string{"Jorge # ai Jorge", "Ana # ai Ana"}},
	})

	voices, err := d.GetAll(context.Background())
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(voices) != 2 {
		t.Fatalf("got %d voices, want 2 (Jorge deduplicated)", len(voices))
	}
	if voices[0].ID != "Jorge" || voices[0].Engine != "native" {
		t.Errorf("conflicting ID kept %s/%s, want Jorge from the first-registered source", voices[0].ID, voices[0].Engine)
	}
}

// TestRefresh_Coalesced verifies that N concurrent reads against an empty
// cache trigger exactly one listing round.
func TestRefresh_Coalesced(t *testing.T) {
	t.Parallel()
	src := &countingSource{
		engine: "native",
		lines:  []string{"Jorge es_ES # voz"},
		delay:  50 * time.Millisecond,
	}
	d := directory.New([]directory.Source{src})

	const n = 16
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := d.GetAll(context.Background()); err != nil {
				t.Errorf("GetAll: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := src.calls.Load(); got != 1 {
		t.Errorf("%d concurrent GetAll calls caused %d listing rounds, want 1", n, got)
	}
}

func TestRefresh_TTLExpiry(t *testing.T) {
	t.Parallel()
	src := &countingSource{engine: "native", lines: []string{"Jorge es_ES # voz"}}
	d := directory.New([]directory.Source{src}, directory.WithTTL(20*time.Millisecond))

	if _, err := d.GetAll(context.Background()); err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if _, err := d.GetAll(context.Background()); err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if got := src.calls.Load(); got != 1 {
		t.Fatalf("reads within TTL caused %d listing rounds, want 1", got)
	}

	time.Sleep(30 * time.Millisecond)
	if _, err := d.GetAll(context.Background()); err != nil {
		t.Fatalf("GetAll after expiry: %v", err)
	}
	if got := src.calls.Load(); got != 2 {
		t.Errorf("read after TTL expiry caused %d total rounds, want 2", got)
	}
}

func TestInvalidate_BypassesTTL(t *testing.T) {
	t.Parallel()
	src := &countingSource{engine: "native", lines: []string{"Jorge es_ES # voz"}}
	d := directory.New([]directory.Source{src}, directory.WithTTL(time.Hour))

	if _, err := d.GetAll(context.Background()); err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	d.Invalidate()
	if _, err := d.GetAll(context.Background()); err != nil {
		t.Fatalf("GetAll after invalidate: %v", err)
	}
	if got := src.calls.Load(); got != 2 {
		t.Errorf("Invalidate did not force a refresh: %d rounds, want 2", got)
	}
}

// TestRefresh_PartialFailure verifies that one broken source does not fail
// the refresh while at least one source succeeds.
func TestRefresh_PartialFailure(t *testing.T) {
	t.Parallel()
	d := directory.New([]directory.Source{
		&directory.StaticSource{EngineName: "native", Err: errors.New("say: not found")},
		&directory.StaticSource{EngineName: "ai", Lines: []string{"Ana # studio speaker"}},
	})

	voices, err := d.GetAll(context.Background())
	if err != nil {
		t.Fatalf("GetAll with one broken source: %v", err)
	}
	if len(voices) != 1 || voices[0].ID != "Ana" {
		t.Errorf("got %v, want the single record from the healthy source", voices)
	}
}

// TestRefresh_TotalFailure verifies the UnreachableError when no source
// responds and no prior snapshot exists, and last-known-good retention when
// one does.
func TestRefresh_TotalFailure(t *testing.T) {
	t.Parallel()
	broken := &directory.StaticSource{EngineName: "native", Err: errors.New("boom")}
	d := directory.New([]directory.Source{broken})

	_, err := d.GetAll(context.Background())
	var unreachable *directory.UnreachableError
	if !errors.As(err, &unreachable) {
		t.Fatalf("GetAll with no reachable source = %v, want UnreachableError", err)
	}

	// Seed a good snapshot, then break the source again: the prior
	// snapshot must be retained on a forced refresh.
	broken.Err = nil
	broken.Lines = []string{"Jorge es_ES # voz"}
	if _, err := d.GetAll(context.Background()); err != nil {
		t.Fatalf("GetAll: %v", err)
	}

	broken.Err = errors.New("boom again")
	if err := d.Refresh(context.Background(), true); err != nil {
		t.Fatalf("forced refresh with prior snapshot = %v, want nil (retain last known good)", err)
	}
	voices, err := d.GetAll(context.Background())
	if err != nil || len(voices) != 1 {
		t.Fatalf("prior snapshot not retained: voices=%v err=%v", voices, err)
	}
}

func TestStats(t *testing.T) {
	t.Parallel()
	d := directory.New([]directory.Source{
		&directory.StaticSource{EngineName: "native", Lines: []string{
			"Jorge es_ES # voz",
			"Samantha en_US # voice",
		}},
	})
	if _, err := d.GetAll(context.Background()); err != nil {
		t.Fatalf("GetAll: %v", err)
	}

	s := d.Stats()
	if s.VoiceCount != 2 {
		t.Errorf("VoiceCount = %d, want 2", s.VoiceCount)
	}
	if s.ByLanguage[voice.Spanish] != 1 || s.ByLanguage[voice.English] != 1 {
		t.Errorf("ByLanguage = %v, want one Spanish and one English", s.ByLanguage)
	}
	if s.ByEngine["native"] != 2 {
		t.Errorf("ByEngine = %v, want native:2", s.ByEngine)
	}
}
