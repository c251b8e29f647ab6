package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/MrWong99/vocero/pkg/voice"
)

const (
	// defaultTTL governs how long a snapshot stays current before the next
	// read triggers a refresh.
	defaultTTL = 5 * time.Minute

	// defaultSourceTimeout bounds each source's Listing call so one hanging
	// engine cannot stall the whole refresh.
	defaultSourceTimeout = 10 * time.Second
)

// ErrNoSources is returned when a refresh is attempted with no registered
// voice sources.
var ErrNoSources = errors.New("directory: no voice sources registered")

// UnreachableError is returned when every registered source failed during a
// refresh and no prior snapshot exists to fall back on.
type UnreachableError struct {
	// Errs holds one error per failed source.
	Errs []error
}

// Error implements the error interface.
func (e *UnreachableError) Error() string {
	return fmt.Sprintf("directory: all %d voice sources unreachable: %v", len(e.Errs), errors.Join(e.Errs...))
}

// Unwrap exposes the per-source errors for errors.Is/As.
func (e *UnreachableError) Unwrap() []error { return e.Errs }

// Snapshot is an immutable, timestamped list of voices produced by one
// refresh cycle. A snapshot is never mutated after creation; a refresh
// builds a new one and swaps it in atomically.
type Snapshot struct {
	// Voices is the deduplicated record list, in source registration order.
	Voices []voice.Voice

	// Taken is when the refresh completed.
	Taken time.Time
}

// Stats summarises the state of the current snapshot for diagnostics.
type Stats struct {
	VoiceCount int                        `json:"voice_count"`
	Age        time.Duration              `json:"age"`
	TTL        time.Duration              `json:"ttl"`
	Sources    int                        `json:"sources"`
	ByLanguage map[voice.Language]int     `json:"by_language"`
	ByEngine   map[string]int             `json:"by_engine"`
}

// Option is a functional option for configuring a [Directory].
type Option func(*Directory)

// WithTTL sets how long a snapshot stays current. Default: 5 minutes.
func WithTTL(ttl time.Duration) Option {
	return func(d *Directory) { d.ttl = ttl }
}

// WithSourceTimeout sets the per-source Listing timeout. Default: 10 s.
func WithSourceTimeout(timeout time.Duration) Option {
	return func(d *Directory) { d.sourceTimeout = timeout }
}

// Directory maintains the deduplicated voice list across all registered
// sources, refreshed on demand and cached with a TTL.
//
// All methods are safe for concurrent use. Readers always observe a
// complete, consistent snapshot; a refresh swaps in a brand-new one.
type Directory struct {
	sources       []Source // registration order; first wins on ID conflict
	ttl           time.Duration
	sourceTimeout time.Duration

	mu   sync.RWMutex
	snap *Snapshot

	// group coalesces concurrent refresh requests into one in-flight
	// listing round.
	group singleflight.Group
}

// New creates a Directory over the given sources. Source order matters:
// when two sources report the same voice ID, the record from the
// earlier-registered source is kept.
func New(sources []Source, opts ...Option) *Directory {
	d := &Directory{
		sources:       sources,
		ttl:           defaultTTL,
		sourceTimeout: defaultSourceTimeout,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// GetAll refreshes the snapshot if it is missing or expired, then returns a
// copy of the current voice list. The returned slice is owned by the caller.
func (d *Directory) GetAll(ctx context.Context) ([]voice.Voice, error) {
	if err := d.Refresh(ctx, false); err != nil {
		return nil, err
	}
	d.mu.RLock()
	snap := d.snap
	d.mu.RUnlock()
	if snap == nil {
		return nil, ErrNoSources
	}
	out := make([]voice.Voice, len(snap.Voices))
	copy(out, snap.Voices)
	return out, nil
}

// Refresh rebuilds the snapshot from all sources. When force is false and a
// non-expired snapshot exists, Refresh returns immediately. Concurrent
// callers share a single in-flight listing round.
//
// A source that fails is skipped with a warning; the refresh succeeds as
// long as at least one source responds. If every source fails, the prior
// snapshot (if any) is retained and Refresh returns nil; with no prior
// snapshot it returns an [UnreachableError].
func (d *Directory) Refresh(ctx context.Context, force bool) error {
	if !force && d.valid() {
		return nil
	}
	if len(d.sources) == 0 {
		return ErrNoSources
	}

	_, err, _ := d.group.Do("refresh", func() (any, error) {
		// Re-check under the flight: a caller queued behind a completed
		// refresh should not trigger another round.
		if !force && d.valid() {
			return nil, nil
		}
		return nil, d.refreshLocked(ctx)
	})
	return err
}

// refreshLocked queries every source concurrently (each bounded by the
// per-source timeout), merges results in registration order, and swaps in
// the new snapshot. Only ever executed by one goroutine at a time, via the
// singleflight group.
func (d *Directory) refreshLocked(ctx context.Context) error {
	perSource := make([][]voice.Voice, len(d.sources))
	srcErrs := make([]error, len(d.sources))

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range d.sources {
		g.Go(func() error {
			sctx, cancel := context.WithTimeout(gctx, d.sourceTimeout)
			defer cancel()

			lines, err := src.Listing(sctx)
			if err != nil {
				// Partial failure is not fatal; recorded and merged later.
				srcErrs[i] = fmt.Errorf("directory: source %q: %w", src.Engine(), err)
				return nil
			}
			perSource[i] = ParseListing(src.Engine(), lines)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	// Merge in registration order, keeping the first record seen per ID.
	// This is a deliberate tie-break, not last-write-wins.
	seen := make(map[string]struct{})
	var merged []voice.Voice
	succeeded := 0
	for i, vs := range d.sources {
		if srcErrs[i] != nil {
			slog.Warn("voice source failed, skipping", "source", vs.Engine(), "err", srcErrs[i])
			continue
		}
		succeeded++
		for _, v := range perSource[i] {
			if _, dup := seen[v.ID]; dup {
				continue
			}
			seen[v.ID] = struct{}{}
			merged = append(merged, v)
		}
	}

	if succeeded == 0 {
		d.mu.RLock()
		hasPrior := d.snap != nil
		d.mu.RUnlock()
		if hasPrior {
			slog.Warn("all voice sources failed, keeping previous snapshot",
				"sources", len(d.sources))
			return nil
		}
		errs := make([]error, 0, len(srcErrs))
		for _, e := range srcErrs {
			if e != nil {
				errs = append(errs, e)
			}
		}
		return &UnreachableError{Errs: errs}
	}

	snap := &Snapshot{Voices: merged, Taken: time.Now()}
	d.mu.Lock()
	d.snap = snap
	d.mu.Unlock()

	slog.Debug("voice directory refreshed",
		"voices", len(merged),
		"sources_ok", succeeded,
		"sources_total", len(d.sources),
	)
	return nil
}

// Invalidate discards the current snapshot so the next read bypasses the TTL.
func (d *Directory) Invalidate() {
	d.mu.Lock()
	d.snap = nil
	d.mu.Unlock()
}

// Stats returns diagnostic information about the current snapshot. It does
// not trigger a refresh; counts are zero when no snapshot exists.
func (d *Directory) Stats() Stats {
	d.mu.RLock()
	snap := d.snap
	d.mu.RUnlock()

	s := Stats{
		TTL:        d.ttl,
		Sources:    len(d.sources),
		ByLanguage: make(map[voice.Language]int),
		ByEngine:   make(map[string]int),
	}
	if snap == nil {
		return s
	}
	s.VoiceCount = len(snap.Voices)
	s.Age = time.Since(snap.Taken)
	for _, v := range snap.Voices {
		s.ByLanguage[v.Language]++
		s.ByEngine[v.Engine]++
	}
	return s
}

// valid reports whether a current, non-expired snapshot exists.
func (d *Directory) valid() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.snap != nil && time.Since(d.snap.Taken) < d.ttl
}
