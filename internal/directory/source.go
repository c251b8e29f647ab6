// Package directory maintains the current, deduplicated list of synthesis
// voices across all registered voice sources.
//
// Each [Source] returns a raw, unparsed listing; the directory parses every
// line into a [voice.Voice] using ordered heuristic rule tables, merges
// sources in registration order (first-registered wins on ID conflicts),
// and caches the result as an immutable [Snapshot] with a TTL.
//
// Refreshes are coalesced: any number of callers hitting an expired cache
// concurrently trigger exactly one underlying listing round and share its
// outcome.
package directory

import "context"

// Source is an engine-specific provider of a raw voice listing.
//
// Implementations must be safe for concurrent use. A slow or hanging source
// must respect ctx cancellation; the directory enforces a per-source
// timeout around every Listing call.
type Source interface {
	// Engine returns the engine name stamped on every record parsed from
	// this source ("native", "ai", or a specific model identifier).
	Engine() string

	// Listing returns the raw listing lines describing the source's
	// voices, one voice per line. The expected shape is
	//
	//	ID [locale] [# description]
	//
	// where ID is everything before the locale column or the "#" marker.
	// Returns an error if the underlying engine cannot be queried.
	Listing(ctx context.Context) ([]string, error)
}

// StaticSource is a Source backed by a fixed set of listing lines. Useful
// for tests and for registering known voice tables that need no I/O.
type StaticSource struct {
	// EngineName is reported by Engine.
	EngineName string

	// Lines are returned verbatim by Listing.
	Lines []string

	// Err, when non-nil, is returned by Listing instead of Lines.
	Err error
}

// Engine implements [Source].
func (s *StaticSource) Engine() string { return s.EngineName }

// Listing implements [Source].
func (s *StaticSource) Listing(context.Context) ([]string, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Lines, nil
}
