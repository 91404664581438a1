package gcs

import "errors"

// Error kinds, each independently testable with errors.Is. Queries
// against a successfully opened file never return one of these: a
// malformed probe is simply answered false, by design (Contains is a
// total function over byte strings).
var (
	// ErrBadInputLine marks a build-time input line that failed
	// preprocessing (e.g. malformed hex). Wrapped with the 1-based
	// line number via fmt.Errorf("%w: line %d: ...", ErrBadInputLine, n).
	ErrBadInputLine = errors.New("gcs: bad input line")

	// ErrIOFailure marks a read/write/seek failure during build or
	// open. It wraps the underlying error's text (in Seal, prefixed by
	// the name of the failed step); the byte offset of the failure is
	// not included.
	ErrIOFailure = errors.New("gcs: i/o failure")

	// ErrBadMagic marks a file that does not start with the GCS1
	// magic bytes.
	ErrBadMagic = errors.New("gcs: bad magic")

	// ErrUnsupportedHash marks a header hash_id this build does not
	// know how to compute.
	ErrUnsupportedHash = errors.New("gcs: unsupported hash identity")

	// ErrTruncated marks a file whose payload or index is shorter
	// than the header's offsets imply.
	ErrTruncated = errors.New("gcs: truncated file")

	// ErrInconsistentIndex marks a file whose anchors are not
	// monotone, exceed N, disagree with the payload they point into,
	// or whose trailing integrity digest does not match.
	ErrInconsistentIndex = errors.New("gcs: inconsistent index")

	// ErrOutOfMemory marks a builder whose declared MaxItems ceiling
	// was exceeded during ingest.
	ErrOutOfMemory = errors.New("gcs: out of memory")

	// ErrEmptySet marks a build attempted with zero items (spec
	// Non-goal: n = 0 is rejected at build time).
	ErrEmptySet = errors.New("gcs: empty set")
)
