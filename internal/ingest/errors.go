package ingest

import "errors"

// Each pipeline failure mode maps to exactly one of these sentinels. Steps
// wrap them with fmt.Errorf("...: %w", ...) so callers classify with
// errors.Is while keeping the human-readable diagnostic.
var (
	// ErrInvalidParameter is returned for an ambiguous acquisition source
	// (both URL and body supplied) or a malformed archive URL.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrMissingInput is returned when neither a body, a chunked stream nor
	// an archive URL was supplied.
	ErrMissingInput = errors.New("missing archive input")

	// ErrRemoteFetch is returned when the archive URL is unreachable or
	// answers with an error status.
	ErrRemoteFetch = errors.New("remote fetch failed")

	// ErrUnsupportedFormat is returned when the archive bytes match none of
	// the supported formats.
	ErrUnsupportedFormat = errors.New("unsupported archive format")

	// ErrStructuralValidation is returned when the unpacked archive does not
	// contain exactly one top-level directory.
	ErrStructuralValidation = errors.New("archive structure invalid")

	// ErrMissingDefinition is returned when the entry definition file is
	// absent from the staged application directory.
	ErrMissingDefinition = errors.New("definition file missing")

	// ErrInvalidDefinition is returned when the definition parser rejects
	// the blueprint content. The wrapping error carries the parser
	// diagnostic.
	ErrInvalidDefinition = errors.New("invalid blueprint definition")

	// ErrArchiveNotFound is returned by the retrieval path when a blueprint
	// has no uploaded archive on the store. A successfully ingested
	// blueprint always has exactly one, so this signals an internal fault.
	ErrArchiveNotFound = errors.New("blueprint archive not found")

	// ErrInternalInconsistency is returned when a defensive invariant is
	// violated, e.g. a temp artifact a prior step guaranteed to exist has
	// vanished. Never silently recovered.
	ErrInternalInconsistency = errors.New("internal inconsistency")
)
