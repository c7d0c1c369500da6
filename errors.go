package normalizer

import "errors"

// Error taxonomy for internal classification and logging. None of these
// are fatal to a pipeline run: Resolve and Process never surface them to
// callers, they appear wrapped in logs and errors.Is checks only.
var (
	// ErrUnsupportedCodeSystem marks an OID absent from the code system
	// registry; resolution degrades to the fallback string.
	ErrUnsupportedCodeSystem = errors.New("unsupported code system")

	// ErrConceptNotFound marks a valid system with no catalogue entry for
	// the code; resolution degrades to the fallback string.
	ErrConceptNotFound = errors.New("concept not found")

	// ErrMalformedElement marks a source entry missing required fields;
	// the entry is skipped, the section continues.
	ErrMalformedElement = errors.New("malformed source element")

	// ErrExtractorFailure marks a failed or panicked extractor; the
	// section is omitted, the pipeline continues.
	ErrExtractorFailure = errors.New("extractor failure")

	// ErrCacheUnavailable marks a cache backend that is down; lookups
	// bypass the cache and hit the store directly.
	ErrCacheUnavailable = errors.New("cache backend unavailable")
)
