package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidConfiguration indicates chunking or retrieval parameters
	// are out of bounds. Caller error, never retried.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrEmbeddingUnavailable indicates the embedding capability failed or
	// timed out. Retried once with backoff before being surfaced.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrGenerationUnavailable indicates the generation capability failed
	// twice in a row. Surfaced to the caller as distinct from an
	// insufficient-context answer.
	ErrGenerationUnavailable = errors.New("generation service unavailable")

	// ErrIndexModelMismatch indicates a query embedding and an index were
	// produced by different embedding models. Configuration error, fatal
	// to the request, never retried.
	ErrIndexModelMismatch = errors.New("index embedding model mismatch")

	// ErrIndexNotBuilt indicates a query named a document that has no
	// published index snapshot.
	ErrIndexNotBuilt = errors.New("index not built")

	// ErrCitationIntegrity indicates a generated citation marker did not
	// resolve to a retrieved chunk. Non-fatal: the marker is dropped and
	// the degraded answer is still returned.
	ErrCitationIntegrity = errors.New("citation does not resolve to a retrieved chunk")

	// ErrOverloaded is the backpressure signal when the synthesis
	// concurrency limit is reached. Callers should retry later.
	ErrOverloaded = errors.New("engine overloaded")

	// ErrIngestInProgress indicates an index build for the document is
	// already running.
	ErrIngestInProgress = errors.New("ingest already in progress")

	// ErrStaleIndex indicates a persisted index does not match the current
	// embedding model, chunking configuration or document content, and
	// must be rebuilt rather than served.
	ErrStaleIndex = errors.New("persisted index is stale")
)
