package driving

import (
	"context"

	"github.com/marketlens/marketlens-cli/internal/core/domain"
)

// AnalysisEngine is the narrow interface the presentation layer calls.
type AnalysisEngine interface {
	// Ingest chunks, embeds and indexes a document's text under the given
	// stable identifier. Re-ingesting an identifier replaces the document
	// and its index wholesale; queries keep serving the previous snapshot
	// until the new one is published.
	Ingest(ctx context.Context, documentID, filename, text string) error

	// Ask answers a natural-language question against the named
	// documents. The response cache wraps the whole query path.
	Ask(ctx context.Context, query string, documentIDs []string) (domain.Answer, error)

	// Documents lists the ingested documents.
	Documents(ctx context.Context) ([]domain.Document, error)
}

// KeepaliveRunner is the background warm-up loop keeping model clients
// and index memory resident between user queries.
type KeepaliveRunner interface {
	// Start begins the loop. It blocks until the context is cancelled or
	// Stop is called.
	Start(ctx context.Context) error

	// Stop shuts the loop down and waits for an in-flight tick.
	Stop() error

	// LastTick reports the most recent tick outcome, or false when no
	// tick has completed yet.
	LastTick() (domain.KeepaliveTick, bool)
}
