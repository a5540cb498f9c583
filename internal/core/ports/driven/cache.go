package driven

import (
	"context"

	"github.com/marketlens/marketlens-cli/internal/core/domain"
)

// AnswerCache memoizes synthesized answers.
//
// Keys are opaque to the cache; the engine derives them from the
// normalized query, the sorted document set and the retrieval
// configuration fingerprint. Implementations must be safe for concurrent
// readers and writers; a racing Put for the same key resolves
// last-write-wins.
type AnswerCache interface {
	// Get returns the cached answer for key, or false on a miss.
	// Entries past their TTL are treated as misses.
	Get(ctx context.Context, key string) (domain.Answer, bool)

	// Put stores an answer under key. Storing an equal answer twice is a
	// no-op apart from access metadata.
	Put(ctx context.Context, key string, answer domain.Answer)

	// Len returns the current number of live entries.
	Len() int

	// Purge drops all entries.
	Purge()
}
