package domain

import "time"

// AnswerKind distinguishes a grounded answer from the explicit
// "insufficient context" variant.
type AnswerKind string

// Available answer kinds.
const (
	// AnswerKindGrounded is a generated answer supported by retrieved chunks.
	AnswerKindGrounded AnswerKind = "grounded"

	// AnswerKindInsufficientContext signals that no chunk cleared the
	// relevance threshold and no generation was attempted. It is a valid
	// answer, not an error: the caller must present it differently from
	// "the system is unavailable".
	AnswerKindInsufficientContext AnswerKind = "insufficient_context"
)

// IsValid returns true if the answer kind is recognised.
func (k AnswerKind) IsValid() bool {
	switch k {
	case AnswerKindGrounded, AnswerKindInsufficientContext:
		return true
	default:
		return false
	}
}

// InsufficientContextFloor is the fixed confidence assigned to
// insufficient-context answers.
const InsufficientContextFloor = 0.1

// Citation links a span of the generated text back to the chunk that
// grounds it.
type Citation struct {
	// Marker is the citation token as it appeared in the generated text,
	// e.g. "[S2]".
	Marker string

	// ChunkID identifies the cited chunk.
	ChunkID string

	// DocumentID identifies the cited chunk's document.
	DocumentID string

	// Position is the chunk's ordinal position within its document.
	Position int

	// Start and End are the chunk's character offsets in the document.
	Start int
	End   int

	// Similarity is the cited chunk's retrieval similarity.
	Similarity float64
}

// Topic is a keyword cluster extracted from the cited sources.
type Topic struct {
	// Keywords are the top terms of the topic, most frequent first.
	Keywords []string

	// Weight is the topic's share of scored terms, in [0, 1].
	Weight float64
}

// SourceAnalysis carries per-source signals computed on a cited chunk.
type SourceAnalysis struct {
	// ChunkID identifies the analysed chunk.
	ChunkID string

	// Sentiment is the polarity of the chunk text in [-1, 1].
	Sentiment float64
}

// Answer is the synthesized response to a query. It is immutable once
// returned and is the value cached by the response cache.
type Answer struct {
	// Query is the question the answer responds to.
	Query string

	// Kind distinguishes grounded answers from the insufficient-context
	// variant.
	Kind AnswerKind

	// Text is the generated answer text. For insufficient-context answers
	// it is a fixed explanatory message.
	Text string

	// Citations resolve markers in Text to retrieved chunks, in order of
	// first appearance.
	Citations []Citation

	// Confidence is in [0, 1]. See the synthesizer for the scoring
	// formula.
	Confidence float64

	// DocumentIDs lists the documents consulted.
	DocumentIDs []string

	// Sentiment is the polarity of Text in [-1, 1].
	Sentiment float64

	// Topics are keyword clusters extracted from the cited sources.
	Topics []Topic

	// Sources carries per-source sentiment for each cited chunk.
	Sources []SourceAnalysis

	// CreatedAt is when the answer was synthesized.
	CreatedAt time.Time
}

// Grounded reports whether the answer is backed by retrieved context.
func (a Answer) Grounded() bool {
	return a.Kind == AnswerKindGrounded
}
