package domain

import "time"

// Document represents an ingested market-research report.
// It is immutable once ingested; re-uploading a report with the same ID
// replaces the document and its index wholesale.
type Document struct {
	// ID is the stable identifier supplied by the document source.
	ID string

	// Filename is the source file the text was extracted from.
	Filename string

	// Content is the full extracted text.
	Content string

	// ContentHash is the SHA-256 of Content, used to validate persisted
	// indexes against the current document before serving from them.
	ContentHash string

	// IngestedAt is when the document was ingested.
	IngestedAt time.Time
}

// Chunk represents a contiguous span of a document's text.
// It is the unit of embedding, retrieval and citation.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the owning Document.
	DocumentID string

	// Position is the ordinal position within the document.
	// Citation ordering relies on it being sequential from zero.
	Position int

	// Content is the text of this chunk.
	Content string

	// Start is the character offset of the chunk's first byte in the
	// document content.
	Start int

	// End is the character offset one past the chunk's last byte.
	End int

	// TokenEstimate approximates the chunk's token count for prompt
	// budgeting. It is a heuristic, not a tokenizer count.
	TokenEstimate int
}

// Span returns the chunk's (start, end) character offsets.
func (c Chunk) Span() (int, int) {
	return c.Start, c.End
}
