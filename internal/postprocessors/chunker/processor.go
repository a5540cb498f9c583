// Package chunker provides a fixed-size overlapping text chunking processor.
package chunker

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/marketlens/marketlens-cli/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = domain.DefaultChunkSize

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = domain.DefaultChunkOverlap

// tokensPerChar approximates tokens from character counts. Four
// characters per token is the usual English-text heuristic.
const tokensPerChar = 4

// Processor splits document content into fixed-size overlapping chunks.
// Output is deterministic for identical input and configuration apart
// from chunk IDs, which is required for cache-key stability.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
// The configuration is validated by Process, not here, so a misconfigured
// processor fails loudly instead of being silently adjusted.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Process splits the document content into chunks covering the full text
// with no gaps. Consecutive chunks overlap by exactly the configured
// window, except possibly the last pair; the last chunk may be shorter
// than the chunk size. Offsets are non-decreasing.
func (p *Processor) Process(doc *domain.Document) ([]domain.Chunk, error) {
	if p.overlap >= p.chunkSize {
		return nil, fmt.Errorf("%w: overlap %d must be smaller than chunk size %d",
			domain.ErrInvalidConfiguration, p.overlap, p.chunkSize)
	}
	if doc.Content == "" {
		// Empty content produces no chunks
		return nil, nil
	}

	content := doc.Content
	contentLen := len(content)
	step := p.chunkSize - p.overlap

	estimatedChunks := (contentLen / step) + 1
	chunks := make([]domain.Chunk, 0, estimatedChunks)

	position := 0
	for start := 0; start < contentLen; start += step {
		end := start + p.chunkSize
		if end > contentLen {
			end = contentLen
		}

		text := content[start:end]
		chunks = append(chunks, domain.Chunk{
			ID:            uuid.New().String(),
			DocumentID:    doc.ID,
			Position:      position,
			Content:       text,
			Start:         start,
			End:           end,
			TokenEstimate: (len(text) + tokensPerChar - 1) / tokensPerChar,
		})
		position++

		if end == contentLen {
			break
		}
	}

	return chunks, nil
}

// ChunkSize returns the configured chunk window.
func (p *Processor) ChunkSize() int {
	return p.chunkSize
}

// Overlap returns the configured overlap window.
func (p *Processor) Overlap() int {
	return p.overlap
}
