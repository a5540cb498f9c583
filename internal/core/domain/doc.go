// Package domain defines the core business entities for Marketlens.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: An ingested report with its full extracted text
//   - Chunk: An embeddable span of a document
//   - RetrievalResult: Ranked chunks relevant to a query
//   - Answer: A synthesized, cited, confidence-scored response
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
