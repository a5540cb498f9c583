// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the engine to function:
//
//   - EmbeddingService: Generates vector embeddings for chunks and queries
//   - LLMService: Generation capability for answer synthesis
//   - VectorIndexFactory: Builds immutable per-document index snapshots
//   - DocumentStore: Document and chunk persistence
//   - AnswerCache: Memoizes synthesized answers
//
// The embedding and generation models themselves are external services;
// the core only consumes them through these capability interfaces.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
