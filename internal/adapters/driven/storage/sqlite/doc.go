// Package sqlite provides SQLite-backed persistence for documents,
// chunks and built indexes.
//
// Embeddings are stored as little-endian float32 blobs on the chunk
// rows. The index_meta table records the identity a persisted index was
// built under (embedding model, dimensions, chunking fingerprint,
// document content hash) so a reload can detect stale records instead
// of serving similarities computed under a different configuration.
package sqlite
