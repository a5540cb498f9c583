// Package services implements the core retrieval-and-synthesis pipeline:
// ingestion (chunk, embed, index), retrieval, answer synthesis with
// citations and confidence, the cached query path, and the keepalive
// loop. Services depend only on domain types and ports; adapters are
// injected at construction.
package services
