package domain

import "sort"

// RetrievedChunk pairs a chunk with its similarity to the query.
type RetrievedChunk struct {
	// Chunk is the matched chunk.
	Chunk Chunk

	// Similarity is the cosine similarity score in [0, 1].
	Similarity float64
}

// RetrievalResult is an ordered, deduplicated set of chunks relevant to a
// query, at most KPerDoc per document and none below MinScore.
type RetrievalResult struct {
	// Query is the text the chunks were retrieved for.
	Query string

	// Chunks is ordered by descending similarity; ties break by document
	// order then chunk position, so ranking is deterministic.
	Chunks []RetrievedChunk

	// DocumentIDs lists the documents consulted, in query order.
	DocumentIDs []string

	// KPerDoc is the per-document limit the retrieval ran with. The
	// synthesizer uses it to detect sparse grounding.
	KPerDoc int
}

// Empty reports whether no chunk cleared the similarity threshold.
// An empty result is a valid outcome, not an error; downstream must
// handle "no relevant context" explicitly.
func (r RetrievalResult) Empty() bool {
	return len(r.Chunks) == 0
}

// ChunkByPosition returns the retrieved chunk at the given merged-order
// position (0-based), or false when out of range.
func (r RetrievalResult) ChunkByPosition(i int) (RetrievedChunk, bool) {
	if i < 0 || i >= len(r.Chunks) {
		return RetrievedChunk{}, false
	}
	return r.Chunks[i], true
}

// SortChunks orders chunks by descending similarity, breaking ties by the
// document's position in docOrder and then by chunk position.
func SortChunks(chunks []RetrievedChunk, docOrder []string) {
	rank := make(map[string]int, len(docOrder))
	for i, id := range docOrder {
		rank[id] = i
	}

	sort.SliceStable(chunks, func(i, j int) bool {
		if chunks[i].Similarity != chunks[j].Similarity {
			return chunks[i].Similarity > chunks[j].Similarity
		}
		ri, rj := rank[chunks[i].Chunk.DocumentID], rank[chunks[j].Chunk.DocumentID]
		if ri != rj {
			return ri < rj
		}
		return chunks[i].Chunk.Position < chunks[j].Chunk.Position
	})
}
