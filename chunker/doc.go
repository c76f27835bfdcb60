// Package chunker splits raw source text into bounded, hashable chunks
// suitable for embedding and retrieval.
//
// Chunking is deterministic by contract: the same text always yields the
// same boundaries and content hashes, which is what lets the indexing
// pipeline detect and skip sources whose content has not changed.
package chunker
