package models

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedDocument is returned when the input bytes cannot be parsed as a PDF.
	ErrMalformedDocument = errors.New("malformed document")

	// ErrInvalidChunkConfig is returned when overlap is not strictly less than the chunk size.
	ErrInvalidChunkConfig = errors.New("invalid chunk config")

	// ErrEmbeddingFailed is matched by every *EmbeddingFailedError.
	ErrEmbeddingFailed = errors.New("embedding failed")

	// ErrNoDocumentsIndexed is returned when no document id was given and none
	// could be resolved from the store.
	ErrNoDocumentsIndexed = errors.New("no documents indexed")

	// ErrRetrievalUnavailable marks store or model failures at query time.
	// It is logged, never returned to the caller.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")
)

// EmbeddingFailedError reports a model failure for one chunk during ingestion.
type EmbeddingFailedError struct {
	ChunkID string
	Cause   error
}

func (e *EmbeddingFailedError) Error() string {
	return fmt.Sprintf("embedding failed for chunk %s: %v", e.ChunkID, e.Cause)
}

func (e *EmbeddingFailedError) Unwrap() []error {
	return []error{ErrEmbeddingFailed, e.Cause}
}
