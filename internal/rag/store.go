package rag

import (
	"context"

	"pdf-rag/internal/models"
)

// VectorStore is implemented by chromemdb.VectorDBManager and db.Store.
type VectorStore interface {
	EnsureCollection(ctx context.Context, name string) error
	Upsert(ctx context.Context, collection string, records []models.StoredRecord) error
	// Query returns the topK nearest records, nearest first, restricted to
	// records whose metadata matches every entry of where.
	Query(ctx context.Context, collection string, vector []float32, topK int, where map[string]string) ([]models.QueryResult, error)
	ListCollections(ctx context.Context) ([]string, error)
	DeleteWhere(ctx context.Context, collection string, where map[string]string) error
}

// Model is the model provider. *llmservice.Client satisfies it.
type Model interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	DescribeImage(ctx context.Context, image []byte, mimeType, detail string) (string, error)
	Complete(ctx context.Context, req models.CompletionRequest) (string, error)
}

// PageSplitter breaks a document into single-page documents.
type PageSplitter interface {
	Split(data []byte) ([][]byte, error)
}

// ContentExtractor returns the positioned blocks of one single-page document.
type ContentExtractor interface {
	Extract(pageBytes []byte, pageNumber int) ([]models.ContentBlock, error)
}
