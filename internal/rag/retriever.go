package rag

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/rs/zerolog/log"

	"pdf-rag/internal/models"
)

// Embedder embeds query text with the same model used at ingestion.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Retriever struct {
	store        VectorStore
	embedder     Embedder
	collection   string
	topK         int
	embeddingDim int
}

// NewRetriever returns a retriever over collection. embeddingDim sizes the
// neutral vector used to discover a document when none is given.
func NewRetriever(store VectorStore, embedder Embedder, collection string, topK, embeddingDim int) *Retriever {
	return &Retriever{
		store:        store,
		embedder:     embedder,
		collection:   collection,
		topK:         topK,
		embeddingDim: embeddingDim,
	}
}

// Retrieve returns the chunks of documentID most similar to question,
// highest similarity first, along with the document id that was searched.
// With an empty documentID the document is discovered from the store; the
// only error returned is models.ErrNoDocumentsIndexed when that fails. Store
// and model failures are logged and yield an empty list.
func (r *Retriever) Retrieve(ctx context.Context, question, documentID string) ([]models.RetrievedChunk, string, error) {
	if documentID == "" {
		id, err := r.ResolveDocument(ctx)
		if err != nil {
			return nil, "", err
		}
		documentID = id
	}

	vector, err := r.embedder.Embed(ctx, question)
	if err != nil {
		log.Error().Err(fmt.Errorf("%w: embed question: %v", models.ErrRetrievalUnavailable, err)).Msg("Retrieval failed")
		return nil, documentID, nil
	}

	results, err := r.store.Query(ctx, r.collection, vector, r.topK, map[string]string{models.MetaDocumentID: documentID})
	if err != nil {
		log.Error().Err(fmt.Errorf("%w: %v", models.ErrRetrievalUnavailable, err)).Msg("Retrieval failed")
		return nil, documentID, nil
	}

	chunks := make([]models.RetrievedChunk, len(results))
	for i, res := range results {
		chunks[i] = models.RetrievedChunk{
			ID:         res.ID,
			Content:    res.Document,
			Metadata:   res.Metadata,
			Similarity: 1 - res.Distance,
			Highlight:  highlightFromMetadata(res.Metadata),
		}
	}
	sort.SliceStable(chunks, func(i, j int) bool { return chunks[i].Similarity > chunks[j].Similarity })

	log.Debug().Str("pdf_id", documentID).Int("chunks", len(chunks)).Msg("Retrieved chunks")
	return chunks, documentID, nil
}

// ResolveDocument picks a document to search when the caller named none:
// the document of any record in the collection, else the first collection
// name.
func (r *Retriever) ResolveDocument(ctx context.Context) (string, error) {
	neutral := make([]float32, r.embeddingDim)
	results, err := r.store.Query(ctx, r.collection, neutral, 1, nil)
	if err != nil {
		log.Warn().Err(err).Msg("Document discovery query failed")
	}
	if len(results) > 0 {
		if id := results[0].Metadata[models.MetaDocumentID]; id != "" {
			return id, nil
		}
	}

	names, err := r.store.ListCollections(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Listing collections failed")
	}
	if len(names) > 0 {
		return names[0], nil
	}
	return "", errors.Join(models.ErrNoDocumentsIndexed, err)
}

func highlightFromMetadata(meta map[string]string) models.HighlightInfo {
	return models.HighlightInfo{
		Page:           atoi(meta[models.MetaPageNum]),
		ParagraphIndex: atoi(meta[models.MetaParagraphIndex]),
		Position: models.BoundingBox{
			X0: atof(meta[models.MetaPositionX0]),
			Y0: atof(meta[models.MetaPositionY0]),
			X1: atof(meta[models.MetaPositionX1]),
			Y1: atof(meta[models.MetaPositionY1]),
		},
	}
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func atof(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
