package rag

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"pdf-rag/internal/config"
	"pdf-rag/internal/embedding"
	"pdf-rag/internal/helper"
	"pdf-rag/internal/models"
	"pdf-rag/internal/parser"
)

// RAG ties the ingestion and query pipelines to one store and one model
// provider, both created by the caller.
type RAG struct {
	ingestor    *Ingestor
	retriever   *Retriever
	synthesizer *Synthesizer
}

// NewRAG uses the PDF splitter and extractor from the parser package.
func NewRAG(cfg *config.Config, store VectorStore, model Model) *RAG {
	return NewRAGWithParsers(cfg, store, model, parser.NewSplitter(), parser.NewExtractor())
}

func NewRAGWithParsers(cfg *config.Config, store VectorStore, model Model, splitter PageSplitter, extractor ContentExtractor) *RAG {
	chunkCfg := parser.ChunkConfig{
		MaxSize: cfg.RAG.ChunkSize,
		Overlap: cfg.RAG.ChunkOverlap,
		MinSize: cfg.RAG.MinChunkSize,
	}
	writer := NewIndexWriter(store, cfg.VectorStore.Collection, cfg.RAG.Reingest)
	return &RAG{
		ingestor:    NewIngestor(splitter, extractor, embedding.NewEmbedder(model), writer, chunkCfg),
		retriever:   NewRetriever(store, model, cfg.VectorStore.Collection, cfg.RAG.TopK, cfg.RAG.EmbeddingDim),
		synthesizer: NewSynthesizer(model, cfg.RAG.Temperature, cfg.RAG.MaxTokens),
	}
}

// Ingest indexes a PDF. A document id is generated when documentID is empty.
func (r *RAG) Ingest(ctx context.Context, documentID string, data []byte, progress ProgressFunc) (*models.IngestSummary, error) {
	if documentID == "" {
		id, err := helper.GenerateUUID()
		if err != nil {
			return nil, err
		}
		documentID = id
	}
	log.Info().Str("pdf_id", documentID).Int("bytes", len(data)).Msg("Ingesting PDF")
	return r.ingestor.Ingest(ctx, documentID, data, progress)
}

// Chunks runs extraction and chunking only.
func (r *RAG) Chunks(ctx context.Context, data []byte) ([]models.Chunk, *models.IngestSummary, error) {
	return r.ingestor.Chunks(ctx, data)
}

// Ask answers question from documentID, or from a discovered document when
// documentID is empty. It returns models.ErrNoDocumentsIndexed when there is
// nothing to search; every other failure shows up as a low-confidence answer.
func (r *RAG) Ask(ctx context.Context, question, documentID string) (*models.Answer, error) {
	chunks, resolved, err := r.retriever.Retrieve(ctx, question, documentID)
	if err != nil {
		if !errors.Is(err, models.ErrNoDocumentsIndexed) {
			log.Error().Err(err).Msg("Unexpected retrieval error")
		}
		return nil, err
	}

	answer := r.synthesizer.Synthesize(ctx, question, chunks)
	answer.DocumentID = resolved
	return &answer, nil
}
