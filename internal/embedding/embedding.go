package embedding

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"pdf-rag/internal/models"
)

// Model is the part of the model provider the embedder needs.
// *llmservice.Client satisfies it.
type Model interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	DescribeImage(ctx context.Context, image []byte, mimeType, detail string) (string, error)
}

type Embedder struct {
	model Model
}

func NewEmbedder(model Model) *Embedder {
	return &Embedder{model: model}
}

// Embed returns the embedded form of chunk. Image chunks are described by
// the vision model first and the description is embedded in their place.
func (e *Embedder) Embed(ctx context.Context, chunk models.Chunk, chunkID string) (models.EmbeddedChunk, error) {
	out := models.EmbeddedChunk{Chunk: chunk}

	if chunk.Kind == models.ImageChunk {
		description, err := e.model.DescribeImage(ctx, chunk.Image, chunk.MimeType, models.ImageDetail)
		if err != nil {
			return out, &models.EmbeddingFailedError{ChunkID: chunkID, Cause: fmt.Errorf("describe image: %w", err)}
		}
		if description == "" {
			return out, &models.EmbeddingFailedError{ChunkID: chunkID, Cause: fmt.Errorf("empty image description")}
		}
		out.Description = description
		out.Content = description
	}

	vector, err := e.model.Embed(ctx, out.Content)
	if err != nil {
		return out, &models.EmbeddingFailedError{ChunkID: chunkID, Cause: err}
	}
	out.Embedding = vector
	return out, nil
}

// EmbedChunks embeds chunks in order and stops at the first failure.
// chunkID maps a chunk to the identifier reported in errors.
func (e *Embedder) EmbedChunks(ctx context.Context, chunks []models.Chunk, chunkID func(models.Chunk) string) ([]models.EmbeddedChunk, error) {
	if len(chunks) == 0 {
		log.Info().Msg("No chunks to embed")
		return nil, nil
	}

	embedded := make([]models.EmbeddedChunk, 0, len(chunks))
	for _, chunk := range chunks {
		ec, err := e.Embed(ctx, chunk, chunkID(chunk))
		if err != nil {
			return nil, err
		}
		embedded = append(embedded, ec)
	}
	log.Debug().Int("chunks", len(embedded)).Msg("Embedded chunks")
	return embedded, nil
}
