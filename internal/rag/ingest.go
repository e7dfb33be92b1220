package rag

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"

	"pdf-rag/internal/config"
	"pdf-rag/internal/embedding"
	"pdf-rag/internal/helper"
	"pdf-rag/internal/models"
	"pdf-rag/internal/parser"
)

const previewLength = 50

// ProgressFunc is called after each page with the number of pages done so
// far and the page count.
type ProgressFunc func(done, total int)

// Ingestor runs split, extract, chunk and embed page by page and writes
// the whole document with a single IndexWriter call.
type Ingestor struct {
	splitter  PageSplitter
	extractor ContentExtractor
	embedder  *embedding.Embedder
	writer    *IndexWriter
	chunkCfg  parser.ChunkConfig
}

func NewIngestor(splitter PageSplitter, extractor ContentExtractor, embedder *embedding.Embedder, writer *IndexWriter, chunkCfg parser.ChunkConfig) *Ingestor {
	return &Ingestor{
		splitter:  splitter,
		extractor: extractor,
		embedder:  embedder,
		writer:    writer,
		chunkCfg:  chunkCfg,
	}
}

// Ingest indexes data under documentID. An embedding failure aborts the
// document before anything is written.
func (in *Ingestor) Ingest(ctx context.Context, documentID string, data []byte, progress ProgressFunc) (*models.IngestSummary, error) {
	var embedded []models.EmbeddedChunk

	summary, err := in.walkPages(ctx, data, progress, func(chunks []models.Chunk) error {
		offset := len(embedded)
		for i := range chunks {
			chunks[i].SequenceIndex = offset + i
		}
		out, err := in.embedder.EmbedChunks(ctx, chunks, func(c models.Chunk) string {
			return RecordID(documentID, c.SequenceIndex)
		})
		if err != nil {
			return err
		}
		embedded = append(embedded, out...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	summary.DocumentID = documentID
	summary.NumChunks = len(embedded)
	storage, err := in.writer.Store(ctx, documentID, embedded)
	if err != nil {
		return nil, err
	}
	summary.Storage = storage
	return summary, nil
}

// Chunks splits, extracts and chunks data without calling the model or the
// store. Sequence indexes span the whole document.
func (in *Ingestor) Chunks(ctx context.Context, data []byte) ([]models.Chunk, *models.IngestSummary, error) {
	var all []models.Chunk
	summary, err := in.walkPages(ctx, data, nil, func(chunks []models.Chunk) error {
		for i := range chunks {
			chunks[i].SequenceIndex = len(all) + i
		}
		all = append(all, chunks...)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	summary.NumChunks = len(all)
	return all, summary, nil
}

func (in *Ingestor) walkPages(ctx context.Context, data []byte, progress ProgressFunc, handle func([]models.Chunk) error) (*models.IngestSummary, error) {
	if err := in.chunkCfg.Validate(); err != nil {
		return nil, err
	}
	pages, err := in.splitter.Split(data)
	if err != nil {
		return nil, err
	}

	summary := &models.IngestSummary{NumPages: len(pages)}
	for i, page := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pageNumber := i + 1

		blocks, err := in.extractor.Extract(page, pageNumber)
		if err != nil {
			log.Warn().Err(err).Int("page", pageNumber).Msg("Skipping page")
			continue
		}
		for _, b := range blocks {
			switch b.Kind {
			case models.BlockText:
				summary.NumTextBlocks++
			case models.BlockImage:
				summary.NumImageBlocks++
			}
		}

		chunks, err := parser.ChunkBlocks(blocks, in.chunkCfg)
		if err != nil {
			return nil, err
		}
		if err := handle(chunks); err != nil {
			return nil, err
		}

		summary.PagesProcessed++
		log.Info().Msgf("Processed page %d/%d", pageNumber, len(pages))
		if progress != nil {
			progress(pageNumber, len(pages))
		}
	}
	return summary, nil
}

// RecordID is the logical id of a stored chunk.
func RecordID(documentID string, sequenceIndex int) string {
	return fmt.Sprintf("%s_%d", documentID, sequenceIndex)
}

// IndexWriter persists embedded chunks of one document.
type IndexWriter struct {
	store      VectorStore
	collection string
	reingest   string
}

// NewIndexWriter returns a writer using the given re-ingestion policy,
// config.ReingestAppend or config.ReingestReplace.
func NewIndexWriter(store VectorStore, collection, reingest string) *IndexWriter {
	return &IndexWriter{store: store, collection: collection, reingest: reingest}
}

// Store writes chunks in one batch. Chunk i gets id "{documentID}_{i}".
// With the append policy each call adds new records even when the
// document was stored before.
func (w *IndexWriter) Store(ctx context.Context, documentID string, chunks []models.EmbeddedChunk) (models.StorageResult, error) {
	if documentID == "" {
		return models.StorageResult{}, errors.New("document id is required")
	}
	if err := w.store.EnsureCollection(ctx, w.collection); err != nil {
		return models.StorageResult{}, err
	}

	if w.reingest == config.ReingestReplace {
		if err := w.store.DeleteWhere(ctx, w.collection, map[string]string{models.MetaDocumentID: documentID}); err != nil {
			return models.StorageResult{}, fmt.Errorf("failed to replace document %s: %w", documentID, err)
		}
	}

	runTag, err := helper.GenerateUUID()
	if err != nil {
		return models.StorageResult{}, err
	}

	records := make([]models.StoredRecord, len(chunks))
	for i, c := range chunks {
		id := RecordID(documentID, i)
		records[i] = models.StoredRecord{
			ID:        id,
			Key:       id + "@" + runTag,
			Embedding: c.Embedding,
			Metadata:  recordMetadata(documentID, id, i, c),
			Document:  c.Content,
		}
	}

	if err := w.store.Upsert(ctx, w.collection, records); err != nil {
		return models.StorageResult{}, err
	}

	msg := fmt.Sprintf("Successfully stored %d embeddings for PDF %s", len(records), documentID)
	log.Info().Msg(msg)
	return models.StorageResult{Count: len(records), Message: msg}, nil
}

func recordMetadata(documentID, id string, index int, c models.EmbeddedChunk) map[string]string {
	box := c.Source.BBox
	meta := map[string]string{
		models.MetaDocumentID:     documentID,
		models.MetaRecordID:       id,
		models.MetaPageNum:        strconv.Itoa(c.Source.PageNumber),
		models.MetaPositionX0:     formatFloat(box.X0),
		models.MetaPositionY0:     formatFloat(box.Y0),
		models.MetaPositionX1:     formatFloat(box.X1),
		models.MetaPositionY1:     formatFloat(box.Y1),
		models.MetaChunkID:        strconv.Itoa(index),
		models.MetaParagraphIndex: strconv.Itoa(index),
	}

	if c.Kind == models.ImageChunk {
		meta[models.MetaType] = string(models.BlockImage)
		meta[models.MetaMimeType] = c.MimeType
		return meta
	}

	meta[models.MetaType] = string(models.BlockText)
	if c.Source.Layout != "" {
		meta[models.MetaLayout] = string(c.Source.Layout)
		meta[models.MetaIsFullPage] = strconv.FormatBool(c.Source.Layout == models.LayoutFullPage)
	}
	if half := c.Source.Layout.Half(); half != "" {
		meta[models.MetaHalf] = half
	}
	meta[models.MetaPreview] = preview(c.Content)
	if c.PartialRange != nil {
		meta[models.MetaChunkStart] = strconv.Itoa(c.PartialRange.Start)
		meta[models.MetaChunkEnd] = strconv.Itoa(c.PartialRange.End)
	}
	return meta
}

func preview(s string) string {
	r := []rune(s)
	if len(r) <= previewLength {
		return s
	}
	return string(r[:previewLength]) + "..."
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
