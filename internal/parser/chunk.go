package parser

import (
	"fmt"
	"sort"

	"pdf-rag/internal/models"
)

const (
	defaultChunkSize    = 1000 // characters
	defaultChunkOverlap = 200  // characters
	defaultMinChunkSize = 50
)

// ChunkConfig bounds text chunk sizes. Sizes count characters, not bytes.
type ChunkConfig struct {
	MaxSize int
	Overlap int
	// slices of a split block shorter than this are dropped
	MinSize int
}

func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		MaxSize: defaultChunkSize,
		Overlap: defaultChunkOverlap,
		MinSize: defaultMinChunkSize,
	}
}

// Validate rejects configs whose window stride would not be positive.
func (c ChunkConfig) Validate() error {
	if c.MaxSize <= 0 {
		return fmt.Errorf("%w: max size %d must be positive", models.ErrInvalidChunkConfig, c.MaxSize)
	}
	if c.Overlap < 0 || c.Overlap >= c.MaxSize {
		return fmt.Errorf("%w: overlap %d must be in [0, %d)", models.ErrInvalidChunkConfig, c.Overlap, c.MaxSize)
	}
	return nil
}

// ChunkBlocks groups blocks by page in ascending page order and emits, for
// each page, its text chunks followed by its image chunks. SequenceIndex is
// the position in the returned slice.
func ChunkBlocks(blocks []models.ContentBlock, cfg ChunkConfig) ([]models.Chunk, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	byPage := make(map[int][]models.ContentBlock)
	var pages []int
	for _, b := range blocks {
		if _, ok := byPage[b.PageNumber]; !ok {
			pages = append(pages, b.PageNumber)
		}
		byPage[b.PageNumber] = append(byPage[b.PageNumber], b)
	}
	sort.Ints(pages)

	var chunks []models.Chunk
	for _, page := range pages {
		var images []models.Chunk
		for _, b := range byPage[page] {
			switch b.Kind {
			case models.BlockText:
				chunks = append(chunks, textChunks(b, cfg)...)
			case models.BlockImage:
				images = append(images, models.Chunk{
					Kind:     models.ImageChunk,
					Source:   b.Ref(),
					Image:    b.Image,
					MimeType: b.MimeType,
				})
			}
		}
		chunks = append(chunks, images...)
	}

	for i := range chunks {
		chunks[i].SequenceIndex = i
	}
	return chunks, nil
}

func textChunks(b models.ContentBlock, cfg ChunkConfig) []models.Chunk {
	slices := chunkContent(b.Text, cfg.MaxSize, cfg.Overlap, cfg.MinSize)
	chunks := make([]models.Chunk, 0, len(slices))
	for _, s := range slices {
		c := models.Chunk{
			Kind:    models.TextChunk,
			Source:  b.Ref(),
			Content: s.text,
		}
		if s.partial {
			c.PartialRange = &models.Range{Start: s.start, End: s.end}
		}
		chunks = append(chunks, c)
	}
	return chunks
}

type window struct {
	text       string
	start, end int
	partial    bool
}

// chunkContent cuts content into windows of maxChars advancing by
// maxChars-overlapChars. Content that fits returns as a single unchanged
// slice. Windows shorter than minChars are dropped.
func chunkContent(content string, maxChars, overlapChars, minChars int) []window {
	runes := []rune(content)
	if len(runes) <= maxChars {
		return []window{{text: content, start: 0, end: len(runes)}}
	}

	var out []window
	stride := maxChars - overlapChars
	for start := 0; start < len(runes); start += stride {
		end := min(start+maxChars, len(runes))
		if end-start < minChars {
			continue
		}
		out = append(out, window{
			text:    string(runes[start:end]),
			start:   start,
			end:     end,
			partial: true,
		})
	}
	return out
}
