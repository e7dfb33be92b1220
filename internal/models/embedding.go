package models

// ChunkKind tags a chunk as text or image.
type ChunkKind string

const (
	TextChunk  ChunkKind = "text_chunk"
	ImageChunk ChunkKind = "image_chunk"
)

// BlockRef identifies the block a chunk was derived from.
type BlockRef struct {
	PageNumber int         `json:"page_number"`
	Layout     LayoutTag   `json:"layout,omitempty"`
	BBox       BoundingBox `json:"bbox"`
}

// Range is a half-open [Start, End) character range into the source text.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Chunk represents a retrieval-indexable unit derived from one block
type Chunk struct {
	Kind          ChunkKind `json:"chunk_type"`
	Source        BlockRef  `json:"source"`
	Content       string    `json:"content"`
	SequenceIndex int       `json:"sequence_index"`
	PartialRange  *Range    `json:"partial_range,omitempty"`

	// image payload, set only for ImageChunk
	Image    []byte `json:"-"`
	MimeType string `json:"mime_type,omitempty"`
}

// EmbeddedChunk is a Chunk with its embedding vector. Description is set for
// image chunks only and mirrors Content.
type EmbeddedChunk struct {
	Chunk
	Embedding   []float32 `json:"-"`
	Description string    `json:"description,omitempty"`
}

// StoredRecord is the unit persisted in the vector store. ID is the logical
// "{document_id}_{sequence_index}" identifier; Key is the backend key, which
// differs from ID when records of the same document are appended more than once.
type StoredRecord struct {
	ID        string
	Key       string
	Embedding []float32
	Metadata  map[string]string
	Document  string
}

// QueryResult is one nearest-neighbour hit reported by a vector store.
// Distance is a cosine distance in [0, 2].
type QueryResult struct {
	ID       string
	Document string
	Metadata map[string]string
	Distance float64
}

// CompletionRequest is a single-turn chat completion.
type CompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float64
	MaxTokens    int
}
