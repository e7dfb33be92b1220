package models

// HighlightInfo locates a retrieved chunk on its page.
type HighlightInfo struct {
	Page           int         `json:"page"`
	ParagraphIndex int         `json:"paragraph_index"`
	Position       BoundingBox `json:"position"`
}

// RetrievedChunk is a query-time hit. ID is the logical record id.
type RetrievedChunk struct {
	ID         string            `json:"id"`
	Content    string            `json:"content"`
	Metadata   map[string]string `json:"metadata"`
	Similarity float64           `json:"similarity"`
	Highlight  HighlightInfo     `json:"highlight_info"`
}

// HighlightDetail is the per-source detail returned with an answer for UI
// highlighting.
type HighlightDetail struct {
	Page           int         `json:"page"`
	ParagraphIndex int         `json:"paragraph_index"`
	Position       BoundingBox `json:"position"`
	Preview        string      `json:"preview"`
	Similarity     float64     `json:"similarity"`
}

// Reference is a page or section reference parsed out of the model's answer.
type Reference struct {
	Page    string `json:"page,omitempty"`
	Section string `json:"section,omitempty"`
}

type Answer struct {
	Text          string            `json:"answer"`
	Confidence    float64           `json:"confidence"`
	Citations     []string          `json:"references"`
	HighlightInfo []HighlightDetail `json:"highlight_info"`
	References    []Reference       `json:"parsed_references,omitempty"`
	DocumentID    string            `json:"pdf_id"`
}

// StorageResult summarises one IndexWriter call.
type StorageResult struct {
	Count   int    `json:"count"`
	Message string `json:"message"`
}

// IngestSummary is returned to the request layer after ingestion.
type IngestSummary struct {
	DocumentID     string        `json:"pdf_id"`
	NumPages       int           `json:"num_pages"`
	NumTextBlocks  int           `json:"num_text_blocks"`
	NumImageBlocks int           `json:"num_image_blocks"`
	NumChunks      int           `json:"num_chunks"`
	PagesProcessed int           `json:"pages_processed"`
	Storage        StorageResult `json:"storage_result"`
}
