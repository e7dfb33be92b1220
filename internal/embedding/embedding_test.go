package embedding

import (
	"context"
	"errors"
	"testing"

	"pdf-rag/internal/models"
)

type fakeModel struct {
	embedded    []string
	described   int
	detail      string
	description string
	embedErr    error
	describeErr error
	failOn      string
}

func (f *fakeModel) Embed(_ context.Context, text string) ([]float32, error) {
	if f.embedErr != nil && (f.failOn == "" || f.failOn == text) {
		return nil, f.embedErr
	}
	f.embedded = append(f.embedded, text)
	return []float32{float32(len(text)), 1}, nil
}

func (f *fakeModel) DescribeImage(_ context.Context, _ []byte, _ string, detail string) (string, error) {
	f.described++
	f.detail = detail
	return f.description, f.describeErr
}

func TestEmbedText(t *testing.T) {
	m := &fakeModel{}
	ec, err := NewEmbedder(m).Embed(context.Background(), models.Chunk{Kind: models.TextChunk, Content: "hello"}, "doc_0")
	if err != nil {
		t.Fatal(err)
	}
	if m.described != 0 {
		t.Errorf("text chunk triggered %d image descriptions", m.described)
	}
	if len(ec.Embedding) != 2 || ec.Embedding[0] != 5 {
		t.Errorf("Embedding = %v", ec.Embedding)
	}
	if ec.Description != "" {
		t.Errorf("Description = %q, want empty for text", ec.Description)
	}
}

func TestEmbedImageUsesDescription(t *testing.T) {
	m := &fakeModel{description: "a bar chart of sales"}
	chunk := models.Chunk{Kind: models.ImageChunk, Image: []byte{1, 2, 3}, MimeType: "png"}

	ec, err := NewEmbedder(m).Embed(context.Background(), chunk, "doc_1")
	if err != nil {
		t.Fatal(err)
	}
	if m.detail != models.ImageDetail {
		t.Errorf("detail = %q, want %q", m.detail, models.ImageDetail)
	}
	if ec.Description != "a bar chart of sales" || ec.Content != ec.Description {
		t.Errorf("Content = %q, Description = %q", ec.Content, ec.Description)
	}
	if len(m.embedded) != 1 || m.embedded[0] != "a bar chart of sales" {
		t.Errorf("embedded %q, want the description", m.embedded)
	}
}

func TestEmbedFailures(t *testing.T) {
	cause := errors.New("provider down")
	tests := []struct {
		name  string
		model *fakeModel
		chunk models.Chunk
	}{
		{"embed", &fakeModel{embedErr: cause}, models.Chunk{Kind: models.TextChunk, Content: "x"}},
		{"describe", &fakeModel{describeErr: cause}, models.Chunk{Kind: models.ImageChunk}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEmbedder(tt.model).Embed(context.Background(), tt.chunk, "doc_7")
			var ef *models.EmbeddingFailedError
			if !errors.As(err, &ef) {
				t.Fatalf("err = %v, want *EmbeddingFailedError", err)
			}
			if ef.ChunkID != "doc_7" {
				t.Errorf("ChunkID = %q", ef.ChunkID)
			}
			if !errors.Is(err, models.ErrEmbeddingFailed) || !errors.Is(err, cause) {
				t.Errorf("err %v does not match both the sentinel and the cause", err)
			}
		})
	}
}

func TestEmbedChunksStopsAtFirstFailure(t *testing.T) {
	m := &fakeModel{embedErr: errors.New("rate limited"), failOn: "second"}
	chunks := []models.Chunk{
		{Kind: models.TextChunk, Content: "first", SequenceIndex: 0},
		{Kind: models.TextChunk, Content: "second", SequenceIndex: 1},
		{Kind: models.TextChunk, Content: "third", SequenceIndex: 2},
	}
	out, err := NewEmbedder(m).EmbedChunks(context.Background(), chunks, func(c models.Chunk) string {
		return []string{"a", "b", "c"}[c.SequenceIndex]
	})
	if out != nil {
		t.Errorf("out = %v, want nil on failure", out)
	}
	var ef *models.EmbeddingFailedError
	if !errors.As(err, &ef) || ef.ChunkID != "b" {
		t.Fatalf("err = %v, want failure for chunk b", err)
	}
	if len(m.embedded) != 1 {
		t.Errorf("embedded %d chunks before failing, want 1", len(m.embedded))
	}
}
