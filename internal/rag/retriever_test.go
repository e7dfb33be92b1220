package rag

import (
	"context"
	"errors"
	"testing"

	"pdf-rag/internal/models"
)

func result(id, doc string, distance float64) models.QueryResult {
	return models.QueryResult{
		ID:       id,
		Document: "text " + id,
		Distance: distance,
		Metadata: map[string]string{
			models.MetaDocumentID:     doc,
			models.MetaPageNum:        "2",
			models.MetaParagraphIndex: "7",
			models.MetaPositionX0:     "0",
			models.MetaPositionY0:     "10.5",
			models.MetaPositionX1:     "306",
			models.MetaPositionY1:     "792",
		},
	}
}

func TestRetrieveConvertsDistanceAndSorts(t *testing.T) {
	store := &staticStore{results: []models.QueryResult{
		result("doc_1", "doc", 0.5),
		result("doc_0", "doc", 0.2),
	}}
	r := NewRetriever(store, &fakeModel{}, models.CollectionName, 5, 3)

	chunks, id, err := r.Retrieve(context.Background(), "question", "doc")
	if err != nil {
		t.Fatal(err)
	}
	if id != "doc" {
		t.Errorf("document id = %q", id)
	}
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	if chunks[0].ID != "doc_0" || !almostEqual(chunks[0].Similarity, 0.8) {
		t.Errorf("top chunk = %s with similarity %v, want doc_0 with 0.8", chunks[0].ID, chunks[0].Similarity)
	}
	if !almostEqual(chunks[1].Similarity, 0.5) {
		t.Errorf("second similarity = %v", chunks[1].Similarity)
	}
	h := chunks[0].Highlight
	want := models.HighlightInfo{Page: 2, ParagraphIndex: 7, Position: models.BoundingBox{X0: 0, Y0: 10.5, X1: 306, Y1: 792}}
	if h != want {
		t.Errorf("highlight = %+v, want %+v", h, want)
	}
	if got := store.wheres[0][models.MetaDocumentID]; got != "doc" {
		t.Errorf("filter = %v", store.wheres[0])
	}
}

func TestRetrieveResolvesDocumentFromStore(t *testing.T) {
	store := &staticStore{results: []models.QueryResult{result("latest_0", "latest", 0.1)}}
	r := NewRetriever(store, &fakeModel{}, models.CollectionName, 5, 3)

	chunks, id, err := r.Retrieve(context.Background(), "question", "")
	if err != nil {
		t.Fatal(err)
	}
	if id != "latest" || len(chunks) != 1 {
		t.Errorf("id = %q, chunks = %d", id, len(chunks))
	}
	if len(store.wheres) != 2 || store.wheres[0] != nil || store.wheres[1][models.MetaDocumentID] != "latest" {
		t.Errorf("queries = %v, want unfiltered discovery then filtered search", store.wheres)
	}
}

func TestResolveDocumentFallsBackToCollectionName(t *testing.T) {
	store := &staticStore{names: []string{"pdf_embeddings"}}
	id, err := NewRetriever(store, &fakeModel{}, models.CollectionName, 5, 3).ResolveDocument(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if id != "pdf_embeddings" {
		t.Errorf("id = %q", id)
	}
}

func TestResolveDocumentNothingIndexed(t *testing.T) {
	for name, store := range map[string]VectorStore{
		"empty":   &staticStore{},
		"failing": failingStore{},
	} {
		_, _, err := NewRetriever(store, &fakeModel{}, models.CollectionName, 5, 3).Retrieve(context.Background(), "q", "")
		if !errors.Is(err, models.ErrNoDocumentsIndexed) {
			t.Errorf("%s: err = %v, want ErrNoDocumentsIndexed", name, err)
		}
	}
}

func TestRetrieveDegradesToEmpty(t *testing.T) {
	t.Run("store failure", func(t *testing.T) {
		chunks, id, err := NewRetriever(failingStore{}, &fakeModel{}, models.CollectionName, 5, 3).
			Retrieve(context.Background(), "q", "doc")
		if err != nil || len(chunks) != 0 || id != "doc" {
			t.Errorf("chunks = %v, id = %q, err = %v", chunks, id, err)
		}
	})
	t.Run("embedding failure", func(t *testing.T) {
		store := &staticStore{results: []models.QueryResult{result("doc_0", "doc", 0.1)}}
		chunks, _, err := NewRetriever(store, &fakeModel{embedErr: errors.New("quota")}, models.CollectionName, 5, 3).
			Retrieve(context.Background(), "q", "doc")
		if err != nil || len(chunks) != 0 {
			t.Errorf("chunks = %v, err = %v", chunks, err)
		}
	})
}
