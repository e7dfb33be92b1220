package chromemdb

import (
	"context"
	"math"
	"testing"

	"pdf-rag/internal/models"
)

func record(id, key, doc string, vec []float32) models.StoredRecord {
	return models.StoredRecord{
		ID:        id,
		Key:       key,
		Embedding: vec,
		Document:  "text of " + id,
		Metadata: map[string]string{
			models.MetaDocumentID: doc,
			models.MetaRecordID:   id,
		},
	}
}

func newManager(t *testing.T) *VectorDBManager {
	t.Helper()
	m, err := NewVectorDBManager("", true, false, "")
	if err != nil {
		t.Fatal(err)
	}
	if err := m.EnsureCollection(context.Background(), models.CollectionName); err != nil {
		t.Fatal(err)
	}
	return m
}

func TestQueryOrdersAndFilters(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)
	err := m.Upsert(ctx, models.CollectionName, []models.StoredRecord{
		record("a_0", "", "a", []float32{1, 0}),
		record("a_1", "", "a", []float32{0.6, 0.8}),
		record("b_0", "", "b", []float32{1, 0}),
	})
	if err != nil {
		t.Fatal(err)
	}

	results, err := m.Query(ctx, models.CollectionName, []float32{1, 0}, 10, map[string]string{models.MetaDocumentID: "a"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].ID != "a_0" || results[1].ID != "a_1" {
		t.Errorf("order = %s, %s", results[0].ID, results[1].ID)
	}
	if math.Abs(results[0].Distance) > 1e-6 {
		t.Errorf("distance to identical vector = %v, want 0", results[0].Distance)
	}
	if math.Abs(results[1].Distance-0.4) > 1e-6 {
		t.Errorf("distance = %v, want 0.4", results[1].Distance)
	}
	if results[0].Document != "text of a_0" {
		t.Errorf("Document = %q", results[0].Document)
	}
}

func TestUpsertKeysKeepAppendedRecords(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)
	for _, run := range []string{"run1", "run2"} {
		err := m.Upsert(ctx, models.CollectionName, []models.StoredRecord{
			record("a_0", "a_0@"+run, "a", []float32{1, 0}),
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	results, err := m.Query(ctx, models.CollectionName, []float32{1, 0}, 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	for _, r := range results {
		if r.ID != "a_0" {
			t.Errorf("ID = %q, want the logical id a_0", r.ID)
		}
	}
}

func TestQueryEmptyOrMissingCollection(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)
	if res, err := m.Query(ctx, models.CollectionName, []float32{1, 0}, 5, nil); err != nil || len(res) != 0 {
		t.Errorf("empty collection: %v, %v", res, err)
	}
	if res, err := m.Query(ctx, "missing", []float32{1, 0}, 5, nil); err != nil || len(res) != 0 {
		t.Errorf("missing collection: %v, %v", res, err)
	}
}

func TestDeleteWhere(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)
	_ = m.Upsert(ctx, models.CollectionName, []models.StoredRecord{
		record("a_0", "", "a", []float32{1, 0}),
		record("b_0", "", "b", []float32{0, 1}),
	})
	if err := m.DeleteWhere(ctx, models.CollectionName, map[string]string{models.MetaDocumentID: "a"}); err != nil {
		t.Fatal(err)
	}
	results, _ := m.Query(ctx, models.CollectionName, []float32{1, 0}, 10, nil)
	if len(results) != 1 || results[0].ID != "b_0" {
		t.Errorf("results after delete = %+v", results)
	}
	if err := m.DeleteWhere(ctx, models.CollectionName, nil); err == nil {
		t.Error("expected error for unfiltered delete")
	}
}

func TestListCollectionsSorted(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)
	if err := m.EnsureCollection(ctx, "another"); err != nil {
		t.Fatal(err)
	}
	names, err := m.ListCollections(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 || names[0] != "another" || names[1] != models.CollectionName {
		t.Errorf("names = %v", names)
	}
}

func TestInMemorySnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	m, err := NewVectorDBManager(dir, true, true, "")
	if err != nil {
		t.Fatal(err)
	}
	_ = m.EnsureCollection(ctx, models.CollectionName)
	_ = m.Upsert(ctx, models.CollectionName, []models.StoredRecord{record("a_0", "", "a", []float32{1, 0})})
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}

	restored, err := NewVectorDBManager(dir, true, true, "")
	if err != nil {
		t.Fatal(err)
	}
	results, err := restored.Query(ctx, models.CollectionName, []float32{1, 0}, 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ID != "a_0" {
		t.Errorf("restored results = %+v", results)
	}
}

func TestPersistentDB(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	m, err := NewVectorDBManager(dir, false, false, "")
	if err != nil {
		t.Fatal(err)
	}
	_ = m.EnsureCollection(ctx, models.CollectionName)
	if err := m.Upsert(ctx, models.CollectionName, []models.StoredRecord{record("a_0", "", "a", []float32{1, 0})}); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewVectorDBManager(dir, false, false, "")
	if err != nil {
		t.Fatal(err)
	}
	results, err := reopened.Query(ctx, models.CollectionName, []float32{1, 0}, 3, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Errorf("got %d results after reopen, want 1", len(results))
	}
}
