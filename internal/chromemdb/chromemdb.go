package chromemdb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"pdf-rag/internal/models"
)

// collection metadata recorded at creation; chromem-go always ranks by cosine
// similarity.
var cosineSpace = map[string]string{"hnsw:space": "cosine"}

// VectorDBManager encapsulates the chromem-go database operations
type VectorDBManager struct {
	db            *chromem.DB
	inMemory      bool
	compress      bool
	encryptionKey string
	dbPath        string
}

// NewVectorDBManager opens a persistent database under dbPath, or an
// in-memory one. An in-memory database is restored from, and on Close saved
// to, a snapshot file in dbPath when dbPath is set.
func NewVectorDBManager(dbPath string, inMemory, compress bool, encryptionKey string) (*VectorDBManager, error) {
	m := &VectorDBManager{
		inMemory:      inMemory,
		compress:      compress,
		encryptionKey: encryptionKey,
		dbPath:        dbPath,
	}

	if !inMemory {
		db, err := chromem.NewPersistentDB(dbPath, compress)
		if err != nil {
			return nil, fmt.Errorf("failed to create database: %v", err)
		}
		m.db = db
		return m, nil
	}

	m.db = chromem.NewDB()
	if snapshot := m.snapshotPath(); snapshot != "" {
		if _, err := os.Stat(snapshot); err == nil {
			if err := m.db.ImportFromFile(snapshot, encryptionKey); err != nil {
				return nil, fmt.Errorf("failed to import database: %v", err)
			}
			log.Info().Str("file", snapshot).Msg("Imported vector database snapshot")
		}
	}
	return m, nil
}

func (m *VectorDBManager) snapshotPath() string {
	if m.dbPath == "" {
		return ""
	}
	name := "pdf_rag.gob"
	if m.compress {
		name += ".gz"
	}
	if m.encryptionKey != "" {
		name += ".enc"
	}
	return filepath.Join(m.dbPath, name)
}

// Close writes the snapshot of an in-memory database. Persistent databases
// are written on every change and need nothing here.
func (m *VectorDBManager) Close() error {
	snapshot := m.snapshotPath()
	if !m.inMemory || snapshot == "" {
		return nil
	}
	if err := os.MkdirAll(m.dbPath, 0o755); err != nil {
		return fmt.Errorf("failed to create folder: %v", err)
	}
	if err := m.db.ExportToFile(snapshot, m.compress, m.encryptionKey); err != nil {
		return fmt.Errorf("failed to export database: %v", err)
	}
	log.Debug().Str("file", snapshot).Msg("Exported vector database snapshot")
	return nil
}

// EnsureCollection creates the named collection if it does not exist yet.
func (m *VectorDBManager) EnsureCollection(_ context.Context, name string) error {
	if _, err := m.db.GetOrCreateCollection(name, cosineSpace, nil); err != nil {
		return fmt.Errorf("failed to create/get collection: %v", err)
	}
	return nil
}

func (m *VectorDBManager) collection(name string) (*chromem.Collection, error) {
	c := m.db.GetCollection(name, nil)
	if c == nil {
		return nil, fmt.Errorf("collection %q does not exist", name)
	}
	return c, nil
}

// Upsert writes records keyed by StoredRecord.Key, or ID when Key is empty.
// Writing an existing key replaces the document.
func (m *VectorDBManager) Upsert(ctx context.Context, collection string, records []models.StoredRecord) error {
	if len(records) == 0 {
		return nil
	}
	c, err := m.collection(collection)
	if err != nil {
		return err
	}

	docs := make([]chromem.Document, len(records))
	for i, r := range records {
		key := r.Key
		if key == "" {
			key = r.ID
		}
		docs[i] = chromem.Document{
			ID:        key,
			Content:   r.Document,
			Metadata:  r.Metadata,
			Embedding: r.Embedding,
		}
	}

	if err := c.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %v", err)
	}
	return nil
}

// Query returns up to topK nearest documents matching where, most similar
// first. A missing or empty collection yields no results.
func (m *VectorDBManager) Query(ctx context.Context, collection string, vector []float32, topK int, where map[string]string) ([]models.QueryResult, error) {
	if len(vector) == 0 {
		return nil, errors.New("query embedding must be provided")
	}
	c := m.db.GetCollection(collection, nil)
	if c == nil || c.Count() == 0 || topK <= 0 {
		return nil, nil
	}

	results, err := c.QueryWithOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: vector,
		NResults:       min(topK, c.Count()),
		Where:          where,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %v", err)
	}

	out := make([]models.QueryResult, len(results))
	for i, r := range results {
		id := r.ID
		if rid, ok := r.Metadata[models.MetaRecordID]; ok {
			id = rid
		}
		out[i] = models.QueryResult{
			ID:       id,
			Document: r.Content,
			Metadata: r.Metadata,
			Distance: 1 - float64(r.Similarity),
		}
	}
	return out, nil
}

// ListCollections returns collection names in sorted order.
func (m *VectorDBManager) ListCollections(_ context.Context) ([]string, error) {
	collections := m.db.ListCollections()
	names := make([]string, 0, len(collections))
	for name := range collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// DeleteWhere removes every document whose metadata matches where.
func (m *VectorDBManager) DeleteWhere(ctx context.Context, collection string, where map[string]string) error {
	if len(where) == 0 {
		return errors.New("refusing to delete without a filter")
	}
	c := m.db.GetCollection(collection, nil)
	if c == nil {
		return nil
	}
	if err := c.Delete(ctx, where, nil); err != nil {
		return fmt.Errorf("failed to delete documents: %v", err)
	}
	return nil
}

// DeleteCollection drops the named collection.
func (m *VectorDBManager) DeleteCollection(name string) error {
	if err := m.db.DeleteCollection(name); err != nil {
		return fmt.Errorf("failed to drop collection: %v", err)
	}
	return nil
}
