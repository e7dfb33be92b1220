package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"pdf-rag/internal/config"
	"pdf-rag/internal/models"
)

// Record is one stored chunk. Key is unique; RecordID is the logical
// "{document_id}_{sequence_index}" id and repeats across appended ingestions.
type Record struct {
	bun.BaseModel `bun:"table:pdf_embeddings,alias:e"`
	Key           string            `bun:"key,pk"`
	Collection    string            `bun:"collection,notnull"`
	RecordID      string            `bun:"record_id,notnull"`
	DocumentID    string            `bun:"document_id"`
	Document      string            `bun:"document"`
	Metadata      map[string]string `bun:"metadata,type:jsonb"`
	Embedding     pgvector.Vector   `bun:"embedding,type:vector"`
}

type Collection struct {
	bun.BaseModel `bun:"table:pdf_collections,alias:c"`
	Name          string `bun:"name,pk"`
	Metric        string `bun:"metric,notnull"`
}

type scoredRecord struct {
	Record   `bun:",extend"`
	Distance float64 `bun:"distance"`
}

// NewDB wraps sqldb with the Postgres dialect, logging queries when debug
// is set.
func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

// ConnectDB opens the database with the configured driver: "pq" uses
// lib/pq, anything else bun's pgdriver.
func ConnectDB(cfg *config.VectorStoreConfig) (*sql.DB, error) {
	if cfg.DSN == "" {
		return nil, errors.New("database dsn is required")
	}
	if cfg.Driver == "pq" {
		return sql.Open("postgres", cfg.DSN)
	}
	return sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN))), nil
}

// Store is the pgvector-backed vector store.
type Store struct {
	db *bun.DB
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

// InitDB creates the extension and tables if missing.
func (s *Store) InitDB(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to create vector extension: %v", err)
	}
	if _, err := s.db.NewCreateTable().Model((*Collection)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("failed to create collections table: %v", err)
	}
	if _, err := s.db.NewCreateTable().Model((*Record)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("failed to create records table: %v", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) EnsureCollection(ctx context.Context, name string) error {
	c := &Collection{Name: name, Metric: "cosine"}
	if _, err := s.db.NewInsert().Model(c).On("CONFLICT (name) DO NOTHING").Exec(ctx); err != nil {
		return fmt.Errorf("failed to create/get collection: %v", err)
	}
	return nil
}

// Upsert inserts records in one statement, replacing rows with the same key.
func (s *Store) Upsert(ctx context.Context, collection string, records []models.StoredRecord) error {
	if len(records) == 0 {
		return nil
	}
	rows := make([]Record, len(records))
	for i, r := range records {
		key := r.Key
		if key == "" {
			key = r.ID
		}
		rows[i] = Record{
			Key:        key,
			Collection: collection,
			RecordID:   r.ID,
			DocumentID: r.Metadata[models.MetaDocumentID],
			Document:   r.Document,
			Metadata:   r.Metadata,
			Embedding:  pgvector.NewVector(r.Embedding),
		}
	}

	_, err := s.db.NewInsert().
		Model(&rows).
		On("CONFLICT (key) DO UPDATE").
		Set("record_id = EXCLUDED.record_id").
		Set("document_id = EXCLUDED.document_id").
		Set("document = EXCLUDED.document").
		Set("metadata = EXCLUDED.metadata").
		Set("embedding = EXCLUDED.embedding").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to store records: %v", err)
	}
	return nil
}

// Query orders by cosine distance (the <=> operator).
func (s *Store) Query(ctx context.Context, collection string, vector []float32, topK int, where map[string]string) ([]models.QueryResult, error) {
	if topK <= 0 {
		return nil, nil
	}
	var rows []scoredRecord
	if err := s.similarityQuery(&rows, collection, vector, topK, where).Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %v", err)
	}

	out := make([]models.QueryResult, len(rows))
	for i, r := range rows {
		out[i] = models.QueryResult{
			ID:       r.RecordID,
			Document: r.Document,
			Metadata: r.Metadata,
			Distance: r.Distance,
		}
	}
	return out, nil
}

func (s *Store) similarityQuery(rows *[]scoredRecord, collection string, vector []float32, topK int, where map[string]string) *bun.SelectQuery {
	q := s.db.NewSelect().
		Model(rows).
		Column("e.key", "e.record_id", "e.document", "e.metadata").
		ColumnExpr("e.embedding <=> ? AS distance", pgvector.NewVector(vector)).
		Where("e.collection = ?", collection)
	for k, v := range where {
		q = q.Where("e.metadata->>? = ?", k, v)
	}
	return q.OrderExpr("distance").Limit(topK)
}

func (s *Store) ListCollections(ctx context.Context) ([]string, error) {
	var names []string
	if err := s.db.NewSelect().Model((*Collection)(nil)).Column("name").OrderExpr("name").Scan(ctx, &names); err != nil {
		return nil, fmt.Errorf("failed to list collections: %v", err)
	}
	return names, nil
}

func (s *Store) DeleteWhere(ctx context.Context, collection string, where map[string]string) error {
	if len(where) == 0 {
		return errors.New("refusing to delete without a filter")
	}
	q := s.db.NewDelete().Model((*Record)(nil)).Where("collection = ?", collection)
	for k, v := range where {
		q = q.Where("metadata->>? = ?", k, v)
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete records: %v", err)
	}
	if n, err := res.RowsAffected(); err == nil {
		log.Debug().Int64("rows", n).Str("collection", collection).Msg("Deleted records")
	}
	return nil
}
