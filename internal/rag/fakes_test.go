package rag

import (
	"context"
	"errors"
	"strings"

	"pdf-rag/internal/models"
)

// fakeModel embeds text into a small deterministic vector space.
type fakeModel struct {
	completion  string
	completeErr error
	embedErr    error
	failEmbedOn string

	completions []models.CompletionRequest
	embeds      int
}

func (f *fakeModel) Embed(_ context.Context, text string) ([]float32, error) {
	f.embeds++
	if f.embedErr != nil && (f.failEmbedOn == "" || strings.Contains(text, f.failEmbedOn)) {
		return nil, f.embedErr
	}
	v := []float32{1, 0, 0}
	if strings.Contains(text, "revenue") {
		v[1] = 1
	}
	if strings.Contains(text, "chart") {
		v[2] = 1
	}
	return v, nil
}

func (f *fakeModel) DescribeImage(_ context.Context, _ []byte, _, _ string) (string, error) {
	return "a chart of quarterly revenue", nil
}

func (f *fakeModel) Complete(_ context.Context, req models.CompletionRequest) (string, error) {
	f.completions = append(f.completions, req)
	return f.completion, f.completeErr
}

type fakeSplitter struct {
	pages int
	err   error
}

func (s fakeSplitter) Split(data []byte) ([][]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	pages := make([][]byte, s.pages)
	for i := range pages {
		pages[i] = data
	}
	return pages, nil
}

// fakeExtractor returns fixed blocks per page number.
type fakeExtractor map[int][]models.ContentBlock

func (e fakeExtractor) Extract(_ []byte, pageNumber int) ([]models.ContentBlock, error) {
	blocks, ok := e[pageNumber]
	if !ok {
		return nil, errors.New("unreadable page")
	}
	return blocks, nil
}

// failingStore fails every call.
type failingStore struct{}

var errStore = errors.New("store offline")

func (failingStore) EnsureCollection(context.Context, string) error { return errStore }
func (failingStore) Upsert(context.Context, string, []models.StoredRecord) error {
	return errStore
}
func (failingStore) Query(context.Context, string, []float32, int, map[string]string) ([]models.QueryResult, error) {
	return nil, errStore
}
func (failingStore) ListCollections(context.Context) ([]string, error) { return nil, errStore }
func (failingStore) DeleteWhere(context.Context, string, map[string]string) error {
	return errStore
}

// staticStore answers every query with fixed results.
type staticStore struct {
	failingStore
	results []models.QueryResult
	names   []string
	wheres  []map[string]string
}

func (s *staticStore) Query(_ context.Context, _ string, _ []float32, topK int, where map[string]string) ([]models.QueryResult, error) {
	s.wheres = append(s.wheres, where)
	return s.results[:min(topK, len(s.results))], nil
}

func (s *staticStore) ListCollections(context.Context) ([]string, error) { return s.names, nil }
