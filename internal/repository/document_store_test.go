package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-qa-go/internal/index"
	"pdf-qa-go/internal/model"
)

type stubIndex struct{ n int }

func (s stubIndex) Search(context.Context, []float32, int) ([]index.Hit, error) { return nil, nil }
func (s stubIndex) Len() int                                                   { return s.n }
func (s stubIndex) Drop(context.Context) error                                 { return nil }

func record(id string, chunks int) Record {
	rec := Record{ID: id, Index: stubIndex{n: chunks}, Metadata: model.DocumentMetadata{Filename: id + ".pdf"}}
	for i := 0; i < chunks; i++ {
		rec.Chunks = append(rec.Chunks, model.Chunk{Content: fmt.Sprintf("chunk %d of %s", i, id)})
	}
	return rec
}

func TestDocumentStore_PutGetKeepsInsertionOrder(t *testing.T) {
	s := NewDocumentStore()
	for _, id := range []string{"b", "a", "c"} {
		_, err := s.Put(record(id, 1))
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"b", "a", "c"}, s.IDs())

	rec, err := s.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "a.pdf", rec.Metadata.Filename)
	assert.NotNil(t, rec.Index)
}

func TestDocumentStore_PutRejectsRecordWithoutIndex(t *testing.T) {
	s := NewDocumentStore()
	_, err := s.Put(Record{ID: "x"})
	assert.Error(t, err)
	assert.Zero(t, s.Len())
}

func TestDocumentStore_ReplaceReturnsOld(t *testing.T) {
	s := NewDocumentStore()
	_, _ = s.Put(record("a", 1))
	_, _ = s.Put(record("b", 1))

	old, err := s.Put(record("a", 3))
	require.NoError(t, err)
	require.NotNil(t, old)
	assert.Len(t, old.Chunks, 1)
	assert.Equal(t, []string{"a", "b"}, s.IDs())

	rec, _ := s.Get("a")
	assert.Len(t, rec.Chunks, 3)
}

func TestDocumentStore_DeleteRemovesChunksAndIndexTogether(t *testing.T) {
	s := NewDocumentStore()
	_, _ = s.Put(record("a", 2))
	_, _ = s.Put(record("b", 2))

	removed, err := s.Delete("a")
	require.NoError(t, err)
	assert.Equal(t, "a", removed.ID)

	_, err = s.Get("a")
	assert.ErrorIs(t, err, ErrDocumentNotFound)
	assert.Equal(t, []string{"b"}, s.IDs())
	_, ok := s.Metadata()["a"]
	assert.False(t, ok)

	_, err = s.Delete("a")
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestDocumentStore_MetadataKeyedByID(t *testing.T) {
	s := NewDocumentStore()
	a := record("a", 1)
	b := record("b", 1)
	a.Metadata.Filename = "same.pdf"
	b.Metadata.Filename = "same.pdf"
	_, _ = s.Put(a)
	_, _ = s.Put(b)

	_, err := s.Delete("a")
	require.NoError(t, err)
	md := s.Metadata()
	require.Contains(t, md, "b")
	assert.Equal(t, "same.pdf", md["b"].Filename)
}

func TestDocumentStore_ClearEmptiesEverything(t *testing.T) {
	s := NewDocumentStore()
	_, _ = s.Put(record("a", 1))
	s.AppendQA(model.QAEntry{Question: "q"})

	removed := s.Clear()
	assert.Len(t, removed, 1)
	assert.Zero(t, s.Len())
	assert.Empty(t, s.List())
	assert.Zero(t, s.QACount())
	assert.Empty(t, s.Metadata())
}

func TestDocumentStore_QALogIsACopy(t *testing.T) {
	s := NewDocumentStore()
	s.AppendQA(model.QAEntry{Question: "first"})
	log := s.QALog()
	log[0].Question = "mutated"
	assert.Equal(t, "first", s.QALog()[0].Question)
}

func TestDocumentStore_ConcurrentAccess(t *testing.T) {
	s := NewDocumentStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(3)
		id := fmt.Sprintf("doc_%d", i)
		go func() { defer wg.Done(); _, _ = s.Put(record(id, 1)) }()
		go func() { defer wg.Done(); _ = s.List(); _ = s.Metadata() }()
		go func() { defer wg.Done(); s.AppendQA(model.QAEntry{Question: id}) }()
	}
	wg.Wait()

	assert.Equal(t, 50, s.Len())
	assert.Equal(t, 50, s.QACount())
	for _, rec := range s.List() {
		assert.Equal(t, len(rec.Chunks), rec.Index.Len())
	}
}
