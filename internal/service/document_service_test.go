package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-qa-go/internal/model"
	"pdf-qa-go/internal/repository"
)

func TestIngest_RegistersChunksIndexAndMetadata(t *testing.T) {
	env := newTestEnv(t)
	path := env.addFile(t, "manual.pdf", "alpha intro", "beta details")

	res, err := env.documents.Ingest(context.Background(), IngestRequest{Path: path, DocumentID: "doc_a"})
	require.NoError(t, err)
	assert.Equal(t, model.StatusSuccess, res.Status)
	assert.Equal(t, "doc_a", res.DocumentID)
	assert.Equal(t, "manual.pdf", res.DocumentName)
	assert.Equal(t, 2, res.ChunksCount)
	assert.Equal(t, 2, res.TotalPages)

	rec, err := env.store.Get("doc_a")
	require.NoError(t, err)
	assert.Len(t, rec.Chunks, 2)
	assert.Equal(t, 2, rec.Index.Len())
	assert.Equal(t, "manual.pdf", env.store.Metadata()["doc_a"].Filename)
}

func TestIngest_GeneratesIDWhenMissing(t *testing.T) {
	env := newTestEnv(t)
	path := env.addFile(t, "manual.pdf", "alpha intro")

	res, err := env.documents.Ingest(context.Background(), IngestRequest{Path: path})
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^doc_\d{8}_\d{6}_[0-9a-f]{8}$`), res.DocumentID)
}

func TestIngest_FailuresLeaveNoRegistration(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T, env *testEnv) string
		wantErr error
	}{
		{
			name:    "missing file",
			setup:   func(_ *testing.T, env *testEnv) string { return filepath.Join(env.dir, "absent.pdf") },
			wantErr: ErrFileNotFound,
		},
		{
			name: "no text extracted",
			setup: func(t *testing.T, env *testEnv) string {
				return env.addFile(t, "scan.pdf")
			},
			wantErr: ErrNoTextExtracted,
		},
		{
			name: "embedding fails on one chunk",
			setup: func(t *testing.T, env *testEnv) string {
				env.embedder.fail = "gamma"
				return env.addFile(t, "partial.pdf", "alpha ok", "gamma broken", "beta ok")
			},
		},
		{
			name: "extraction fails",
			setup: func(t *testing.T, env *testEnv) string {
				path := env.addFile(t, "corrupt.pdf", "alpha")
				env.processor.errs["corrupt.pdf"] = errors.New("cannot parse xref table")
				return path
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			path := tt.setup(t, env)

			res, err := env.documents.Ingest(context.Background(), IngestRequest{Path: path, DocumentID: "doc_x"})
			assert.Nil(t, res)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}

			_, getErr := env.store.Get("doc_x")
			assert.ErrorIs(t, getErr, repository.ErrDocumentNotFound)
			assert.Zero(t, env.store.Len())
			assert.Empty(t, env.store.Metadata())
		})
	}
}

func TestIngest_ReplacingDocumentDropsOldIndex(t *testing.T) {
	env := newTestEnv(t)
	env.ingest(t, "doc_a", "v1.pdf", "alpha old")
	env.ingest(t, "doc_a", "v2.pdf", "beta new", "gamma new")

	assert.Equal(t, []string{"doc_a"}, env.builder.Dropped())
	rec, err := env.store.Get("doc_a")
	require.NoError(t, err)
	assert.Len(t, rec.Chunks, 2)
	assert.Equal(t, "v2.pdf", rec.Metadata.Filename)
	assert.Equal(t, 1, env.store.Len())
}

func TestIngestBatch_IsolatesFailures(t *testing.T) {
	env := newTestEnv(t)
	good := env.addFile(t, "good.pdf", "alpha one", "beta two")
	bad := env.addFile(t, "bad.pdf", "alpha")
	env.processor.errs["bad.pdf"] = errors.New("encrypted document")
	missing := filepath.Join(env.dir, "missing.pdf")
	also := env.addFile(t, "also.pdf", "gamma three")

	batch := env.documents.IngestBatch(context.Background(), []string{good, bad, missing, also})

	assert.Equal(t, model.StatusCompleted, batch.Status)
	assert.Equal(t, 4, batch.TotalFiles)
	assert.Equal(t, 2, batch.Successful)
	assert.Equal(t, 2, batch.Failed)
	require.Len(t, batch.Results, 4)

	assert.Equal(t, model.StatusSuccess, batch.Results[0].Status)
	assert.Regexp(t, regexp.MustCompile(`^doc_\d{8}_\d{6}_0_[0-9a-f]{4}$`), batch.Results[0].DocumentID)
	assert.Equal(t, model.StatusError, batch.Results[1].Status)
	assert.Contains(t, batch.Results[1].Error, "encrypted document")
	assert.Equal(t, "File not found", batch.Results[2].Error)
	assert.Equal(t, missing, batch.Results[2].PDFPath)
	assert.Equal(t, model.StatusSuccess, batch.Results[3].Status)
	assert.Regexp(t, `_3_[0-9a-f]{4}$`, batch.Results[3].DocumentID)

	assert.Equal(t, 2, env.store.Len())
}

func TestIngestDir_OnlyPDFsInNameOrder(t *testing.T) {
	env := newTestEnv(t)
	env.addFile(t, "b.pdf", "beta")
	env.addFile(t, "a.PDF", "alpha")
	require.NoError(t, os.WriteFile(filepath.Join(env.dir, "notes.txt"), []byte("x"), 0o644))

	batch, err := env.documents.IngestDir(context.Background(), env.dir)
	require.NoError(t, err)
	require.Equal(t, 2, batch.TotalFiles)
	assert.Equal(t, filepath.Join(env.dir, "a.PDF"), batch.Results[0].PDFPath)
	assert.Equal(t, filepath.Join(env.dir, "b.pdf"), batch.Results[1].PDFPath)

	_, err = env.documents.IngestDir(context.Background(), filepath.Join(env.dir, "nope"))
	assert.Error(t, err)
}

func TestDelete_RemovesEverythingForDocument(t *testing.T) {
	env := newTestEnv(t)
	env.ingest(t, "doc_a", "same.pdf", "alpha one")
	env.ingest(t, "doc_b", "same.pdf", "alpha two")

	info, err := env.documents.Delete(context.Background(), "doc_a")
	require.NoError(t, err)
	assert.Equal(t, "same.pdf", info.DocumentName)
	assert.Equal(t, []string{"doc_a"}, env.builder.Dropped())

	_, err = env.search.Search(context.Background(), "alpha", "doc_a", 5)
	assert.ErrorIs(t, err, ErrDocumentNotFound)

	// 同名文档的元数据不受影响
	meta := env.store.Metadata()
	assert.NotContains(t, meta, "doc_a")
	assert.Equal(t, "same.pdf", meta["doc_b"].Filename)

	_, err = env.documents.Delete(context.Background(), "doc_a")
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestClear_EmptiesAllStores(t *testing.T) {
	env := newTestEnv(t)
	env.ingest(t, "doc_a", "a.pdf", "alpha one")
	env.ingest(t, "doc_b", "b.pdf", "beta one")
	_, err := env.chat.Ask(context.Background(), "doc_a", "alpha")
	require.NoError(t, err)

	assert.Equal(t, 2, env.documents.Clear(context.Background()))
	assert.ElementsMatch(t, []string{"doc_a", "doc_b"}, env.builder.Dropped())

	listing := env.documents.List()
	assert.Zero(t, listing.TotalCount)
	assert.Empty(t, listing.Documents)
	assert.Zero(t, listing.QAHistoryCount)
	assert.Empty(t, listing.DocumentMetadata)
}

func TestList_ReportsDocumentsInInsertionOrder(t *testing.T) {
	env := newTestEnv(t)
	env.ingest(t, "doc_b", "b.pdf", "beta one", "beta two")
	env.ingest(t, "doc_a", "a.pdf", "alpha one")

	listing := env.documents.List()
	require.Equal(t, 2, listing.TotalCount)
	assert.Equal(t, "doc_b", listing.Documents[0].DocumentID)
	assert.Equal(t, 2, listing.Documents[0].ChunksCount)
	assert.Equal(t, 2, listing.Documents[0].TotalPages)
	assert.Equal(t, model.StatusProcessed, listing.Documents[0].Status)
	assert.NotNil(t, listing.Documents[0].ProcessedAt)
	assert.Nil(t, listing.Documents[0].Content)
	assert.Equal(t, "doc_a", listing.Documents[1].DocumentID)

	withContent := env.documents.Documents(true)
	require.Len(t, withContent[0].Content, 2)
	assert.Equal(t, "beta one", withContent[0].Content[0].Content)
}
