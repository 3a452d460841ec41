package service

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWritePDF_RendersLog(t *testing.T) {
	env := newTestEnv(t)
	env.ingest(t, "doc_a", "manual.pdf", "alpha one")
	_, err := env.chat.Ask(context.Background(), "doc_a", "alpha")
	require.NoError(t, err)

	svc := NewExportService(env.store, env.documents, t.TempDir())
	var buf bytes.Buffer
	require.NoError(t, svc.WritePDF(&buf))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestWritePDF_EmptyLog(t *testing.T) {
	env := newTestEnv(t)
	svc := NewExportService(env.store, env.documents, t.TempDir())

	var buf bytes.Buffer
	require.NoError(t, svc.WritePDF(&buf))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestExportPDF_WritesIntoTempFolder(t *testing.T) {
	env := newTestEnv(t)
	dir := filepath.Join(t.TempDir(), "temp")
	svc := NewExportService(env.store, env.documents, dir)

	path, err := svc.ExportPDF()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ExportFileName), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestExportJSON(t *testing.T) {
	env := newTestEnv(t)
	svc := NewExportService(env.store, env.documents, t.TempDir())

	empty := svc.ExportJSON(false)
	assert.NotNil(t, empty.QAHistory)
	assert.Empty(t, empty.QAHistory)
	assert.Zero(t, empty.TotalDocuments)

	env.ingest(t, "doc_a", "manual.pdf", "alpha one", "beta two")
	_, err := env.chat.Ask(context.Background(), "doc_a", "alpha")
	require.NoError(t, err)

	brief := svc.ExportJSON(false)
	assert.Equal(t, 1, brief.TotalDocuments)
	require.Len(t, brief.QAHistory, 1)
	assert.Equal(t, "alpha", brief.QAHistory[0].Question)
	assert.Equal(t, "manual.pdf", brief.DocumentMetadata["doc_a"].Filename)
	assert.Nil(t, brief.Documents[0].Content)
	assert.NotEmpty(t, brief.ExportedAt)

	full := svc.ExportJSON(true)
	require.Len(t, full.Documents[0].Content, 2)
}
