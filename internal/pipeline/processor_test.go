package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-qa-go/internal/model"
)

func TestProcessor_ThreePageDocument(t *testing.T) {
	doc := &fakePDF{renderOK: true, pages: []fakePage{
		{text: strings.Repeat("Hello world. ", 70)},
		{text: ""},
		{text: "SUMMARY\nShort page of notes."},
	}}
	ocr := &fakeOCR{text: "", confidences: []string{"-1"}}
	p := NewProcessor(NewExtractor(&fakeOpener{doc: doc}, ocr, 0), NewChunker(DefaultChunkSize, DefaultChunkOverlap))

	out, err := p.Process(context.Background(), "/data/report.pdf", "")
	require.NoError(t, err)

	byPage := map[int][]model.Chunk{}
	for _, c := range out.Chunks {
		byPage[c.Metadata.PageNumber] = append(byPage[c.Metadata.PageNumber], c)
		assert.Equal(t, "report.pdf", c.Metadata.Source)
		assert.Equal(t, "/data/report.pdf", c.Metadata.SourcePath)
		assert.Equal(t, 3, c.Metadata.TotalPages)
		assert.Greater(t, len(strings.TrimSpace(c.Content)), 10)
	}

	require.GreaterOrEqual(t, len(byPage[1]), 2)
	for i, c := range byPage[1] {
		assert.Equal(t, model.ExtractionDirect, c.Metadata.ExtractionMethod)
		assert.Equal(t, i, c.Metadata.ChunkIndex)
	}
	assert.Empty(t, byPage[2], "OCR page with no text yields no chunks")

	require.Len(t, byPage[3], 1)
	assert.Equal(t, "SUMMARY", byPage[3][0].Metadata.Section)
	assert.Equal(t, 0, byPage[3][0].Metadata.ChunkIndex)

	assert.Equal(t, "report.pdf", out.Metadata.Filename)
	assert.Equal(t, 3, out.Metadata.TotalPages)
}

func TestProcessor_OCRPageChunksAreTagged(t *testing.T) {
	doc := &fakePDF{renderOK: true, pages: []fakePage{{text: ""}}}
	ocr := &fakeOCR{text: "Recovered paragraph from a scanned page image.", confidences: []string{"88"}}
	p := NewProcessor(NewExtractor(&fakeOpener{doc: doc}, ocr, 0), NewChunker(DefaultChunkSize, DefaultChunkOverlap))

	out, err := p.Process(context.Background(), "scan.pdf", "Scan")
	require.NoError(t, err)
	require.Len(t, out.Chunks, 1)
	assert.Equal(t, model.ExtractionOCR, out.Chunks[0].Metadata.ExtractionMethod)
	assert.Equal(t, "Scan", out.Chunks[0].Metadata.Source)
}
