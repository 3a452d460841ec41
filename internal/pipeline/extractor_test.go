package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-qa-go/internal/model"
)

func TestExtractor_DirectTextSkipsOCR(t *testing.T) {
	doc := &fakePDF{pages: []fakePage{{text: "INTRODUCTION\nThis page has a real text layer."}}}
	ocr := &fakeOCR{}
	e := NewExtractor(&fakeOpener{doc: doc}, ocr, 0)

	res, err := e.Extract(context.Background(), "/tmp/a.pdf", "a.pdf")
	require.NoError(t, err)
	require.Len(t, res.Pages, 1)

	assert.Equal(t, 1, res.TotalPages)
	assert.Equal(t, model.ExtractionDirect, res.Pages[0].Method)
	assert.Equal(t, "INTRODUCTION", res.Pages[0].Section)
	assert.Zero(t, ocr.calls)
	assert.Empty(t, doc.renders)
	assert.True(t, doc.closed)
}

func TestExtractor_BlankPageFallsBackToOCR(t *testing.T) {
	doc := &fakePDF{renderOK: true, pages: []fakePage{{text: "   \n"}}}
	ocr := &fakeOCR{text: "Scanned text recovered by OCR engine", confidences: []string{"-1", "90", "80"}}
	e := NewExtractor(&fakeOpener{doc: doc}, ocr, 0)

	res, err := e.Extract(context.Background(), "/tmp/s.pdf", "s.pdf")
	require.NoError(t, err)
	require.Len(t, res.Pages, 1)

	page := res.Pages[0]
	assert.Equal(t, model.ExtractionOCR, page.Method)
	assert.Equal(t, "Scanned text recovered by OCR engine", page.Text)
	assert.InDelta(t, 169.0/3.0, page.OCRConfidence, 0.0001)
	assert.Equal(t, []int{0}, doc.renders)
}

func TestExtractor_LowConfidenceIsNotFatal(t *testing.T) {
	doc := &fakePDF{renderOK: true, pages: []fakePage{{text: ""}}}
	ocr := &fakeOCR{text: "blurry but still twenty chars long", confidences: []string{"10", "x"}}
	e := NewExtractor(&fakeOpener{doc: doc}, ocr, 0)

	res, err := e.Extract(context.Background(), "p", "p.pdf")
	require.NoError(t, err)
	require.Len(t, res.Pages, 1)
	assert.InDelta(t, 10.0, res.Pages[0].OCRConfidence, 0.0001)
}

func TestExtractor_SkipsShortPages(t *testing.T) {
	doc := &fakePDF{renderOK: true, pages: []fakePage{
		{text: "tiny"},
		{text: ""},
		{text: "A page with enough characters to keep."},
	}}
	ocr := &fakeOCR{text: "short ocr"}
	e := NewExtractor(&fakeOpener{doc: doc}, ocr, 0)

	res, err := e.Extract(context.Background(), "p", "p.pdf")
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalPages)
	require.Len(t, res.Pages, 1)
	assert.Equal(t, 3, res.Pages[0].Number)
}

func TestExtractor_FatalErrors(t *testing.T) {
	_, err := NewExtractor(&fakeOpener{err: errors.New("not a pdf")}, &fakeOCR{}, 0).
		Extract(context.Background(), "p", "p.pdf")
	assert.ErrorContains(t, err, "not a pdf")

	doc := &fakePDF{pages: []fakePage{{text: ""}}}
	_, err = NewExtractor(&fakeOpener{doc: doc}, &fakeOCR{}, 0).Extract(context.Background(), "p", "p.pdf")
	assert.ErrorContains(t, err, "render failed")
	assert.True(t, doc.closed)

	doc = &fakePDF{renderOK: true, pages: []fakePage{{text: ""}}}
	_, err = NewExtractor(&fakeOpener{doc: doc}, &fakeOCR{err: errors.New("tesseract missing")}, 0).
		Extract(context.Background(), "p", "p.pdf")
	assert.ErrorContains(t, err, "tesseract missing")

	doc = &fakePDF{pages: []fakePage{{textErr: errors.New("corrupt stream")}}}
	_, err = NewExtractor(&fakeOpener{doc: doc}, &fakeOCR{}, 0).Extract(context.Background(), "p", "p.pdf")
	assert.ErrorContains(t, err, "corrupt stream")
}

func TestExtractor_HonoursCancellation(t *testing.T) {
	doc := &fakePDF{pages: []fakePage{{text: strings.Repeat("x", 40)}}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewExtractor(&fakeOpener{doc: doc}, &fakeOCR{}, 0).Extract(ctx, "p", "p.pdf")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAverageConfidence(t *testing.T) {
	assert.Zero(t, AverageConfidence(nil))
	assert.Zero(t, AverageConfidence([]string{"", "abc"}))
	assert.InDelta(t, 50.0, AverageConfidence([]string{"40", "60", "conf"}), 0.0001)
	assert.InDelta(t, 95.0, AverageConfidence([]string{"96.9", "93.2"}), 0.0001)
	assert.InDelta(t, 44.5, AverageConfidence([]string{"-1", "90"}), 0.0001)
}
