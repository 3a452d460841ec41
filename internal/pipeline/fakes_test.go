package pipeline

import (
	"context"
	"errors"
	"image"
	"image/color"
)

type fakePage struct {
	text    string
	textErr error
}

type fakePDF struct {
	pages    []fakePage
	renders  []int
	closed   bool
	renderOK bool
}

func (f *fakePDF) NumPage() int { return len(f.pages) }

func (f *fakePDF) Text(page int) (string, error) {
	p := f.pages[page]
	return p.text, p.textErr
}

func (f *fakePDF) Render(page int) (image.Image, error) {
	f.renders = append(f.renders, page)
	if !f.renderOK {
		return nil, errors.New("render failed")
	}
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.White)
		}
	}
	return img, nil
}

func (f *fakePDF) Close() error {
	f.closed = true
	return nil
}

type fakeOpener struct {
	doc *fakePDF
	err error
}

func (o *fakeOpener) Open(string) (PDFDocument, error) {
	if o.err != nil {
		return nil, o.err
	}
	return o.doc, nil
}

type fakeOCR struct {
	text        string
	confidences []string
	err         error
	calls       int
}

func (o *fakeOCR) Recognize(context.Context, image.Image) (string, error) {
	o.calls++
	return o.text, o.err
}

func (o *fakeOCR) Confidences(context.Context, image.Image) ([]string, error) {
	return o.confidences, o.err
}
