// Package pdf 基于 MuPDF (go-fitz) 读取 PDF 文本层并把单页渲染为图像。
package pdf

import (
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"
)

// DefaultDPI 与 pdf2image 的默认渲染分辨率一致。
const DefaultDPI = 200

// Opener 打开 PDF 文件。
type Opener struct {
	dpi float64
}

// NewOpener 创建 Opener，dpi<=0 时使用 DefaultDPI。
func NewOpener(dpi float64) *Opener {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return &Opener{dpi: dpi}
}

// Open 打开 path 指向的 PDF。调用方负责 Close。
func (o *Opener) Open(path string) (*Document, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF %s: %w", path, err)
	}
	return &Document{doc: doc, dpi: o.dpi}, nil
}

// Document 是已打开的 PDF，页码从 0 开始。
type Document struct {
	doc *fitz.Document
	dpi float64
}

func (d *Document) NumPage() int {
	return d.doc.NumPage()
}

// Text 返回第 page 页的文本层内容。
func (d *Document) Text(page int) (string, error) {
	text, err := d.doc.Text(page)
	if err != nil {
		return "", fmt.Errorf("failed to extract text from page %d: %w", page+1, err)
	}
	return text, nil
}

// Render 按 Opener 的 DPI 把第 page 页渲染为 RGBA 图像。
func (d *Document) Render(page int) (image.Image, error) {
	img, err := d.doc.ImageDPI(page, d.dpi)
	if err != nil {
		return nil, fmt.Errorf("failed to render page %d: %w", page+1, err)
	}
	return img, nil
}

func (d *Document) Close() error {
	return d.doc.Close()
}
