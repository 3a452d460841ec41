// Package pipeline 定义了 PDF 入库的核心流程：逐页提取、OCR 兜底、章节识别与分块。
package pipeline

import (
	"context"
	"fmt"
	"image"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"pdf-qa-go/internal/model"
	"pdf-qa-go/pkg/log"
	"pdf-qa-go/pkg/metrics"
)

const (
	DefaultConfidenceThreshold = 50
	minPageTextLength          = 20
)

// PDFDocument 是一个已打开的 PDF，页码从 0 开始。
type PDFDocument interface {
	NumPage() int
	Text(page int) (string, error)
	Render(page int) (image.Image, error)
	Close() error
}

// PDFOpener 按路径打开 PDF。
type PDFOpener interface {
	Open(path string) (PDFDocument, error)
}

// PDFOpenerFunc 让普通函数满足 PDFOpener。
type PDFOpenerFunc func(path string) (PDFDocument, error)

func (f PDFOpenerFunc) Open(path string) (PDFDocument, error) {
	return f(path)
}

// OCREngine 识别图像中的文字，并单独返回逐词的原始置信度值。
type OCREngine interface {
	Recognize(ctx context.Context, img image.Image) (string, error)
	Confidences(ctx context.Context, img image.Image) ([]string, error)
}

// PageText 是一页的提取结果。
type PageText struct {
	Number        int
	Text          string
	Section       string
	Method        model.ExtractionMethod
	OCRConfidence float64
}

// ExtractResult 包含保留下来的页面和 PDF 总页数。
type ExtractResult struct {
	Pages      []PageText
	TotalPages int
}

// Extractor 逐页提取文本，文本层为空时回退到 OCR。
type Extractor struct {
	opener    PDFOpener
	ocr       OCREngine
	threshold float64
}

// NewExtractor 创建 Extractor。threshold 为低置信度告警阈值，<=0 时取 50。
func NewExtractor(opener PDFOpener, ocr OCREngine, threshold float64) *Extractor {
	if threshold <= 0 {
		threshold = DefaultConfidenceThreshold
	}
	return &Extractor{opener: opener, ocr: ocr, threshold: threshold}
}

// Extract 读取 path 指向的 PDF。打开、读取、渲染或 OCR 失败都会终止整个文档；
// 去空白后不足 20 个字符的页面被跳过。
func (e *Extractor) Extract(ctx context.Context, path, name string) (*ExtractResult, error) {
	log.Infof("[Extractor] 开始提取文本: %s", path)
	doc, err := e.opener.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开 PDF 失败: %w", err)
	}
	defer doc.Close()

	result := &ExtractResult{TotalPages: doc.NumPage()}
	for i := 0; i < result.TotalPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pageNum := i + 1

		text, err := doc.Text(i)
		if err != nil {
			return nil, fmt.Errorf("读取第 %d 页文本失败: %w", pageNum, err)
		}
		page := PageText{Number: pageNum, Method: model.ExtractionDirect}

		if strings.TrimSpace(text) == "" {
			log.Infof("[Extractor] 第 %d 页没有文本层，使用 OCR: %s", pageNum, name)
			page.Method = model.ExtractionOCR
			text, page.OCRConfidence, err = e.ocrPage(ctx, doc, i)
			if err != nil {
				return nil, fmt.Errorf("第 %d 页 OCR 失败: %w", pageNum, err)
			}
			metrics.OCRPages.Inc()
			if page.OCRConfidence < e.threshold {
				log.Warnw("[Extractor] OCR 置信度偏低",
					"document", name, "page", pageNum, "avg_confidence", math.Round(page.OCRConfidence*10)/10)
			}
		}

		page.Section = DetectSectionTitle(text)
		if utf8.RuneCountInString(strings.TrimSpace(text)) < minPageTextLength {
			log.Infof("[Extractor] 第 %d 页文本过短，跳过", pageNum)
			continue
		}
		page.Text = text
		result.Pages = append(result.Pages, page)
	}

	log.Infof("[Extractor] 提取完成: %s, 总页数: %d, 有效页数: %d", name, result.TotalPages, len(result.Pages))
	return result, nil
}

func (e *Extractor) ocrPage(ctx context.Context, doc PDFDocument, page int) (string, float64, error) {
	img, err := doc.Render(page)
	if err != nil {
		return "", 0, fmt.Errorf("渲染页面失败: %w", err)
	}
	prepared := PreprocessForOCR(img)

	text, err := e.ocr.Recognize(ctx, prepared)
	if err != nil {
		return "", 0, err
	}
	tokens, err := e.ocr.Confidences(ctx, prepared)
	if err != nil {
		return "", 0, err
	}
	return text, AverageConfidence(tokens), nil
}

// AverageConfidence 对能解析为整数的置信度取平均（小数按整数部分截断，-1 也计入），
// 无法解析的值被忽略；没有有效值时返回 0。
func AverageConfidence(tokens []string) float64 {
	var sum, n int
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		v, err := strconv.Atoi(tok)
		if err != nil {
			f, ferr := strconv.ParseFloat(tok, 64)
			if ferr != nil || math.IsNaN(f) || math.IsInf(f, 0) {
				continue
			}
			v = int(f)
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0
	}
	return float64(sum) / float64(n)
}
