package service

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/go-pdf/fpdf"

	"pdf-qa-go/internal/model"
	"pdf-qa-go/internal/repository"
	"pdf-qa-go/pkg/log"
)

// ExportFileName 是导出 PDF 的默认文件名。
const ExportFileName = "qa_export.pdf"

// ExportService 把问答日志导出为 PDF 或 JSON，只读取存储。
type ExportService interface {
	WritePDF(w io.Writer) error
	ExportPDF() (string, error)
	ExportJSON(includeContent bool) *model.QAExport
}

type exportService struct {
	store      *repository.DocumentStore
	documents  DocumentService
	tempFolder string
}

// NewExportService 创建一个新的 ExportService 实例，ExportPDF 把文件写到 tempFolder。
func NewExportService(store *repository.DocumentStore, documents DocumentService, tempFolder string) ExportService {
	return &exportService{store: store, documents: documents, tempFolder: tempFolder}
}

// WritePDF 把问答日志渲染为 PDF。核心字体只支持 cp1252，无法表示的字符会被替换。
func (s *exportService) WritePDF(w io.Writer) error {
	entries := s.store.QALog()

	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()
	pdf.SetFont("Arial", "", 12)

	now := time.Now().Format("2006-01-02 15:04:05")
	pdf.CellFormat(0, 10, tr("Q&A Session Export - "+now), "", 1, "C", false, 0, "")
	pdf.Ln(10)

	for i, entry := range entries {
		idx := i + 1
		pdf.SetFont("Arial", "B", 12)
		pdf.MultiCell(0, 10, tr(fmt.Sprintf("Q%d: %s", idx, entry.Question)), "", "", false)
		pdf.Ln(5)

		pdf.SetFont("Arial", "", 12)
		pdf.MultiCell(0, 10, tr(fmt.Sprintf("A%d: %s", idx, entry.Answer)), "", "", false)
		pdf.Ln(5)

		pdf.SetFont("Arial", "I", 10)
		pdf.MultiCell(0, 10, "Sources:", "", "", false)
		for _, src := range entry.Sources {
			pdf.MultiCell(0, 8, tr("• "+src), "", "", false)
		}
		pdf.Ln(10)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render export pdf: %w", err)
	}
	return nil
}

// ExportPDF 把 PDF 写到临时目录并返回文件路径。
func (s *exportService) ExportPDF() (string, error) {
	if err := os.MkdirAll(s.tempFolder, 0o755); err != nil {
		return "", fmt.Errorf("failed to create temp folder: %w", err)
	}
	path := filepath.Join(s.tempFolder, ExportFileName)
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := s.WritePDF(f); err != nil {
		log.Errorf("[ExportService] 导出 PDF 失败: %v", err)
		return "", err
	}
	log.Infof("[ExportService] PDF 已导出: %s", path)
	return path, nil
}

func (s *exportService) ExportJSON(includeContent bool) *model.QAExport {
	docs := s.documents.Documents(includeContent)
	history := s.store.QALog()
	if history == nil {
		history = []model.QAEntry{}
	}
	return &model.QAExport{
		ExportedAt:       model.Now(),
		TotalDocuments:   len(docs),
		DocumentMetadata: s.store.Metadata(),
		QAHistory:        history,
		Documents:        docs,
	}
}
