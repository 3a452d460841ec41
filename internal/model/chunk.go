// Package model 包含了应用的数据模型定义。
package model

import "fmt"

// ExtractionMethod 记录页面文本的来源：PDF 文本层或 OCR。
type ExtractionMethod string

const (
	ExtractionDirect ExtractionMethod = "direct"
	ExtractionOCR    ExtractionMethod = "ocr"
)

// UnknownSection 是未检测到标题时的章节名。
const UnknownSection = "Unknown"

// ChunkMetadata 是每个分块携带的引用信息。
type ChunkMetadata struct {
	Source           string           `json:"source"`
	SourcePath       string           `json:"source_path"`
	PageNumber       int              `json:"page_number"`
	TotalPages       int              `json:"total_pages"`
	Section          string           `json:"section"`
	ChunkIndex       int              `json:"chunk_index"`
	ExtractionMethod ExtractionMethod `json:"extraction_method"`
	ProcessedAt      LocalTime        `json:"processed_at"`
}

// Chunk 是检索的最小单元，入库后不再修改。
type Chunk struct {
	Content  string        `json:"page_content"`
	Metadata ChunkMetadata `json:"metadata"`
}

// SourceLabel 返回展示给用户和写入提示词的来源标签。
func (c Chunk) SourceLabel() string {
	label := fmt.Sprintf("📄 %s | Page %d", c.Metadata.Source, c.Metadata.PageNumber)
	if c.Metadata.Section != "" && c.Metadata.Section != UnknownSection {
		label += " | Section: " + c.Metadata.Section
	}
	return label
}

// DocumentMetadata 每个文档一条，按文档 ID 存储。
type DocumentMetadata struct {
	Filename    string    `json:"filename"`
	FullPath    string    `json:"full_path"`
	ProcessedAt LocalTime `json:"processed_at"`
	TotalPages  int       `json:"total_pages"`
}
