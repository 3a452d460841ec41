package model

import (
	"strings"
	"time"
	"unicode/utf8"
)

// SourceDetail 描述答案引用的一个分块。
type SourceDetail struct {
	PDFName          string           `json:"pdf_name"`
	PageNumber       int              `json:"page_number"`
	Section          string           `json:"section"`
	ContentPreview   string           `json:"content_preview"`
	ExtractionMethod ExtractionMethod `json:"extraction_method"`
}

// QAEntry 是问答日志中的一条记录。
type QAEntry struct {
	Question      string         `json:"question"`
	Answer        string         `json:"answer"`
	Sources       []string       `json:"sources"`
	SourceDetails []SourceDetail `json:"source_details"`
	Timestamp     LocalTime      `json:"timestamp"`
}

// RelevantChunk 是响应中附带的分块预览。
type RelevantChunk struct {
	Content  string        `json:"content"`
	Metadata ChunkMetadata `json:"metadata"`
}

// Answer 是问答接口的返回结构。DocumentsSearched 仅在跨文档模式下出现。
type Answer struct {
	Answer            string          `json:"answer"`
	Sources           []string        `json:"sources"`
	SourceDetails     []SourceDetail  `json:"source_details"`
	RelevantChunks    []RelevantChunk `json:"relevant_chunks,omitempty"`
	DocumentsSearched *int            `json:"documents_searched,omitempty"`
	AnsweredAt        LocalTime       `json:"answered_at"`
}

// Preview 截取前 limit 个字符并去除首尾空白，原文更长时追加省略号。
func Preview(content string, limit int) string {
	if utf8.RuneCountInString(content) <= limit {
		return strings.TrimSpace(content)
	}
	runes := []rune(content)
	return strings.TrimSpace(string(runes[:limit])) + "..."
}

// NewSourceDetail 由分块生成来源详情，预览长度为 200 字符。
func NewSourceDetail(c Chunk) SourceDetail {
	return SourceDetail{
		PDFName:          c.Metadata.Source,
		PageNumber:       c.Metadata.PageNumber,
		Section:          c.Metadata.Section,
		ContentPreview:   Preview(c.Content, 200),
		ExtractionMethod: c.Metadata.ExtractionMethod,
	}
}

// NewRelevantChunk 由分块生成 300 字符的预览。
func NewRelevantChunk(c Chunk) RelevantChunk {
	return RelevantChunk{Content: Preview(c.Content, 300), Metadata: c.Metadata}
}

// QARecord 对应于 MySQL 中的 qa_records 表，用于持久化归档问答日志。
type QARecord struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	DocumentID string    `gorm:"type:varchar(64);index" json:"documentId"`
	Question   string    `gorm:"type:text;not null" json:"question"`
	Answer     string    `gorm:"type:text;not null" json:"answer"`
	Sources    string    `gorm:"type:text" json:"sources"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (QARecord) TableName() string {
	return "qa_records"
}
