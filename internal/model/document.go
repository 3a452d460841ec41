package model

// IngestResult 是单个文档入库的结果。批量入库时失败项的 Status 为 error 并携带 Error。
type IngestResult struct {
	DocumentID   string     `json:"document_id,omitempty"`
	DocumentName string     `json:"document_name,omitempty"`
	PDFPath      string     `json:"pdf_path,omitempty"`
	Status       string     `json:"status"`
	ChunksCount  int        `json:"chunks_count"`
	TotalPages   int        `json:"total_pages,omitempty"`
	ProcessedAt  *LocalTime `json:"processed_at,omitempty"`
	Error        string     `json:"error,omitempty"`
}

const (
	StatusSuccess   = "success"
	StatusError     = "error"
	StatusCompleted = "completed"
	StatusProcessed = "processed"
	StatusQueued    = "queued"
)

// BatchResult 汇总批量入库，单个文档失败不影响其它文档。
type BatchResult struct {
	Status      string         `json:"status"`
	TotalFiles  int            `json:"total_files"`
	Successful  int            `json:"successful"`
	Failed      int            `json:"failed"`
	Results     []IngestResult `json:"results"`
	ProcessedAt LocalTime      `json:"processed_at"`
}

// DocumentInfo 是文档列表与 JSON 导出中的一项。
type DocumentInfo struct {
	DocumentID   string     `json:"document_id"`
	ChunksCount  int        `json:"chunks_count"`
	Status       string     `json:"status"`
	DocumentName string     `json:"document_name,omitempty"`
	TotalPages   int        `json:"total_pages,omitempty"`
	ProcessedAt  *LocalTime `json:"processed_at,omitempty"`
	Content      []Chunk    `json:"content,omitempty"`
}

// EsChunk 代表存储在 Elasticsearch 中的分块向量。
type EsChunk struct {
	VectorID     string    `json:"vector_id"`
	DocumentID   string    `json:"document_id"`
	BuildID      string    `json:"build_id"`
	Position     int       `json:"position"`
	TextContent  string    `json:"text_content"`
	Vector       []float32 `json:"vector"`
	ModelVersion string    `json:"model_version"`
	Source       string    `json:"source"`
	PageNumber   int       `json:"page_number"`
}

// DocumentListing 是文档列表接口的返回结构，元数据表按文档 ID 索引。
type DocumentListing struct {
	Documents        []DocumentInfo              `json:"documents"`
	TotalCount       int                         `json:"total_count"`
	QAHistoryCount   int                         `json:"qa_history_count"`
	DocumentMetadata map[string]DocumentMetadata `json:"document_metadata"`
}

// QAExport 是问答日志的 JSON 导出。
type QAExport struct {
	ExportedAt       LocalTime                   `json:"exported_at"`
	TotalDocuments   int                         `json:"total_documents"`
	DocumentMetadata map[string]DocumentMetadata `json:"document_metadata"`
	QAHistory        []QAEntry                   `json:"qa_history"`
	Documents        []DocumentInfo              `json:"documents"`
}
