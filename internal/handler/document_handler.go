package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pdf-qa-go/internal/model"
	"pdf-qa-go/internal/service"
	"pdf-qa-go/pkg/log"
)

// DocumentHandler 负责处理所有与文档管理相关的 API 请求。
type DocumentHandler struct {
	docService service.DocumentService
}

// NewDocumentHandler 创建一个新的 DocumentHandler 实例。
func NewDocumentHandler(docService service.DocumentService) *DocumentHandler {
	return &DocumentHandler{docService: docService}
}

// ProcessRequest 定义了批量入库 API 的请求体结构。
type ProcessRequest struct {
	PdfPaths []string `json:"PdfPaths"`
}

// Initialize 清空全部文档、索引与问答日志。
func (h *DocumentHandler) Initialize(c *gin.Context) {
	removed := h.docService.Clear(c.Request.Context())
	log.Infof("[DocumentHandler] 处理器已初始化, 清除文档数: %d", removed)
	success(c, "PDF Q&A processor initialized successfully", gin.H{
		"status":         model.StatusSuccess,
		"initialized_at": model.Now(),
	})
}

// Process 处理按本地路径批量入库的请求，单个文件失败不影响其它文件。
func (h *DocumentHandler) Process(c *gin.Context) {
	var req ProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.PdfPaths == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing PdfPaths"})
		return
	}
	if len(req.PdfPaths) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "PdfPaths must be a non-empty list"})
		return
	}

	log.Infof("[DocumentHandler] 收到批量入库请求, 文件数: %d", len(req.PdfPaths))
	batch := h.docService.IngestBatch(c.Request.Context(), req.PdfPaths)
	success(c, "PDF processing completed", batch)
}

// ListDocuments 返回已入库文档列表。
func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	success(c, "获取文档列表成功", h.docService.List())
}

// DeleteDocument 处理删除文档的请求。
func (h *DocumentHandler) DeleteDocument(c *gin.Context) {
	documentID := c.Param("document_id")
	info, err := h.docService.Delete(c.Request.Context(), documentID)
	if err != nil {
		log.Warnf("[DocumentHandler] 删除文档失败, DocumentID: %s, err: %v", documentID, err)
		abortWithError(c, err)
		return
	}
	success(c, "Document deleted successfully", gin.H{
		"document_id":   info.DocumentID,
		"document_name": info.DocumentName,
	})
}

// Clear 清空全部文档与问答历史。
func (h *DocumentHandler) Clear(c *gin.Context) {
	removed := h.docService.Clear(c.Request.Context())
	log.Infof("[DocumentHandler] 已清空, 清除文档数: %d", removed)
	success(c, "All documents and Q&A history cleared successfully", gin.H{
		"status":     model.StatusSuccess,
		"cleared_at": model.Now(),
	})
}
