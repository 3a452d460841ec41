package handler

import (
	"github.com/gin-gonic/gin"

	"pdf-qa-go/internal/service"
	"pdf-qa-go/pkg/log"
)

// ExportHandler 负责导出问答日志。
type ExportHandler struct {
	exportService service.ExportService
}

// NewExportHandler 创建一个新的 ExportHandler 实例。
func NewExportHandler(exportService service.ExportService) *ExportHandler {
	return &ExportHandler{exportService: exportService}
}

// ExportJSONRequest 定义了 JSON 导出的可选请求体。
type ExportJSONRequest struct {
	IncludeContent bool `json:"include_content"`
}

// ExportPDF 以附件形式返回 qa_export.pdf。
func (h *ExportHandler) ExportPDF(c *gin.Context) {
	path, err := h.exportService.ExportPDF()
	if err != nil {
		log.Errorf("[ExportHandler] 导出 PDF 失败: %v", err)
		abortWithError(c, err)
		return
	}
	c.Header("Content-Type", "application/pdf")
	c.FileAttachment(path, service.ExportFileName)
}

// ExportJSON 返回问答历史与文档列表，请求体可为空。
func (h *ExportHandler) ExportJSON(c *gin.Context) {
	var req ExportJSONRequest
	if c.Request.ContentLength != 0 {
		// 请求体无法解析时按不包含内容处理
		_ = c.ShouldBindJSON(&req)
	}
	success(c, "导出成功", h.exportService.ExportJSON(req.IncludeContent))
}
