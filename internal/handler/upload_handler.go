package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pdf-qa-go/internal/model"
	"pdf-qa-go/internal/service"
	"pdf-qa-go/pkg/log"
)

// UploadHandler 负责处理 PDF 上传请求。
type UploadHandler struct {
	uploadService service.UploadService
}

// NewUploadHandler 创建一个新的 UploadHandler 实例。
func NewUploadHandler(uploadService service.UploadService) *UploadHandler {
	return &UploadHandler{uploadService: uploadService}
}

// Upload 接收表单字段 file 中的单个 PDF。同步模式下返回入库结果，异步模式下返回 202 与 queued 状态。
func (h *UploadHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}
	if file.Filename == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file selected"})
		return
	}

	result, err := h.uploadService.Upload(c.Request.Context(), file)
	if err != nil {
		log.Errorf("[UploadHandler] 上传失败, FileName: %s, err: %v", file.Filename, err)
		abortWithError(c, err)
		return
	}

	if result.Status == model.StatusQueued {
		c.JSON(http.StatusAccepted, gin.H{
			"code":    http.StatusAccepted,
			"message": "文件已接收，正在后台处理",
			"data":    result,
		})
		return
	}
	success(c, "PDF processed successfully", result)
}
