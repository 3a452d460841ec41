// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"pdf-qa-go/internal/service"
)

// statusFor 把业务错误映射为 HTTP 状态码，未知错误一律视为内部错误。
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrEmptyQuestion),
		errors.Is(err, service.ErrNoDocuments),
		errors.Is(err, service.ErrFileNotFound),
		errors.Is(err, service.ErrNoTextExtracted),
		errors.Is(err, service.ErrNotPDF),
		errors.Is(err, service.ErrFileTooLarge):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrDocumentNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrArchiveDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// abortWithError 输出 {"error": ..., "details": ...}，内部错误时 error 为固定文案。
func abortWithError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		c.JSON(status, gin.H{"error": "Internal server error", "details": err.Error()})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func success(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": message,
		"data":    data,
	})
}
