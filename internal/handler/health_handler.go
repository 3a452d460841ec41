package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pdf-qa-go/internal/model"
	"pdf-qa-go/internal/repository"
)

// Version 是服务版本号，由健康检查接口返回。
const Version = "1.0.0"

// HealthHandler 提供存活检查与调试计数。
type HealthHandler struct {
	store *repository.DocumentStore
}

// NewHealthHandler 创建一个新的 HealthHandler 实例。
func NewHealthHandler(store *repository.DocumentStore) *HealthHandler {
	return &HealthHandler{store: store}
}

// Health 返回服务状态与已加载的文档数。每个文档恰好对应一个索引，两项计数相同。
func (h *HealthHandler) Health(c *gin.Context) {
	n := h.store.Len()
	c.JSON(http.StatusOK, gin.H{
		"status":              "healthy",
		"timestamp":           model.Now(),
		"version":             Version,
		"documents_loaded":    n,
		"vectorstores_loaded": n,
	})
}

// Test 回显请求方法与存储计数。
func (h *HealthHandler) Test(c *gin.Context) {
	n := h.store.Len()
	success(c, "Test endpoint working", gin.H{
		"timestamp":          model.Now(),
		"method":             c.Request.Method,
		"documents_count":    n,
		"vectorstores_count": n,
		"qa_history_count":   h.store.QACount(),
	})
}
