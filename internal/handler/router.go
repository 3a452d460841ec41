package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers 汇总所有控制器，由 RegisterRoutes 挂载到路由上。
type Handlers struct {
	Documents *DocumentHandler
	Upload    *UploadHandler
	Chat      *ChatHandler
	Export    *ExportHandler
	Health    *HealthHandler
}

// RegisterRoutes 注册 /api/v1 下的业务路由与根路径下的 /metrics。
func RegisterRoutes(r *gin.Engine, h Handlers) {
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiV1 := r.Group("/api/v1")
	{
		apiV1.POST("/initialize", h.Documents.Initialize)
		apiV1.POST("/process", h.Documents.Process)
		apiV1.POST("/clear", h.Documents.Clear)

		documents := apiV1.Group("/documents")
		{
			documents.GET("", h.Documents.ListDocuments)
			documents.DELETE("/:document_id", h.Documents.DeleteDocument)
		}

		apiV1.POST("/upload", h.Upload.Upload)

		apiV1.POST("/ask", h.Chat.Ask)
		apiV1.POST("/ask/:document_id", h.Chat.AskDocument)
		apiV1.GET("/chat", h.Chat.Handle)
		apiV1.GET("/qa/archive", h.Chat.Archive)
		apiV1.GET("/test-llm", h.Chat.TestLLM)

		export := apiV1.Group("/export")
		{
			export.POST("", h.Export.ExportPDF)
			export.POST("/json", h.Export.ExportJSON)
		}

		apiV1.GET("/health", h.Health.Health)
		apiV1.GET("/test", h.Health.Test)
		apiV1.POST("/test", h.Health.Test)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Endpoint not found"})
	})
}
