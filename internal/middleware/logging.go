// Package middleware 存放 Gin 框架的中间件。
package middleware

import (
	"bytes"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"pdf-qa-go/pkg/log"
	"pdf-qa-go/pkg/metrics"
)

// maxLoggedBody 是日志中保留的请求体与响应体的最大字节数。
const maxLoggedBody = 2048

// bodyLogWriter 用于捕获响应体
type bodyLogWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

// Write 实现了 io.Writer 接口，将响应写入 gin.ResponseWriter 和一个内部的 buffer
func (w bodyLogWriter) Write(b []byte) (int, error) {
	if room := maxLoggedBody - w.body.Len(); room > 0 {
		if len(b) < room {
			room = len(b)
		}
		w.body.Write(b[:room])
	}
	return w.ResponseWriter.Write(b)
}

// textual 判断内容类型是否适合写入日志，上传的 PDF 与导出文件只记录大小。
func textual(contentType string) bool {
	return contentType == "" || strings.Contains(contentType, "json") || strings.HasPrefix(contentType, "text/")
}

func truncate(b []byte) string {
	if len(b) > maxLoggedBody {
		return string(b[:maxLoggedBody]) + "...(truncated)"
	}
	return string(b)
}

// RequestLogger 是一个 Gin 中间件，用于记录请求和响应日志，并上报请求耗时指标。
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 记录请求开始时间
		startTime := time.Now()

		// 只缓存文本类请求体，multipart 上传直接放行
		var requestBody string
		if c.Request.Body != nil && textual(c.ContentType()) {
			raw, _ := io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewBuffer(raw))
			requestBody = truncate(raw)
		} else if c.Request.ContentLength > 0 {
			requestBody = "<" + strconv.FormatInt(c.Request.ContentLength, 10) + " bytes>"
		}

		// WebSocket 连接会被劫持，不包装 ResponseWriter
		var blw *bodyLogWriter
		if !strings.EqualFold(c.GetHeader("Upgrade"), "websocket") {
			blw = &bodyLogWriter{body: bytes.NewBufferString(""), ResponseWriter: c.Writer}
			c.Writer = blw
		}

		// 处理请求
		c.Next()

		latency := time.Since(startTime)
		statusCode := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, route, strconv.Itoa(statusCode)).Observe(latency.Seconds())

		responseBody := ""
		if blw != nil {
			if textual(c.Writer.Header().Get("Content-Type")) {
				responseBody = blw.body.String()
			} else {
				responseBody = "<" + strconv.Itoa(c.Writer.Size()) + " bytes>"
			}
		}

		log.Infow("HTTP Request Log",
			"statusCode", statusCode,
			"latency", latency.String(),
			"clientIP", c.ClientIP(),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"requestBody", requestBody,
			"responseBody", responseBody,
		)
	}
}
