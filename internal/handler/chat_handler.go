package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"pdf-qa-go/internal/service"
	"pdf-qa-go/pkg/log"
)

var (
	upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true // 允许所有来源
		},
	}
)

// AskRequest 定义了问答 API 的请求体结构。
type AskRequest struct {
	Question *string `json:"question"`
}

// chatMessage 是 WebSocket 上收到的消息：提问或 {"type":"stop"}。
type chatMessage struct {
	Type       string `json:"type"`
	Question   string `json:"question"`
	DocumentID string `json:"document_id"`
}

// ChatHandler 负责问答请求：HTTP 一问一答与 WebSocket 流式回答。
type ChatHandler struct {
	chatService service.ChatService
	modelName   string
}

// NewChatHandler 创建一个新的 ChatHandler。
func NewChatHandler(chatService service.ChatService, modelName string) *ChatHandler {
	return &ChatHandler{chatService: chatService, modelName: modelName}
}

// Ask 在全部文档中检索并回答。
func (h *ChatHandler) Ask(c *gin.Context) {
	h.ask(c, "")
}

// AskDocument 只在路径参数指定的文档中检索并回答。
func (h *ChatHandler) AskDocument(c *gin.Context) {
	h.ask(c, c.Param("document_id"))
}

func (h *ChatHandler) ask(c *gin.Context, documentID string) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Question == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing question"})
		return
	}

	ans, err := h.chatService.Ask(c.Request.Context(), documentID, *req.Question)
	if err != nil {
		log.Errorf("[ChatHandler] 问答失败, DocumentID: %q, err: %v", documentID, err)
		abortWithError(c, err)
		return
	}
	success(c, "success", ans)
}

// TestLLM 检查大模型服务是否连通。
func (h *ChatHandler) TestLLM(c *gin.Context) {
	reply, err := h.chatService.TestLLM(c.Request.Context())
	if err != nil {
		log.Errorf("[ChatHandler] 大模型连通性测试失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":  "error",
			"error":   "LLM API connection failed",
			"details": err.Error(),
			"hint":    "Check that llm.api_key and llm.base_url are set correctly.",
		})
		return
	}
	success(c, "LLM API is connected and working", gin.H{
		"llm_response": reply,
		"model_name":   h.modelName,
		"timestamp":    time.Now().Format("2006-01-02T15:04:05"),
	})
}

// Archive 返回 MySQL 中最近归档的问答记录，limit 查询参数默认 20。
func (h *ChatHandler) Archive(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	records, err := h.chatService.RecentArchive(c.Request.Context(), limit)
	if err != nil {
		abortWithError(c, err)
		return
	}
	success(c, "获取问答归档成功", records)
}

// lockedConn 串行化对同一连接的并发写入。
type lockedConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (l *lockedConn) WriteMessage(messageType int, data []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn.WriteMessage(messageType, data)
}

func (l *lockedConn) writeJSON(v interface{}) {
	b, _ := json.Marshal(v)
	_ = l.WriteMessage(websocket.TextMessage, b)
}

// Handle 处理一个传入的 WebSocket 连接。读取协程负责接收提问与停止指令，回答在当前协程中依次生成。
func (h *ChatHandler) Handle(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()
	log.Infof("[ChatHandler] WebSocket 连接已建立, RemoteAddr: %s", conn.RemoteAddr())

	out := &lockedConn{conn: conn}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var stopped atomic.Bool
	questions := make(chan chatMessage, 8)
	go func() {
		defer close(questions)
		defer cancel()
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				log.Warnf("[ChatHandler] 从 WebSocket 读取消息失败: %v", err)
				return
			}
			var msg chatMessage
			if err := json.Unmarshal(message, &msg); err != nil {
				out.writeJSON(gin.H{"error": "invalid message, expected JSON with a question field"})
				continue
			}
			if msg.Type == "stop" {
				log.Info("[ChatHandler] 收到停止指令，正在中断流式响应...")
				stopped.Store(true)
				out.writeJSON(gin.H{
					"type":      "stop",
					"message":   "响应已停止",
					"timestamp": time.Now().UnixMilli(),
					"date":      time.Now().Format("2006-01-02T15:04:05"),
				})
				continue
			}
			select {
			case questions <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	for msg := range questions {
		stopped.Store(false)
		_, err := h.chatService.StreamAnswer(ctx, msg.DocumentID, msg.Question, out, stopped.Load)
		if err != nil {
			log.Errorf("[ChatHandler] 处理流式响应失败: %v", err)
			out.writeJSON(gin.H{"error": err.Error()})
			service.SendCompletion(out)
		}
	}
}
