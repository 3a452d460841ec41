package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"pdf-qa-go/internal/config"
	"pdf-qa-go/internal/model"
	"pdf-qa-go/internal/repository"
	"pdf-qa-go/pkg/llm"
	"pdf-qa-go/pkg/log"
	"pdf-qa-go/pkg/metrics"
)

const (
	noResultSingleDocument = "I couldn't find relevant information in the document to answer your question."
	noResultAllDocuments   = "I couldn't find relevant information in any of the processed documents."
	llmProbePrompt         = "Say 'Hello, I am working!' if you receive this message."
)

// ChatService 定义了问答操作的接口。documentID 为空时在全部文档中检索。
type ChatService interface {
	Ask(ctx context.Context, documentID, question string) (*model.Answer, error)
	// StreamAnswer 把生成过程以 {"chunk": ...} 帧推送给 out，结束后发送完成通知。
	StreamAnswer(ctx context.Context, documentID, question string, out llm.MessageWriter, shouldStop func() bool) (*model.Answer, error)
	TestLLM(ctx context.Context) (string, error)
	// RecentArchive 返回 MySQL 中最近归档的问答，未启用归档时返回 ErrArchiveDisabled。
	RecentArchive(ctx context.Context, limit int) ([]model.QARecord, error)
}

type chatService struct {
	searchService SearchService
	llmClient     llm.Client
	store         *repository.DocumentStore
	archive       repository.QARepository
	retrieval     config.RetrievalConfig
	gen           *llm.GenerationParams
}

// NewChatService 创建一个新的 ChatService 实例。archive 为 nil 时不归档到 MySQL。
func NewChatService(searchService SearchService, llmClient llm.Client, store *repository.DocumentStore, archive repository.QARepository, retrieval config.RetrievalConfig, gen config.LLMGenerationConfig) ChatService {
	if retrieval.TopK <= 0 {
		retrieval.TopK = 5
	}
	if retrieval.PerDocumentTopK <= 0 {
		retrieval.PerDocumentTopK = 3
	}
	if retrieval.MaxContext <= 0 {
		retrieval.MaxContext = 5
	}
	return &chatService{
		searchService: searchService,
		llmClient:     llmClient,
		store:         store,
		archive:       archive,
		retrieval:     retrieval,
		gen:           llm.ParamsFromConfig(gen),
	}
}

func (s *chatService) Ask(ctx context.Context, documentID, question string) (*model.Answer, error) {
	return s.answer(ctx, documentID, question, nil)
}

func (s *chatService) StreamAnswer(ctx context.Context, documentID, question string, out llm.MessageWriter, shouldStop func() bool) (*model.Answer, error) {
	interceptor := &wsWriterInterceptor{conn: out, writer: &strings.Builder{}, shouldStop: shouldStop}
	ans, err := s.answer(ctx, documentID, question, interceptor)
	if err != nil {
		return nil, err
	}
	SendCompletion(out)
	return ans, nil
}

// TestLLM 发送一条固定提示词以检查大模型服务是否可用。
func (s *chatService) TestLLM(ctx context.Context) (string, error) {
	return s.llmClient.Generate(ctx, llmProbePrompt)
}

func (s *chatService) RecentArchive(ctx context.Context, limit int) ([]model.QARecord, error) {
	if s.archive == nil {
		return nil, ErrArchiveDisabled
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.archive.FindRecent(ctx, limit)
}

func (s *chatService) answer(ctx context.Context, documentID, question string, out llm.MessageWriter) (*model.Answer, error) {
	mode := "single"
	if documentID == "" {
		mode = "all"
	}
	ans, err := s.generateAnswer(ctx, documentID, question, out)
	switch {
	case err != nil:
		metrics.QuestionsTotal.WithLabelValues(mode, "error").Inc()
	case len(ans.Sources) == 0:
		metrics.QuestionsTotal.WithLabelValues(mode, "no_result").Inc()
	default:
		metrics.QuestionsTotal.WithLabelValues(mode, "answered").Inc()
	}
	return ans, err
}

// generateAnswer 协调检索与生成。out 非 nil 时以流式方式下发生成内容。
func (s *chatService) generateAnswer(ctx context.Context, documentID, question string, out llm.MessageWriter) (*model.Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuestion
	}
	log.Infof("[ChatService] 收到问题, DocumentID: %q, Question: %s", documentID, model.Preview(question, 50))

	// 1. 检索上下文
	var (
		chunks   []model.Chunk
		searched *int
		err      error
	)
	if documentID != "" {
		chunks, err = s.searchService.Search(ctx, question, documentID, s.retrieval.TopK)
		if err != nil {
			return nil, err
		}
		if len(chunks) == 0 {
			return s.noResult(noResultSingleDocument, nil, out)
		}
	} else {
		var n int
		chunks, n, err = s.searchService.SearchAll(ctx, question, s.retrieval.PerDocumentTopK)
		if err != nil {
			return nil, err
		}
		searched = &n
		if len(chunks) == 0 {
			return s.noResult(noResultAllDocuments, searched, out)
		}
		if len(chunks) > s.retrieval.MaxContext {
			chunks = chunks[:s.retrieval.MaxContext]
		}
	}

	// 2. 生成答案
	text, err := s.synthesize(ctx, question, chunks, out)
	if err != nil {
		return nil, err
	}

	// 3. 记录问答日志
	sources := make([]string, 0, len(chunks))
	details := make([]model.SourceDetail, 0, len(chunks))
	relevant := make([]model.RelevantChunk, 0, len(chunks))
	for _, c := range chunks {
		sources = append(sources, c.SourceLabel())
		details = append(details, model.NewSourceDetail(c))
		relevant = append(relevant, model.NewRelevantChunk(c))
	}
	now := model.Now()
	entry := model.QAEntry{Question: question, Answer: text, Sources: sources, SourceDetails: details, Timestamp: now}
	s.store.AppendQA(entry)
	s.archiveEntry(documentID, entry)

	log.Infof("[ChatService] 问题回答完成, 引用分块数: %d", len(chunks))
	return &model.Answer{
		Answer:            text,
		Sources:           sources,
		SourceDetails:     details,
		RelevantChunks:    relevant,
		DocumentsSearched: searched,
		AnsweredAt:        now,
	}, nil
}

func (s *chatService) noResult(text string, searched *int, out llm.MessageWriter) (*model.Answer, error) {
	if out != nil {
		if err := out.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
			return nil, err
		}
	}
	return &model.Answer{
		Answer:            text,
		Sources:           []string{},
		SourceDetails:     []model.SourceDetail{},
		DocumentsSearched: searched,
		AnsweredAt:        model.Now(),
	}, nil
}

// synthesize 调用大模型生成答案，并在答案没有引用时追加来源列表。
func (s *chatService) synthesize(ctx context.Context, question string, chunks []model.Chunk, out llm.MessageWriter) (string, error) {
	prompt := BuildPrompt(question, chunks)
	collector := &llm.Collector{}
	var writer llm.MessageWriter = collector
	if out != nil {
		writer = &teeWriter{collector: collector, out: out}
	}
	msgs := []llm.Message{{Role: "user", Content: prompt}}
	if err := s.llmClient.StreamChatMessages(ctx, msgs, s.gen, writer); err != nil {
		log.Errorf("[ChatService] 大模型生成失败: %v", err)
		return "", fmt.Errorf("failed to generate answer: %w", err)
	}

	raw := collector.String()
	text := EnsureSources(raw, chunks)
	if out != nil && len(text) > len(raw) {
		if err := out.WriteMessage(websocket.TextMessage, []byte(text[len(raw):])); err != nil {
			return "", err
		}
	}
	return text, nil
}

// archiveEntry 使用后台上下文，请求被取消后仍然保存已生成的答案。
func (s *chatService) archiveEntry(documentID string, entry model.QAEntry) {
	if s.archive == nil {
		return
	}
	sources, _ := json.Marshal(entry.Sources)
	record := &model.QARecord{
		DocumentID: documentID,
		Question:   entry.Question,
		Answer:     entry.Answer,
		Sources:    string(sources),
	}
	if err := s.archive.Create(context.Background(), record); err != nil {
		// 只记录错误，答案已经生成
		log.Errorf("[ChatService] 问答归档失败: %v", err)
	}
}

// BuildPrompt 按检索顺序拼接带来源标签的上下文，并附加引用要求。
func BuildPrompt(question string, chunks []model.Chunk) string {
	parts := make([]string, 0, len(chunks))
	for i, c := range chunks {
		parts = append(parts, fmt.Sprintf("[SOURCE %d] %s\n%s\n", i+1, c.SourceLabel(), c.Content))
	}

	var b strings.Builder
	b.WriteString("You are a helpful assistant that answers questions based on PDF documents.\n")
	b.WriteString("Use the following context to answer the question. ALWAYS mention the source document name and page number when referencing information.\n\n")
	b.WriteString("Context:\n")
	b.WriteString(strings.Join(parts, "\n"))
	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)
	b.WriteString("\n\nInstructions:\n")
	b.WriteString("1. Provide a comprehensive answer based on the context\n")
	b.WriteString("2. ALWAYS cite your sources by mentioning the document name and page number like: \"According to [Document Name], page [X]...\"\n")
	b.WriteString("3. If information comes from multiple sources, cite all relevant sources\n")
	b.WriteString("4. Format your citations clearly in your response\n")
	b.WriteString("5. If you cannot find relevant information in the context, state that clearly\n\n")
	b.WriteString("Answer:")
	return b.String()
}

// EnsureSources 在答案不含 "page" 和 "source"（不区分大小写）时追加来源列表。
func EnsureSources(answer string, chunks []model.Chunk) string {
	lower := strings.ToLower(answer)
	if strings.Contains(lower, "page") || strings.Contains(lower, "source") {
		return answer
	}
	var b strings.Builder
	b.WriteString(answer)
	b.WriteString("\n\nSources:\n")
	for _, c := range chunks {
		b.WriteString("• ")
		b.WriteString(c.SourceLabel())
		b.WriteString("\n")
	}
	return b.String()
}

// teeWriter 同时写入收集器和下游。
type teeWriter struct {
	collector *llm.Collector
	out       llm.MessageWriter
}

func (t *teeWriter) WriteMessage(messageType int, data []byte) error {
	if err := t.collector.WriteMessage(messageType, data); err != nil {
		return err
	}
	return t.out.WriteMessage(messageType, data)
}

// wsWriterInterceptor 是对 websocket 连接的封装，用于捕获写入的消息。
type wsWriterInterceptor struct {
	conn       llm.MessageWriter
	writer     *strings.Builder
	shouldStop func() bool
}

// WriteMessage 满足 llm.MessageWriter 接口。
func (w *wsWriterInterceptor) WriteMessage(messageType int, data []byte) error {
	if w.shouldStop != nil && w.shouldStop() {
		// 停止标志生效：跳过下发
		return nil
	}
	w.writer.Write(data)
	// 将原始分块包装成 {"chunk":"..."}
	payload := map[string]string{"chunk": string(data)}
	b, _ := json.Marshal(payload)
	return w.conn.WriteMessage(messageType, b)
}

// SendCompletion 发送完成通知 JSON
func SendCompletion(ws llm.MessageWriter) {
	notif := map[string]interface{}{
		"type":      "completion",
		"status":    "finished",
		"message":   "响应已完成",
		"timestamp": time.Now().UnixMilli(),
		"date":      time.Now().Format("2006-01-02T15:04:05"),
	}
	b, _ := json.Marshal(notif)
	_ = ws.WriteMessage(websocket.TextMessage, b)
}
