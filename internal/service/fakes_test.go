package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"pdf-qa-go/internal/config"
	"pdf-qa-go/internal/index"
	"pdf-qa-go/internal/model"
	"pdf-qa-go/internal/pipeline"
	"pdf-qa-go/internal/repository"
	"pdf-qa-go/pkg/llm"
)

var keywords = []string{"alpha", "beta", "gamma", "delta"}

// keywordEmbedder 每个关键词对应一个维度，最后一维是常量，向量永远不为零。
type keywordEmbedder struct {
	mu    sync.Mutex
	calls int
	fail  string
}

func (e *keywordEmbedder) CreateEmbedding(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.fail != "" && strings.Contains(text, e.fail) {
		return nil, errors.New("embedding service unavailable")
	}
	vec := make([]float32, len(keywords)+1)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		for i, k := range keywords {
			if w == k {
				vec[i]++
			}
		}
	}
	vec[len(keywords)] = 0.01
	return vec, nil
}

func (e *keywordEmbedder) ModelVersion() string { return "keyword-v1" }

func (e *keywordEmbedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// fakeProcessor 按文件名返回预先配置的分块。
type fakeProcessor struct {
	pages map[string][]string
	errs  map[string]error
}

func (p *fakeProcessor) Process(_ context.Context, path, name string) (*pipeline.Document, error) {
	key := name
	if _, ok := p.pages[key]; !ok {
		key = filepath.Base(path)
	}
	if err := p.errs[key]; err != nil {
		return nil, err
	}
	contents, ok := p.pages[key]
	if !ok {
		return nil, fmt.Errorf("unexpected file %s", key)
	}
	now := model.Now()
	chunks := make([]model.Chunk, 0, len(contents))
	for i, c := range contents {
		chunks = append(chunks, model.Chunk{
			Content: c,
			Metadata: model.ChunkMetadata{
				Source:           name,
				SourcePath:       path,
				PageNumber:       i + 1,
				TotalPages:       len(contents),
				Section:          model.UnknownSection,
				ChunkIndex:       0,
				ExtractionMethod: model.ExtractionDirect,
				ProcessedAt:      now,
			},
		})
	}
	return &pipeline.Document{
		Chunks:   chunks,
		Metadata: model.DocumentMetadata{Filename: name, FullPath: path, ProcessedAt: now, TotalPages: len(contents)},
	}, nil
}

// fakeLLM 把预设答案分两段写入 writer，并记录收到的提示词。
type fakeLLM struct {
	mu      sync.Mutex
	answer  string
	err     error
	prompts []string
}

func (f *fakeLLM) StreamChatMessages(_ context.Context, messages []llm.Message, _ *llm.GenerationParams, writer llm.MessageWriter) error {
	f.mu.Lock()
	f.prompts = append(f.prompts, messages[len(messages)-1].Content)
	f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	half := len(f.answer) / 2
	for _, part := range []string{f.answer[:half], f.answer[half:]} {
		if err := writer.WriteMessage(1, []byte(part)); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeLLM) StreamChat(ctx context.Context, prompt string, writer llm.MessageWriter) error {
	return f.StreamChatMessages(ctx, []llm.Message{{Role: "user", Content: prompt}}, nil, writer)
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string) (string, error) {
	var c llm.Collector
	if err := f.StreamChat(ctx, prompt, &c); err != nil {
		return "", err
	}
	return c.String(), nil
}

func (f *fakeLLM) Prompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}

// recordingBuilder 包装真实的索引构建器，记录被释放的索引。
type recordingBuilder struct {
	inner   index.Builder
	mu      sync.Mutex
	dropped []string
}

func (b *recordingBuilder) Build(ctx context.Context, documentID string, chunks []model.Chunk) (index.Index, error) {
	idx, err := b.inner.Build(ctx, documentID, chunks)
	if err != nil {
		return nil, err
	}
	return &recordingIndex{Index: idx, id: documentID, owner: b}, nil
}

func (b *recordingBuilder) Dropped() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.dropped...)
}

type recordingIndex struct {
	index.Index
	id    string
	owner *recordingBuilder
}

func (i *recordingIndex) Drop(ctx context.Context) error {
	i.owner.mu.Lock()
	i.owner.dropped = append(i.owner.dropped, i.id)
	i.owner.mu.Unlock()
	return i.Index.Drop(ctx)
}

type fakeArchive struct {
	mu      sync.Mutex
	records []model.QARecord
}

func (a *fakeArchive) Create(_ context.Context, record *model.QARecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, *record)
	return nil
}

func (a *fakeArchive) FindRecent(_ context.Context, limit int) ([]model.QARecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if limit > len(a.records) {
		limit = len(a.records)
	}
	return append([]model.QARecord(nil), a.records[:limit]...), nil
}

func configRetrieval() config.RetrievalConfig {
	return config.RetrievalConfig{TopK: 5, PerDocumentTopK: 3, MaxContext: 5}
}

func configGeneration() config.LLMGenerationConfig {
	return config.LLMGenerationConfig{Temperature: 0.2}
}

type testEnv struct {
	dir       string
	store     *repository.DocumentStore
	embedder  *keywordEmbedder
	processor *fakeProcessor
	builder   *recordingBuilder
	llm       *fakeLLM
	archive   *fakeArchive
	documents DocumentService
	search    SearchService
	chat      ChatService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		dir:       t.TempDir(),
		store:     repository.NewDocumentStore(),
		embedder:  &keywordEmbedder{},
		processor: &fakeProcessor{pages: map[string][]string{}, errs: map[string]error{}},
		llm:       &fakeLLM{answer: "According to the manual, page 1 covers alpha."},
		archive:   &fakeArchive{},
	}
	env.builder = &recordingBuilder{inner: index.NewChromemBuilder(env.embedder)}
	env.documents = NewDocumentService(env.processor, env.builder, env.store)
	env.search = NewSearchService(env.embedder, env.store, 5)
	env.chat = NewChatService(env.search, env.llm, env.store, env.archive, configRetrieval(), configGeneration())
	return env
}

// addFile 在临时目录中创建文件，并配置其处理结果（每个字符串一页一个分块）。
func (e *testEnv) addFile(t *testing.T, name string, contents ...string) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4\n"), 0o644))
	e.processor.pages[name] = contents
	return path
}

func (e *testEnv) ingest(t *testing.T, id, name string, contents ...string) {
	t.Helper()
	path := e.addFile(t, name, contents...)
	_, err := e.documents.Ingest(context.Background(), IngestRequest{Path: path, DocumentID: id})
	require.NoError(t, err)
}
