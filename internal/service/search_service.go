package service

import (
	"context"
	"fmt"
	"strings"

	"pdf-qa-go/internal/index"
	"pdf-qa-go/internal/model"
	"pdf-qa-go/internal/repository"
	"pdf-qa-go/pkg/embedding"
	"pdf-qa-go/pkg/log"
)

// SearchService 接口定义了检索操作。
type SearchService interface {
	// Search 在单个文档中检索与 query 最相近的 topK 个分块，按距离升序。
	Search(ctx context.Context, query, documentID string, topK int) ([]model.Chunk, error)
	// SearchAll 按文档注册顺序对每个文档检索 perDocument 个分块并直接拼接，不做全局重排。
	// 第二个返回值是被检索的文档数。
	SearchAll(ctx context.Context, query string, perDocument int) ([]model.Chunk, int, error)
}

type searchService struct {
	embeddingClient embedding.Client
	store           *repository.DocumentStore
	defaultTopK     int
}

// NewSearchService 创建一个新的 SearchService 实例。
func NewSearchService(embeddingClient embedding.Client, store *repository.DocumentStore, defaultTopK int) SearchService {
	if defaultTopK <= 0 {
		defaultTopK = 5
	}
	return &searchService{embeddingClient: embeddingClient, store: store, defaultTopK: defaultTopK}
}

func (s *searchService) Search(ctx context.Context, query, documentID string, topK int) ([]model.Chunk, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuestion
	}
	rec, err := s.store.Get(documentID)
	if err != nil {
		return nil, err
	}
	vec, err := s.embed(ctx, query)
	if err != nil {
		return nil, err
	}
	return s.searchRecord(ctx, rec, vec, topK)
}

func (s *searchService) SearchAll(ctx context.Context, query string, perDocument int) ([]model.Chunk, int, error) {
	if strings.TrimSpace(query) == "" {
		return nil, 0, ErrEmptyQuestion
	}
	ids := s.store.IDs()
	if len(ids) == 0 {
		return nil, 0, ErrNoDocuments
	}
	// 同一个查询只向量化一次
	vec, err := s.embed(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	var all []model.Chunk
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		rec, err := s.store.Get(id)
		if err != nil {
			// 检索过程中文档被删除
			log.Warnf("[SearchService] 跳过文档 %s: %v", id, err)
			continue
		}
		chunks, err := s.searchRecord(ctx, rec, vec, perDocument)
		if err != nil {
			log.Warnf("[SearchService] 检索文档 %s 失败，已跳过: %v", id, err)
			continue
		}
		all = append(all, chunks...)
	}
	log.Infof("[SearchService] 跨文档检索完成, 文档数: %d, 命中分块数: %d", len(ids), len(all))
	return all, len(ids), nil
}

func (s *searchService) embed(ctx context.Context, query string) ([]float32, error) {
	vec, err := s.embeddingClient.CreateEmbedding(ctx, query)
	if err != nil {
		log.Errorf("[SearchService] 查询向量化失败: %v", err)
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	return vec, nil
}

func (s *searchService) searchRecord(ctx context.Context, rec repository.Record, vec []float32, topK int) ([]model.Chunk, error) {
	if topK <= 0 {
		topK = s.defaultTopK
	}
	hits, err := rec.Index.Search(ctx, vec, topK)
	if err != nil {
		return nil, fmt.Errorf("vector search on %s failed: %w", rec.ID, err)
	}
	// 部分索引实现只近似排序
	index.SortHits(hits)

	chunks := make([]model.Chunk, 0, len(hits))
	for _, h := range hits {
		if h.Position < 0 || h.Position >= len(rec.Chunks) {
			log.Warnf("[SearchService] 文档 %s 的索引返回了越界的分块位置 %d", rec.ID, h.Position)
			continue
		}
		chunks = append(chunks, rec.Chunks[h.Position])
	}
	return chunks, nil
}
