// Package index 为每个文档的分块建立向量索引并提供最近邻检索。
package index

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"pdf-qa-go/internal/model"
	"pdf-qa-go/pkg/embedding"
	"pdf-qa-go/pkg/log"
)

// ErrEmbeddingFailed 表示建索引时某个分块向量化失败，整个构建被放弃。
var ErrEmbeddingFailed = errors.New("embedding failed")

// Hit 是一次检索命中：Position 是分块在文档分块列表中的下标，Distance 越小越相似。
type Hit struct {
	Position int
	Distance float32
}

// SortHits 按距离升序排序，距离相同时按分块位置升序。
func SortHits(hits []Hit) {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].Position < hits[j].Position
	})
}

// Index 是单个文档的向量索引，构建后不可增量修改。
type Index interface {
	Search(ctx context.Context, vector []float32, k int) ([]Hit, error)
	Len() int
	// Drop 释放索引占用的后端资源。
	Drop(ctx context.Context) error
}

// Builder 为一个文档的完整分块列表构建索引，要么全部成功，要么不留下任何数据。
type Builder interface {
	Build(ctx context.Context, documentID string, chunks []model.Chunk) (Index, error)
}

// embedAll 按顺序向量化所有分块，遇到第一个失败即返回。
func embedAll(ctx context.Context, embedder embedding.Client, chunks []model.Chunk) ([][]float32, error) {
	vectors := make([][]float32, len(chunks))
	for i, c := range chunks {
		vec, err := embedder.CreateEmbedding(ctx, c.Content)
		if err != nil {
			log.Errorf("[Index] 分块 %d/%d 向量化失败: %v", i+1, len(chunks), err)
			return nil, fmt.Errorf("%w: chunk %d: %v", ErrEmbeddingFailed, i, err)
		}
		vectors[i] = vec
	}
	return vectors, nil
}
