package index

import (
	"context"
	"fmt"
	"runtime"
	"strconv"

	"github.com/philippgille/chromem-go"

	"pdf-qa-go/internal/model"
	"pdf-qa-go/pkg/embedding"
	"pdf-qa-go/pkg/log"
)

// ChromemBuilder 为每个文档创建一个独立的进程内 chromem 集合，使用余弦相似度。
type ChromemBuilder struct {
	embedder embedding.Client
}

// NewChromemBuilder 创建 ChromemBuilder。
func NewChromemBuilder(embedder embedding.Client) *ChromemBuilder {
	return &ChromemBuilder{embedder: embedder}
}

func (b *ChromemBuilder) Build(ctx context.Context, documentID string, chunks []model.Chunk) (Index, error) {
	log.Infof("[ChromemIndex] 开始构建索引, DocumentID: %s, 分块数: %d", documentID, len(chunks))
	vectors, err := embedAll(ctx, b.embedder, chunks)
	if err != nil {
		return nil, err
	}

	db := chromem.NewDB()
	col, err := db.CreateCollection(documentID, nil, func(ctx context.Context, text string) ([]float32, error) {
		return b.embedder.CreateEmbedding(ctx, text)
	})
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	docs := make([]chromem.Document, len(chunks))
	for i, c := range chunks {
		docs[i] = chromem.Document{
			ID:        strconv.Itoa(i),
			Content:   c.Content,
			Embedding: vectors[i],
			Metadata: map[string]string{
				"page_number": strconv.Itoa(c.Metadata.PageNumber),
				"section":     c.Metadata.Section,
			},
		}
	}
	if len(docs) > 0 {
		if err := col.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
			return nil, fmt.Errorf("add documents: %w", err)
		}
	}
	log.Infof("[ChromemIndex] 索引构建完成, DocumentID: %s", documentID)
	return &chromemIndex{db: db, col: col, name: documentID}, nil
}

type chromemIndex struct {
	db   *chromem.DB
	col  *chromem.Collection
	name string
}

func (i *chromemIndex) Len() int {
	return i.col.Count()
}

// Search 的 k 会被截断到集合大小；距离为 1 - 余弦相似度。
// chromem 并发计算 top-k，距离相同时的取舍和顺序不固定，所以取回全部结果，
// 按 (距离, 分块位置) 排序后再截断。
func (i *chromemIndex) Search(ctx context.Context, vector []float32, k int) ([]Hit, error) {
	n := i.col.Count()
	if k > n {
		k = n
	}
	if k <= 0 {
		return nil, nil
	}
	results, err := i.col.QueryEmbedding(ctx, vector, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query collection %s: %w", i.name, err)
	}
	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		pos, err := strconv.Atoi(r.ID)
		if err != nil {
			return nil, fmt.Errorf("unexpected chunk id %q: %w", r.ID, err)
		}
		hits = append(hits, Hit{Position: pos, Distance: 1 - r.Similarity})
	}
	SortHits(hits)
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (i *chromemIndex) Drop(context.Context) error {
	return i.db.DeleteCollection(i.name)
}
