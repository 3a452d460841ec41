package index

import (
	"context"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/google/uuid"

	"pdf-qa-go/internal/model"
	"pdf-qa-go/pkg/embedding"
	"pdf-qa-go/pkg/es"
	"pdf-qa-go/pkg/log"
)

// ElasticBuilder 把所有文档的分块写入同一个 Elasticsearch 索引，每次构建用 build_id 区分。
type ElasticBuilder struct {
	client    *elasticsearch.Client
	indexName string
	embedder  embedding.Client
}

// NewElasticBuilder 创建 ElasticBuilder，索引需已由 es.EnsureIndex 创建。
func NewElasticBuilder(client *elasticsearch.Client, indexName string, embedder embedding.Client) *ElasticBuilder {
	return &ElasticBuilder{client: client, indexName: indexName, embedder: embedder}
}

// Build 写入失败时删除该文档已写入的分块。
func (b *ElasticBuilder) Build(ctx context.Context, documentID string, chunks []model.Chunk) (Index, error) {
	log.Infof("[ElasticIndex] 开始构建索引, DocumentID: %s, 分块数: %d", documentID, len(chunks))
	vectors, err := embedAll(ctx, b.embedder, chunks)
	if err != nil {
		return nil, err
	}

	idx := &elasticIndex{
		client:     b.client,
		indexName:  b.indexName,
		documentID: documentID,
		buildID:    uuid.NewString(),
		count:      len(chunks),
	}
	for i, c := range chunks {
		doc := model.EsChunk{
			VectorID:     fmt.Sprintf("%s_%s_%d", documentID, idx.buildID[:8], i),
			DocumentID:   documentID,
			BuildID:      idx.buildID,
			Position:     i,
			TextContent:  c.Content,
			Vector:       vectors[i],
			ModelVersion: b.embedder.ModelVersion(),
			Source:       c.Metadata.Source,
			PageNumber:   c.Metadata.PageNumber,
		}
		if err := es.IndexChunk(ctx, b.client, b.indexName, doc); err != nil {
			b.cleanup(idx)
			return nil, fmt.Errorf("index chunk %d: %w", i, err)
		}
	}
	if err := es.Refresh(ctx, b.client, b.indexName); err != nil {
		b.cleanup(idx)
		return nil, err
	}
	log.Infof("[ElasticIndex] 索引构建完成, DocumentID: %s", documentID)
	return idx, nil
}

func (b *ElasticBuilder) cleanup(idx *elasticIndex) {
	if err := idx.Drop(context.Background()); err != nil {
		log.Errorf("[ElasticIndex] 清理未完成的索引数据失败, DocumentID: %s, Error: %v", idx.documentID, err)
	}
}

type elasticIndex struct {
	client     *elasticsearch.Client
	indexName  string
	documentID string
	buildID    string
	count      int
}

func (i *elasticIndex) Len() int {
	return i.count
}

// Search 把 ES 的 cosine 得分 (1+cos)/2 换算成余弦距离 1-cos。
func (i *elasticIndex) Search(ctx context.Context, vector []float32, k int) ([]Hit, error) {
	if k > i.count {
		k = i.count
	}
	if k <= 0 {
		return nil, nil
	}
	// 取回整个构建的分块再截断，距离相同的分块按位置取舍
	knn, err := es.SearchKNN(ctx, i.client, i.indexName, i.buildID, vector, i.count)
	if err != nil {
		return nil, err
	}
	hits := make([]Hit, 0, len(knn))
	for _, h := range knn {
		hits = append(hits, Hit{Position: h.Position, Distance: float32(2 * (1 - h.Score))})
	}
	SortHits(hits)
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (i *elasticIndex) Drop(ctx context.Context) error {
	return es.DeleteByBuildID(ctx, i.client, i.indexName, i.buildID)
}
