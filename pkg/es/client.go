// Package es 提供了与 Elasticsearch 交互的客户端功能。
package es

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"pdf-qa-go/internal/config"
	"pdf-qa-go/internal/model"
	"pdf-qa-go/pkg/log"
)

var ESClient *elasticsearch.Client

// InitES 初始化 Elasticsearch 客户端，并按向量维度 dims 确保分块索引存在。
func InitES(esCfg config.ElasticsearchConfig, dims int) error {
	client, err := NewClient(esCfg)
	if err != nil {
		return err
	}
	ESClient = client
	return EnsureIndex(context.Background(), client, esCfg.IndexName, dims)
}

// NewClient 创建客户端但不做任何请求。
func NewClient(esCfg config.ElasticsearchConfig) (*elasticsearch.Client, error) {
	return elasticsearch.NewClient(elasticsearch.Config{
		Addresses: strings.Split(esCfg.Addresses, ","),
		Username:  esCfg.Username,
		Password:  esCfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	})
}

// EnsureIndex 检查索引是否存在，如果不存在则创建它。
func EnsureIndex(ctx context.Context, client *elasticsearch.Client, indexName string, dims int) error {
	res, err := client.Indices.Exists([]string{indexName}, client.Indices.Exists.WithContext(ctx))
	if err != nil {
		log.Errorf("检查索引是否存在时出错: %v", err)
		return err
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		log.Infof("索引 '%s' 已存在", indexName)
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("检查索引是否存在时收到意外的状态码: %d", res.StatusCode)
	}

	// build_id 标识一次索引构建，用于过滤 kNN 与删除；position 指向内存中的分块下标
	mapping := fmt.Sprintf(`{
		"mappings": {
			"properties": {
				"vector_id": { "type": "keyword" },
				"document_id": { "type": "keyword" },
				"build_id": { "type": "keyword" },
				"position": { "type": "integer" },
				"text_content": { "type": "text" },
				"vector": {
					"type": "dense_vector",
					"dims": %d,
					"index": true,
					"similarity": "cosine"
				},
				"model_version": { "type": "keyword" },
				"source": { "type": "keyword" },
				"page_number": { "type": "integer" }
			}
		}
	}`, dims)

	res, err = client.Indices.Create(
		indexName,
		client.Indices.Create.WithContext(ctx),
		client.Indices.Create.WithBody(strings.NewReader(mapping)),
	)
	if err != nil {
		log.Errorf("创建索引 '%s' 失败: %v", indexName, err)
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		log.Errorf("创建索引 '%s' 时 Elasticsearch 返回错误: %s", indexName, res.String())
		return errors.New("创建索引时 Elasticsearch 返回错误")
	}

	log.Infof("索引 '%s' 创建成功", indexName)
	return nil
}

// IndexChunk 写入单个分块向量，不立即刷新。
func IndexChunk(ctx context.Context, client *elasticsearch.Client, indexName string, doc model.EsChunk) error {
	docBytes, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      indexName,
		DocumentID: doc.VectorID,
		Body:       bytes.NewReader(docBytes),
	}
	res, err := req.Do(ctx, client)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Errorf("索引文档到 Elasticsearch 出错: %s", res.String())
		return fmt.Errorf("failed to index chunk %s: %s", doc.VectorID, res.Status())
	}
	return nil
}

// Refresh 使已写入的分块可被搜索。
func Refresh(ctx context.Context, client *elasticsearch.Client, indexName string) error {
	res, err := client.Indices.Refresh(
		client.Indices.Refresh.WithContext(ctx),
		client.Indices.Refresh.WithIndex(indexName),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("failed to refresh index %s: %s", indexName, res.Status())
	}
	return nil
}

// KNNHit 是一次 kNN 搜索的命中项。
type KNNHit struct {
	Position int
	Score    float64
}

// SearchKNN 在一次构建 buildID 写入的分块中做 kNN 检索。
func SearchKNN(ctx context.Context, client *elasticsearch.Client, indexName, buildID string, vector []float32, k int) ([]KNNHit, error) {
	query := map[string]interface{}{
		"knn": map[string]interface{}{
			"field":          "vector",
			"query_vector":   vector,
			"k":              k,
			"num_candidates": k * 10,
			"filter": map[string]interface{}{
				"term": map[string]interface{}{"build_id": buildID},
			},
		},
		"_source": []string{"position"},
		"size":    k,
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return nil, fmt.Errorf("failed to encode es query: %w", err)
	}

	res, err := client.Search(
		client.Search.WithContext(ctx),
		client.Search.WithIndex(indexName),
		client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search failed: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		log.Errorf("[ES] 搜索返回错误, status: %s, body: %s", res.Status(), string(body))
		return nil, fmt.Errorf("elasticsearch returned an error: %s", res.Status())
	}

	var esResponse struct {
		Hits struct {
			Hits []struct {
				Source struct {
					Position int `json:"position"`
				} `json:"_source"`
				Score float64 `json:"_score"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&esResponse); err != nil {
		return nil, fmt.Errorf("failed to decode es response: %w", err)
	}

	hits := make([]KNNHit, 0, len(esResponse.Hits.Hits))
	for _, h := range esResponse.Hits.Hits {
		hits = append(hits, KNNHit{Position: h.Source.Position, Score: h.Score})
	}
	return hits, nil
}

// DeleteByBuildID 删除一次构建写入的全部分块。同一文档被重新入库时，旧构建的分块可以单独删除。
func DeleteByBuildID(ctx context.Context, client *elasticsearch.Client, indexName, buildID string) error {
	body := fmt.Sprintf(`{"query":{"term":{"build_id":%q}}}`, buildID)
	res, err := client.DeleteByQuery(
		[]string{indexName},
		strings.NewReader(body),
		client.DeleteByQuery.WithContext(ctx),
		client.DeleteByQuery.WithRefresh(true),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("failed to delete chunks of build %s: %s", buildID, res.Status())
	}
	return nil
}
