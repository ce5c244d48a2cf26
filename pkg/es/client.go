// Package es 提供了与 Elasticsearch 交互的客户端功能。
package es

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/CTpeJLok/ai-chat/internal/config"
	"github.com/CTpeJLok/ai-chat/internal/model"
	"github.com/CTpeJLok/ai-chat/pkg/log"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

var ESClient *elasticsearch.Client

// InitES 初始化 Elasticsearch 客户端
func InitES(esCfg config.ElasticsearchConfig) error {
	cfg := elasticsearch.Config{
		Addresses: []string{esCfg.Addresses},
		Username:  esCfg.Username,
		Password:  esCfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return err
	}
	ESClient = client
	return createIndexIfNotExists(esCfg.IndexName)
}

// createIndexIfNotExists 检查索引是否存在，如果不存在则创建它
func createIndexIfNotExists(indexName string) error {
	res, err := ESClient.Indices.Exists([]string{indexName})
	if err != nil {
		log.Errorf("检查索引是否存在时出错: %v", err)
		return err
	}
	if !res.IsError() && res.StatusCode == http.StatusOK {
		log.Infof("索引 '%s' 已存在", indexName)
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		log.Errorf("检查索引 '%s' 是否存在时收到意外的状态码: %d", indexName, res.StatusCode)
		return fmt.Errorf("检查索引是否存在时收到意外的状态码: %d", res.StatusCode)
	}

	// 向量维度固定 1536，相似度使用 l2_norm：检索按欧氏距离升序排序
	mapping := `{
		"mappings": {
			"properties": {
				"embedding_id": { "type": "long" },
				"document_id": { "type": "long" },
				"organization_id": { "type": "long" },
				"chunk_id": { "type": "integer" },
				"text": { "type": "text" },
				"vector": {
					"type": "dense_vector",
					"dims": 1536,
					"index": true,
					"similarity": "l2_norm"
				}
			}
		}
	}`

	res, err = ESClient.Indices.Create(
		indexName,
		ESClient.Indices.Create.WithBody(strings.NewReader(mapping)),
	)

	if err != nil {
		log.Errorf("创建索引 '%s' 失败: %v", indexName, err)
		return err
	}
	if res.IsError() {
		log.Errorf("创建索引 '%s' 时 Elasticsearch 返回错误: %s", indexName, res.String())
		return errors.New("创建索引时 Elasticsearch 返回错误")
	}

	log.Infof("索引 '%s' 创建成功", indexName)
	return nil
}

// IndexEmbedding 将单个向量文档索引到 Elasticsearch。
func IndexEmbedding(ctx context.Context, indexName string, doc model.EsEmbedding) error {
	docBytes, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      indexName,
		DocumentID: strconv.FormatUint(uint64(doc.EmbeddingID), 10),
		Body:       bytes.NewReader(docBytes),
		Refresh:    "true",
	}

	res, err := req.Do(ctx, ESClient)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Errorf("索引向量文档到 Elasticsearch 出错: %s", res.String())
		return errors.New("failed to index embedding")
	}

	return nil
}

// DeleteByDocument 删除某文档的所有向量（文档删除时级联调用）。
func DeleteByDocument(ctx context.Context, indexName string, documentID uint) error {
	query := fmt.Sprintf(`{"query":{"term":{"document_id":%d}}}`, documentID)
	res, err := ESClient.DeleteByQuery(
		[]string{indexName},
		strings.NewReader(query),
		ESClient.DeleteByQuery.WithContext(ctx),
		ESClient.DeleteByQuery.WithRefresh(true),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Errorf("按文档删除向量出错: %s", res.String())
		return errors.New("failed to delete embeddings by document")
	}
	return nil
}

// Hit 是一次近邻检索的单条命中，Distance 为与查询向量的 L2 距离。
type Hit struct {
	DocumentID uint
	ChunkID    int
	Distance   float64
}

// SearchNearest 在指定组织范围内检索与查询向量最近的 k 个向量。
// 组织过滤在 kNN 查询内完成，跨组织的向量绝不会出现在结果里。
func SearchNearest(ctx context.Context, indexName string, organizationID uint, vector []float32, k int) ([]Hit, error) {
	esQuery := map[string]interface{}{
		"knn": map[string]interface{}{
			"field":          "vector",
			"query_vector":   vector,
			"k":              k,
			"num_candidates": k * 10,
			"filter": map[string]interface{}{
				"term": map[string]interface{}{
					"organization_id": organizationID,
				},
			},
		},
		"size":    k,
		"_source": []string{"document_id", "chunk_id"},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(esQuery); err != nil {
		return nil, fmt.Errorf("failed to encode es query: %w", err)
	}

	res, err := ESClient.Search(
		ESClient.Search.WithContext(ctx),
		ESClient.Search.WithIndex(indexName),
		ESClient.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch returned an error: %s", res.String())
	}

	var esResponse struct {
		Hits struct {
			Hits []struct {
				Score  float64 `json:"_score"`
				Source struct {
					DocumentID uint `json:"document_id"`
					ChunkID    int  `json:"chunk_id"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}

	if err := json.NewDecoder(res.Body).Decode(&esResponse); err != nil {
		return nil, fmt.Errorf("failed to decode es response: %w", err)
	}

	hits := make([]Hit, 0, len(esResponse.Hits.Hits))
	for _, h := range esResponse.Hits.Hits {
		hits = append(hits, Hit{
			DocumentID: h.Source.DocumentID,
			ChunkID:    h.Source.ChunkID,
			Distance:   scoreToDistance(h.Score),
		})
	}
	return hits, nil
}

// scoreToDistance 把 l2_norm 相似度分数换算回 L2 距离。
// ES 的 l2_norm 评分公式为 score = 1 / (1 + d^2)。
func scoreToDistance(score float64) float64 {
	if score <= 0 {
		return math.MaxFloat64
	}
	d2 := 1/score - 1
	if d2 < 0 {
		d2 = 0
	}
	return math.Sqrt(d2)
}

// Index 绑定索引名，为上层提供可注入的检索/写入句柄。
type Index struct {
	name string
}

// NewIndex 创建一个绑定到指定索引名的句柄。
func NewIndex(name string) *Index {
	return &Index{name: name}
}

func (i *Index) IndexEmbedding(ctx context.Context, doc model.EsEmbedding) error {
	return IndexEmbedding(ctx, i.name, doc)
}

func (i *Index) DeleteByDocument(ctx context.Context, documentID uint) error {
	return DeleteByDocument(ctx, i.name, documentID)
}

func (i *Index) SearchNearest(ctx context.Context, organizationID uint, vector []float32, k int) ([]Hit, error) {
	return SearchNearest(ctx, i.name, organizationID, vector, k)
}
