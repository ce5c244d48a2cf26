// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/CTpeJLok/ai-chat/internal/repository"
	"github.com/CTpeJLok/ai-chat/internal/textsplit"
	"github.com/CTpeJLok/ai-chat/pkg/embedding"
	"github.com/CTpeJLok/ai-chat/pkg/es"
	"github.com/CTpeJLok/ai-chat/pkg/log"
)

const (
	// topSources 是一次检索最终返回的文档数上限。
	topSources = 5
	// recallK 是从向量索引召回的候选块数量：按文档聚合取最优块后
	// 还要能剩下足够的文档，所以召回远多于 topSources。
	recallK = 50
)

// VectorSearcher 是检索服务需要的近邻查询能力。
type VectorSearcher interface {
	SearchNearest(ctx context.Context, organizationID uint, vector []float32, k int) ([]es.Hit, error)
}

// RetrievalService 把用户查询转换为按相关度排序的来源文档全文。
type RetrievalService interface {
	// Retrieve 返回至多 topSources 篇文档的全文，按最优块距离升序排列。
	// 组织内没有任何向量时返回空切片，不是错误；
	// 查询向量化失败对本次请求是致命的，错误向上传递。
	Retrieve(ctx context.Context, organizationID uint, query string) ([]string, error)
}

type retrievalService struct {
	embeddingClient embedding.Client
	searcher        VectorSearcher
	docRepo         repository.DocumentRepository
}

// NewRetrievalService 创建一个新的 RetrievalService 实例。
func NewRetrievalService(embeddingClient embedding.Client, searcher VectorSearcher, docRepo repository.DocumentRepository) RetrievalService {
	return &retrievalService{
		embeddingClient: embeddingClient,
		searcher:        searcher,
		docRepo:         docRepo,
	}
}

func (s *retrievalService) Retrieve(ctx context.Context, organizationID uint, query string) ([]string, error) {
	log.Infof("[RetrievalService] 开始检索, organizationID: %d, query: '%s'", organizationID, query)

	// 1. 归一化并向量化查询，与入库路径保持同一处理
	normalized := textsplit.Normalize(query)
	vector, err := s.embeddingClient.CreateEmbedding(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to create query embedding: %w", err)
	}

	// 2. 组织范围内近邻检索
	hits, err := s.searcher.SearchNearest(ctx, organizationID, vector, recallK)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	log.Infof("[RetrievalService] 召回 %d 个候选块", len(hits))
	if len(hits) == 0 {
		return []string{}, nil
	}

	// 3. 按文档聚合，每篇文档只保留其最优（最小距离）块
	best := make(map[uint]float64)
	for _, h := range hits {
		if d, ok := best[h.DocumentID]; !ok || h.Distance < d {
			best[h.DocumentID] = h.Distance
		}
	}

	type ranked struct {
		documentID uint
		distance   float64
	}
	rankedDocs := make([]ranked, 0, len(best))
	for id, d := range best {
		rankedDocs = append(rankedDocs, ranked{documentID: id, distance: d})
	}
	// 距离升序；距离相同时按文档 ID 升序，保证排序确定
	sort.Slice(rankedDocs, func(i, j int) bool {
		if rankedDocs[i].distance != rankedDocs[j].distance {
			return rankedDocs[i].distance < rankedDocs[j].distance
		}
		return rankedDocs[i].documentID < rankedDocs[j].documentID
	})
	if len(rankedDocs) > topSources {
		rankedDocs = rankedDocs[:topSources]
	}

	// 4. 取回入选文档的全文（不是命中的块），换行压成空格
	ids := make([]uint, 0, len(rankedDocs))
	for _, r := range rankedDocs {
		ids = append(ids, r.documentID)
	}
	docs, err := s.docRepo.FindByIDs(ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load source documents: %w", err)
	}
	textByID := make(map[uint]string, len(docs))
	for _, d := range docs {
		textByID[d.ID] = strings.ReplaceAll(d.Text, "\n", " ")
	}

	results := make([]string, 0, len(rankedDocs))
	for _, r := range rankedDocs {
		text, ok := textByID[r.documentID]
		if !ok {
			log.Warnf("[RetrievalService] 命中的文档 %d 在数据库中不存在, 跳过", r.documentID)
			continue
		}
		log.Infof("[RetrievalService] SOURCE documentID=%d distance=%f", r.documentID, r.distance)
		results = append(results, text)
	}

	log.Infof("[RetrievalService] 检索完成, 返回 %d 篇来源文档", len(results))
	return results, nil
}
