// Package embedding provides a client for interacting with embedding models.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/CTpeJLok/ai-chat/internal/config"
	"github.com/CTpeJLok/ai-chat/pkg/log"
)

// Dimensions 是系统全程固定的向量维度，与 Elasticsearch 索引映射一致。
const Dimensions = 1536

// 调用方据此区分失败类别。本客户端不做任何重试，重试策略归调用方。
var (
	// ErrUnavailable 表示网络/传输层失败。
	ErrUnavailable = errors.New("embedding service unavailable")
	// ErrUpstream 表示上游返回了非 200 响应。
	ErrUpstream = errors.New("embedding service returned an error")
	// ErrMalformed 表示响应中缺少预期的向量数据。
	ErrMalformed = errors.New("malformed embedding response")
)

// Client defines the interface for an embedding client.
type Client interface {
	CreateEmbedding(ctx context.Context, text string) ([]float32, error)
}

type openAICompatibleClient struct {
	cfg    config.EmbeddingConfig
	client *http.Client
}

// NewClient creates a new embedding client.
// 配置中的维度与系统固定维度不一致属于配置错误，直接拒绝启动。
func NewClient(cfg config.EmbeddingConfig) (Client, error) {
	if cfg.Dimensions != Dimensions {
		return nil, fmt.Errorf("embedding dimensions must be %d, got %d", Dimensions, cfg.Dimensions)
	}
	return &openAICompatibleClient{
		cfg:    cfg,
		client: &http.Client{},
	}, nil
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// CreateEmbedding calls the OpenAI-compatible API to get the vector for a given text.
func (c *openAICompatibleClient) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	log.Infof("[EmbeddingClient] 开始调用 Embedding API, model: %s, input_len: %d", c.cfg.Model, len(text))
	reqBody := embeddingRequest{
		Model: c.cfg.Model,
		Input: []string{text},
	}

	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.cfg.BaseURL+"/embeddings", bytes.NewReader(reqBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		log.Errorf("[EmbeddingClient] 调用 Embedding API 失败, error: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Errorf("[EmbeddingClient] Embedding API 返回非 200 状态码: %s", resp.Status)
		return nil, fmt.Errorf("%w: %s", ErrUpstream, resp.Status)
	}

	var embeddingResp embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&embeddingResp); err != nil {
		log.Errorf("[EmbeddingClient] 解析 Embedding API 响应失败, error: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if len(embeddingResp.Data) == 0 || len(embeddingResp.Data[0].Embedding) == 0 {
		log.Warnf("[EmbeddingClient] Embedding API 返回了空的向量数据")
		return nil, fmt.Errorf("%w: empty vector", ErrMalformed)
	}

	vector := embeddingResp.Data[0].Embedding
	log.Infof("[EmbeddingClient] 成功从 Embedding API 获取向量, 维度: %d", len(vector))
	return vector, nil
}
