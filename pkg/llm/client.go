// Package llm provides a client for interacting with Large Language Models.
package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/CTpeJLok/ai-chat/internal/config"
)

var (
	// ErrUnavailable 表示网络/传输层失败。
	ErrUnavailable = errors.New("chat service unavailable")
	// ErrUpstream 表示上游返回了非 200 响应。
	ErrUpstream = errors.New("chat service returned an error")
	// ErrStreamInterrupted 表示流在收到 [DONE] 结束标记前被中断。
	// 调用方必须把这种情况当作失败处理，而不是一个提前结束的短回答。
	ErrStreamInterrupted = errors.New("chat stream interrupted before completion")
)

// ChunkWriter 接收流式返回的增量文本。
// 每个增量在从上游读出后立即按序写入，写入失败会中断整个流。
type ChunkWriter interface {
	WriteChunk(text string) error
}

// Client defines the interface for an LLM client.
type Client interface {
	// StreamChatMessages 以 role-based 消息调用聊天接口，把每个增量按到达顺序
	// 写入 writer，直到上游发出 [DONE] 结束标记。未见结束标记即中断时返回
	// ErrStreamInterrupted。
	StreamChatMessages(ctx context.Context, messages []Message, writer ChunkWriter) error
}

type openAICompatibleClient struct {
	cfg    config.LLMConfig
	client *http.Client
}

// NewClient creates a new LLM client.
func NewClient(cfg config.LLMConfig) Client {
	return &openAICompatibleClient{
		cfg:    cfg,
		client: &http.Client{},
	}
}

// Message 表示一条角色消息
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Stream      bool      `json:"stream"`
	Temperature *float64  `json:"temperature,omitempty"`
	TopP        *float64  `json:"top_p,omitempty"`
	MaxTokens   *int      `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

func (c *openAICompatibleClient) StreamChatMessages(ctx context.Context, messages []Message, writer ChunkWriter) error {
	reqBody := chatRequest{
		Model:    c.cfg.Model,
		Messages: messages,
		Stream:   true,
	}
	// 从配置注入生成参数（若非零值）
	if c.cfg.Generation.Temperature != 0 {
		t := c.cfg.Generation.Temperature
		reqBody.Temperature = &t
	}
	if c.cfg.Generation.TopP != 0 {
		p := c.cfg.Generation.TopP
		reqBody.TopP = &p
	}
	if c.cfg.Generation.MaxTokens != 0 {
		m := c.cfg.Generation.MaxTokens
		reqBody.MaxTokens = &m
	}

	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.cfg.BaseURL+"/chat/completions", bytes.NewReader(reqBytes))
	if err != nil {
		return fmt.Errorf("failed to create chat request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: %s, body: %s", ErrUpstream, resp.Status, string(bodyBytes))
	}

	reader := bufio.NewReader(resp.Body)
	done := false
	for !done {
		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				// 连接在 [DONE] 之前关闭
				return ErrStreamInterrupted
			}
			return fmt.Errorf("%w: %v", ErrStreamInterrupted, err)
		}

		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if strings.TrimSpace(data) == "[DONE]" {
			done = true
			continue
		}

		var chunk chatResponse
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}

		if len(chunk.Choices) > 0 {
			content := chunk.Choices[0].Delta.Content
			if content == "" {
				continue
			}
			if err := writer.WriteChunk(content); err != nil {
				return fmt.Errorf("failed to write chunk: %w", err)
			}
		}
	}
	return nil
}
