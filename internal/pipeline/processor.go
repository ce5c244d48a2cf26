// Package pipeline 定义了文档入库（解码、切块、向量化）的核心流程。
package pipeline

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/CTpeJLok/ai-chat/internal/config"
	"github.com/CTpeJLok/ai-chat/internal/model"
	"github.com/CTpeJLok/ai-chat/internal/repository"
	"github.com/CTpeJLok/ai-chat/internal/textsplit"
	"github.com/CTpeJLok/ai-chat/pkg/embedding"
	"github.com/CTpeJLok/ai-chat/pkg/log"
	"github.com/CTpeJLok/ai-chat/pkg/tasks"
)

// ErrBadDataURI 表示文档内容不是预期的 data URI 形态（缺少 ";base64," 分隔符）。
var ErrBadDataURI = errors.New("document content is not a base64 data uri")

const dataURIDelimiter = ";base64,"

// VectorIndex 是入库管道需要的向量索引写入能力。
type VectorIndex interface {
	IndexEmbedding(ctx context.Context, doc model.EsEmbedding) error
}

// ObjectStore 是入库管道需要的原始字节存储能力。
type ObjectStore interface {
	PutDocument(ctx context.Context, documentID uint, data []byte, contentType string) error
}

// Processor 封装了文档入库的所有依赖和逻辑。
type Processor struct {
	embeddingClient embedding.Client
	docRepo         repository.DocumentRepository
	embRepo         repository.EmbeddingRepository
	index           VectorIndex
	store           ObjectStore
	guard           Guard
	ingestCfg       config.IngestConfig
}

// NewProcessor 创建一个新的 Processor 实例。
func NewProcessor(
	embeddingClient embedding.Client,
	docRepo repository.DocumentRepository,
	embRepo repository.EmbeddingRepository,
	index VectorIndex,
	store ObjectStore,
	guard Guard,
	ingestCfg config.IngestConfig,
) *Processor {
	return &Processor{
		embeddingClient: embeddingClient,
		docRepo:         docRepo,
		embRepo:         embRepo,
		index:           index,
		store:           store,
		guard:           guard,
		ingestCfg:       ingestCfg,
	}
}

// Ingest 是文档创建方使用的入口：执行入库并把任何失败吞掉，只留日志。
// 上传成功与入库成功刻意解耦，入库失败绝不反馈给文档创建调用。
func (p *Processor) Ingest(ctx context.Context, documentID uint) {
	if err := p.Process(ctx, tasks.DocumentTask{DocumentID: documentID}); err != nil {
		log.Errorf("[Processor] 文档入库失败, documentID: %d, error: %v", documentID, err)
	}
}

// Process 是文档入库的主函数。
// 失败时文档保留已提交的部分向量行，embeddings_complete 保持 false。
func (p *Processor) Process(ctx context.Context, task tasks.DocumentTask) error {
	acquired, err := p.guard.TryAcquire(ctx, task.DocumentID)
	if err != nil {
		return err
	}
	if !acquired {
		log.Infof("[Processor] 文档已入库过，跳过, documentID: %d", task.DocumentID)
		return nil
	}

	log.Infof("[Processor] 开始文档入库, documentID: %d", task.DocumentID)
	if err := p.process(ctx, task.DocumentID); err != nil {
		p.guard.RecordFailure(ctx, task.DocumentID)
		return err
	}
	log.Infof("[Processor] 文档入库成功完成, documentID: %d", task.DocumentID)
	return nil
}

func (p *Processor) process(ctx context.Context, documentID uint) error {
	doc, err := p.docRepo.FindByID(documentID)
	if err != nil {
		return fmt.Errorf("查找文档失败: %w", err)
	}

	// 1. 先为文档名生成一条向量记录，让检索也能命中文件名语义
	log.Infof("[Processor] 步骤1: 向量化文档名, name: %s", doc.Name)
	if err := p.embedAndStore(ctx, doc, 0, doc.Name); err != nil {
		return fmt.Errorf("文档名向量化失败: %w", err)
	}

	// 2. 解码 data URI 并提取纯文本
	log.Info("[Processor] 步骤2: 解码文档内容")
	raw, err := DecodeDataURI(doc.B64)
	if err != nil {
		return err
	}

	if err := p.store.PutDocument(ctx, doc.ID, raw, doc.Mime); err != nil {
		return fmt.Errorf("保存原始文件到对象存储失败: %w", err)
	}

	text, err := extractText(raw, doc.Mime)
	if err != nil {
		return err
	}
	log.Infof("[Processor] 步骤2: 文本提取完成, 内容长度: %d 字符", utf8.RuneCountInString(text))

	// 3. 归一化并切块
	chunks := textsplit.Split(textsplit.Normalize(text), p.ingestCfg.ChunkSize, p.ingestCfg.OverlapSize)
	log.Infof("[Processor] 步骤3: 文本分块完成, chunkSize: %d, overlapSize: %d, 共 %d 个分块",
		p.ingestCfg.ChunkSize, p.ingestCfg.OverlapSize, len(chunks))

	// 4. 逐块向量化并写入，任何一块失败即中止余下的分块
	for i, chunk := range chunks {
		if err := p.embedAndStore(ctx, doc, i+1, chunk); err != nil {
			return fmt.Errorf("分块 %d 向量化失败: %w", i+1, err)
		}
		log.Infof("[Processor] 分块 %d/%d 向量化并索引成功", i+1, len(chunks))
	}

	// 5. 全部成功后写入提取文本并置位完成标记
	if err := p.docRepo.MarkEmbedded(doc.ID, text); err != nil {
		return fmt.Errorf("更新文档完成标记失败: %w", err)
	}
	return nil
}

// embedAndStore 为一段文本生成向量，先落库文本行，再把向量写入索引。
func (p *Processor) embedAndStore(ctx context.Context, doc *model.Document, chunkID int, text string) error {
	vector, err := p.embeddingClient.CreateEmbedding(ctx, text)
	if err != nil {
		return err
	}

	row := &model.Embedding{
		DocumentID: doc.ID,
		ChunkID:    chunkID,
		Text:       text,
	}
	if err := p.embRepo.Create(row); err != nil {
		return fmt.Errorf("保存向量记录失败: %w", err)
	}

	return p.index.IndexEmbedding(ctx, model.EsEmbedding{
		EmbeddingID:    row.ID,
		DocumentID:     doc.ID,
		OrganizationID: doc.OrganizationID,
		ChunkID:        chunkID,
		Text:           text,
		Vector:         vector,
	})
}

// DecodeDataURI 解析 <prefix>;base64,<payload> 形态的文档内容。
func DecodeDataURI(b64 string) ([]byte, error) {
	parts := strings.SplitN(b64, dataURIDelimiter, 2)
	if len(parts) != 2 {
		return nil, ErrBadDataURI
	}
	raw, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadDataURI, err)
	}
	return raw, nil
}

// extractText 从原始字节中提取纯文本。
// 目前只是占位策略：PDF 等二进制格式产出空文本，其余按 UTF-8 解码。
func extractText(raw []byte, mime string) (string, error) {
	if mime == "application/pdf" {
		return "", nil
	}
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("文档内容不是有效的 UTF-8 文本, mime: %s", mime)
	}
	return string(raw), nil
}
