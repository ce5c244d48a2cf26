package service

import (
	"context"

	"github.com/CTpeJLok/ai-chat/internal/model"
	"github.com/CTpeJLok/ai-chat/internal/pipeline"
	"github.com/CTpeJLok/ai-chat/internal/repository"
	"github.com/CTpeJLok/ai-chat/pkg/kafka"
	"github.com/CTpeJLok/ai-chat/pkg/log"
	"github.com/CTpeJLok/ai-chat/pkg/tasks"
)

// VectorRemover 是文档删除时级联清理向量索引需要的能力。
type VectorRemover interface {
	DeleteByDocument(ctx context.Context, documentID uint) error
}

// ObjectReadRemover 是下载与级联清理需要的对象存储能力。
type ObjectReadRemover interface {
	GetDocument(ctx context.Context, documentID uint) ([]byte, error)
	RemoveDocument(ctx context.Context, documentID uint) error
}

// DocumentService 定义了文档操作的接口。
type DocumentService interface {
	// Create 持久化文档后触发一次入库。入库失败只会体现在文档的
	// embeddings_complete 标记上，绝不影响创建调用本身。
	Create(ctx context.Context, doc *model.Document) error
	Get(id uint) (*model.Document, error)
	ListByOrganization(organizationID uint) ([]*model.Document, error)
	// Download 返回文档解码后的原始字节。
	Download(ctx context.Context, id uint) (*model.Document, []byte, error)
	// Delete 级联清理向量行、向量索引与对象存储中的原始字节。
	Delete(ctx context.Context, id uint) error
}

type documentService struct {
	docRepo   repository.DocumentRepository
	embRepo   repository.EmbeddingRepository
	processor *pipeline.Processor
	remover   VectorRemover
	store     ObjectReadRemover
	async     bool
}

// NewDocumentService 创建一个新的 DocumentService 实例。
func NewDocumentService(
	docRepo repository.DocumentRepository,
	embRepo repository.EmbeddingRepository,
	processor *pipeline.Processor,
	remover VectorRemover,
	store ObjectReadRemover,
	async bool,
) DocumentService {
	return &documentService{
		docRepo:   docRepo,
		embRepo:   embRepo,
		processor: processor,
		remover:   remover,
		store:     store,
		async:     async,
	}
}

func (s *documentService) Create(ctx context.Context, doc *model.Document) error {
	if err := s.docRepo.Create(doc); err != nil {
		return err
	}

	// 文档已创建成功，入库是独立的后续动作
	if s.async {
		if err := kafka.ProduceDocumentTask(tasks.DocumentTask{DocumentID: doc.ID}); err != nil {
			log.Errorf("[DocumentService] 投递入库任务失败, documentID: %d, error: %v", doc.ID, err)
		}
	} else {
		s.processor.Ingest(ctx, doc.ID)
	}
	return nil
}

func (s *documentService) Get(id uint) (*model.Document, error) {
	return s.docRepo.FindByID(id)
}

func (s *documentService) ListByOrganization(organizationID uint) ([]*model.Document, error) {
	return s.docRepo.FindByOrganization(organizationID)
}

func (s *documentService) Download(ctx context.Context, id uint) (*model.Document, []byte, error) {
	doc, err := s.docRepo.FindByID(id)
	if err != nil {
		return nil, nil, err
	}

	// 优先走对象存储（入库时写入）；缺失时退回解码内联的 base64
	raw, err := s.store.GetDocument(ctx, id)
	if err != nil || len(raw) == 0 {
		if err != nil {
			log.Warnf("[DocumentService] 从对象存储读取失败, 退回内联内容, documentID: %d, error: %v", id, err)
		}
		raw, err = pipeline.DecodeDataURI(doc.B64)
		if err != nil {
			return nil, nil, err
		}
	}
	return doc, raw, nil
}

func (s *documentService) Delete(ctx context.Context, id uint) error {
	if err := s.embRepo.DeleteByDocumentID(id); err != nil {
		return err
	}
	if err := s.remover.DeleteByDocument(ctx, id); err != nil {
		log.Errorf("[DocumentService] 清理向量索引失败, documentID: %d, error: %v", id, err)
	}
	if err := s.store.RemoveDocument(ctx, id); err != nil {
		log.Warnf("[DocumentService] 清理对象存储失败, documentID: %d, error: %v", id, err)
	}
	return s.docRepo.Delete(id)
}
