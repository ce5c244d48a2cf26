package repository

import (
	"github.com/CTpeJLok/ai-chat/internal/model"

	"gorm.io/gorm"
)

// EmbeddingRepository 定义了对 embedding 表（切块文本行）的数据操作接口。
// 记录一经创建不再修改，仅随所属文档删除而级联删除。
type EmbeddingRepository interface {
	Create(e *model.Embedding) error
	FindByDocumentID(documentID uint) ([]*model.Embedding, error)
	DeleteByDocumentID(documentID uint) error
}

type embeddingRepository struct {
	db *gorm.DB
}

// NewEmbeddingRepository 创建一个新的 EmbeddingRepository 实例。
func NewEmbeddingRepository(db *gorm.DB) EmbeddingRepository {
	return &embeddingRepository{db: db}
}

func (r *embeddingRepository) Create(e *model.Embedding) error {
	return r.db.Create(e).Error
}

func (r *embeddingRepository) FindByDocumentID(documentID uint) ([]*model.Embedding, error) {
	var rows []*model.Embedding
	err := r.db.Where("document_id = ?", documentID).Order("chunk_id").Find(&rows).Error
	return rows, err
}

func (r *embeddingRepository) DeleteByDocumentID(documentID uint) error {
	return r.db.Where("document_id = ?", documentID).Delete(&model.Embedding{}).Error
}
