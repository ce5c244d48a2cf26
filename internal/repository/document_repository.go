package repository

import (
	"github.com/CTpeJLok/ai-chat/internal/model"

	"gorm.io/gorm"
)

// DocumentRepository 定义了对 document 表的数据操作接口。
type DocumentRepository interface {
	Create(doc *model.Document) error
	FindByID(id uint) (*model.Document, error)
	FindByIDs(ids []uint) ([]*model.Document, error)
	FindByOrganization(organizationID uint) ([]*model.Document, error)
	// MarkEmbedded 在入库管道全部成功后一次性写入提取文本并置位完成标记。
	MarkEmbedded(id uint, text string) error
	Delete(id uint) error
}

type documentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository 创建一个新的 DocumentRepository 实例。
func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) Create(doc *model.Document) error {
	return r.db.Create(doc).Error
}

func (r *documentRepository) FindByID(id uint) (*model.Document, error) {
	var doc model.Document
	if err := r.db.First(&doc, id).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepository) FindByIDs(ids []uint) ([]*model.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var docs []*model.Document
	err := r.db.Where("id IN ?", ids).Find(&docs).Error
	return docs, err
}

// FindByOrganization 按名称排序返回组织下的全部文档。
func (r *documentRepository) FindByOrganization(organizationID uint) ([]*model.Document, error) {
	var docs []*model.Document
	err := r.db.Where("organization_id = ?", organizationID).Order("name").Find(&docs).Error
	return docs, err
}

func (r *documentRepository) MarkEmbedded(id uint, text string) error {
	return r.db.Model(&model.Document{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"text":                text,
			"embeddings_complete": true,
		}).Error
}

func (r *documentRepository) Delete(id uint) error {
	return r.db.Delete(&model.Document{}, id).Error
}
