// Package repository 提供了数据访问层的实现。
package repository

import (
	"github.com/CTpeJLok/ai-chat/internal/model"

	"gorm.io/gorm"
)

// OrganizationRepository 定义了对 organization 表的数据操作接口。
type OrganizationRepository interface {
	Create(org *model.Organization) error
	FindAll() ([]*model.Organization, error)
	FindByID(id uint) (*model.Organization, error)
	Delete(id uint) error
}

type organizationRepository struct {
	db *gorm.DB
}

// NewOrganizationRepository 创建一个新的 OrganizationRepository 实例。
func NewOrganizationRepository(db *gorm.DB) OrganizationRepository {
	return &organizationRepository{db: db}
}

func (r *organizationRepository) Create(org *model.Organization) error {
	return r.db.Create(org).Error
}

// FindAll 按名称排序返回全部组织。
func (r *organizationRepository) FindAll() ([]*model.Organization, error) {
	var orgs []*model.Organization
	err := r.db.Order("name").Find(&orgs).Error
	return orgs, err
}

func (r *organizationRepository) FindByID(id uint) (*model.Organization, error) {
	var org model.Organization
	if err := r.db.First(&org, id).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *organizationRepository) Delete(id uint) error {
	return r.db.Delete(&model.Organization{}, id).Error
}
