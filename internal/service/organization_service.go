package service

import (
	"github.com/CTpeJLok/ai-chat/internal/model"
	"github.com/CTpeJLok/ai-chat/internal/repository"
)

// OrganizationService 定义了组织（租户）操作的接口。
// 组织的删除在存储层级联，核心逻辑不感知。
type OrganizationService interface {
	Create(name string) (*model.Organization, error)
	List() ([]*model.Organization, error)
	Get(id uint) (*model.Organization, error)
	Delete(id uint) error
}

type organizationService struct {
	orgRepo repository.OrganizationRepository
}

// NewOrganizationService 创建一个新的 OrganizationService 实例。
func NewOrganizationService(orgRepo repository.OrganizationRepository) OrganizationService {
	return &organizationService{orgRepo: orgRepo}
}

func (s *organizationService) Create(name string) (*model.Organization, error) {
	org := &model.Organization{Name: name}
	if err := s.orgRepo.Create(org); err != nil {
		return nil, err
	}
	return org, nil
}

func (s *organizationService) List() ([]*model.Organization, error) {
	return s.orgRepo.FindAll()
}

func (s *organizationService) Get(id uint) (*model.Organization, error) {
	return s.orgRepo.FindByID(id)
}

func (s *organizationService) Delete(id uint) error {
	return s.orgRepo.Delete(id)
}
