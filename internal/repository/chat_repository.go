package repository

import (
	"github.com/CTpeJLok/ai-chat/internal/model"

	"gorm.io/gorm"
)

// ChatRepository 定义了对 chat 与 message 表的数据操作接口。
// 消息是只追加的：没有更新或删除单条消息的入口。
type ChatRepository interface {
	Create(chat *model.Chat) error
	FindByID(id string) (*model.Chat, error)
	FindByOrganization(organizationID uint) ([]*model.Chat, error)
	CreateMessage(msg *model.Message) error
	// ListMessages 按创建顺序（ID 升序）返回聊天内的全部消息。
	ListMessages(chatID string) ([]*model.Message, error)
}

type chatRepository struct {
	db *gorm.DB
}

// NewChatRepository 创建一个新的 ChatRepository 实例。
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

func (r *chatRepository) Create(chat *model.Chat) error {
	return r.db.Create(chat).Error
}

func (r *chatRepository) FindByID(id string) (*model.Chat, error) {
	var chat model.Chat
	if err := r.db.Where("id = ?", id).First(&chat).Error; err != nil {
		return nil, err
	}
	return &chat, nil
}

func (r *chatRepository) FindByOrganization(organizationID uint) ([]*model.Chat, error) {
	var chats []*model.Chat
	err := r.db.Where("organization_id = ?", organizationID).Order("created_at desc").Find(&chats).Error
	return chats, err
}

func (r *chatRepository) CreateMessage(msg *model.Message) error {
	return r.db.Create(msg).Error
}

func (r *chatRepository) ListMessages(chatID string) ([]*model.Message, error) {
	var msgs []*model.Message
	err := r.db.Where("chat_id = ?", chatID).Order("id").Find(&msgs).Error
	return msgs, err
}
