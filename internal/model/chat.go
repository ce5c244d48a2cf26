package model

import "time"

// Chat 对应于数据库中的 'chat' 表，是归属于某个组织的一段对话。
// 主键使用创建时生成的 UUID，而不是自增序号。
type Chat struct {
	ID             string    `gorm:"type:char(36);primaryKey" json:"id"`
	OrganizationID uint      `gorm:"index;not null" json:"organizationId"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Chat) TableName() string {
	return "chat"
}

// Message 的 Role 取值。
const (
	RoleUnknown   = "unknown"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message 对应于数据库中的 'message' 表，是聊天内的一轮发言。
// 消息创建后不可修改；同一聊天内的顺序即插入顺序（ID 升序）。
type Message struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ChatID    string    `gorm:"type:char(36);index;not null" json:"chatId"`
	Role      string    `gorm:"type:varchar(20);not null;default:unknown" json:"role"`
	Text      string    `gorm:"type:text" json:"text"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Message) TableName() string {
	return "message"
}
