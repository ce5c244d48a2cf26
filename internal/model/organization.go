// Package model 定义了与数据库表对应的 Go 结构体。
package model

import "time"

// Organization 对应于数据库中的 'organization' 表，是租户边界。
// 其下属的文档与聊天在删除组织时由外键级联清理。
type Organization struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Organization) TableName() string {
	return "organization"
}
