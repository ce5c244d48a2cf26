package model

import "time"

// Document 对应于数据库中的 'document' 表。
// B64 保存上传时的 data URI（<prefix>;base64,<payload>），Text 保存入库管道
// 提取出的纯文本。EmbeddingsComplete 在管道全部成功后才会置为 true，
// 失败的文档保持 false，已写入的部分向量保留，由运维侧决定是否重新触发。
type Document struct {
	ID                 uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	OrganizationID     uint      `gorm:"index;not null" json:"organizationId"`
	Name               string    `gorm:"type:varchar(255);not null" json:"name"`
	Mime               string    `gorm:"type:varchar(255)" json:"mime"`
	B64                string    `gorm:"type:longtext" json:"-"`
	Text               string    `gorm:"type:longtext" json:"text"`
	EmbeddingsComplete bool      `gorm:"not null;default:false" json:"isEmbeddingsComplete"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Document) TableName() string {
	return "document"
}
