package model

// Embedding 对应于数据库中的 'embedding' 表，一行代表文档的一个切块。
// ChunkID 为切块在文档内的序号，0 号记录的文本是文档名本身，
// 用于让检索也能匹配文件名语义。向量本体存放在 Elasticsearch 索引中，
// 与本表记录通过主键 ID 一一对应。
type Embedding struct {
	ID         uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	DocumentID uint   `gorm:"index;not null" json:"documentId"`
	ChunkID    int    `gorm:"not null" json:"chunkId"`
	Text       string `gorm:"type:text" json:"text"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Embedding) TableName() string {
	return "embedding"
}

// EsEmbedding 代表存储在 Elasticsearch 中的向量文档结构。
type EsEmbedding struct {
	EmbeddingID    uint      `json:"embedding_id"`
	DocumentID     uint      `json:"document_id"`
	OrganizationID uint      `json:"organization_id"`
	ChunkID        int       `json:"chunk_id"`
	Text           string    `json:"text"`
	Vector         []float32 `json:"vector"`
}
