// Package tasks defines the structure for tasks that are sent to Kafka.
package tasks

// DocumentTask represents the payload of an async ingestion job.
type DocumentTask struct {
	DocumentID uint `json:"document_id"`
}
