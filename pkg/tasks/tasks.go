// Package tasks defines the structure for tasks that are sent to Kafka.
package tasks

// IngestTask represents an uploaded PDF waiting to be extracted and indexed.
// The PDF itself lives in object storage under Bucket/ObjectName.
type IngestTask struct {
	DocumentID string `json:"document_id"`
	FileName   string `json:"file_name"`
	Bucket     string `json:"bucket"`
	ObjectName string `json:"object_name"`
}
