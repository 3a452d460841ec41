package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"pdf-qa-go/pkg/log"
	"pdf-qa-go/pkg/tasks"
)

// IngestProcessor 消费 Kafka 入库任务：从对象存储下载 PDF 后入库，满足 kafka.TaskProcessor。
type IngestProcessor struct {
	documents  DocumentService
	objects    ObjectStore
	tempFolder string
}

// NewIngestProcessor 创建一个新的 IngestProcessor 实例。
func NewIngestProcessor(documents DocumentService, objects ObjectStore, tempFolder string) *IngestProcessor {
	return &IngestProcessor{documents: documents, objects: objects, tempFolder: tempFolder}
}

func (p *IngestProcessor) Process(ctx context.Context, task tasks.IngestTask) error {
	log.Infof("[IngestProcessor] 开始处理任务, DocumentID: %s, Object: %s/%s", task.DocumentID, task.Bucket, task.ObjectName)

	// 1. 下载到临时目录
	if err := os.MkdirAll(p.tempFolder, 0o755); err != nil {
		return fmt.Errorf("failed to create temp folder: %w", err)
	}
	path := filepath.Join(p.tempFolder, task.DocumentID+".pdf")
	if err := p.objects.FetchFile(ctx, task.Bucket, task.ObjectName, path); err != nil {
		return err
	}
	defer os.Remove(path)

	// 2. 入库
	if _, err := p.documents.Ingest(ctx, IngestRequest{Path: path, DocumentID: task.DocumentID, DocumentName: task.FileName}); err != nil {
		return err
	}

	// 3. 入库成功后删除对象
	if err := p.objects.Remove(ctx, task.Bucket, task.ObjectName); err != nil {
		log.Warnf("[IngestProcessor] 删除已入库对象失败, Object: %s/%s, Error: %v", task.Bucket, task.ObjectName, err)
	}
	return nil
}
