package service

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"pdf-qa-go/internal/config"
	"pdf-qa-go/internal/model"
	"pdf-qa-go/pkg/log"
	"pdf-qa-go/pkg/tasks"
)

// ObjectStore 是暂存上传 PDF 的对象存储，storage.ObjectStore 实现了它。
type ObjectStore interface {
	PutFile(ctx context.Context, bucket, object, path string) error
	FetchFile(ctx context.Context, bucket, object, dst string) error
	Remove(ctx context.Context, bucket, object string) error
}

// TaskQueue 投递异步入库任务，kafka.Producer 实现了它。
type TaskQueue interface {
	Enqueue(ctx context.Context, task tasks.IngestTask) error
}

// UploadService 接口定义了文件上传相关的业务操作。
type UploadService interface {
	Upload(ctx context.Context, file *multipart.FileHeader) (*model.IngestResult, error)
}

type uploadService struct {
	documents DocumentService
	storage   config.StorageConfig
	bucket    string
	objects   ObjectStore
	queue     TaskQueue
}

// NewUploadService 创建一个新的 UploadService 实例。objects 与 queue 都不为 nil 时异步入库，否则同步入库。
func NewUploadService(documents DocumentService, storage config.StorageConfig, bucket string, objects ObjectStore, queue TaskQueue) UploadService {
	return &uploadService{documents: documents, storage: storage, bucket: bucket, objects: objects, queue: queue}
}

func (s *uploadService) async() bool {
	return s.objects != nil && s.queue != nil
}

// Upload 保存上传的 PDF 并入库。异步模式下返回 queued 状态，由 Kafka 消费者完成入库。
func (s *uploadService) Upload(ctx context.Context, file *multipart.FileHeader) (*model.IngestResult, error) {
	name := filepath.Base(file.Filename)
	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		return nil, ErrNotPDF
	}
	if limit := s.storage.MaxFileSizeMB << 20; limit > 0 && file.Size > limit {
		return nil, fmt.Errorf("%w: %d MB", ErrFileTooLarge, s.storage.MaxFileSizeMB)
	}

	documentID := NewDocumentID()
	log.Infof("[UploadService] 收到上传文件, FileName: %s, Size: %d, DocumentID: %s", name, file.Size, documentID)

	// 1. 保存到上传目录
	path, err := s.save(file, documentID+"_"+name)
	if err != nil {
		return nil, err
	}
	defer os.Remove(path)

	// 2. 按内容确认是 PDF
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect upload: %w", err)
	}
	if !mt.Is("application/pdf") {
		log.Warnf("[UploadService] 文件内容不是 PDF, FileName: %s, MIME: %s", name, mt.String())
		return nil, ErrNotPDF
	}

	if !s.async() {
		return s.documents.Ingest(ctx, IngestRequest{Path: path, DocumentID: documentID, DocumentName: name})
	}

	// 3. 异步：上传到对象存储并投递任务
	task := tasks.IngestTask{DocumentID: documentID, FileName: name, Bucket: s.bucket, ObjectName: documentID + ".pdf"}
	if err := s.objects.PutFile(ctx, task.Bucket, task.ObjectName, path); err != nil {
		return nil, err
	}
	if err := s.queue.Enqueue(ctx, task); err != nil {
		log.Errorf("[UploadService] 投递入库任务失败, DocumentID: %s, Error: %v", documentID, err)
		if rmErr := s.objects.Remove(context.Background(), task.Bucket, task.ObjectName); rmErr != nil {
			log.Warnf("[UploadService] 清理对象失败: %v", rmErr)
		}
		return nil, fmt.Errorf("failed to enqueue ingest task: %w", err)
	}
	log.Infof("[UploadService] 入库任务已投递, DocumentID: %s", documentID)
	return &model.IngestResult{DocumentID: documentID, DocumentName: name, Status: model.StatusQueued}, nil
}

func (s *uploadService) save(file *multipart.FileHeader, name string) (string, error) {
	if err := os.MkdirAll(s.storage.UploadFolder, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload folder: %w", err)
	}
	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	path := filepath.Join(s.storage.UploadFolder, name)
	dst, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to save upload: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}
