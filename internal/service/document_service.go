package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"pdf-qa-go/internal/index"
	"pdf-qa-go/internal/model"
	"pdf-qa-go/internal/pipeline"
	"pdf-qa-go/internal/repository"
	"pdf-qa-go/pkg/log"
	"pdf-qa-go/pkg/metrics"
)

// DocumentProcessor 把一个 PDF 文件处理为分块，*pipeline.Processor 实现了它。
type DocumentProcessor interface {
	Process(ctx context.Context, path, name string) (*pipeline.Document, error)
}

// IngestRequest 描述一次入库。DocumentID 为空时自动生成，DocumentName 为空时使用文件名。
type IngestRequest struct {
	Path         string
	DocumentID   string
	DocumentName string
}

// DocumentService 接口定义了文档生命周期相关的业务操作。
type DocumentService interface {
	Ingest(ctx context.Context, req IngestRequest) (*model.IngestResult, error)
	IngestBatch(ctx context.Context, paths []string) *model.BatchResult
	IngestDir(ctx context.Context, dir string) (*model.BatchResult, error)
	Delete(ctx context.Context, documentID string) (*model.DocumentInfo, error)
	List() *model.DocumentListing
	Documents(includeContent bool) []model.DocumentInfo
	Clear(ctx context.Context) int
}

type documentService struct {
	processor DocumentProcessor
	builder   index.Builder
	store     *repository.DocumentStore
}

// NewDocumentService 创建一个新的 DocumentService 实例。
func NewDocumentService(processor DocumentProcessor, builder index.Builder, store *repository.DocumentStore) DocumentService {
	return &documentService{processor: processor, builder: builder, store: store}
}

// NewDocumentID 生成上传文档的 ID：doc_<时间>_<8 位随机十六进制>。
func NewDocumentID() string {
	return fmt.Sprintf("doc_%s_%s", time.Now().Format("20060102_150405"), uuid.NewString()[:8])
}

// batchDocumentID 生成批量入库的 ID：doc_<时间>_<序号>_<4 位随机十六进制>。
func batchDocumentID(ts string, i int) string {
	return fmt.Sprintf("doc_%s_%d_%s", ts, i, uuid.NewString()[:4])
}

// Ingest 提取、分块并建立索引，只有全部成功后才注册到存储中。
func (s *documentService) Ingest(ctx context.Context, req IngestRequest) (*model.IngestResult, error) {
	start := time.Now()
	res, err := s.ingest(ctx, req)
	metrics.IngestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.IngestTotal.WithLabelValues(model.StatusError).Inc()
		return nil, err
	}
	metrics.IngestTotal.WithLabelValues(model.StatusSuccess).Inc()
	metrics.ChunksIndexed.Add(float64(res.ChunksCount))
	metrics.DocumentsRegistered.Set(float64(s.store.Len()))
	return res, nil
}

func (s *documentService) ingest(ctx context.Context, req IngestRequest) (*model.IngestResult, error) {
	if req.Path == "" {
		return nil, ErrFileNotFound
	}
	if _, err := os.Stat(req.Path); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, req.Path)
	}
	if req.DocumentID == "" {
		req.DocumentID = NewDocumentID()
	}
	if req.DocumentName == "" {
		req.DocumentName = filepath.Base(req.Path)
	}
	log.Infof("[DocumentService] 开始入库, DocumentID: %s, Path: %s", req.DocumentID, req.Path)

	doc, err := s.processor.Process(ctx, req.Path, req.DocumentName)
	if err != nil {
		return nil, fmt.Errorf("failed to process %s: %w", req.DocumentName, err)
	}
	if len(doc.Chunks) == 0 {
		log.Warnf("[DocumentService] 未能从文件中提取任何文本, Path: %s", req.Path)
		return nil, ErrNoTextExtracted
	}

	idx, err := s.builder.Build(ctx, req.DocumentID, doc.Chunks)
	if err != nil {
		return nil, fmt.Errorf("failed to build vector index: %w", err)
	}

	old, err := s.store.Put(repository.Record{
		ID:       req.DocumentID,
		Chunks:   doc.Chunks,
		Index:    idx,
		Metadata: doc.Metadata,
	})
	if err != nil {
		dropIndex(idx, req.DocumentID)
		return nil, err
	}
	if old != nil {
		log.Infof("[DocumentService] 文档 %s 已存在，旧版本被替换", req.DocumentID)
		dropIndex(old.Index, req.DocumentID)
	}

	processedAt := doc.Metadata.ProcessedAt
	log.Infof("[DocumentService] 入库完成, DocumentID: %s, 分块数: %d, 总页数: %d", req.DocumentID, len(doc.Chunks), doc.Metadata.TotalPages)
	return &model.IngestResult{
		DocumentID:   req.DocumentID,
		DocumentName: req.DocumentName,
		PDFPath:      req.Path,
		Status:       model.StatusSuccess,
		ChunksCount:  len(doc.Chunks),
		TotalPages:   doc.Metadata.TotalPages,
		ProcessedAt:  &processedAt,
	}, nil
}

// IngestBatch 依次入库每个路径，单个文件失败只记录在结果中。
func (s *documentService) IngestBatch(ctx context.Context, paths []string) *model.BatchResult {
	ts := time.Now().Format("20060102_150405")
	batch := &model.BatchResult{
		Status:     model.StatusCompleted,
		TotalFiles: len(paths),
		Results:    make([]model.IngestResult, 0, len(paths)),
	}

	for i, path := range paths {
		if _, err := os.Stat(path); err != nil {
			log.Warnf("[DocumentService] 批量入库: 文件不存在, Path: %s", path)
			batch.Results = append(batch.Results, model.IngestResult{PDFPath: path, Status: model.StatusError, Error: "File not found"})
			batch.Failed++
			continue
		}
		res, err := s.Ingest(ctx, IngestRequest{Path: path, DocumentID: batchDocumentID(ts, i)})
		if err != nil {
			log.Errorf("[DocumentService] 批量入库: 文件处理失败, Path: %s, Error: %v", path, err)
			batch.Results = append(batch.Results, model.IngestResult{PDFPath: path, Status: model.StatusError, Error: err.Error()})
			batch.Failed++
			continue
		}
		batch.Results = append(batch.Results, *res)
		batch.Successful++
	}
	batch.ProcessedAt = model.Now()
	return batch
}

// IngestDir 批量入库目录下的全部 .pdf 文件（按文件名排序，不递归）。
func (s *documentService) IngestDir(ctx context.Context, dir string) (*model.BatchResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return s.IngestBatch(ctx, paths), nil
}

// Delete 同时移除文档的分块、索引与元数据。
func (s *documentService) Delete(ctx context.Context, documentID string) (*model.DocumentInfo, error) {
	rec, err := s.store.Delete(documentID)
	if err != nil {
		return nil, err
	}
	dropIndexCtx(ctx, rec.Index, documentID)
	metrics.DocumentsRegistered.Set(float64(s.store.Len()))
	info := documentInfo(rec, false)
	log.Infof("[DocumentService] 文档已删除, DocumentID: %s, Name: %s", documentID, info.DocumentName)
	return &info, nil
}

func (s *documentService) List() *model.DocumentListing {
	docs := s.Documents(false)
	return &model.DocumentListing{
		Documents:        docs,
		TotalCount:       len(docs),
		QAHistoryCount:   s.store.QACount(),
		DocumentMetadata: s.store.Metadata(),
	}
}

// Documents 按注册顺序返回文档信息，includeContent 为 true 时附带全部分块。
func (s *documentService) Documents(includeContent bool) []model.DocumentInfo {
	records := s.store.List()
	out := make([]model.DocumentInfo, 0, len(records))
	for _, rec := range records {
		out = append(out, documentInfo(rec, includeContent))
	}
	return out
}

// Clear 清空全部状态并释放索引，返回被移除的文档数。
func (s *documentService) Clear(ctx context.Context) int {
	removed := s.store.Clear()
	for _, rec := range removed {
		dropIndexCtx(ctx, rec.Index, rec.ID)
	}
	metrics.DocumentsRegistered.Set(0)
	log.Infof("[DocumentService] 已清空全部文档与问答记录, 移除文档数: %d", len(removed))
	return len(removed)
}

func documentInfo(rec repository.Record, includeContent bool) model.DocumentInfo {
	info := model.DocumentInfo{
		DocumentID:   rec.ID,
		ChunksCount:  len(rec.Chunks),
		Status:       model.StatusProcessed,
		DocumentName: rec.Metadata.Filename,
		TotalPages:   rec.Metadata.TotalPages,
	}
	if len(rec.Chunks) > 0 {
		first := rec.Chunks[0].Metadata
		if info.DocumentName == "" {
			info.DocumentName = first.Source
		}
		if info.TotalPages == 0 {
			info.TotalPages = first.TotalPages
		}
		processedAt := first.ProcessedAt
		info.ProcessedAt = &processedAt
	}
	if includeContent {
		info.Content = rec.Chunks
	}
	return info
}

func dropIndex(idx index.Index, documentID string) {
	dropIndexCtx(context.Background(), idx, documentID)
}

func dropIndexCtx(ctx context.Context, idx index.Index, documentID string) {
	if idx == nil {
		return
	}
	// 请求被取消时仍然要释放后端数据
	if err := idx.Drop(context.WithoutCancel(ctx)); err != nil {
		log.Errorf("[DocumentService] 释放文档 %s 的索引失败: %v", documentID, err)
	}
}
