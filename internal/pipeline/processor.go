package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"pdf-qa-go/internal/model"
	"pdf-qa-go/pkg/log"
)

// Document 是一个 PDF 处理完成后的分块和元数据，尚未建立索引。
type Document struct {
	Chunks   []model.Chunk
	Metadata model.DocumentMetadata
}

// Processor 封装 PDF 到分块的处理流程。
type Processor struct {
	extractor *Extractor
	chunker   *Chunker
	now       func() model.LocalTime
}

// NewProcessor 创建一个新的 Processor 实例。
func NewProcessor(extractor *Extractor, chunker *Chunker) *Processor {
	return &Processor{extractor: extractor, chunker: chunker, now: model.Now}
}

// Process 提取 path 的全部页面并切分为带元数据的分块。name 为空时使用文件名。
func (p *Processor) Process(ctx context.Context, path, name string) (*Document, error) {
	if name == "" {
		name = filepath.Base(path)
	}
	log.Infof("[Processor] 开始处理文件, Path: %s, Name: %s", path, name)

	log.Info("[Processor] 步骤1: 逐页提取文本")
	extracted, err := p.extractor.Extract(ctx, path, name)
	if err != nil {
		log.Errorf("[Processor] 文本提取失败, Path: %s, Error: %v", path, err)
		return nil, err
	}

	log.Info("[Processor] 步骤2: 进行文本分块")
	var chunks []model.Chunk
	for _, page := range extracted.Pages {
		parts, err := p.chunker.Split(page.Text)
		if err != nil {
			return nil, fmt.Errorf("第 %d 页分块失败: %w", page.Number, err)
		}
		for _, part := range parts {
			chunks = append(chunks, model.Chunk{
				Content: part.Content,
				Metadata: model.ChunkMetadata{
					Source:           name,
					SourcePath:       path,
					PageNumber:       page.Number,
					TotalPages:       extracted.TotalPages,
					Section:          page.Section,
					ChunkIndex:       part.Index,
					ExtractionMethod: page.Method,
					ProcessedAt:      p.now(),
				},
			})
		}
	}
	log.Infof("[Processor] 步骤2: 文本分块完成, 共生成 %d 个分块, 总页数: %d", len(chunks), extracted.TotalPages)

	return &Document{
		Chunks: chunks,
		Metadata: model.DocumentMetadata{
			Filename:    name,
			FullPath:    path,
			ProcessedAt: p.now(),
			TotalPages:  extracted.TotalPages,
		},
	}, nil
}
