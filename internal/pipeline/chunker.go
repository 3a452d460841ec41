package pipeline

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tmc/langchaingo/textsplitter"
)

const (
	DefaultChunkSize    = 800
	DefaultChunkOverlap = 200
	minChunkLength      = 10
)

// chunkSeparators 从粗到细：段落、换行、句号加空格、空格、逐字符切分。
var chunkSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// PageChunk 是单页文本切出的一个分块，Index 为该分块在页内切分结果中的位置（从 0 开始）。
type PageChunk struct {
	Index   int
	Content string
}

// Chunker 按递归字符策略切分页面文本。
type Chunker struct {
	splitter textsplitter.TextSplitter
}

// NewChunker 创建分块器，size/overlap 以字符计。
func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = size / 4
	}
	return &Chunker{
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(size),
			textsplitter.WithChunkOverlap(overlap),
			textsplitter.WithSeparators(chunkSeparators),
		),
	}
}

// Split 切分文本并丢弃去空白后不超过 10 个字符的分块。被丢弃的分块仍占用其序号。
func (c *Chunker) Split(text string) ([]PageChunk, error) {
	parts, err := c.splitter.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("split text: %w", err)
	}
	chunks := make([]PageChunk, 0, len(parts))
	for i, p := range parts {
		if utf8.RuneCountInString(strings.TrimSpace(p)) <= minChunkLength {
			continue
		}
		chunks = append(chunks, PageChunk{Index: i, Content: p})
	}
	return chunks, nil
}
