// Package repository 提供了数据访问层的实现。
package repository

import (
	"errors"
	"sync"

	"pdf-qa-go/internal/index"
	"pdf-qa-go/internal/model"
)

// ErrDocumentNotFound 表示文档 ID 未注册。
var ErrDocumentNotFound = errors.New("document not found")

// Record 是一个已入库文档：分块、索引与元数据总是一起注册、一起删除。
type Record struct {
	ID       string
	Chunks   []model.Chunk
	Index    index.Index
	Metadata model.DocumentMetadata
}

// DocumentStore 是进程内的文档与问答日志存储，所有集合由同一把读写锁保护。
type DocumentStore struct {
	mu      sync.RWMutex
	order   []string
	records map[string]*Record
	qaLog   []model.QAEntry
}

// NewDocumentStore 创建一个空的 DocumentStore。
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{records: make(map[string]*Record)}
}

// Put 注册文档。同一 ID 已存在时被替换并返回旧记录，调用方负责释放旧索引；替换不改变其迭代位置。
func (s *DocumentStore) Put(rec Record) (*Record, error) {
	if rec.ID == "" {
		return nil, errors.New("document id is empty")
	}
	if rec.Index == nil {
		return nil, errors.New("document record has no index")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	old, exists := s.records[rec.ID]
	if !exists {
		s.order = append(s.order, rec.ID)
	}
	s.records[rec.ID] = &rec
	return old, nil
}

// Get 返回文档记录的副本。
func (s *DocumentStore) Get(id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return Record{}, ErrDocumentNotFound
	}
	return *rec, nil
}

// Delete 移除文档并返回被移除的记录。
func (s *DocumentStore) Delete(id string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return Record{}, ErrDocumentNotFound
	}
	delete(s.records, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i:i], s.order[i+1:]...)
			break
		}
	}
	return *rec, nil
}

// Clear 清空全部文档与问答日志，返回被移除的记录。
func (s *DocumentStore) Clear() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := make([]Record, 0, len(s.order))
	for _, id := range s.order {
		removed = append(removed, *s.records[id])
	}
	s.order = nil
	s.records = make(map[string]*Record)
	s.qaLog = nil
	return removed
}

// List 按注册顺序返回所有文档的快照。
func (s *DocumentStore) List() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.records[id])
	}
	return out
}

// IDs 按注册顺序返回文档 ID。
func (s *DocumentStore) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...)
}

func (s *DocumentStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Metadata 返回按文档 ID 索引的元数据表。
func (s *DocumentStore) Metadata() map[string]model.DocumentMetadata {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]model.DocumentMetadata, len(s.records))
	for id, rec := range s.records {
		out[id] = rec.Metadata
	}
	return out
}

// AppendQA 追加一条问答记录。
func (s *DocumentStore) AppendQA(entry model.QAEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.qaLog = append(s.qaLog, entry)
}

// QALog 返回问答日志的副本。
func (s *DocumentStore) QALog() []model.QAEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.QAEntry(nil), s.qaLog...)
}

func (s *DocumentStore) QACount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.qaLog)
}
