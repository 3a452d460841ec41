package repository

import (
	"context"

	"gorm.io/gorm"

	"pdf-qa-go/internal/model"
)

// QARepository 把问答记录归档到 MySQL，内存中的问答日志被清空后归档仍然保留。
type QARepository interface {
	Create(ctx context.Context, record *model.QARecord) error
	FindRecent(ctx context.Context, limit int) ([]model.QARecord, error)
}

type qaRepository struct {
	db *gorm.DB
}

// NewQARepository 创建一个新的 QARepository 实例。
func NewQARepository(db *gorm.DB) QARepository {
	return &qaRepository{db: db}
}

// AutoMigrate 创建或更新 qa_records 表。
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&model.QARecord{})
}

func (r *qaRepository) Create(ctx context.Context, record *model.QARecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// FindRecent 按时间倒序返回最近 limit 条记录。
func (r *qaRepository) FindRecent(ctx context.Context, limit int) ([]model.QARecord, error) {
	var records []model.QARecord
	err := r.db.WithContext(ctx).Order("created_at desc").Limit(limit).Find(&records).Error
	return records, err
}
